package test

import (
	"path/filepath"

	"github.com/meow-io/go-msgstore/clock"
	"github.com/meow-io/go-msgstore/config"
	db "github.com/meow-io/go-msgstore/internal/db"
)

var testKey = []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31}

// NewTestDatabase makes an initialized, open database under dir with a fixed
// key, for use in tests.
func NewTestDatabase(dir string) *db.Database {
	c := config.NewConfig(config.WithRootDir(dir), config.WithLoggingPrefix("test"))
	d, err := db.NewDatabase(c, clock.NewSystemClock(), filepath.Join(dir, "data"))
	if err != nil {
		panic(err)
	}
	if err := d.Initialize(testKey); err != nil {
		panic(err)
	}
	if err := d.Open(testKey); err != nil {
		panic(err)
	}
	return d
}
