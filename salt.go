package msgstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/meow-io/go-msgstore/config"
)

const saltName = "salt"

// ReadOrCreateSalt returns the device-local salt, generating and persisting a
// fresh one on first use. The salt lives in its own file next to the database
// so it survives database deletion during account reset. It is never rotated.
// The provider never sees the passphrase or the derived key.
func ReadOrCreateSalt(c *config.Config) (string, error) {
	return readOrCreateSalt(c.RootDir, saltName)
}

func readOrCreateSalt(root, name string) (string, error) {
	saltPath := filepath.Join(root, name)
	if _, err := os.Stat(saltPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		salt := uuid.NewString()
		f, err := os.OpenFile(saltPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_SYNC, 0o400) // #nosec G304
		if err != nil {
			return "", err
		}
		if _, err := f.WriteString(salt); err != nil {
			_ = f.Close()
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		return salt, nil
	}
	b, err := os.ReadFile(saltPath) // #nosec G304
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return "", fmt.Errorf("expected non-empty salt at %s", saltPath)
	}
	return string(b), nil
}
