package msgstore

import (
	"testing"

	"github.com/meow-io/go-msgstore/config"
	"github.com/stretchr/testify/require"
)

func TestReadOrCreateSaltStable(t *testing.T) {
	require := require.New(t)
	c := config.NewConfig(config.WithRootDir(t.TempDir()))
	salt1, err := ReadOrCreateSalt(c)
	require.Nil(err)
	require.NotEmpty(salt1)
	salt2, err := ReadOrCreateSalt(c)
	require.Nil(err)
	require.Equal(salt1, salt2)
}

func TestReadOrCreateSaltDistinctPerRoot(t *testing.T) {
	require := require.New(t)
	salt1, err := ReadOrCreateSalt(config.NewConfig(config.WithRootDir(t.TempDir())))
	require.Nil(err)
	salt2, err := ReadOrCreateSalt(config.NewConfig(config.WithRootDir(t.TempDir())))
	require.Nil(err)
	require.NotEqual(salt1, salt2)
}

func TestSaltSurvivesDestroy(t *testing.T) {
	require := require.New(t)
	c := config.NewConfig(config.WithRootDir(t.TempDir()))
	s, err := Open(c, "some passphrase")
	require.Nil(err)
	salt := s.ReadLocalDeviceSalt()
	require.Nil(s.Close())

	require.Nil(Destroy(c))
	require.False(Exists(c))

	s, err = Open(c, "some passphrase")
	require.Nil(err)
	defer func() {
		require.Nil(s.Close())
	}()
	require.Equal(salt, s.ReadLocalDeviceSalt())
}
