package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/urbanfleet/fleetcore/internal/crypto/domain"
)

func TestLoadOrCreateMasterKey(t *testing.T) {
	t.Run("generates and persists on first run", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "keys", "master.key")

		key, err := LoadOrCreateMasterKey(path)
		require.NoError(t, err)
		assert.Len(t, key, cryptoDomain.MasterKeySize)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("loads the same key on subsequent runs", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "master.key")

		first, err := LoadOrCreateMasterKey(path)
		require.NoError(t, err)

		second, err := LoadOrCreateMasterKey(path)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("rejects corrupted key file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "master.key")
		require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o600))

		_, err := LoadOrCreateMasterKey(path)
		assert.Error(t, err)
	})

	t.Run("rejects truncated key", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "master.key")
		require.NoError(t, os.WriteFile(path, []byte("c2hvcnQ=\n"), 0o600))

		_, err := LoadOrCreateMasterKey(path)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
	})
}
