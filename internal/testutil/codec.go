package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	cryptoService "github.com/urbanfleet/fleetcore/internal/crypto/service"
)

// SetupCodec creates a field codec with a fixed test master key.
func SetupCodec(t *testing.T) cryptoService.FieldCodec {
	t.Helper()

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}

	codec, err := cryptoService.NewFieldCodec(key)
	require.NoError(t, err, "failed to create test codec")

	return codec
}
