package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cryptoDomain "github.com/urbanfleet/fleetcore/internal/crypto/domain"
)

// LoadOrCreateMasterKey loads the master secret from path, generating and
// persisting a new 32-byte secret on first run.
//
// Loss of this file permanently strands all previously encrypted data: there is
// no key escrow and no recovery path. This is an explicit, documented risk of
// the single-secret design, not a bug.
func LoadOrCreateMasterKey(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		key, decErr := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
		if decErr != nil {
			return nil, fmt.Errorf("failed to decode key file %s: %w", path, decErr)
		}
		if len(key) != cryptoDomain.MasterKeySize {
			return nil, cryptoDomain.ErrInvalidKeySize
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read key file %s: %w", path, err)
	}

	key := make([]byte, cryptoDomain.MasterKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create key directory: %w", err)
		}
	}

	encoded := base64.StdEncoding.EncodeToString(key) + "\n"
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return nil, fmt.Errorf("failed to persist master key: %w", err)
	}

	return key, nil
}
