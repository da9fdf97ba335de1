package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/usercore/backend/internal/config"
)

// LoadSigningKey resolves the process signing key. Precedence:
// AUTH_SIGNING_KEY env material, then the key file. On first run the key
// file is created with fresh random material, so tokens stay verifiable
// across restarts instead of dying with the process.
func LoadSigningKey(cfg config.AuthConfig) ([]byte, error) {
	if cfg.SigningKey != "" {
		return []byte(cfg.SigningKey), nil
	}

	if cfg.SigningKeyFile == "" {
		return nil, fmt.Errorf("%w: AUTH_SIGNING_KEY or AUTH_SIGNING_KEY_FILE is required", ErrMisconfigured)
	}

	data, err := os.ReadFile(cfg.SigningKeyFile)
	if err == nil {
		key, decodeErr := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if decodeErr != nil || len(key) == 0 {
			return nil, fmt.Errorf("%w: signing key file %s is not valid base64", ErrMisconfigured, cfg.SigningKeyFile)
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read signing key file: %w", err)
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(key) + "\n"
	if err := os.WriteFile(cfg.SigningKeyFile, []byte(encoded), 0o600); err != nil {
		return nil, fmt.Errorf("failed to persist signing key: %w", err)
	}
	log.Printf("generated new signing key at %s", cfg.SigningKeyFile)

	return key, nil
}
