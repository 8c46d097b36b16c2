// Package auth issues and verifies share link tokens.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// keyHexLength is a 32-byte PASETO v4 symmetric key encoded as hex.
const keyHexLength = 64

// LoadOrGenerateKey returns the hex-encoded share key stored in <dataDir>/share.key,
// generating and saving a new one on first use.
func LoadOrGenerateKey(dataDir string) (string, error) {
	keyPath := filepath.Join(dataDir, "share.key")

	//#nosec G304 -- key path is derived from the configured data dir
	if keyBytes, err := os.ReadFile(keyPath); err == nil {
		keyHex := strings.TrimSpace(string(keyBytes))
		if len(keyHex) != keyHexLength {
			return "", fmt.Errorf("invalid share key length: expected %d hex chars, got %d", keyHexLength, len(keyHex))
		}
		if _, err := hex.DecodeString(keyHex); err != nil {
			return "", fmt.Errorf("invalid share key format: not valid hex: %w", err)
		}
		return keyHex, nil
	}

	key := make([]byte, keyHexLength/2)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate share key: %w", err)
	}
	keyHex := hex.EncodeToString(key)

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(keyHex), 0o600); err != nil {
		return "", fmt.Errorf("save share key: %w", err)
	}
	return keyHex, nil
}
