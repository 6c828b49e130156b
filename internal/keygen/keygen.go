// Package keygen produces API key secrets and their lookup digests.
package keygen

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Prefix marks a string as a KLYA API key.
const Prefix = "klya_"

const secretBytes = 32

// HintLength is how much of a secret is kept in clear for display.
const HintLength = len(Prefix) + 7

var entropy io.Reader = rand.Reader

// Generate returns a new raw secret: Prefix followed by 64 hex characters.
func Generate() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := io.ReadFull(entropy, buf); err != nil {
		return "", fmt.Errorf("failed to generate random key: %w", err)
	}

	return Prefix + hex.EncodeToString(buf), nil
}

// Digest returns the hex-encoded SHA-256 of a secret.
func Digest(secret string) string {
	hash := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(hash[:])
}

// Hint returns the displayable head of a secret ("klya_1a2b3c4").
func Hint(secret string) string {
	if len(secret) <= HintLength {
		return secret
	}
	return secret[:HintLength]
}
