package auth

import (
	"crypto/rand"
	"encoding/hex"
)

// SessionTokenLength is the length of session tokens in bytes.
const SessionTokenLength = 32

// GenerateSessionToken returns a cryptographically secure random token,
// hex encoded.
func GenerateSessionToken() (string, error) {
	b := make([]byte, SessionTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
