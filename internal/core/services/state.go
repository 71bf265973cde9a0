package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
)

// stateLength is the number of random bytes in an OAuth state parameter.
const stateLength = 32

// NewState creates a random state parameter for CSRF protection.
func NewState() (string, error) {
	bytes := make([]byte, stateLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// stateMatches compares states in constant time.
func stateMatches(want, got string) bool {
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
