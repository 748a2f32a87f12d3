// Package crypto implements server-side access key generation.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
)

// AccessKeyBytes is the entropy of an issued access key. 32 random bytes
// encoded as URL-safe base64 yield a 43-character header-safe token.
const AccessKeyBytes = 32

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// NewAccessKey returns a fresh opaque bearer key. Nothing about the project
// or its content is derivable from the key.
func NewAccessKey() (string, error) {
	b, err := RandBytes(AccessKeyBytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
