// Package filecrypt contains the client-side AEAD used to protect secret
// files before they leave the machine. The server only ever sees the output
// of Encrypt.
package filecrypt

import (
	"crypto/rand"
	"fmt"

	"github.com/envault/envault/internal/errs"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the length of a project encryption key.
const KeySize = chacha20poly1305.KeySize

// GenerateKey returns a fresh random project key, independent of project
// name and content.
func GenerateKey() ([]byte, error) {
	b := make([]byte, KeySize)
	_, err := rand.Read(b)
	return b, err
}

// Encrypt seals plaintext with XChaCha20-Poly1305 and a random nonce. The
// nonce is prefixed to the ciphertext, so identical input produces distinct
// blobs on every call.
func Encrypt(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	out = append(out, aead.Seal(nil, nonce, plaintext, nil)...)
	return out, nil
}

// Decrypt opens a blob produced by Encrypt. Truncated input, a wrong key or
// any tampering yields errs.ErrIntegrity; plaintext is returned only when
// authentication succeeds.
func Decrypt(key, blob []byte) ([]byte, error) {
	if len(blob) < chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("%w: blob too short", errs.ErrIntegrity)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := blob[:chacha20poly1305.NonceSizeX]
	ct := blob[chacha20poly1305.NonceSizeX:]
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrIntegrity, err)
	}
	return pt, nil
}
