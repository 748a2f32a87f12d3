// Package model defines domain entities used by services and repositories.
package model

import "time"

// EncryptedBlob is an opaque ciphertext produced on the client side.
// The server stores and returns it without ever inspecting the plaintext.
type EncryptedBlob []byte

// SecretRecord is a single stored project secret. ProjectID is chosen by the
// client and unique among live records; AccessKey is issued by the server at
// creation and never changes for the lifetime of the record.
type SecretRecord struct {
	ProjectID  string        // client-supplied identifier, PK
	ContentEnc EncryptedBlob // opaque AEAD blob
	AccessKey  string        // unique bearer credential, issued once
	CreatedAt  time.Time
	UpdatedAt  time.Time // maintained by the repo on content updates
}
