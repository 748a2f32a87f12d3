// Package repository declares storage interfaces for stored project secrets.
package repository

import (
	"context"

	"github.com/envault/envault/internal/model"
)

// SecretRepository provides access to stored project secrets. Exactly one
// live record may exist per project ID; the access key is the sole lookup
// credential after creation.
type SecretRepository interface {
	// Create inserts a new record. A live record with the same project ID
	// makes the whole call fail with errs.ErrConflict; concurrent creates
	// for one project ID succeed at most once.
	Create(ctx context.Context, rec *model.SecretRecord) error

	// GetByAccessKey returns the record the key was issued for, or
	// errs.ErrNotFound when the key matches nothing.
	GetByAccessKey(ctx context.Context, accessKey string) (*model.SecretRecord, error)

	// Get returns the record for a project ID, or errs.ErrNotFound.
	Get(ctx context.Context, projectID string) (*model.SecretRecord, error)

	// UpdateContent replaces the stored ciphertext, or errs.ErrNotFound.
	UpdateContent(ctx context.Context, projectID string, content model.EncryptedBlob) error

	// Delete removes the record permanently, or errs.ErrNotFound.
	Delete(ctx context.Context, projectID string) error
}
