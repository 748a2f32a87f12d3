// Package memory provides an in-process SecretRepository used by tests and
// the server's -mem development mode.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/envault/envault/internal/errs"
	"github.com/envault/envault/internal/model"
)

// SecretRepo stores records in maps guarded by one mutex. Create performs
// its uniqueness check and the insert inside a single critical section, so
// concurrent creates for one project ID admit exactly one winner.
type SecretRepo struct {
	mu      sync.RWMutex
	records map[string]*model.SecretRecord // project ID -> record
	byKey   map[string]string              // access key -> project ID
}

// NewSecretRepo constructs an empty in-memory repository.
func NewSecretRepo() *SecretRepo {
	return &SecretRepo{
		records: make(map[string]*model.SecretRecord),
		byKey:   make(map[string]string),
	}
}

// Create inserts a new record or fails with ErrConflict.
func (r *SecretRepo) Create(ctx context.Context, rec *model.SecretRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.ProjectID]; ok {
		return errs.ErrConflict
	}
	now := time.Now().UTC()
	cp := *rec
	cp.ContentEnc = append(model.EncryptedBlob(nil), rec.ContentEnc...)
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.records[cp.ProjectID] = &cp
	r.byKey[cp.AccessKey] = cp.ProjectID
	return nil
}

// GetByAccessKey returns a copy of the record the key was issued for.
func (r *SecretRepo) GetByAccessKey(ctx context.Context, accessKey string) (*model.SecretRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	projectID, ok := r.byKey[accessKey]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return copyRecord(r.records[projectID]), nil
}

// Get returns a copy of the record for a project ID.
func (r *SecretRepo) Get(ctx context.Context, projectID string) (*model.SecretRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[projectID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return copyRecord(rec), nil
}

// UpdateContent replaces the stored ciphertext.
func (r *SecretRepo) UpdateContent(ctx context.Context, projectID string, content model.EncryptedBlob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[projectID]
	if !ok {
		return errs.ErrNotFound
	}
	rec.ContentEnc = append(model.EncryptedBlob(nil), content...)
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes the record and invalidates its access key.
func (r *SecretRepo) Delete(ctx context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[projectID]
	if !ok {
		return errs.ErrNotFound
	}
	delete(r.byKey, rec.AccessKey)
	delete(r.records, projectID)
	return nil
}

func copyRecord(rec *model.SecretRecord) *model.SecretRecord {
	cp := *rec
	cp.ContentEnc = append(model.EncryptedBlob(nil), rec.ContentEnc...)
	return &cp
}
