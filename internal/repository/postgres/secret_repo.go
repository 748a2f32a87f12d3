package postgres

import (
	"context"
	"errors"

	"github.com/envault/envault/internal/errs"
	"github.com/envault/envault/internal/model"
	"github.com/jackc/pgx/v5"
)

// SecretRepo implements SecretRepository using PostgreSQL.
type SecretRepo struct{ db *DB }

// NewSecretRepo constructs a secret repository.
func NewSecretRepo(db *DB) *SecretRepo { return &SecretRepo{db: db} }

// Create inserts a new record. The primary key on project_id arbitrates
// concurrent creates: all but the first insert fail with ErrConflict.
func (r *SecretRepo) Create(ctx context.Context, rec *model.SecretRecord) error {
	const q = `
INSERT INTO secrets (project_id, content_enc, access_key)
VALUES ($1, $2, $3)`
	_, err := r.db.Pool.Exec(ctx, q, rec.ProjectID, []byte(rec.ContentEnc), rec.AccessKey)
	if isUniqueViolation(err) {
		return errs.ErrConflict
	}
	return err
}

// GetByAccessKey selects the record the key was issued for.
func (r *SecretRepo) GetByAccessKey(ctx context.Context, accessKey string) (*model.SecretRecord, error) {
	const q = `
SELECT project_id, content_enc, access_key, created_at, updated_at
FROM secrets WHERE access_key=$1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, accessKey))
}

// Get selects the record for a project ID.
func (r *SecretRepo) Get(ctx context.Context, projectID string) (*model.SecretRecord, error) {
	const q = `
SELECT project_id, content_enc, access_key, created_at, updated_at
FROM secrets WHERE project_id=$1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, projectID))
}

func (r *SecretRepo) scanOne(row pgx.Row) (*model.SecretRecord, error) {
	var rec model.SecretRecord
	var blob []byte
	if err := row.Scan(&rec.ProjectID, &blob, &rec.AccessKey, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	rec.ContentEnc = model.EncryptedBlob(blob)
	return &rec, nil
}

// UpdateContent replaces the stored ciphertext for a live record.
func (r *SecretRepo) UpdateContent(ctx context.Context, projectID string, content model.EncryptedBlob) error {
	const q = `UPDATE secrets SET content_enc=$2, updated_at=now() WHERE project_id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, projectID, []byte(content))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes the record permanently. A later store for the same project
// starts a fresh lifecycle with a new access key.
func (r *SecretRepo) Delete(ctx context.Context, projectID string) error {
	const q = `DELETE FROM secrets WHERE project_id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, projectID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
