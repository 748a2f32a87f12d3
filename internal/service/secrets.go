// Package service contains the application service over stored project
// secrets.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/envault/envault/internal/crypto"
	"github.com/envault/envault/internal/errs"
	"github.com/envault/envault/internal/model"
	"github.com/envault/envault/internal/repository"
)

// MaxContentSize bounds accepted ciphertext (1 MiB). Dotenv files are tiny;
// anything bigger points at misuse.
const MaxContentSize = 1 << 20

// SecretService defines the remote operations of the exchange protocol.
type SecretService interface {
	// Store creates the record for a project and returns the freshly issued
	// access key. A live record for the same project yields ErrConflict.
	Store(ctx context.Context, projectID string, content model.EncryptedBlob) (accessKey string, err error)
	// Authorize resolves an access key to its project ID. A key matching no
	// live record yields ErrUnauthorized, whether it is wrong, stale or
	// invented.
	Authorize(ctx context.Context, accessKey string) (projectID string, err error)
	// Retrieve returns the stored ciphertext for the key's project.
	Retrieve(ctx context.Context, accessKey string) (model.EncryptedBlob, error)
	// Update replaces the stored ciphertext for the key's project.
	Update(ctx context.Context, accessKey string, content model.EncryptedBlob) error
	// Delete removes the key's project record permanently.
	Delete(ctx context.Context, accessKey string) error
}

type SecretServiceImpl struct {
	repo     repository.SecretRepository
	issueKey func() (string, error)
}

// NewSecretService constructs SecretService over the given repository.
// A nil issuer falls back to crypto.NewAccessKey; tests inject their own.
func NewSecretService(repo repository.SecretRepository, issueKey func() (string, error)) *SecretServiceImpl {
	if issueKey == nil {
		issueKey = crypto.NewAccessKey
	}
	return &SecretServiceImpl{repo: repo, issueKey: issueKey}
}

// Store validates input, issues the access key and delegates creation.
// The key is generated before the insert; if the insert loses a creation
// race the key is discarded and never leaves the server.
func (s *SecretServiceImpl) Store(ctx context.Context, projectID string, content model.EncryptedBlob) (string, error) {
	if err := ValidateProjectID(projectID); err != nil {
		return "", err
	}
	if err := ValidateContent(content); err != nil {
		return "", err
	}
	key, err := s.issueKey()
	if err != nil {
		return "", fmt.Errorf("issue access key: %w", err)
	}
	rec := &model.SecretRecord{ProjectID: projectID, ContentEnc: content, AccessKey: key}
	if err := s.repo.Create(ctx, rec); err != nil {
		return "", err
	}
	return key, nil
}

// Authorize maps the repo's not-found onto ErrUnauthorized so callers
// cannot tell a wrong key from a never-issued one.
func (s *SecretServiceImpl) Authorize(ctx context.Context, accessKey string) (string, error) {
	if accessKey == "" {
		return "", errs.ErrUnauthorized
	}
	rec, err := s.repo.GetByAccessKey(ctx, accessKey)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", errs.ErrUnauthorized
		}
		return "", err
	}
	return rec.ProjectID, nil
}

// Retrieve authorizes the key and returns the project's ciphertext.
func (s *SecretServiceImpl) Retrieve(ctx context.Context, accessKey string) (model.EncryptedBlob, error) {
	projectID, err := s.Authorize(ctx, accessKey)
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return rec.ContentEnc, nil
}

// Update authorizes the key and replaces the project's ciphertext. The
// access key is left untouched.
func (s *SecretServiceImpl) Update(ctx context.Context, accessKey string, content model.EncryptedBlob) error {
	if err := ValidateContent(content); err != nil {
		return err
	}
	projectID, err := s.Authorize(ctx, accessKey)
	if err != nil {
		return err
	}
	return s.repo.UpdateContent(ctx, projectID, content)
}

// Delete authorizes the key and removes the record. The key dies with it;
// a later store for the same project issues a fresh one.
func (s *SecretServiceImpl) Delete(ctx context.Context, accessKey string) error {
	projectID, err := s.Authorize(ctx, accessKey)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, projectID)
}

// ValidateProjectID checks the client-supplied identifier. Shared with the
// transport layer so bad input is rejected before it reaches storage.
func ValidateProjectID(projectID string) error {
	if strings.TrimSpace(projectID) == "" {
		return errors.New("validation: empty project_id")
	}
	if len(projectID) > 128 {
		return fmt.Errorf("validation: project_id too long (%d > 128)", len(projectID))
	}
	for _, r := range projectID {
		if unicode.IsControl(r) {
			return errors.New("validation: project_id contains control characters")
		}
	}
	return nil
}

// ValidateContent checks the opaque ciphertext bounds.
func ValidateContent(content model.EncryptedBlob) error {
	if len(content) == 0 {
		return errors.New("validation: empty encrypted_content")
	}
	if len(content) > MaxContentSize {
		return fmt.Errorf("validation: encrypted_content too large (%d > %d)", len(content), MaxContentSize)
	}
	return nil
}
