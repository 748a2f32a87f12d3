// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across client/repo/service layers.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a project was already stored (first write wins).
	ErrConflict = errors.New("project already exists")

	// ErrUnauthorized indicates the access key matched no live record.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoAccessKey indicates the local project has no access key yet
	// (nothing was ever pushed, or the push never succeeded).
	ErrNoAccessKey = errors.New("no access key")

	// ErrIntegrity indicates ciphertext that fails authenticated decryption:
	// wrong key, truncation or tampering.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrRateLimited indicates a temporary block due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates the server could not be reached in time.
	ErrUnavailable = errors.New("server unavailable")
)
