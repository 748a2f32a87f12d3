// Package limiter defines interfaces and implementations for per-client
// abuse limiting on the authorized endpoints.
package limiter

import (
	"context"
	"time"
)

// Limiter tracks failed authorization attempts per client IP and applies
// temporary blocks.
type Limiter interface {
	// Allow reports whether requests are currently allowed and optional retry-after.
	Allow(ctx context.Context, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful authorization.
	Success(ctx context.Context, ipHash []byte) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, ipHash []byte) (bool, time.Duration, error)
}

// Noop allows everything. It backs deployments without a limiter store.
type Noop struct{}

func (Noop) Allow(context.Context, []byte) (bool, time.Duration, error)   { return true, 0, nil }
func (Noop) Success(context.Context, []byte) error                        { return nil }
func (Noop) Failure(context.Context, []byte) (bool, time.Duration, error) { return false, 0, nil }
