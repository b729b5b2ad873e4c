// Package gate models the access and quota checks that run before any
// mutating ledger operation. Both capabilities are interfaces so the engine
// stays testable with deterministic fakes.
package gate

import (
	"context"
	"fmt"
	"time"

	"welth/internal/core"
)

// Authorizer decides whether a caller may spend cost units of quota.
// A nil return allows the operation; denials wrap core.ErrRateLimited or
// core.ErrBlocked and must abort the operation before any store access.
type Authorizer interface {
	Authorize(ctx context.Context, userID string, cost int) error
}

// Identity resolves a caller's bearer credential to a ledger user.
// Credential verification happens upstream (identity provider / proxy);
// implementations map the verified reference to a User, creating it on
// first sight. An unresolvable credential yields core.ErrUnauthorized.
type Identity interface {
	ResolveUser(ctx context.Context, token string) (core.User, error)
}

// RateLimitDenial reports an exhausted quota with retry detail.
type RateLimitDenial struct {
	Remaining  int
	RetryAfter time.Duration
}

func (d *RateLimitDenial) Error() string {
	return fmt.Sprintf("rate limited: %d remaining, retry in %s", d.Remaining, d.RetryAfter.Round(time.Second))
}

func (d *RateLimitDenial) Unwrap() error { return core.ErrRateLimited }
