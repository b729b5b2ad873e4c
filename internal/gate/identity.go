package gate

import (
	"context"
	"fmt"
	"strings"

	"welth/internal/core"
)

// UserStore is the slice of the ledger store identity resolution needs.
type UserStore interface {
	UpsertUser(ctx context.Context, externalID, email, name string) (core.User, error)
}

// UpstreamIdentity maps an already-verified bearer reference to a ledger
// user, creating the user row on first successful resolution. It trusts the
// upstream identity provider to have authenticated the credential.
type UpstreamIdentity struct {
	Users UserStore
}

func NewUpstreamIdentity(users UserStore) *UpstreamIdentity {
	return &UpstreamIdentity{Users: users}
}

func (i *UpstreamIdentity) ResolveUser(ctx context.Context, token string) (core.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return core.User{}, core.ErrUnauthorized
	}

	u, err := i.Users.UpsertUser(ctx, token, "", "")
	if err != nil {
		return core.User{}, fmt.Errorf("resolve user: %w", err)
	}
	return u, nil
}
