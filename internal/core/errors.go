package core

import "errors"

// Engine error taxonomy. Every failure surfaced by the ledger engine wraps
// one of these sentinels so callers can branch with errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrRateLimited  = errors.New("rate limited")
	ErrBlocked      = errors.New("request blocked")
	ErrExtraction   = errors.New("extraction output has no structured payload")
	ErrStore        = errors.New("store failure")
)
