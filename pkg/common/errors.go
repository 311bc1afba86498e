package common

import "errors"

// Sentinel errors for the failure classes callers are expected to branch on.
// Transient collaborator failures are retried and, once exhausted, wrapped
// with ErrRetriesExhausted. Contract violations like an unknown query mode
// surface ErrUnsupportedMode immediately without retries.
var (
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrUnsupportedMode  = errors.New("unsupported query mode")
	ErrNotFound         = errors.New("record not found")
)
