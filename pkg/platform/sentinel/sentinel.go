package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into domain errors.
//
//   - ErrNotFound: row does not exist, or is not visible to the caller
//   - ErrConflict: a uniqueness constraint rejected the write
//   - ErrExpired: certificate validity window has elapsed
//   - ErrAlreadyUsed: a write-once field was already set
//   - ErrInvalidState: conditional update found the row in another state
//   - ErrUnavailable: backing service temporarily unreachable
//
// For malformed input use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
