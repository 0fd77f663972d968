package ledger

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCategory is the normalized taxonomy for ledger failures.
type ErrorCategory string

const (
	// ErrorTimeout: no answer or no finality within the deadline
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorProviderOutage: node unreachable or answering 5xx
	ErrorProviderOutage ErrorCategory = "provider_outage"

	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorRejected: the node or the contract refused the transaction
	ErrorRejected ErrorCategory = "rejected"

	// ErrorBadData: the node answered with something we cannot decode
	ErrorBadData ErrorCategory = "bad_data"

	ErrorNotFound ErrorCategory = "not_found"

	ErrorInternal ErrorCategory = "internal"
)

// Error wraps a ledger failure with its category.
type Error struct {
	Category   ErrorCategory
	Op         string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("ledger %s [%s]: %s: %v", e.Op, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("ledger %s [%s]: %s", e.Op, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func newError(category ErrorCategory, op, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Op:         op,
		Message:    message,
		Underlying: underlying,
		Retryable: category == ErrorTimeout ||
			category == ErrorProviderOutage ||
			category == ErrorRateLimited,
	}
}

// transportError classifies a failed HTTP round trip.
func transportError(ctx context.Context, op string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return newError(ErrorTimeout, op, "request timed out", err)
	}
	return newError(ErrorProviderOutage, op, "node unreachable", err)
}

// IsRetryable reports whether the failure is worth trying again later.
func IsRetryable(err error) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Retryable
	}
	return false
}

// CategoryOf returns the category of err, ErrorInternal when it is not a
// ledger error.
func CategoryOf(err error) ErrorCategory {
	var le *Error
	if errors.As(err, &le) {
		return le.Category
	}
	return ErrorInternal
}
