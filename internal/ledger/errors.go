package ledger

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for ledger calls.
type ErrorCategory string

const (
	// ErrorTimeout indicates the node took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the node returned an undecodable response
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorRejected indicates the network refused the payment
	ErrorRejected ErrorCategory = "rejected"

	// ErrorOutage indicates the node or relay is unavailable
	ErrorOutage ErrorCategory = "outage"

	// ErrorNotFound indicates the transaction is unknown to the node
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	ErrorInternal ErrorCategory = "internal"
)

// Error wraps ledger failures with a category.
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

// NewError creates a categorized error. Timeouts, outages and rate limiting
// are retryable.
func NewError(category ErrorCategory, op, message string, underlying error) *Error {
	retryable := category == ErrorTimeout ||
		category == ErrorOutage ||
		category == ErrorRateLimited

	return &Error{
		Category:   category,
		Op:         op,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Retryable
	}
	return false
}

// CategoryOf extracts the error category, defaulting to ErrorInternal.
func CategoryOf(err error) ErrorCategory {
	var le *Error
	if errors.As(err, &le) {
		return le.Category
	}
	return ErrorInternal
}
