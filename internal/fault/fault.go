// Package fault defines the recoverable error taxonomy reported to callers.
// Anything not wrapping one of these sentinels is an infrastructure failure.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no active session could be resolved.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnauthorized means the caller is authenticated but is not a
	// permitted party or owner for the target entity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound means the entity id does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState means an illegal state transition was attempted,
	// e.g. completing an already-completed transaction.
	ErrInvalidState = errors.New("invalid state")
	// ErrDuplicateRating means a rating already exists for this
	// (transaction, rater) pair.
	ErrDuplicateRating = errors.New("duplicate rating")
	// ErrValidation is the base sentinel for out-of-range input.
	ErrValidation = errors.New("validation failed")
)

// Validationf builds a validation error with a caller-facing message.
// The result satisfies errors.Is(err, ErrValidation).
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
