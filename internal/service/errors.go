package service

import (
	"errors"
	"fmt"

	"github.com/klya-ai/klya-api/internal/repository"
)

var (
	// ErrNotFound means the record does not exist or belongs to another owner.
	ErrNotFound = repository.ErrNotFound
	// ErrConflict on key creation or rotation means the generated digest
	// collided; the caller should retry with a fresh secret.
	ErrConflict = repository.ErrConflict

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrNoSigningKey       = errors.New("jwt signing key is not configured")
)

// ValidationError rejects malformed input. It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
