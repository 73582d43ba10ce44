package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// Common domain errors
	ErrNotFound                 = errors.New("entity not found")
	ErrAlreadyExists            = errors.New("entity already exists")
	ErrInvalidArgument          = errors.New("invalid argument")
	ErrForbidden                = errors.New("forbidden")
	ErrUnauthorized             = errors.New("unauthorized")
	ErrActiveSubscriptionExists = errors.New("user already has an active subscription")
	ErrSubscriptionNotActive    = errors.New("subscription is not active")
	ErrLocked                   = errors.New("resource is locked by another operation")
	ErrRateLimited              = errors.New("rate limit exceeded")

	// Infrastructure errors surfaced by repositories
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid database execution context")
)

// ValidationError reports field-level problems with caller input.
// It matches ErrInvalidArgument under errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidArgument }
