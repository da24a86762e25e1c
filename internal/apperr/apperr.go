// Package apperr defines the domain error taxonomy. Services raise these
// at the point of detection; the handler layer maps them to HTTP statuses
// exactly once.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

// The token and forbidden errors are raised and answered inside the
// auth middleware; requests carrying them never reach a handler.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenMalformed     = errors.New("invalid token")
	ErrForbidden          = errors.New("admin privileges required")
	ErrNotFound           = errors.New("not found")
)

// ValidationError carries every violated field constraint, not just the
// first one, so the client can surface them all at once.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return "validation failed"
	}
	return "validation failed: " + e.Messages[0]
}

func Validation(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// ConflictError marks uniqueness violations (duplicate email, duplicate
// product name).
type ConflictError struct {
	Resource string
}

func (e *ConflictError) Error() string {
	return e.Resource + " already exists"
}

func Conflict(resource string) *ConflictError {
	return &ConflictError{Resource: resource}
}

// RateLimitedError reports how long the caller has to wait.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %d minutes", e.RetryAfterMinutes())
}

func (e *RateLimitedError) RetryAfterMinutes() int {
	m := int(e.RetryAfter.Round(time.Minute) / time.Minute)
	if m < 1 {
		m = 1
	}
	return m
}

// ProductUnavailableError names the offending product id.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return "product not available: " + e.ProductID
}

// InvalidTransitionError rejects a forbidden order status change.
type InvalidTransitionError struct {
	From, To string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}
