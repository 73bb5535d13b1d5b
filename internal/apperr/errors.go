// Package apperr holds the error kinds shared by every storefront package.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrAdminExists      = errors.New("an admin already exists, only one admin is allowed")
)

// ValidationError reports a single rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// RemoteError is a failure of the backing store or broker. The message of
// the underlying error is passed through untouched.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Remote wraps err as a RemoteError unless it is nil or already carries one
// of the domain kinds above.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrAdminExists) || errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrForbidden) {
		return err
	}
	return &RemoteError{Op: op, Err: err}
}

// IsRemote reports whether err came from the backing store.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
