// Package domain holds the error taxonomy shared by the service and handler
// layers.  Every failure the reservation engine reports is one of the typed
// errors below so handlers can map it to a status code in one place and
// clients can tell their own mistakes apart from transient server trouble.
package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// NotFoundError reports that a ticket type, booking or user is absent.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// InsufficientStockError carries the quantity that was still available when
// the request was refused.
type InsufficientStockError struct {
	Available int
	Requested int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d", e.Requested, e.Available)
}

// InvalidTransitionError reports a booking state change that the state
// machine does not allow.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// ValidationError is a field-level input error.  Fields maps the offending
// field (json name) to a human readable message.
type ValidationError struct {
	Fields map[string]string
	Msg    string
}

func (e ValidationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if len(e.Fields) == 0 {
		return "validation error"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return strings.Join(parts, "; ")
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) ValidationError {
	return ValidationError{Fields: map[string]string{field: msg}}
}

type ConflictError struct {
	Resource string
	Msg      string
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

type ForbiddenError struct {
	Msg string
}

func (e ForbiddenError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "forbidden"
}

// UnauthorizedError reports missing or wrong credentials.
type UnauthorizedError struct {
	Msg string
}

func (e UnauthorizedError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "unauthorized"
}

// FailureError wraps a storage or transaction failure.  These are safe for
// the caller to retry.
type FailureError struct {
	Op  string
	Err error
}

func (e FailureError) Error() string {
	if e.Err == nil {
		return e.Op + ": failure"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e FailureError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was caused by a deadline, e.g. a lock
// wait that exceeded the unit-of-work timeout.
func (e FailureError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Failure wraps err as a FailureError unless it already is one of the typed
// errors above, in which case it is returned unchanged.
func Failure(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsTyped(err) {
		return err
	}
	return FailureError{Op: op, Err: err}
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsInsufficientStock(err error) bool {
	var target InsufficientStockError
	return errors.As(err, &target)
}

func IsInvalidTransition(err error) bool {
	var target InvalidTransitionError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target ForbiddenError
	return errors.As(err, &target)
}

func IsUnauthorized(err error) bool {
	var target UnauthorizedError
	return errors.As(err, &target)
}

func IsFailure(err error) bool {
	var target FailureError
	return errors.As(err, &target)
}

// IsTyped reports whether err is already part of the taxonomy.
func IsTyped(err error) bool {
	return IsNotFound(err) || IsInsufficientStock(err) || IsInvalidTransition(err) ||
		IsValidation(err) || IsConflict(err) || IsForbidden(err) || IsUnauthorized(err) || IsFailure(err)
}
