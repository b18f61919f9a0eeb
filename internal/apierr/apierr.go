// Package apierr defines the closed set of error kinds the control plane
// returns to clients, each mapped to a stable HTTP status and message prefix.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a closed enum of API error categories.
type Kind string

const (
	InvalidArgument      Kind = "invalid_argument"
	Unauthorized         Kind = "unauthorized"
	Forbidden            Kind = "forbidden"
	NotFound             Kind = "not_found"
	AlreadyExists        Kind = "already_exists"
	PreconditionFailed   Kind = "precondition_failed"
	LicenseExhausted     Kind = "license_exhausted"
	SchedulerUnavailable Kind = "scheduler_unavailable"
	LowDisk              Kind = "low_disk"
	Internal             Kind = "internal"
)

var statusByKind = map[Kind]int{
	InvalidArgument:      http.StatusBadRequest,
	Unauthorized:         http.StatusUnauthorized,
	Forbidden:            http.StatusForbidden,
	NotFound:             http.StatusNotFound,
	AlreadyExists:        http.StatusConflict,
	PreconditionFailed:   http.StatusPreconditionFailed,
	LicenseExhausted:     http.StatusPaymentRequired,
	SchedulerUnavailable: http.StatusServiceUnavailable,
	LowDisk:              http.StatusServiceUnavailable,
	Internal:             http.StatusInternalServerError,
}

// Error is an application error carrying a Kind and a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error that wraps an underlying cause, used when the
// message should be generic but the original error should remain in logs.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Status returns the HTTP status code for an error's Kind, defaulting to 500
// for errors that are not *Error (or unrecognized kinds).
func Status(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if status, ok := statusByKind[apiErr.Kind]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

// KindOf extracts the Kind from err, defaulting to Internal.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return Internal
}

// MessageOf extracts the user-facing message from err, defaulting to a
// generic internal error message that does not leak internals.
func MessageOf(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "internal error"
}
