// Package apperr defines the structured failure taxonomy reported to API
// callers: every request-scoped failure carries a kind so clients can
// distinguish bad input from tool failures, missing resources, auth
// problems, and timeouts.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind string

const (
	// KindValidation marks missing or inconsistent caller input.
	KindValidation Kind = "validation"
	// KindExternal marks a failed external tool invocation (non-zero exit,
	// spawn failure), surfaced with the tool's diagnostic output.
	KindExternal Kind = "external"
	// KindNotFound marks an unknown workspace id, missing file or record.
	KindNotFound Kind = "not_found"
	// KindAuth marks OAuth failures: expired/unknown state, failed
	// exchange or refresh. Callers should prompt for re-login.
	KindAuth Kind = "auth"
	// KindTimeout marks a wall-clock expiry: an approval nobody answered
	// or an authorization flow left open too long.
	KindTimeout Kind = "timeout"
	// KindInternal is the fallback for everything else.
	KindInternal Kind = "internal"
)

// Error is a classified failure. Detail carries captured diagnostic
// output (e.g. git stderr) when available.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	wrapped error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.wrapped }

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error, keeping it reachable via Unwrap.
func Wrap(kind Kind, message string, err error) *Error {
	e := &Error{Kind: kind, Message: message, wrapped: err}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// WithDetail attaches diagnostic output (typically captured stderr).
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// KindOf returns the kind of err if it is (or wraps) an *Error, and
// KindInternal otherwise.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}
