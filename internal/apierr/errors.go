// Package apierr defines the error taxonomy every upstream client maps
// provider responses into. No raw provider error shape crosses the gateway
// boundary except as an opaque Details payload for diagnostics.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable, machine-readable error classification.
type Kind string

const (
	// KindClient covers bad input and malformed upstream grammar.
	KindClient Kind = "client_error"

	// KindPending is the device-flow "authorization pending" signal. It is
	// a ClientError the caller must treat as retryable, never terminal.
	KindPending Kind = "authorization_pending"

	// KindUnauthenticated maps upstream 401 responses.
	KindUnauthenticated Kind = "unauthenticated"

	// KindUnauthorized maps upstream 403 responses.
	KindUnauthorized Kind = "unauthorized"

	// KindNotFound is used narrowly for genuinely absent resources.
	KindNotFound Kind = "not_found"

	// KindUpstream covers upstream 5xx and network failures.
	KindUpstream Kind = "upstream_fault"
)

// Error carries a kind, a human message and an optional opaque upstream
// payload. It implements errors.Is matching by kind so call sites can branch
// on classification without string comparison.
type Error struct {
	Kind    Kind
	Message string
	Details json.RawMessage
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error by kind, ignoring message and details. This lets
// errors.Is(err, &Error{Kind: KindPending}) act like a sentinel comparison.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// HTTPStatus returns the status code this error should surface as.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindPending, KindClient:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindUnauthorized:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// New creates a kinded error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a kinded error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a kinded error whose cause is preserved for errors.Unwrap.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithDetails attaches an opaque upstream payload and returns the error.
func (e *Error) WithDetails(details []byte) *Error {
	if len(details) > 0 {
		e.Details = json.RawMessage(details)
	}
	return e
}

// Pending is the retryable device-flow poll signal. The message is part of
// the client contract and must not change.
func Pending() *Error {
	return &Error{Kind: KindPending, Message: "Authorization pending"}
}

// FromStatus classifies an upstream HTTP status into the taxonomy. It is the
// single place provider status codes become gateway errors.
func FromStatus(status int, upstream string, body []byte) *Error {
	var e *Error
	switch {
	case status == http.StatusUnauthorized:
		e = Newf(KindUnauthenticated, "%s rejected credentials", upstream)
	case status == http.StatusForbidden:
		e = Newf(KindUnauthorized, "%s denied access", upstream)
	case status == http.StatusNotFound:
		e = Newf(KindNotFound, "%s resource not found", upstream)
	case status >= 400 && status < 500:
		e = Newf(KindClient, "%s rejected request (status %d)", upstream, status)
	default:
		e = Newf(KindUpstream, "%s request failed (status %d)", upstream, status)
	}
	return e.WithDetails(body)
}

// IsKind reports whether err (or anything it wraps) carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf extracts the kind from err, defaulting to KindUpstream for errors
// that never passed through a call-site mapping (programming errors, plain
// network failures surfaced raw).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}
