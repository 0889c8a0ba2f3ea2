// Package errors provides custom error types for the analysis service.
// Every failure surfaced to a client carries a Kind so handlers can map it
// to an HTTP status without inspecting error strings.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// Base Error Type
// =============================================================================

// Error is the base error type for all service errors.
type Error struct {
	// Kind indicates the category of error
	Kind Kind

	// Op is the operation being performed (e.g., "slither.Run")
	Op string

	// Message is a human-readable description
	Message string

	// Detail carries bounded diagnostic text safe to return to clients
	// (e.g., a truncated stderr excerpt). Optional.
	Detail string

	// Err is the underlying error
	Err error
}

// Kind represents the kind/category of error.
type Kind uint8

const (
	KindUnknown Kind = iota

	// KindInvalidInput covers caller errors detected before any subprocess
	// is started (e.g., empty source text).
	KindInvalidInput

	// KindTooLarge means the submitted source exceeds the configured limit.
	KindTooLarge

	// KindRateLimit means the analyze rate limiter rejected the request.
	KindRateLimit

	// KindTimeout means the analyzer exceeded its wall-clock budget.
	KindTimeout

	// KindUpstream means the analyzer produced no usable or parseable output.
	KindUpstream

	// KindInternal covers unanticipated infrastructure failures
	// (temp directory creation, file writes).
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindTooLarge:
		return "too_large"
	case KindRateLimit:
		return "rate_limit"
	case KindTimeout:
		return "timeout"
	case KindUpstream:
		return "upstream_failure"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// HTTPStatus maps an error kind to an HTTP response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindUpstream, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// =============================================================================
// Constructors
// =============================================================================

// E constructs an Error from the given arguments.
// Arguments can be: Kind, string (Op then Message), error.
func E(args ...interface{}) error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Kind:
			e.Kind = a
		case string:
			if e.Op == "" {
				e.Op = a
			} else {
				e.Message = a
			}
		case error:
			e.Err = a
		}
	}
	return e
}

// New creates a new simple error.
func New(message string) error {
	return &Error{Message: message}
}

// Wrap wraps an error with additional context.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WithDetail constructs a kinded error carrying client-safe diagnostic text.
func WithDetail(kind Kind, message, detail string) error {
	return &Error{Kind: kind, Message: message, Detail: detail}
}

// =============================================================================
// Error Checkers
// =============================================================================

// GetKind returns the Kind of the error, or KindUnknown.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// GetDetail returns the diagnostic detail of the error, or empty.
func GetDetail(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	return ""
}

// IsInvalidInput checks if the error is a caller-input error.
func IsInvalidInput(err error) bool {
	k := GetKind(err)
	return k == KindInvalidInput || k == KindTooLarge
}

// IsTimeout checks if the error is a timeout error.
func IsTimeout(err error) bool {
	return GetKind(err) == KindTimeout
}

// IsUpstream checks if the error is an upstream analyzer failure.
func IsUpstream(err error) bool {
	return GetKind(err) == KindUpstream
}

// =============================================================================
// Common Errors
// =============================================================================

var (
	// ErrEmptySource is returned when the submitted source is empty after trimming.
	ErrEmptySource = &Error{Kind: KindInvalidInput, Message: "source_text is required"}

	// ErrSourceTooLarge is returned when the submitted source exceeds the size limit.
	ErrSourceTooLarge = &Error{Kind: KindTooLarge, Message: "source_text too large"}

	// ErrTimeout is returned when the analyzer exceeds its time budget.
	ErrTimeout = &Error{Kind: KindTimeout, Message: "analyzer timed out"}

	// ErrRateLimited is returned when the analyze limiter rejects a request.
	ErrRateLimited = &Error{Kind: KindRateLimit, Message: "rate limited"}
)
