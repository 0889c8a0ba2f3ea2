package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindUnknown, "unknown"},
		{KindInvalidInput, "invalid_input"},
		{KindTooLarge, "too_large"},
		{KindRateLimit, "rate_limit"},
		{KindTimeout, "timeout"},
		{KindUpstream, "upstream_failure"},
		{KindInternal, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestKindHTTPStatus(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected int
	}{
		{KindInvalidInput, http.StatusBadRequest},
		{KindTooLarge, http.StatusRequestEntityTooLarge},
		{KindRateLimit, http.StatusTooManyRequests},
		{KindTimeout, http.StatusGatewayTimeout},
		{KindUpstream, http.StatusInternalServerError},
		{KindInternal, http.StatusInternalServerError},
		{KindUnknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := tt.kind.HTTPStatus(); got != tt.expected {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "message only",
			err:      &Error{Message: "something failed"},
			expected: "something failed",
		},
		{
			name:     "op and message",
			err:      &Error{Op: "slither.Run", Message: "write source"},
			expected: "slither.Run: write source",
		},
		{
			name:     "op, message and cause",
			err:      &Error{Op: "slither.Run", Message: "write source", Err: fmt.Errorf("disk full")},
			expected: "slither.Run: write source: disk full",
		},
		{
			name:     "message and cause",
			err:      &Error{Message: "write source", Err: fmt.Errorf("disk full")},
			expected: "write source: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestE(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := E(KindInternal, "slither.Run", "start analyzer", cause)

	var e *Error
	if !stderrors.As(err, &e) {
		t.Fatal("E did not return *Error")
	}
	if e.Kind != KindInternal {
		t.Errorf("Kind = %v, want KindInternal", e.Kind)
	}
	if e.Op != "slither.Run" {
		t.Errorf("Op = %q", e.Op)
	}
	if e.Message != "start analyzer" {
		t.Errorf("Message = %q", e.Message)
	}
	if !stderrors.Is(err, cause) && e.Err != cause {
		t.Error("cause not preserved")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "op") != nil {
		t.Error("Wrap(nil) must return nil")
	}

	cause := fmt.Errorf("boom")
	err := Wrap(cause, "server.decode")
	if !stderrors.Is(err, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
}

func TestWithDetail(t *testing.T) {
	err := WithDetail(KindUpstream, "analyzer returned non-JSON output", "Traceback (most recent call last)")

	if GetKind(err) != KindUpstream {
		t.Errorf("kind = %v, want upstream", GetKind(err))
	}
	if GetDetail(err) != "Traceback (most recent call last)" {
		t.Errorf("detail = %q", GetDetail(err))
	}
}

func TestGetKind(t *testing.T) {
	if GetKind(fmt.Errorf("plain")) != KindUnknown {
		t.Error("plain error should map to KindUnknown")
	}
	if GetKind(nil) != KindUnknown {
		t.Error("nil should map to KindUnknown")
	}

	wrapped := fmt.Errorf("outer: %w", ErrTimeout)
	if GetKind(wrapped) != KindTimeout {
		t.Error("kind not found through wrapping")
	}
}

func TestGetDetail_Plain(t *testing.T) {
	if GetDetail(fmt.Errorf("plain")) != "" {
		t.Error("plain error should have empty detail")
	}
}

func TestSentinelErrors(t *testing.T) {
	if !IsInvalidInput(ErrEmptySource) {
		t.Error("ErrEmptySource should be invalid input")
	}
	if !IsInvalidInput(ErrSourceTooLarge) {
		t.Error("ErrSourceTooLarge should be invalid input")
	}
	if GetKind(ErrSourceTooLarge) != KindTooLarge {
		t.Error("ErrSourceTooLarge should carry KindTooLarge")
	}
	if !IsTimeout(ErrTimeout) {
		t.Error("ErrTimeout should be a timeout")
	}
	if GetKind(ErrRateLimited) != KindRateLimit {
		t.Error("ErrRateLimited should carry KindRateLimit")
	}
}

func TestErrorIs_MatchesByKind(t *testing.T) {
	err := E(KindTimeout, "slither.Run", "deadline hit")
	if !stderrors.Is(err, ErrTimeout) {
		t.Error("errors with the same kind should match via errors.Is")
	}
	if stderrors.Is(err, ErrEmptySource) {
		t.Error("errors with different kinds must not match")
	}
}

func TestIsUpstream(t *testing.T) {
	if !IsUpstream(WithDetail(KindUpstream, "no output", "")) {
		t.Error("expected upstream match")
	}
	if IsUpstream(ErrTimeout) {
		t.Error("timeout is not upstream")
	}
}
