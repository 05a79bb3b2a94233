package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
)

func TestIsTransient_ServiceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network level", NewServiceError("openai", 0, errors.New("dial tcp: connection refused")), true},
		{"rate limited", NewServiceError("openai", 429, errors.New("too many requests")), true},
		{"server error", NewServiceError("pdok", 503, errors.New("unavailable")), true},
		{"bad key", NewServiceError("openai", 401, errors.New("invalid api key")), false},
		{"bad request", NewServiceError("nominatim", 400, errors.New("bad query")), false},
		{"wrapped in eris", eris.Wrap(NewServiceError("openai", 500, errors.New("boom")), "pipeline: summary"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsTransient_TerminalKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"validation", NewValidationError("Geen CV tekst gevonden")},
		{"extraction", &ExtractionError{Msg: "geen geldige JSON in antwoord"}},
		{"duplicate", &DuplicateError{ExistingID: 7, Name: "jan@voorbeeld.nl", Field: "email"}},
		{"wrapped duplicate", eris.Wrap(&DuplicateError{ExistingID: 7, Name: "Jan", Field: "naam"}, "pipeline: parse")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if IsTransient(tt.err) {
				t.Errorf("IsTransient(%v) = true, want false", tt.err)
			}
		})
	}
}

type fakeTimeoutError struct{}

func (fakeTimeoutError) Error() string   { return "operation timed out" }
func (fakeTimeoutError) Timeout() bool   { return true }
func (fakeTimeoutError) Temporary() bool { return true }

func TestIsTransient_NetworkErrors(t *testing.T) {
	var netErr net.Error = fakeTimeoutError{}
	if !IsTransient(netErr) {
		t.Error("expected net timeout to be transient")
	}
	if !IsTransient(fmt.Errorf("request: %w", syscall.ECONNRESET)) {
		t.Error("expected ECONNRESET to be transient")
	}
	if !IsTransient(errors.New("read tcp: connection reset by peer")) {
		t.Error("expected string heuristic to classify connection reset")
	}
	if IsTransient(context.Canceled) {
		t.Error("context.Canceled must not be transient")
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	transient := []int{408, 429, 500, 502, 503, 504}
	for _, code := range transient {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected %d to be transient", code)
		}
	}
	terminal := []int{200, 301, 400, 401, 403, 404, 409, 422}
	for _, code := range terminal {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected %d to be terminal", code)
		}
	}
}

func TestDuplicateError_DutchMessage(t *testing.T) {
	err := &DuplicateError{ExistingID: 42, Name: "jan@voorbeeld.nl", Field: "email"}
	want := "Duplicaat van kandidaat 42 (email: jan@voorbeeld.nl)"
	if err.Error() != want {
		t.Errorf("message = %q, want %q", err.Error(), want)
	}
}

func TestServiceError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := NewServiceError("openai", 502, inner)
	if !errors.Is(err, inner) {
		t.Error("expected ServiceError to unwrap to inner error")
	}

	var se *ServiceError
	wrapped := eris.Wrap(err, "pipeline: embed")
	if !errors.As(wrapped, &se) {
		t.Fatal("expected errors.As to find ServiceError through eris chain")
	}
	if se.Service != "openai" || se.HTTPStatus() != 502 {
		t.Errorf("unexpected fields: %+v", se)
	}
}

type fakeStatusErr struct{ code int }

func (e fakeStatusErr) Error() string   { return fmt.Sprintf("api status %d", e.code) }
func (e fakeStatusErr) HTTPStatus() int { return e.code }

func TestIsTransient_StatusCoder(t *testing.T) {
	if !IsTransient(fmt.Errorf("client: %w", fakeStatusErr{code: 429})) {
		t.Error("expected carried 429 to be transient")
	}
	if IsTransient(fmt.Errorf("client: %w", fakeStatusErr{code: 400})) {
		t.Error("expected carried 400 to be terminal")
	}
}
