// Package resilience provides the error taxonomy and retry helpers shared by
// the pipeline and the API clients. Errors fall into four kinds: validation
// (caller input rejected), service (upstream dependency failed), extraction
// (LLM output unusable), and duplicate (candidate already known). Only
// transient service failures are ever retried.
package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ValidationError rejects caller input: an empty upload, a candidate without
// CV text, an unknown prompt type. Never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ServiceError marks a failure of an upstream dependency (OpenAI, PDOK,
// Nominatim, the vacancy feed host). StatusCode 0 means the request never
// produced an HTTP response (network error).
type ServiceError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying.
func (e *ServiceError) Transient() bool {
	return e.StatusCode == 0 || IsTransientHTTPStatus(e.StatusCode)
}

// HTTPStatus exposes the upstream status code for classification.
func (e *ServiceError) HTTPStatus() int { return e.StatusCode }

// NewServiceError wraps an upstream failure with its service name and the
// HTTP status code, if any.
func NewServiceError(service string, statusCode int, err error) *ServiceError {
	return &ServiceError{Service: service, StatusCode: statusCode, Err: err}
}

// ExtractionError means the LLM answered but the answer was unusable even
// after JSON recovery. Retrying the same prompt rarely helps, so it is not
// classified transient.
type ExtractionError struct {
	Msg string
	Err error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// DuplicateError marks a candidate that duplicates an existing one. It is
// surfaced as a failed processing status with a Dutch message, not as a
// transport failure.
type DuplicateError struct {
	ExistingID int64
	Name       string
	Field      string // "email" or "naam"
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("Duplicaat van kandidaat %d (%s: %s)", e.ExistingID, e.Field, e.Name)
}

// statusCoder matches client error types that carry an upstream HTTP status
// (e.g. the OpenAI client's APIError) without importing them here.
type statusCoder interface {
	HTTPStatus() int
}

// IsTransient reports whether err (or anything in its chain) is safe to
// retry: a transient service error, a carried 408/429/5xx status, a network
// timeout, or a known transient failure pattern from a wrapped HTTP client.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var se *ServiceError
	if errors.As(err, &se) {
		return se.Transient()
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return IsTransientHTTPStatus(sc.HTTPStatus())
	}

	// Validation, extraction, and duplicate errors are always terminal.
	var ve *ValidationError
	var xe *ExtractionError
	var de *DuplicateError
	if errors.As(err, &ve) || errors.As(err, &xe) || errors.As(err, &de) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String heuristics for errors wrapped beyond recognition by HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether the status code indicates a
// server-side condition that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
