package errorsdk

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the error tag carried by an unsuccessful [ReportResult].
type ErrorKind string

const (
	// ErrorKindNetwork is returned once every attempt of a report call has failed.
	ErrorKindNetwork ErrorKind = "NETWORK_ERROR"
	// ErrorKindValidation is returned when a report cannot be encoded, and may also be
	// passed through from the ingestion service.
	ErrorKindValidation ErrorKind = "VALIDATION_ERROR"
	// ErrorKindConvex and ErrorKindAI only ever originate from the ingestion service.
	ErrorKindConvex ErrorKind = "CONVEX_ERROR"
	ErrorKindAI     ErrorKind = "AI_ERROR"
)

var (
	ErrMissingSecret  = errors.New("secret is required")
	ErrMissingBaseURL = errors.New("base URL is required")
	ErrInvalidOption  = errors.New("invalid option")
)

// ConfigurationError is returned by [New] when the client cannot be constructed.
// It is never produced by a report call.
type ConfigurationError struct {
	Field   string
	Message string
	Action  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	parts := []string{"configuration error:"}

	if e.Field != "" {
		parts = append(parts, e.Field)
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.Action != "" {
		parts = append(parts, "("+e.Action+")")
	}

	return strings.Join(parts, " ")
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func newMissingSecretError(transport Transport) *ConfigurationError {
	action := "pass WithSecret"
	if transport == TransportTask {
		action = fmt.Sprintf("pass WithSecret or set the %s environment variable", SecretEnvVar)
	}

	return &ConfigurationError{
		Field:   "secret",
		Message: fmt.Sprintf("is required for the %s transport", transport),
		Action:  action,
		Err:     ErrMissingSecret,
	}
}

// TransportFailure is an attempt that never produced an HTTP response: connection
// refused, DNS failure, timeout or cancellation.
type TransportFailure struct {
	Err error
}

func (f *TransportFailure) Error() string {
	return f.Err.Error()
}

func (f *TransportFailure) Unwrap() error {
	return f.Err
}

// HTTPStatusFailure is an attempt answered with a non-2xx status. The status is
// authoritative even when the body parses.
type HTTPStatusFailure struct {
	StatusCode int
	Body       string
	Detail     string
}

func (f *HTTPStatusFailure) Error() string {
	return fmt.Sprintf("HTTP %d: %s", f.StatusCode, f.Detail)
}

// ParseFailure is a 2xx attempt whose body is not a JSON object.
type ParseFailure struct {
	Body string
	Err  error
}

func (f *ParseFailure) Error() string {
	return fmt.Sprintf("Failed to parse JSON response: %v", f.Err)
}

func (f *ParseFailure) Unwrap() error {
	return f.Err
}
