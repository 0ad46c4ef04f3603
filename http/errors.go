// Package http provides the resilient request layer shared by tracker clients.
package http

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for the request layer.
var (
	// ErrInvalidConfig indicates the client was constructed with a malformed configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnauthorized indicates the tracker rejected the credential.
	ErrUnauthorized = errors.New("authentication failed")

	// ErrUpload indicates a file could not be staged.
	ErrUpload = errors.New("upload failed")

	// ErrRetriesExhausted indicates the retry budget was consumed without success.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Kind classifies a request-layer failure.
type Kind string

// Failure kinds.
const (
	KindNone             Kind = ""
	KindInvalidConfig    Kind = "invalid_configuration"
	KindUnauthorized     Kind = "authentication"
	KindUpload           Kind = "upload"
	KindRetriesExhausted Kind = "exhausted_retries"
	KindOther            Kind = "other"
)

// ConfigError reports a configuration value that failed validation.
type ConfigError struct {
	// Field is the configuration field that is invalid.
	Field string

	// Value is the offending value.
	Value string

	// Reason explains the failure.
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap returns ErrInvalidConfig.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// AuthError represents a credential rejected by the tracker.
type AuthError struct {
	// Service is the integration that failed authentication.
	Service string

	// Endpoint is the URL that returned 401.
	Endpoint string

	// StatusCode is the HTTP status returned (normally 401).
	StatusCode int

	// Body is the response body, kept for diagnostics.
	Body []byte
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed (%d) at %s: invalid api key",
		e.Service, e.StatusCode, e.Endpoint)
}

// Unwrap returns ErrUnauthorized.
func (e *AuthError) Unwrap() error {
	return ErrUnauthorized
}

// ExhaustedRetriesError is returned once every attempt of a request failed.
type ExhaustedRetriesError struct {
	// Service is the name of the integration.
	Service string

	// Method is the HTTP method of the request.
	Method string

	// Endpoint is the URL that was called.
	Endpoint string

	// Attempts is the number of requests that were sent.
	Attempts int

	// StatusCode is the status of the last response, or 0 if the last
	// attempt failed at the transport level.
	StatusCode int

	// Body is the body of the last response.
	Body []byte

	// Err is the last transport error, if any.
	Err error
}

// Error implements the error interface.
func (e *ExhaustedRetriesError) Error() string {
	if e.StatusCode == 0 && e.Err != nil {
		return fmt.Sprintf("could not reach %s after %d attempts: %s %s: %v",
			e.Service, e.Attempts, e.Method, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("could not reach %s after %d attempts: %s %s returned %d: %s",
		e.Service, e.Attempts, e.Method, e.Endpoint, e.StatusCode, e.Body)
}

// Unwrap returns ErrRetriesExhausted and the last transport error.
func (e *ExhaustedRetriesError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrRetriesExhausted, e.Err}
	}
	return []error{ErrRetriesExhausted}
}

// KindOf reports the failure kind of err.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidConfig):
		return KindInvalidConfig
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrUpload):
		return KindUpload
	case errors.Is(err, ErrRetriesExhausted):
		return KindRetriesExhausted
	default:
		return KindOther
	}
}

// IsInvalidConfig reports whether the error indicates a malformed configuration.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// IsUnauthorized reports whether the error indicates authentication failed.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsUpload reports whether the error indicates a failed upload staging.
func IsUpload(err error) bool {
	return errors.Is(err, ErrUpload)
}

// IsRetriesExhausted reports whether the retry budget was consumed.
func IsRetriesExhausted(err error) bool {
	return errors.Is(err, ErrRetriesExhausted)
}
