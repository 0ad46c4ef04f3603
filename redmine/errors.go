package redmine

import (
	"errors"
	"fmt"

	devhttp "github.com/randalmurphal/redmine/http"
)

// Configuration errors.
var (
	ErrConfigURLRequired      = &devhttp.ConfigError{Field: "url", Reason: "redmine url is required"}
	ErrConfigAPIKeyRequired   = &devhttp.ConfigError{Field: "api key", Reason: "redmine api key is required"}
	ErrConfigRetryWaitInvalid = &devhttp.ConfigError{Field: "retry wait", Reason: "must not be negative"}
	ErrConfigTimeoutInvalid   = &devhttp.ConfigError{Field: "timeout", Reason: "must not be negative"}
)

// Issue errors.
var (
	ErrIssueIDInvalid  = errors.New("issue id must be positive")
	ErrProjectRequired = errors.New("project identifier is required")
	ErrNothingToUpdate = errors.New("update has no notes, status or assignee")
	ErrAuthorMissing   = errors.New("issue has no author")
	ErrContentURLEmpty = errors.New("content url is required")
	ErrInvalidText     = errors.New("content is not valid utf-8")
)

// Upload errors.
var (
	ErrFilePathRequired    = errors.New("file path is required")
	ErrContentTypeRequired = errors.New("content type is required")
	ErrUploadTokenMissing  = errors.New("upload response has no token")
)

// UploadError reports a file that could not be staged. It matches
// devhttp.ErrUpload. No attach request is sent after an UploadError.
type UploadError struct {
	// Filename is the name the file was staged under.
	Filename string

	// StatusCode is the status of the staging response, or 0 if the request
	// never completed.
	StatusCode int

	// Body is the staging response body.
	Body []byte

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *UploadError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("upload %s failed: %v", e.Filename, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("upload %s failed (%d): %v: %s", e.Filename, e.StatusCode, e.Err, e.Body)
	default:
		return fmt.Sprintf("upload %s failed (%d): %s", e.Filename, e.StatusCode, e.Body)
	}
}

// Unwrap returns devhttp.ErrUpload and the underlying cause.
func (e *UploadError) Unwrap() []error {
	if e.Err != nil {
		return []error{devhttp.ErrUpload, e.Err}
	}
	return []error{devhttp.ErrUpload}
}

// IsUnauthorized reports whether the error indicates the api key was rejected.
func IsUnauthorized(err error) bool {
	return devhttp.IsUnauthorized(err)
}

// IsUploadFailed reports whether a file could not be staged.
func IsUploadFailed(err error) bool {
	return devhttp.IsUpload(err)
}

// IsRetriesExhausted reports whether a request failed on every attempt.
func IsRetriesExhausted(err error) bool {
	return devhttp.IsRetriesExhausted(err)
}

// IsInvalidConfig reports whether the client configuration was rejected.
func IsInvalidConfig(err error) bool {
	return devhttp.IsInvalidConfig(err)
}
