package errors

import (
	"errors"

	devhttp "github.com/randalmurphal/redmine/http"
)

// IsAuthError checks if an error means the api key was rejected.
func IsAuthError(err error) bool {
	return devhttp.IsUnauthorized(err)
}

// IsConnectionError checks if every attempt failed without a response.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnectionFailed) {
		return true
	}

	var exErr *devhttp.ExhaustedRetriesError
	return errors.As(err, &exErr) && exErr.StatusCode == 0
}

// IsConfigError checks if an error is a missing or malformed setting.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrNotConfigured) || devhttp.IsInvalidConfig(err)
}

// IsProjectError checks if a command was missing its project.
func IsProjectError(err error) bool {
	return errors.Is(err, ErrNoProject)
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case IsConfigError(err):
		return ExitConfig
	case IsAuthError(err):
		return ExitAuth
	case devhttp.IsUpload(err):
		return ExitUpload
	case devhttp.IsRetriesExhausted(err):
		return ExitUnreachable
	default:
		return ExitFailure
	}
}
