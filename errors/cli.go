package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	devhttp "github.com/randalmurphal/redmine/http"
	"github.com/randalmurphal/redmine/redmine"
)

// CLIError wraps an error with user-friendly context and suggestions.
type CLIError struct {
	// Err is the underlying error
	Err error

	// Message is a user-friendly description of what went wrong
	Message string

	// Suggestion is an actionable hint for the user
	Suggestion string

	// Details provides additional context (optional)
	Details string
}

func (e *CLIError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Details != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Details)
	}

	if e.Suggestion != "" {
		sb.WriteString("\n\n")
		sb.WriteString(e.Suggestion)
	}

	return sb.String()
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// ErrorMessenger provides customizable error messages.
type ErrorMessenger interface {
	// InvalidConfigMessage is used when a setting is missing or malformed.
	InvalidConfigMessage(field string) (message, suggestion string)

	// AuthErrorMessage is used when the server rejects the api key.
	AuthErrorMessage(serverURL string) (message, suggestion string)

	// UnreachableMessage is used when every attempt failed without a response.
	UnreachableMessage(serverURL string, attempts int) (message, suggestion string)

	// ExhaustedMessage is used when every attempt got an error status.
	ExhaustedMessage(serverURL string, attempts, status int) (message, suggestion string)

	// UploadFailedMessage is used when staging a file was refused.
	UploadFailedMessage(filename string, status int) (message, suggestion string)

	// NoProjectMessage is used when a command needs a project.
	NoProjectMessage() (message, suggestion string)
}

// DefaultMessenger provides default error messages.
type DefaultMessenger struct{}

func (m DefaultMessenger) InvalidConfigMessage(field string) (string, string) {
	return fmt.Sprintf("Redmine %s is not configured correctly.", field),
		"Set it with 'redmine config set', a REDMINE_* environment variable or a flag."
}

func (m DefaultMessenger) AuthErrorMessage(serverURL string) (string, string) {
	return fmt.Sprintf("Redmine at %s rejected the api key.", serverURL),
		"Check the key under 'My account' and run 'redmine config set api_key <key>'."
}

func (m DefaultMessenger) UnreachableMessage(serverURL string, attempts int) (string, string) {
	return fmt.Sprintf("Cannot connect to Redmine at %s after %d attempts.", serverURL, attempts),
		"Check that:\n  - The server is running\n  - The URL is correct\n  - Your network connection is working"
}

func (m DefaultMessenger) ExhaustedMessage(serverURL string, attempts, status int) (string, string) {
	msg := fmt.Sprintf("Redmine at %s kept failing (%d %s) after %d attempts.",
		serverURL, status, http.StatusText(status), attempts)
	switch status {
	case http.StatusNotFound:
		return msg, "Check the issue or project identifier."
	case http.StatusForbidden:
		return msg, "Your account may not have access to this project."
	default:
		return msg, "The server may be overloaded.\nTry again in a moment."
	}
}

func (m DefaultMessenger) UploadFailedMessage(filename string, status int) (string, string) {
	if status == 0 {
		return fmt.Sprintf("Could not upload %s.", filename), "Nothing was attached to the issue."
	}
	return fmt.Sprintf("Redmine refused the upload of %s (%d).", filename, status),
		"Check the maximum attachment size. Nothing was attached to the issue."
}

func (m DefaultMessenger) NoProjectMessage() (string, string) {
	return "No project given.",
		"Pass --project or run 'redmine config set project <identifier>'."
}

// WrapConfig configures error wrapping behavior.
type WrapConfig struct {
	Messenger ErrorMessenger
	ServerURL string
}

// Option configures WrapConfig.
type Option func(*WrapConfig)

// WithMessenger sets a custom error messenger.
func WithMessenger(m ErrorMessenger) Option {
	return func(c *WrapConfig) {
		c.Messenger = m
	}
}

// WithServerURL names the server in messages.
func WithServerURL(serverURL string) Option {
	return func(c *WrapConfig) {
		c.ServerURL = serverURL
	}
}

func getConfig(opts []Option) *WrapConfig {
	cfg := &WrapConfig{
		Messenger: DefaultMessenger{},
		ServerURL: "the configured url",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Wrap turns a client error into a *CLIError with guidance. Errors it does
// not recognise are returned unchanged.
func Wrap(err error, opts ...Option) error {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	cfg := getConfig(opts)
	m := cfg.Messenger

	switch devhttp.KindOf(err) {
	case devhttp.KindInvalidConfig:
		field := "configuration"
		var cfgErr *devhttp.ConfigError
		if errors.As(err, &cfgErr) {
			field = cfgErr.Field
		}
		msg, suggestion := m.InvalidConfigMessage(field)
		return &CLIError{Err: err, Message: msg, Details: err.Error(), Suggestion: suggestion}

	case devhttp.KindUnauthorized:
		msg, suggestion := m.AuthErrorMessage(cfg.ServerURL)
		return &CLIError{Err: err, Message: msg, Suggestion: suggestion}

	case devhttp.KindUpload:
		var upErr *redmine.UploadError
		if !errors.As(err, &upErr) {
			return err
		}
		msg, suggestion := m.UploadFailedMessage(upErr.Filename, upErr.StatusCode)
		return &CLIError{Err: err, Message: msg, Details: details(upErr.Body, upErr.Err), Suggestion: suggestion}

	case devhttp.KindRetriesExhausted:
		var exErr *devhttp.ExhaustedRetriesError
		if !errors.As(err, &exErr) {
			return err
		}
		if exErr.StatusCode == 0 {
			msg, suggestion := m.UnreachableMessage(cfg.ServerURL, exErr.Attempts)
			return &CLIError{
				Err:        errors.Join(ErrConnectionFailed, err),
				Message:    msg,
				Details:    details(nil, exErr.Err),
				Suggestion: suggestion,
			}
		}
		msg, suggestion := m.ExhaustedMessage(cfg.ServerURL, exErr.Attempts, exErr.StatusCode)
		return &CLIError{Err: err, Message: msg, Details: details(exErr.Body, nil), Suggestion: suggestion}
	}

	if errors.Is(err, redmine.ErrProjectRequired) || errors.Is(err, ErrNoProject) {
		msg, suggestion := m.NoProjectMessage()
		return &CLIError{Err: err, Message: msg, Suggestion: suggestion}
	}

	return err
}

// details renders a response body or cause for display, truncated.
func details(body []byte, cause error) string {
	const limit = 500

	var s string
	switch {
	case len(body) > 0:
		s = strings.TrimSpace(string(body))
	case cause != nil:
		s = cause.Error()
	}
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}

// NewNotConfiguredError creates an error for a missing url or api key.
func NewNotConfiguredError(field string, opts ...Option) error {
	msg, suggestion := getConfig(opts).Messenger.InvalidConfigMessage(field)
	return &CLIError{
		Err:        ErrNotConfigured,
		Message:    msg,
		Suggestion: suggestion,
	}
}

// NewNoProjectError creates an error for commands run without a project.
func NewNoProjectError(opts ...Option) error {
	msg, suggestion := getConfig(opts).Messenger.NoProjectMessage()
	return &CLIError{
		Err:        ErrNoProject,
		Message:    msg,
		Suggestion: suggestion,
	}
}
