package errors

import "errors"

// CLI errors with actionable guidance.
var (
	// ErrNotConfigured indicates the url or api key is missing.
	ErrNotConfigured = errors.New("redmine not configured")

	// ErrNoProject indicates a command needs a project and none was given.
	ErrNoProject = errors.New("no project given")

	// ErrConnectionFailed indicates the server could not be reached at all.
	ErrConnectionFailed = errors.New("connection failed")
)

// Exit codes returned by ExitCode.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfig      = 2
	ExitAuth        = 3
	ExitUpload      = 4
	ExitUnreachable = 5
)
