package config

// Source indicates where a setting's value came from.
type Source string

// Setting sources, lowest priority first.
const (
	// SourceDefault indicates the value is a built-in default.
	SourceDefault Source = "default"

	// SourceGlobal indicates the value came from ~/.config/redmine/config.yaml.
	SourceGlobal Source = "global"

	// SourceLocal indicates the value came from .redmine.yaml in the
	// project root.
	SourceLocal Source = "local"

	// SourceEnv indicates the value came from a REDMINE_* environment variable.
	SourceEnv Source = "env"

	// SourceFlag indicates the value was set via command-line flag.
	SourceFlag Source = "flag"
)
