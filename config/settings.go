package config

import (
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	devhttp "github.com/randalmurphal/redmine/http"
	"github.com/randalmurphal/redmine/redmine"
)

// Settings holds the merged values and where each came from.
type Settings struct {
	values  map[string]string
	sources map[string]Source
}

func newSettings() *Settings {
	return &Settings{
		values:  make(map[string]string),
		sources: make(map[string]Source),
	}
}

func (s *Settings) set(key, value string, source Source) {
	s.values[key] = value
	s.sources[key] = source
}

// Get returns the value for a key, or "" if not set.
func (s *Settings) Get(key string) string {
	return s.values[key]
}

// Source returns the source of a key's value.
func (s *Settings) Source(key string) Source {
	return s.sources[key]
}

// GetWithSource returns both the value and its source.
func (s *Settings) GetWithSource(key string) (string, Source) {
	return s.values[key], s.sources[key]
}

// All returns a copy of every value.
func (s *Settings) All() map[string]string {
	return maps.Clone(s.values)
}

// Keys returns the set keys, sorted.
func (s *Settings) Keys() []string {
	return slices.Sorted(maps.Keys(s.values))
}

// Redacted returns the value for display, masking the api key.
func (s *Settings) Redacted(key string) string {
	value := s.values[key]
	if key != KeyAPIKey || value == "" {
		return value
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}

// Project returns the default project identifier, if any.
func (s *Settings) Project() string {
	return s.values[KeyProject]
}

// RedmineConfig builds and validates a client configuration.
func (s *Settings) RedmineConfig() (*redmine.Config, error) {
	retryWait, err := parseDuration(KeyRetryWait, s.values[KeyRetryWait])
	if err != nil {
		return nil, err
	}
	timeout, err := parseDuration(KeyTimeout, s.values[KeyTimeout])
	if err != nil {
		return nil, err
	}

	cfg := &redmine.Config{
		URL:       s.values[KeyURL],
		APIKey:    s.values[KeyAPIKey],
		RetryWait: retryWait,
		Timeout:   timeout,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration accepts Go durations ("90s", "2m") and bare seconds ("60").
func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, &devhttp.ConfigError{Field: key, Value: value, Reason: "must not be negative"}
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &devhttp.ConfigError{Field: key, Value: value, Reason: "not a duration"}
	}
	if d < 0 {
		return 0, &devhttp.ConfigError{Field: key, Value: value, Reason: "must not be negative"}
	}
	return d, nil
}
