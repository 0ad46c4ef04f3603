package redmine

import (
	"time"

	devhttp "github.com/randalmurphal/redmine/http"
)

// Config holds the configuration for the Redmine client.
type Config struct {
	// URL is the base URL of the Redmine instance, for example
	// https://redmine.example.com/ or https://example.com/redmine/.
	URL string `yaml:"url"`

	// APIKey is the key shown on the /my/account page when logged in.
	APIKey string `yaml:"api_key"`

	// RetryWait is the fixed wait between attempts of a failing request.
	// Zero means DefaultRetryWait.
	RetryWait time.Duration `yaml:"retry_wait"`

	// Timeout bounds a single HTTP attempt. Zero means devhttp.DefaultTimeout.
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultRetryWait is the wait between attempts when none is configured.
const DefaultRetryWait = devhttp.DefaultRetryWait

// MaxAttempts is the retry budget of every GET and PUT.
const MaxAttempts = devhttp.DefaultMaxAttempts

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RetryWait: DefaultRetryWait,
		Timeout:   devhttp.DefaultTimeout,
	}
}

// Validate validates the configuration. Every failure matches
// devhttp.ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrConfigURLRequired
	}
	if _, err := devhttp.ParseBaseURL(c.URL); err != nil {
		return err
	}
	if c.APIKey == "" {
		return ErrConfigAPIKeyRequired
	}
	if c.RetryWait < 0 {
		return ErrConfigRetryWaitInvalid
	}
	if c.Timeout < 0 {
		return ErrConfigTimeoutInvalid
	}
	return nil
}

func (c *Config) retryWait() time.Duration {
	if c.RetryWait == 0 {
		return DefaultRetryWait
	}
	return c.RetryWait
}

func (c *Config) timeout() time.Duration {
	if c.Timeout == 0 {
		return devhttp.DefaultTimeout
	}
	return c.Timeout
}

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
