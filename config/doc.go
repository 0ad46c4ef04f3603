// Package config resolves Redmine connection settings for the command line.
//
// Settings are layered with clear precedence:
//  1. Command-line flags (highest priority)
//  2. REDMINE_* environment variables
//  3. Local config (.redmine.yaml in the project root)
//  4. Global config (~/.config/redmine/config.yaml)
//  5. Built-in defaults (lowest priority)
//
// # Basic Usage
//
//	resolver := config.NewResolver(config.Options{})
//	settings := resolver.ResolveWithFlags(map[string]string{
//	    config.KeyURL: urlFlag,
//	})
//
//	cfg, err := settings.RedmineConfig()
//	if err != nil {
//	    return err
//	}
//	client, err := redmine.NewClient(cfg)
//
// # Keys
//
//	url         Redmine base URL               REDMINE_URL
//	api_key     API key                        REDMINE_API_KEY
//	project     default project identifier     REDMINE_PROJECT
//	retry_wait  wait between attempts ("60s")  REDMINE_RETRY_WAIT
//	timeout     per-attempt timeout ("30s")    REDMINE_TIMEOUT
//
// Durations accept Go syntax or a bare number of seconds.
//
// # Saving
//
// Store writes a single key and leaves the rest of the file alone:
//
//	err := resolver.GlobalStore().Set(config.KeyAPIKey, key)
package config
