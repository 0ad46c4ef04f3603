package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store writes settings to a config file.
type Store struct {
	// Path is the YAML file written to.
	Path string
}

// GlobalStore returns a store for the global config file.
func (r *Resolver) GlobalStore() Store {
	return Store{Path: r.globalPath}
}

// LocalStore returns a store for the local config file.
func (r *Resolver) LocalStore() (Store, error) {
	if r.localPath == "" {
		return Store{}, fmt.Errorf("project root not found")
	}
	return Store{Path: r.localPath}, nil
}

// Set saves one key, keeping every other key in the file.
func (s Store) Set(key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if key == KeyRetryWait || key == KeyTimeout {
		if _, err := parseDuration(key, value); err != nil {
			return err
		}
	}

	existing, err := s.load()
	if err != nil {
		return err
	}
	existing[key] = value
	return s.write(existing)
}

// Unset removes a key. Removing a missing key is not an error.
func (s Store) Unset(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	existing, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := existing[key]; !ok {
		return nil
	}
	delete(existing, key)
	return s.write(existing)
}

func (s Store) load() (map[string]any, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("config path not set")
	}

	existing := make(map[string]any)
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return existing, nil
	}
	if err := yaml.Unmarshal(data, &existing); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	if existing == nil {
		existing = make(map[string]any)
	}
	return existing, nil
}

// write saves values owner-only, since the file may hold the api key.
func (s Store) write(values map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(values)
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0o600)
}

func checkKey(key string) error {
	if !slices.Contains(Keys, key) {
		return fmt.Errorf("unknown config key: %s\n\nValid keys: %s", key, strings.Join(Keys, ", "))
	}
	return nil
}
