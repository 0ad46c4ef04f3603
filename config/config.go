package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Setting keys.
const (
	KeyURL       = "url"
	KeyAPIKey    = "api_key"
	KeyRetryWait = "retry_wait"
	KeyTimeout   = "timeout"
	KeyProject   = "project"
)

// Keys lists every setting the resolver knows, in display order.
var Keys = []string{KeyURL, KeyAPIKey, KeyProject, KeyRetryWait, KeyTimeout}

// Default locations.
const (
	DefaultEnvPrefix = "REDMINE_"
	DefaultGlobalDir = "redmine"
	DefaultLocalName = ".redmine.yaml"
)

// Defaults returns the built-in values.
func Defaults() map[string]string {
	return map[string]string{
		KeyRetryWait: "60s",
		KeyTimeout:   "30s",
	}
}

// Options configures a Resolver. Zero fields take the defaults above.
type Options struct {
	// EnvPrefix is prepended to upper-cased keys for environment lookup,
	// so "api_key" is read from REDMINE_API_KEY.
	EnvPrefix string

	// GlobalPath is the global config file.
	// Defaults to ~/.config/redmine/config.yaml.
	GlobalPath string

	// LocalName is the local config file name, looked up in the project
	// root: the nearest directory above WorkDir holding .git, or WorkDir
	// itself when there is none.
	LocalName string

	// WorkDir is where the local lookup starts. Defaults to ".".
	WorkDir string

	// LookupEnv replaces os.LookupEnv.
	LookupEnv func(string) (string, bool)

	// Logger receives warnings about unreadable files. Nothing is logged
	// when nil.
	Logger *slog.Logger
}

// Resolver merges settings from every source.
type Resolver struct {
	envPrefix  string
	globalPath string
	localPath  string
	rootDir    string
	lookupEnv  func(string) (string, bool)
	logger     *slog.Logger

	// Warnings collects non-fatal issues found while resolving.
	Warnings []string
}

// NewResolver creates a resolver, locating the global and local files.
func NewResolver(opts Options) *Resolver {
	r := &Resolver{
		envPrefix:  opts.EnvPrefix,
		globalPath: opts.GlobalPath,
		lookupEnv:  opts.LookupEnv,
		logger:     opts.Logger,
	}
	if r.envPrefix == "" {
		r.envPrefix = DefaultEnvPrefix
	}
	if r.lookupEnv == nil {
		r.lookupEnv = os.LookupEnv
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.globalPath == "" {
		r.globalPath = DefaultGlobalPath()
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir = "."
	}
	r.rootDir = findProjectRoot(workDir)

	localName := opts.LocalName
	if localName == "" {
		localName = DefaultLocalName
	}
	if r.rootDir != "" {
		r.localPath = filepath.Join(r.rootDir, localName)
	}

	return r
}

// DefaultGlobalPath returns ~/.config/redmine/config.yaml, or "" when the
// home directory is unknown.
func DefaultGlobalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", DefaultGlobalDir, "config.yaml")
}

// Resolve merges every source except flags.
// Priority (highest to lowest): env > local > global > defaults.
func (r *Resolver) Resolve() *Settings {
	s := newSettings()

	for key, value := range Defaults() {
		s.set(key, value, SourceDefault)
	}
	r.applyFile(s, r.globalPath, SourceGlobal)
	r.applyFile(s, r.localPath, SourceLocal)
	r.applyEnv(s)

	return s
}

// ResolveWithFlags resolves and then applies non-empty flag values on top.
func (r *Resolver) ResolveWithFlags(flags map[string]string) *Settings {
	s := r.Resolve()
	for key, value := range flags {
		if value != "" && slices.Contains(Keys, key) {
			s.set(key, value, SourceFlag)
		}
	}
	return s
}

// GlobalPath returns the global config file path.
func (r *Resolver) GlobalPath() string {
	return r.globalPath
}

// LocalPath returns the local config file path, or "" if no project root
// was found.
func (r *Resolver) LocalPath() string {
	return r.localPath
}

// RootDir returns the detected project root.
func (r *Resolver) RootDir() string {
	return r.rootDir
}

func (r *Resolver) warn(msg string, attrs ...any) {
	r.Warnings = append(r.Warnings, msg)
	r.logger.Warn(msg, attrs...)
}

func (r *Resolver) applyFile(s *Settings, path string, source Source) {
	if path == "" {
		return
	}

	values, err := readFile(path)
	if err != nil {
		r.warn(fmt.Sprintf("could not load %s: %v", path, err), "path", path)
		return
	}

	for key, value := range values {
		if !slices.Contains(Keys, key) {
			r.warn(fmt.Sprintf("unknown key %q in %s", key, path), "path", path, "key", key)
			continue
		}
		if value != "" {
			s.set(key, value, source)
		}
	}
}

func (r *Resolver) applyEnv(s *Settings) {
	for _, key := range Keys {
		if value, ok := r.lookupEnv(EnvName(r.envPrefix, key)); ok && value != "" {
			s.set(key, value, SourceEnv)
		}
	}
}

// EnvName returns the environment variable that holds key.
func EnvName(prefix, key string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// readFile parses a flat YAML file into strings. A missing file is empty.
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}

	values := make(map[string]string, len(parsed))
	for key, value := range parsed {
		values[key] = toString(value)
	}
	return values, nil
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

// findProjectRoot walks up from startDir to the nearest directory holding
// .git. Without one, startDir itself is the root.
func findProjectRoot(startDir string) string {
	start, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}
