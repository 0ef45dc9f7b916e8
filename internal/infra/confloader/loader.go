package confloader

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "PEPTRACKR_"

// nestingSeparator splits nesting levels in environment variable names.
const nestingSeparator = "__"

// LegacyEnv maps unprefixed environment variables onto config keys.
// List-valued keys are split on commas.
var LegacyEnv = map[string]string{
	"DATABASE_URL": "storage.dsn",
	"CORS_ORIGINS": "server.http.cors_origins",
}

var legacyListKeys = map[string]bool{
	"server.http.cors_origins": true,
}

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	legacy    map[string]string
	lookupEnv func(string) (string, bool)
	loaded    bool
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithLegacyEnv replaces the legacy variable mapping (nil disables it).
func WithLegacyEnv(m map[string]string) Option {
	return func(l *Loader) {
		l.legacy = m
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
		legacy:    LegacyEnv,
		lookupEnv: os.LookupEnv,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// FilePath returns the configured file path, if any.
func (l *Loader) FilePath() string {
	return l.filePath
}

// Load loads configuration from all sources and unmarshals into target.
// Fields of target not mentioned by any source keep their current value,
// so callers pass a struct pre-filled with defaults.
func (l *Loader) Load(target any) error {
	if l.filePath != "" {
		if err := l.LoadFile(l.filePath); err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}

	if err := l.LoadLegacyEnv(); err != nil {
		return fmt.Errorf("load legacy env: %w", err)
	}

	if err := l.LoadEnv(); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	l.loaded = true
	return nil
}

// LoadFile loads configuration from a YAML file.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}

	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}

	return nil
}

// LoadEnv loads prefixed environment variables.
// Example: PEPTRACKR_SERVER__HTTP__ADDR=0.0.0.0:8000 -> server.http.addr
func (l *Loader) LoadEnv() error {
	provider := env.Provider(l.envPrefix, ".", l.envKey)
	if err := l.k.Load(provider, nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

func (l *Loader) envKey(s string) string {
	s = strings.TrimPrefix(s, l.envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, nestingSeparator, ".")
}

// LoadLegacyEnv loads the unprefixed variables listed in the legacy mapping.
func (l *Loader) LoadLegacyEnv() error {
	data := make(map[string]any)
	for name, key := range l.legacy {
		v, ok := l.lookupEnv(name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if legacyListKeys[key] {
			data[key] = splitList(v)
		} else {
			data[key] = strings.TrimSpace(v)
		}
	}
	if len(data) == 0 {
		return nil
	}
	return l.LoadMap(data)
}

// LoadMap loads configuration from a flat map of dotted keys (flags, tests).
func (l *Loader) LoadMap(data map[string]any) error {
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	return nil
}

// Unmarshal unmarshals the loaded configuration into the target struct.
// Uses koanf tags for struct field mapping.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}

// GetStrings returns a string slice value from the configuration.
func (l *Loader) GetStrings(key string) []string {
	return l.k.Strings(key)
}

// IsLoaded returns true if configuration has been loaded.
func (l *Loader) IsLoaded() bool {
	return l.loaded
}

// Keys returns all configuration keys.
func (l *Loader) Keys() []string {
	return l.k.Keys()
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
