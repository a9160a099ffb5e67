// Package config loads the CLI configuration from defaults, an optional YAML
// file, environment variables and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultFile is read from the working directory when no file is given.
const DefaultFile = "b2c2.yaml"

// envSections are the top-level keys environment variables may set.
var envSections = []string{"api", "http", "log", "observability"}

// Options controls where Load reads from.
type Options struct {
	// File is a YAML file that must exist. Empty means DefaultFile, if present.
	File string
	// Overrides take precedence over every other source, keyed by dotted path.
	Overrides map[string]any
}

// Load loads configuration from multiple sources with priority:
// 1. Overrides (highest priority)
// 2. Environment variables (API_TOKEN -> api.token)
// 3. YAML configuration file
// 4. Default values (lowest priority)
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := loadFile(k, opts.File); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(".", env.Opt{TransformFunc: envKey}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load overrides: %w", err)
		}
	}

	return build(k)
}

func build(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"api.env": EnvSandbox,
		"api.url": "",

		"http.timeout":            "10s",
		"http.retry.maxattempts":  5,
		"http.retry.delay":        "0s",
		"http.ratelimit.rps":      0,
		"http.ratelimit.burst":    1,
		"http.logpayloads":        false,
		"http.maxpayloadlogbytes": 1024,

		"log.level":  "warn",
		"log.pretty": true,

		"observability.enabled": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

func loadFile(k *koanf.Koanf, path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	err := k.Load(file.Provider(path), yaml.Parser())
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// envKey maps UPPER_CASE variables onto lower.case keys, ignoring variables
// outside the known sections.
func envKey(key, value string) (string, any) {
	k := strings.ReplaceAll(strings.ToLower(key), "_", ".")
	section, _, _ := strings.Cut(k, ".")
	for _, s := range envSections {
		if section == s && k != s {
			return k, value
		}
	}
	return "", nil
}

// Unmarshal unmarshals a configuration section into the provided struct.
func (c *Config) Unmarshal(key string, out any) error {
	if c == nil || c.k == nil {
		return fmt.Errorf("configuration not initialized")
	}
	return c.k.Unmarshal(key, out)
}

// Exists checks if a configuration key exists.
func (c *Config) Exists(key string) bool {
	if c == nil || c.k == nil {
		return false
	}
	return c.k.Exists(key)
}
