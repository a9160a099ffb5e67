package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config is the complete CLI configuration.
type Config struct {
	API  APIConfig  `koanf:"api" json:"api" yaml:"api"`
	HTTP HTTPConfig `koanf:"http" json:"http" yaml:"http"`
	Log  LogConfig  `koanf:"log" json:"log" yaml:"log"`

	// k holds the merged sources so other packages can unmarshal their own sections
	k *koanf.Koanf `json:"-" yaml:"-"`
}

// APIConfig selects the B2C2 environment and credentials.
type APIConfig struct {
	// Env is sandbox or production.
	Env   string `koanf:"env" json:"env" yaml:"env"`
	Token string `koanf:"token" json:"-" yaml:"-"`
	// URL overrides the environment's base URL when set.
	URL string `koanf:"url" json:"url" yaml:"url"`
}

// BaseURL returns the explicit URL, or the URL of the selected environment.
func (c *APIConfig) BaseURL() string {
	if c.URL != "" {
		return c.URL
	}
	return EnvironmentURLs[c.Env]
}

// HTTPConfig tunes the resilient HTTP client.
type HTTPConfig struct {
	// Timeout bounds a single attempt.
	Timeout            time.Duration   `koanf:"timeout" json:"timeout" yaml:"timeout"`
	Retry              RetryConfig     `koanf:"retry" json:"retry" yaml:"retry"`
	RateLimit          RateLimitConfig `koanf:"ratelimit" json:"ratelimit" yaml:"ratelimit"`
	LogPayloads        bool            `koanf:"logpayloads" json:"logpayloads" yaml:"logpayloads"`
	MaxPayloadLogBytes int             `koanf:"maxpayloadlogbytes" json:"maxpayloadlogbytes" yaml:"maxpayloadlogbytes"`
}

// RetryConfig bounds retries of transient failures.
type RetryConfig struct {
	// MaxAttempts counts every attempt, the first one included.
	MaxAttempts int           `koanf:"maxattempts" json:"maxattempts" yaml:"maxattempts"`
	Delay       time.Duration `koanf:"delay" json:"delay" yaml:"delay"`
}

// RateLimitConfig throttles outgoing attempts. RPS 0 disables throttling.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps" json:"rps" yaml:"rps"`
	Burst int     `koanf:"burst" json:"burst" yaml:"burst"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}
