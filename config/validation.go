package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Environment names.
const (
	EnvSandbox    = "sandbox"
	EnvProduction = "production"
)

// EnvironmentURLs maps each environment to its API base URL.
var EnvironmentURLs = map[string]string{
	EnvSandbox:    "https://api.uat.b2c2.net",
	EnvProduction: "https://api.b2c2.net",
}

var validLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}

// Validate checks cfg, reporting every failing section.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateAPI(&cfg.API); err != nil {
		errs = append(errs, fmt.Errorf("api config: %w", err))
	}
	if err := validateHTTP(&cfg.HTTP); err != nil {
		errs = append(errs, fmt.Errorf("http config: %w", err))
	}
	if err := validateLog(&cfg.Log); err != nil {
		errs = append(errs, fmt.Errorf("log config: %w", err))
	}

	return errors.Join(errs...)
}

func validateAPI(cfg *APIConfig) error {
	envs := []string{EnvSandbox, EnvProduction}
	if !slices.Contains(envs, cfg.Env) {
		return NewInvalidFieldError("api.env", fmt.Sprintf("unknown environment %q", cfg.Env), envs)
	}

	if cfg.URL != "" {
		u, err := url.Parse(cfg.URL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return NewInvalidFieldError("api.url", fmt.Sprintf("%q is not an absolute http(s) URL", cfg.URL), nil)
		}
	}

	if strings.TrimSpace(cfg.Token) == "" {
		return NewMissingFieldError("api.token", "API_TOKEN", "api.token")
	}
	return nil
}

func validateHTTP(cfg *HTTPConfig) error {
	if cfg.Timeout <= 0 {
		return NewInvalidFieldError("http.timeout", "must be positive", nil)
	}
	if cfg.Retry.MaxAttempts < 1 {
		return NewInvalidFieldError("http.retry.maxattempts", "must be at least 1", nil)
	}
	if cfg.Retry.Delay < 0 {
		return NewInvalidFieldError("http.retry.delay", "must not be negative", nil)
	}
	if cfg.RateLimit.RPS < 0 {
		return NewInvalidFieldError("http.ratelimit.rps", "must not be negative", nil)
	}
	if cfg.RateLimit.RPS > 0 && cfg.RateLimit.Burst < 1 {
		return NewInvalidFieldError("http.ratelimit.burst", "must be at least 1 when rate limiting is enabled", nil)
	}
	if cfg.MaxPayloadLogBytes < 0 {
		return NewInvalidFieldError("http.maxpayloadlogbytes", "must not be negative", nil)
	}
	return nil
}

func validateLog(cfg *LogConfig) error {
	if !slices.Contains(validLogLevels, strings.ToLower(cfg.Level)) {
		return NewInvalidFieldError("log.level", fmt.Sprintf("unknown level %q", cfg.Level), validLogLevels)
	}
	return nil
}
