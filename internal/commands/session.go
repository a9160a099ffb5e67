package commands

import (
	"github.com/spf13/cobra"

	"github.com/gaborage/b2c2-cli/b2c2"
	"github.com/gaborage/b2c2-cli/config"
	"github.com/gaborage/b2c2-cli/httpclient"
	"github.com/gaborage/b2c2-cli/logger"
	"github.com/gaborage/b2c2-cli/observability"
)

const serviceName = "b2c2-cli"

// session holds everything an API command needs. It is built on first use so
// commands such as version run without credentials.
type session struct {
	cfg      *config.Config
	log      logger.Logger
	provider observability.Provider
	client   *b2c2.Client
}

func (a *app) session(cmd *cobra.Command) (*session, error) {
	if a.sess != nil {
		return a.sess, nil
	}

	cfg, err := config.Load(config.Options{
		File:      a.flags.configFile,
		Overrides: a.overrides(cmd),
	})
	if err != nil {
		return nil, err
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Pretty, nil)

	var obsCfg observability.Config
	if err := cfg.Unmarshal("observability", &obsCfg); err != nil {
		return nil, err
	}
	if obsCfg.Service.Name == "" {
		obsCfg.Service.Name = serviceName
	}
	if obsCfg.Service.Version == "" {
		obsCfg.Service.Version = a.version
	}
	if obsCfg.Environment == "" {
		obsCfg.Environment = cfg.API.Env
	}
	provider, err := observability.NewProvider(&obsCfg,
		observability.WithWriter(cmd.ErrOrStderr()),
		observability.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	hc := httpclient.NewBuilder(log).
		WithTimeout(cfg.HTTP.Timeout).
		WithMaxAttempts(cfg.HTTP.Retry.MaxAttempts).
		WithRetryDelay(cfg.HTTP.Retry.Delay).
		WithRateLimit(cfg.HTTP.RateLimit.RPS, cfg.HTTP.RateLimit.Burst).
		WithLogPayloads(cfg.HTTP.LogPayloads).
		WithMaxPayloadLogBytes(cfg.HTTP.MaxPayloadLogBytes).
		WithDefaultHeader("User-Agent", serviceName+"/"+a.version).
		WithMeterProvider(provider.MeterProvider()).
		WithTracerProvider(provider.TracerProvider()).
		Build()

	client, err := b2c2.NewClient(b2c2.Config{BaseURL: cfg.API.BaseURL(), Token: cfg.API.Token}, hc, log)
	if err != nil {
		_ = observability.Shutdown(provider, 0)
		return nil, err
	}

	log.Debug().
		Str("env", cfg.API.Env).
		Str("base_url", cfg.API.BaseURL()).
		Int("max_attempts", cfg.HTTP.Retry.MaxAttempts).
		Msg("Session ready")

	a.sess = &session{cfg: cfg, log: log, provider: provider, client: client}
	return a.sess, nil
}

// overrides maps explicitly set persistent flags onto configuration keys.
func (a *app) overrides(cmd *cobra.Command) map[string]any {
	flags := cmd.Flags()
	overrides := make(map[string]any)
	if flags.Changed("env") {
		overrides["api.env"] = a.flags.env
	}
	if flags.Changed("api-token") {
		overrides["api.token"] = a.flags.apiToken
	}
	if flags.Changed("log-level") {
		overrides["log.level"] = a.flags.logLevel
	}
	return overrides
}

// close flushes telemetry of the session, if one was opened.
func (a *app) close() {
	if a.sess == nil {
		return
	}
	if err := observability.Shutdown(a.sess.provider, 0); err != nil {
		a.sess.log.Warn().Err(err).Msg("Failed to flush telemetry")
	}
	a.sess = nil
}
