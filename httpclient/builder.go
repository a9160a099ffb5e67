package httpclient

import (
	"maps"
	nethttp "net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/gaborage/b2c2-cli/logger"
)

const defaultTimeout = 30 * time.Second

// Builder assembles a Client with a fluent API.
type Builder struct {
	logger logger.Logger
	config *Config
}

// NewBuilder creates a builder with default settings: 30s timeout,
// DefaultMaxAttempts immediate attempts and payload logging disabled.
func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		logger: log,
		config: &Config{
			Timeout:            defaultTimeout,
			MaxAttempts:        DefaultMaxAttempts,
			DefaultHeaders:     make(map[string]string),
			MaxPayloadLogBytes: defaultMaxPayloadLogBytes,
			RequestIDHeader:    HeaderXRequestID,
		},
	}
}

// WithTimeout sets the per-attempt transport timeout
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.config.Timeout = timeout
	return b
}

// WithMaxAttempts sets the total attempt budget per logical request
func (b *Builder) WithMaxAttempts(attempts int) *Builder {
	b.config.MaxAttempts = attempts
	return b
}

// WithRetryDelay sets a fixed pause between attempts
func (b *Builder) WithRetryDelay(delay time.Duration) *Builder {
	b.config.RetryDelay = delay
	return b
}

// WithDefaultHeader adds a header sent on every attempt
func (b *Builder) WithDefaultHeader(key, value string) *Builder {
	b.config.DefaultHeaders[key] = value
	return b
}

// WithRequestInterceptor appends a request interceptor
func (b *Builder) WithRequestInterceptor(interceptor RequestInterceptor) *Builder {
	b.config.RequestInterceptors = append(b.config.RequestInterceptors, interceptor)
	return b
}

// WithResponseInterceptor appends a response interceptor
func (b *Builder) WithResponseInterceptor(interceptor ResponseInterceptor) *Builder {
	b.config.ResponseInterceptors = append(b.config.ResponseInterceptors, interceptor)
	return b
}

// WithRateLimit throttles attempts to rps with the given burst. rps <= 0 leaves attempts unthrottled.
func (b *Builder) WithRateLimit(rps float64, burst int) *Builder {
	if rps <= 0 {
		return b
	}
	if burst <= 0 {
		burst = 1
	}
	return b.WithRequestInterceptor(NewRateLimitInterceptor(rate.NewLimiter(rate.Limit(rps), burst)))
}

// WithLogPayloads enables debug logging of headers and bodies
func (b *Builder) WithLogPayloads(enabled bool) *Builder {
	b.config.LogPayloads = enabled
	return b
}

// WithMaxPayloadLogBytes caps logged body previews
func (b *Builder) WithMaxPayloadLogBytes(n int) *Builder {
	b.config.MaxPayloadLogBytes = n
	return b
}

// WithRequestIDHeader renames the request ID header; "-" disables it
func (b *Builder) WithRequestIDHeader(header string) *Builder {
	b.config.RequestIDHeader = header
	return b
}

// WithTransport replaces the underlying transport
func (b *Builder) WithTransport(t Transport) *Builder {
	b.config.Transport = t
	return b
}

// WithMeterProvider sets the meter provider for client metrics
func (b *Builder) WithMeterProvider(mp metric.MeterProvider) *Builder {
	b.config.MeterProvider = mp
	return b
}

// WithTracerProvider sets the tracer provider for request spans
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.config.TracerProvider = tp
	return b
}

// WithPropagator sets the propagator that writes trace headers on each attempt
func (b *Builder) WithPropagator(p propagation.TextMapPropagator) *Builder {
	b.config.Propagator = p
	return b
}

// Build creates the Client. The builder may be reused; later changes do not affect built clients.
func (b *Builder) Build() Client {
	cfg := *b.config
	cfg.DefaultHeaders = maps.Clone(b.config.DefaultHeaders)
	cfg.RequestInterceptors = append([]RequestInterceptor(nil), b.config.RequestInterceptors...)
	cfg.ResponseInterceptors = append([]ResponseInterceptor(nil), b.config.ResponseInterceptors...)

	transport := cfg.Transport
	if transport == nil {
		transport = &nethttp.Client{Timeout: cfg.Timeout}
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if cfg.Propagator == nil {
		cfg.Propagator = otel.GetTextMapPropagator()
	}
	log := b.logger
	if log == nil {
		log = logger.Nop()
	}

	return &client{
		transport: transport,
		config:    &cfg,
		logger:    log,
		metrics:   newClientMetrics(mp),
		tracer:    tp.Tracer(instrumentationName),
	}
}
