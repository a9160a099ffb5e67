package observability

import (
	"strings"
	"time"
)

const (
	// EndpointStdout writes telemetry to the provider's writer (stderr by default).
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// CompressionGzip specifies gzip compression for OTLP export.
	CompressionGzip = "gzip"

	// CompressionNone specifies no compression for OTLP export.
	CompressionNone = "none"

	// EnvironmentDevelopment is the default environment name.
	EnvironmentDevelopment = "development"
)

// BoolPtr returns a pointer to the provided bool value.
func BoolPtr(v bool) *bool {
	return &v
}

// Float64Ptr returns a pointer to the provided float64 value.
func Float64Ptr(v float64) *float64 {
	return &v
}

// Config defines the configuration for observability features, read from the
// observability section of the CLI configuration.
type Config struct {
	// Enabled controls whether observability is active.
	// When false, all observability operations become no-ops.
	Enabled bool `koanf:"enabled"`

	Service ServiceConfig `koanf:"service"`

	// Environment is reported as deployment.environment.name.
	Environment string `koanf:"environment"`

	Trace   TraceConfig   `koanf:"trace"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// ServiceConfig contains service identification metadata.
type ServiceConfig struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

// TraceConfig defines configuration for request tracing.
type TraceConfig struct {
	// nil = apply default (true when observability is enabled), false = explicitly disabled.
	Enabled *bool `koanf:"enabled"`

	// Endpoint is "stdout" or an OTLP endpoint ("http://localhost:4318" for HTTP, "localhost:4317" for gRPC).
	Endpoint string `koanf:"endpoint"`

	// Protocol is "http" or "grpc". Only used when Endpoint is not "stdout".
	Protocol string `koanf:"protocol"`

	// Insecure disables TLS for OTLP endpoints.
	Insecure bool `koanf:"insecure"`

	Headers     map[string]string `koanf:"headers"`
	Compression string            `koanf:"compression"`

	Sample SampleConfig `koanf:"sample"`
	Batch  BatchConfig  `koanf:"batch"`
}

// SampleConfig defines sampling configuration for traces.
type SampleConfig struct {
	// nil = apply default (1.0), explicit value = use that value (including 0.0).
	Rate *float64 `koanf:"rate"`
}

// BatchConfig defines span batching.
type BatchConfig struct {
	Timeout time.Duration `koanf:"timeout"`
	// ExportTimeout bounds a single export call.
	ExportTimeout time.Duration `koanf:"exporttimeout"`
}

// MetricsConfig defines configuration for metrics collection.
type MetricsConfig struct {
	// nil = apply default (true when observability is enabled), false = explicitly disabled.
	Enabled *bool `koanf:"enabled"`

	Endpoint string `koanf:"endpoint"`

	// Protocol is "http" or "grpc"; empty inherits the trace protocol.
	Protocol string `koanf:"protocol"`

	// Insecure falls back to the trace setting when unset.
	Insecure *bool `koanf:"insecure"`

	// Headers fall back to the trace headers when unset.
	Headers     map[string]string `koanf:"headers"`
	Compression string            `koanf:"compression"`

	// Interval is how often metrics are exported. A CLI run usually ends
	// before the first tick; the final flush happens at shutdown.
	Interval      time.Duration `koanf:"interval"`
	ExportTimeout time.Duration `koanf:"exporttimeout"`
}

// ApplyDefaults sets default values for any config fields that are not specified.
func (c *Config) ApplyDefaults() {
	if c.Service.Version == "" {
		c.Service.Version = "unknown"
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}
	c.applyTraceDefaults()
	c.applyMetricsDefaults()
}

func (c *Config) applyTraceDefaults() {
	if c.Trace.Endpoint == "" {
		c.Trace.Endpoint = EndpointStdout
	}
	if c.Enabled && c.Trace.Enabled == nil {
		c.Trace.Enabled = BoolPtr(true)
	}
	if c.Trace.Protocol == "" {
		c.Trace.Protocol = ProtocolHTTP
	}
	if c.Trace.Compression == "" {
		c.Trace.Compression = CompressionGzip
	}
	if c.Trace.Sample.Rate == nil {
		c.Trace.Sample.Rate = Float64Ptr(1.0)
	}
	if c.Trace.Batch.Timeout == 0 {
		c.Trace.Batch.Timeout = 500 * time.Millisecond
	}
	if c.Trace.Batch.ExportTimeout == 0 {
		c.Trace.Batch.ExportTimeout = 10 * time.Second
	}
}

func (c *Config) applyMetricsDefaults() {
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = EndpointStdout
	}
	if c.Enabled && c.Metrics.Enabled == nil {
		c.Metrics.Enabled = BoolPtr(true)
	}
	if c.Metrics.Protocol == "" {
		c.Metrics.Protocol = c.Trace.Protocol
	}
	if c.Metrics.Insecure == nil {
		c.Metrics.Insecure = BoolPtr(c.Trace.Insecure)
	}
	if c.Metrics.Headers == nil && c.Trace.Headers != nil {
		c.Metrics.Headers = make(map[string]string, len(c.Trace.Headers))
		for k, v := range c.Trace.Headers {
			c.Metrics.Headers[k] = v
		}
	}
	if c.Metrics.Compression == "" {
		c.Metrics.Compression = CompressionGzip
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = 10 * time.Second
	}
	if c.Metrics.ExportTimeout == 0 {
		c.Metrics.ExportTimeout = 10 * time.Second
	}
}

// Validate checks the configuration for common errors.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.Service.Name == "" {
		return ErrMissingServiceName
	}

	if c.Trace.Sample.Rate != nil {
		if rate := *c.Trace.Sample.Rate; rate < 0.0 || rate > 1.0 {
			return ErrInvalidSampleRate
		}
	}
	if err := validateExporter(c.Trace.Endpoint, c.Trace.Protocol, c.Trace.Compression); err != nil {
		return err
	}

	if c.Metrics.Enabled == nil || !*c.Metrics.Enabled {
		return nil
	}
	protocol := c.Metrics.Protocol
	if protocol == "" {
		protocol = c.Trace.Protocol
	}
	return validateExporter(c.Metrics.Endpoint, protocol, c.Metrics.Compression)
}

func validateExporter(endpoint, protocol, compression string) error {
	if compression != "" && compression != CompressionGzip && compression != CompressionNone {
		return ErrInvalidCompression
	}
	if endpoint == EndpointStdout || endpoint == "" {
		return nil
	}
	if protocol == "" {
		protocol = ProtocolHTTP
	}
	if protocol != ProtocolHTTP && protocol != ProtocolGRPC {
		return ErrInvalidProtocol
	}
	return validateEndpointFormat(endpoint, protocol)
}

// validateEndpointFormat checks that the endpoint format matches the protocol.
// gRPC endpoints use "host:port"; HTTP endpoints carry an http(s):// scheme.
func validateEndpointFormat(endpoint, protocol string) error {
	hasScheme := strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")

	if protocol == ProtocolGRPC && hasScheme {
		return ErrInvalidEndpointFormat
	}
	if protocol == ProtocolHTTP && !hasScheme {
		return ErrInvalidEndpointFormat
	}
	return nil
}
