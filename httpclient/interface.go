// Package httpclient issues JSON-over-HTTP requests with bounded retries,
// typed failures, structured logging and OpenTelemetry instrumentation.
package httpclient

import (
	"context"
	nethttp "net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	b2c2trace "github.com/gaborage/b2c2-cli/trace"
)

// HeaderXRequestID carries the logical request ID, identical across retries.
const HeaderXRequestID = b2c2trace.HeaderXRequestID

// Client defines the REST client interface for making HTTP requests.
// Every method runs the full retry loop for one logical request.
type Client interface {
	Get(ctx context.Context, req *Request) (*Response, error)
	Post(ctx context.Context, req *Request) (*Response, error)
	Put(ctx context.Context, req *Request) (*Response, error)
	Patch(ctx context.Context, req *Request) (*Response, error)
	Delete(ctx context.Context, req *Request) (*Response, error)
	Do(ctx context.Context, method string, req *Request) (*Response, error)
}

// Transport performs a single HTTP exchange. *http.Client satisfies it.
type Transport interface {
	Do(req *nethttp.Request) (*nethttp.Response, error)
}

// Request describes one logical request. It is reused unchanged for every attempt.
type Request struct {
	URL     string
	Query   map[string]string
	Headers map[string]string
	Body    []byte
}

// Response represents a successful HTTP response with tracking information
type Response struct {
	StatusCode int
	Body       []byte
	Headers    nethttp.Header
	Stats      Stats
}

// Stats contains request execution statistics
type Stats struct {
	// ElapsedTime covers every attempt of the logical request.
	ElapsedTime time.Duration
	// CallCount is the number of attempts made.
	CallCount int64
}

// RequestInterceptor is called before each attempt is sent
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after each attempt's response is received
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the REST client configuration
type Config struct {
	// Timeout is the per-attempt transport timeout.
	Timeout time.Duration
	// MaxAttempts is the total attempt budget per logical request (default 5).
	MaxAttempts int
	// RetryDelay is a fixed pause between attempts (default 0, immediate retry).
	RetryDelay           time.Duration
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	// DefaultHeaders are applied to every attempt before request headers.
	DefaultHeaders map[string]string
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// RequestIDHeader names the request ID header (default: X-Request-ID, "-" disables it)
	RequestIDHeader string
	// Transport sends attempts; defaults to an *http.Client using Timeout.
	Transport Transport
	// MeterProvider and TracerProvider default to the otel globals.
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
	// Propagator injects trace context into every attempt; defaults to the otel global.
	Propagator propagation.TextMapPropagator
}
