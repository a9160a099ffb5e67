package httpclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/gaborage/b2c2-cli/httpclient"

// Attempt outcomes recorded on b2c2.http.client.attempts.
const (
	outcomeSuccess = "success"
	outcomeClient  = "http_4xx"
	outcomeServer  = "http_5xx"
	outcomeNetwork = "network"
	outcomeTimeout = "timeout"
	outcomeOther   = "other"
)

type clientMetrics struct {
	attempts metric.Int64Counter
	retries  metric.Int64Counter
	duration metric.Float64Histogram
}

// newClientMetrics creates the client instruments, falling back to no-op
// instruments when the provider rejects one.
func newClientMetrics(mp metric.MeterProvider) *clientMetrics {
	m, err := buildClientMetrics(mp.Meter(instrumentationName))
	if err != nil {
		m, _ = buildClientMetrics(noop.NewMeterProvider().Meter(instrumentationName))
	}
	return m
}

func buildClientMetrics(meter metric.Meter) (*clientMetrics, error) {
	attempts, err := meter.Int64Counter("b2c2.http.client.attempts",
		metric.WithDescription("HTTP attempts made, by outcome"))
	if err != nil {
		return nil, fmt.Errorf("attempts counter: %w", err)
	}
	retries, err := meter.Int64Counter("b2c2.http.client.retries",
		metric.WithDescription("Attempts retried after a retryable failure"))
	if err != nil {
		return nil, fmt.Errorf("retries counter: %w", err)
	}
	duration, err := meter.Float64Histogram("b2c2.http.client.duration",
		metric.WithDescription("Duration of a single HTTP attempt"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("duration histogram: %w", err)
	}
	return &clientMetrics{attempts: attempts, retries: retries, duration: duration}, nil
}

func (m *clientMetrics) recordAttempt(ctx context.Context, method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("outcome", outcome),
	)
	m.attempts.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
}

func (m *clientMetrics) recordRetry(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("http.request.method", method)))
}

func outcomeOf(err error) string {
	if err == nil {
		return outcomeSuccess
	}
	if status, _, ok := HTTPStatus(err); ok {
		if status >= 500 {
			return outcomeServer
		}
		return outcomeClient
	}
	var ce ClientError
	if errors.As(err, &ce) {
		switch ce.Type() {
		case NetworkError:
			return outcomeNetwork
		case TimeoutError:
			return outcomeTimeout
		}
	}
	return outcomeOther
}
