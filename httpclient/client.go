package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/b2c2-cli/logger"
	b2c2trace "github.com/gaborage/b2c2-cli/trace"
)

const disabledHeader = "-"

// client is the default Client: every logical request runs through Execute,
// each attempt building a fresh *http.Request from the same Request.
type client struct {
	transport Transport
	config    *Config
	logger    logger.Logger
	metrics   *clientMetrics
	tracer    trace.Tracer
}

var _ Client = (*client)(nil)

// Get performs a GET request
func (c *client) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodGet, req)
}

// Post performs a POST request
func (c *client) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPost, req)
}

// Put performs a PUT request
func (c *client) Put(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPut, req)
}

// Patch performs a PATCH request
func (c *client) Patch(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodPatch, req)
}

// Delete performs a DELETE request
func (c *client) Delete(ctx context.Context, req *Request) (*Response, error) {
	return c.Do(ctx, nethttp.MethodDelete, req)
}

// Do runs one logical request. A non-nil Response is only returned for 2xx
// statuses; failures are ClientError values (or the context error).
func (c *client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	if req == nil {
		return nil, NewValidationError("request is required", "request")
	}
	if req.URL == "" {
		return nil, NewValidationError("URL is required", "url")
	}

	requestID := b2c2trace.EnsureRequestID(ctx)
	ctx = b2c2trace.WithRequestID(ctx, requestID)

	ctx, span := c.tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", req.URL),
			attribute.String("request_id", requestID),
		),
	)
	defer span.End()

	maxAttempts := c.config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	policy := RetryPolicy{
		MaxAttempts: maxAttempts,
		Delay:       c.config.RetryDelay,
		OnRetry: func(attempt int, err error) {
			c.metrics.recordRetry(ctx, method)
			c.logger.Warn().
				Str("method", method).
				Str("url", req.URL).
				Str("request_id", requestID).
				Int("attempt", attempt).
				Int("max_attempts", maxAttempts).
				Err(err).
				Msg("Retrying REST client request")
		},
	}

	start := time.Now()
	var attempts int
	resp, err := Execute(ctx, policy, func(ctx context.Context, attempt int) (*Response, error) {
		attempts = attempt
		return c.attempt(ctx, method, req, requestID, attempt)
	})
	span.SetAttributes(attribute.Int("http.request.attempts", attempts))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	resp.Stats = Stats{ElapsedTime: time.Since(start), CallCount: int64(attempts)}
	return resp, nil
}

// attempt performs a single exchange and maps its outcome onto the error taxonomy.
// Every attempt that gets past request construction is recorded in telemetry.
func (c *client) attempt(ctx context.Context, method string, req *Request, requestID string, attempt int) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, method, req, requestID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	for _, intercept := range c.config.RequestInterceptors {
		if err := intercept(ctx, httpReq); err != nil {
			failure := NewInterceptorError("request interceptor failed", "request", err)
			c.recordAttempt(ctx, method, attempt, 0, failure, time.Since(start))
			return nil, failure
		}
	}

	c.logRequest(httpReq, req.Body, requestID)

	httpResp, err := c.transport.Do(httpReq)
	if err != nil {
		failure := c.transportError(ctx, err)
		c.recordAttempt(ctx, method, attempt, 0, failure, time.Since(start))
		return nil, failure
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		failure := NewNetworkError("failed to read response body", err)
		c.recordAttempt(ctx, method, attempt, httpResp.StatusCode, failure, time.Since(start))
		return nil, failure
	}
	httpResp.Body = io.NopCloser(bytes.NewReader(body))

	for _, intercept := range c.config.ResponseInterceptors {
		if err := intercept(ctx, httpReq, httpResp); err != nil {
			failure := NewInterceptorError("response interceptor failed", "response", err)
			c.recordAttempt(ctx, method, attempt, httpResp.StatusCode, failure, time.Since(start))
			return nil, failure
		}
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
		Stats:      Stats{ElapsedTime: time.Since(start), CallCount: int64(attempt)},
	}
	c.logResponse(resp, requestID)

	var failure error
	if !IsSuccessStatus(resp.StatusCode) {
		failure = NewHTTPError(statusMessage(resp.StatusCode), resp.StatusCode, body)
	}
	c.recordAttempt(ctx, method, attempt, resp.StatusCode, failure, resp.Stats.ElapsedTime)

	if failure != nil {
		return nil, failure
	}
	return resp, nil
}

// recordAttempt adds one attempt to the metrics and to the request span.
// status is 0 when no response was received.
func (c *client) recordAttempt(ctx context.Context, method string, attempt, status int, failure error, elapsed time.Duration) {
	outcome := outcomeOf(failure)
	c.metrics.recordAttempt(ctx, method, outcome, elapsed)

	attrs := []attribute.KeyValue{
		attribute.Int("attempt", attempt),
		attribute.String("outcome", outcome),
	}
	if status != 0 {
		attrs = append(attrs, attribute.Int("status", status))
	}
	trace.SpanFromContext(ctx).AddEvent("attempt", trace.WithAttributes(attrs...))
}

func (c *client) buildRequest(ctx context.Context, method string, req *Request, requestID string) (*nethttp.Request, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("invalid URL: %v", err), "url")
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	var body io.Reader = nethttp.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("failed to create request: %v", err), "request")
	}

	for k, v := range c.config.DefaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	header := c.config.RequestIDHeader
	if header == "" {
		header = HeaderXRequestID
	}
	if header != disabledHeader && httpReq.Header.Get(header) == "" {
		httpReq.Header.Set(header, requestID)
	}
	c.config.Propagator.Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	return httpReq, nil
}

// transportError converts a transport failure into a network or timeout error.
func (c *client) transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return NewNetworkError("request canceled", err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return newTimeoutErrorWithCause("request timed out", c.config.Timeout, err)
	}
	return NewNetworkError("request failed", err)
}

func statusMessage(statusCode int) string {
	if text := nethttp.StatusText(statusCode); text != "" {
		return text
	}
	return fmt.Sprintf("unexpected status %d", statusCode)
}
