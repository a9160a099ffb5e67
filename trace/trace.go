// Package trace carries the per-request identifier that ties a logical API call,
// all of its retry attempts and their log lines together.
package trace

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is the type for context keys to avoid collisions
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	// HeaderXRequestID is the header the request ID is sent in
	HeaderXRequestID = "X-Request-ID"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request ID from context if present
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// EnsureRequestID returns the context's request ID or a freshly generated one.
func EnsureRequestID(ctx context.Context) string {
	if id, ok := RequestIDFromContext(ctx); ok {
		return id
	}
	return NewID()
}

// NewID generates a random UUID v4 string.
func NewID() string {
	return uuid.New().String()
}
