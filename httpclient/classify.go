package httpclient

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Classification tells the retry executor what to do with a failed attempt.
type Classification int

const (
	// Terminal failures are returned to the caller without another attempt.
	Terminal Classification = iota
	// Retryable failures are transient and may be attempted again.
	Retryable
)

func (c Classification) String() string {
	if c == Retryable {
		return "retryable"
	}
	return "terminal"
}

// Classify decides whether a failed attempt may be retried.
// Connectivity failures and server errors (status >= 500) are retryable;
// everything else, including cancellation of the caller's context, is terminal.
func Classify(err error) Classification {
	if err == nil {
		return Terminal
	}
	if errors.Is(err, context.Canceled) || IsErrorType(err, RetriesExhaustedError) {
		return Terminal
	}

	if status, _, ok := HTTPStatus(err); ok {
		if status >= http.StatusInternalServerError {
			return Retryable
		}
		return Terminal
	}

	if IsErrorType(err, NetworkError) || IsErrorType(err, TimeoutError) {
		return Retryable
	}
	var ce ClientError
	if errors.As(err, &ce) {
		return Terminal
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Retryable
	}
	return Terminal
}
