package httpclient

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType categorizes client failures.
type ErrorType int

const (
	// NetworkError means the exchange could not complete (refused, reset, DNS).
	NetworkError ErrorType = iota
	// TimeoutError means the transport gave up waiting for the server.
	TimeoutError
	// HTTPError means the server answered with a non-2xx status.
	HTTPError
	// ValidationError means the request was rejected before being sent.
	ValidationError
	// InterceptorError means a request or response interceptor failed.
	InterceptorError
	// DecodeError means the response body did not match the expected JSON shape.
	DecodeError
	// RetriesExhaustedError means every allowed attempt failed with a retryable error.
	RetriesExhaustedError
)

func (t ErrorType) String() string {
	switch t {
	case NetworkError:
		return "network"
	case TimeoutError:
		return "timeout"
	case HTTPError:
		return "http"
	case ValidationError:
		return "validation"
	case InterceptorError:
		return "interceptor"
	case DecodeError:
		return "decode"
	case RetriesExhaustedError:
		return "retries_exhausted"
	default:
		return "unknown"
	}
}

// ClientError is implemented by every error produced by this package.
type ClientError interface {
	error
	Type() ErrorType
}

type networkError struct {
	message string
	err     error
}

// NewNetworkError creates a connectivity failure, optionally wrapping its cause.
func NewNetworkError(message string, err error) ClientError {
	return &networkError{message: message, err: err}
}

func (e *networkError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.err)
	}
	return fmt.Sprintf("network error: %s", e.message)
}

func (e *networkError) Type() ErrorType { return NetworkError }
func (e *networkError) Unwrap() error   { return e.err }

type timeoutError struct {
	message string
	timeout time.Duration
	err     error
}

// NewTimeoutError creates a timeout failure for the configured timeout.
func NewTimeoutError(message string, timeout time.Duration) ClientError {
	return &timeoutError{message: message, timeout: timeout}
}

func newTimeoutErrorWithCause(message string, timeout time.Duration, err error) ClientError {
	return &timeoutError{message: message, timeout: timeout, err: err}
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (timeout: %v)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType { return TimeoutError }
func (e *timeoutError) Unwrap() error   { return e.err }

type httpError struct {
	message    string
	statusCode int
	body       []byte
}

// NewHTTPError creates a failure for a non-2xx response, keeping the raw body.
func NewHTTPError(message string, statusCode int, body []byte) ClientError {
	return &httpError{message: message, statusCode: statusCode, body: body}
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP error: %s (status: %d)", e.message, e.statusCode)
}

func (e *httpError) Type() ErrorType { return HTTPError }

// StatusCode returns the response status code.
func (e *httpError) StatusCode() int { return e.statusCode }

// Body returns the raw response body.
func (e *httpError) Body() []byte { return e.body }

type validationError struct {
	message string
	field   string
}

// NewValidationError creates a failure for a request that was never sent.
func NewValidationError(message, field string) ClientError {
	return &validationError{message: message, field: field}
}

func (e *validationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.message, e.field)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

func (e *validationError) Type() ErrorType { return ValidationError }

// Field returns the offending field name, if any.
func (e *validationError) Field() string { return e.field }

type interceptorError struct {
	message string
	stage   string
	err     error
}

// NewInterceptorError creates a failure raised by an interceptor at the given stage.
func NewInterceptorError(message, stage string, err error) ClientError {
	return &interceptorError{message: message, stage: stage, err: err}
}

func (e *interceptorError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("interceptor error: %s (stage: %s): %v", e.message, e.stage, e.err)
	}
	return fmt.Sprintf("interceptor error: %s (stage: %s)", e.message, e.stage)
}

func (e *interceptorError) Type() ErrorType { return InterceptorError }
func (e *interceptorError) Unwrap() error   { return e.err }

type decodeError struct {
	message string
	body    []byte
	err     error
}

// NewDecodeError creates a failure for a response body of unexpected shape.
func NewDecodeError(message string, body []byte, err error) ClientError {
	return &decodeError{message: message, body: body, err: err}
}

func (e *decodeError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("decode error: %s: %v", e.message, e.err)
	}
	return fmt.Sprintf("decode error: %s", e.message)
}

func (e *decodeError) Type() ErrorType { return DecodeError }
func (e *decodeError) Unwrap() error   { return e.err }

// Body returns the raw body that failed to decode.
func (e *decodeError) Body() []byte { return e.body }

type retriesExhaustedError struct {
	attempts int
	last     error
}

// NewRetriesExhaustedError wraps the last retryable failure after attempts ran out.
func NewRetriesExhaustedError(attempts int, last error) ClientError {
	return &retriesExhaustedError{attempts: attempts, last: last}
}

func (e *retriesExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.attempts, e.last)
}

func (e *retriesExhaustedError) Type() ErrorType { return RetriesExhaustedError }
func (e *retriesExhaustedError) Unwrap() error   { return e.last }

// Attempts returns how many attempts were made.
func (e *retriesExhaustedError) Attempts() int { return e.attempts }

// IsErrorType reports whether any error in err's tree is a ClientError of type t.
// Joined errors are searched branch by branch, like errors.As.
func IsErrorType(err error, t ErrorType) bool {
	if err == nil {
		return false
	}
	if ce, ok := err.(ClientError); ok && ce.Type() == t {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return IsErrorType(u.Unwrap(), t)
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if IsErrorType(e, t) {
				return true
			}
		}
	}
	return false
}

// IsHTTPStatusError reports whether err carries an HTTP failure with the given status.
func IsHTTPStatusError(err error, statusCode int) bool {
	status, _, ok := HTTPStatus(err)
	return ok && status == statusCode
}

// HTTPStatus extracts the status code and raw body of an HTTP failure in err's chain.
func HTTPStatus(err error) (statusCode int, body []byte, ok bool) {
	var he *httpError
	if errors.As(err, &he) {
		return he.statusCode, he.body, true
	}
	return 0, nil, false
}

// IsSuccessStatus reports whether statusCode is in the 2xx range.
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
