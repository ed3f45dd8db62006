package apiclient

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a request failure. The kind decides both the retry
// behavior (transport and server failures are retryable, everything else is
// terminal) and the machine-readable "kind" field callers see on a failed
// envelope.
type ErrorKind string

const (
	// KindTransport covers failures before any HTTP response arrived:
	// connection errors, DNS failures and per-attempt timeouts.
	KindTransport ErrorKind = "transport"

	// KindServer covers HTTP statuses in the retryable set
	// (408, 429, 500, 502, 503, 504).
	KindServer ErrorKind = "server"

	// KindClient covers terminal HTTP statuses such as 400, 401, 403, 404.
	KindClient ErrorKind = "client"

	// KindMalformedResponse covers bodies that cannot be decoded into the
	// expected envelope shape.
	KindMalformedResponse ErrorKind = "malformed_response"

	// KindStandby covers any failure while the standby backend serves a
	// request. Standby failures are always terminal.
	KindStandby ErrorKind = "standby"

	// KindRateLimited is reported when the optional client-side rate
	// limiter denies a request before it is sent.
	KindRateLimited ErrorKind = "rate_limited"

	// KindValidation is reported when the client configuration is invalid.
	KindValidation ErrorKind = "validation"
)

// Sentinel errors for common failure scenarios
var (
	// ErrNoToken is returned by token storages when no token is persisted.
	ErrNoToken = errors.New("apiclient: no token present")

	// ErrRateLimited is returned when a request is denied by the client-side rate limiter.
	ErrRateLimited = errors.New("apiclient: rate limited")

	// ErrInvalidConfig is returned when a client is constructed with an invalid configuration.
	ErrInvalidConfig = errors.New("apiclient: invalid configuration")
)

// retryableStatusCodes is the fixed set of HTTP statuses worth another attempt.
var retryableStatusCodes = map[int]bool{
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// RetryableStatus reports whether an HTTP status code is in the retryable set.
func RetryableStatus(code int) bool {
	return retryableStatusCodes[code]
}

// classifyStatus maps a terminal HTTP status to an error kind.
func classifyStatus(code int) ErrorKind {
	if RetryableStatus(code) {
		return KindServer
	}
	return KindClient
}

// IsRetryable determines if an error represents a failure that might succeed
// on another attempt. Transport errors (including per-attempt timeouts) and
// server errors are retryable; client errors, malformed responses and standby
// failures are terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Retryable()
	}

	return false
}

// ClientError carries diagnostic context for a failed request. It is logged
// and folded into the failure envelope; facade methods never return it
// directly.
type ClientError struct {
	Kind       ErrorKind
	Message    string
	Cause      error
	RequestID  string
	Method     string
	URL        string
	Backend    BackendTarget
	Attempt    int
	MaxRetries int
	StatusCode int
	Endpoint   string
	Timestamp  time.Time
	Duration   time.Duration
}

// Retryable reports whether another attempt could succeed.
func (e *ClientError) Retryable() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindTransport, KindServer:
		return e.Backend != BackendStandby
	default:
		return false
	}
}

// Error implements error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		msg := fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Cause)
		if e.RequestID != "" {
			msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
		}
		if e.Attempt > 0 {
			msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt, e.MaxRetries)
		}
		return msg
	}

	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt, e.MaxRetries)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error kinds for errors.Is.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Kind == targetErr.Kind
	}
	return false
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *ClientError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Kind: %s\n", e.Kind)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.RequestID != "" {
		info += fmt.Sprintf("Request ID: %s\n", e.RequestID)
	}
	if e.Method != "" {
		info += fmt.Sprintf("Method: %s\n", e.Method)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if e.Endpoint != "" {
		info += fmt.Sprintf("Endpoint: %s\n", e.Endpoint)
	}
	info += fmt.Sprintf("Backend: %s\n", e.Backend)
	if e.StatusCode > 0 {
		info += fmt.Sprintf("Status Code: %d\n", e.StatusCode)
	}
	if e.Attempt > 0 {
		info += fmt.Sprintf("Attempt: %d/%d\n", e.Attempt, e.MaxRetries)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}
