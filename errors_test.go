package apiclient

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRetryableStatus(t *testing.T) {
	retryable := []int{408, 429, 500, 502, 503, 504}
	for _, code := range retryable {
		if !RetryableStatus(code) {
			t.Errorf("Status %d should be retryable", code)
		}
	}

	terminal := []int{200, 301, 400, 401, 403, 404, 409, 422, 501}
	for _, code := range terminal {
		if RetryableStatus(code) {
			t.Errorf("Status %d should be terminal", code)
		}
	}
}

func TestClassifyStatus(t *testing.T) {
	if classifyStatus(503) != KindServer {
		t.Error("503 should classify as a server error")
	}
	if classifyStatus(404) != KindClient {
		t.Error("404 should classify as a client error")
	}
}

func TestClientErrorRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  *ClientError
		want bool
	}{
		{"transport", &ClientError{Kind: KindTransport}, true},
		{"server", &ClientError{Kind: KindServer}, true},
		{"client", &ClientError{Kind: KindClient}, false},
		{"malformed", &ClientError{Kind: KindMalformedResponse}, false},
		{"standby never retries", &ClientError{Kind: KindTransport, Backend: BackendStandby}, false},
		{"rate limited", &ClientError{Kind: KindRateLimited}, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Retryable(); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(context.DeadlineExceeded) {
		t.Error("Deadline exceeded should be retryable")
	}
	if !IsRetryable(&ClientError{Kind: KindServer}) {
		t.Error("Server ClientError should be retryable")
	}
	if IsRetryable(&ClientError{Kind: KindClient}) {
		t.Error("Client ClientError should be terminal")
	}
	if IsRetryable(nil) {
		t.Error("nil should not be retryable")
	}
	if IsRetryable(errors.New("opaque")) {
		t.Error("An unclassified error should not be retryable")
	}
}

func TestClientErrorError(t *testing.T) {
	err := &ClientError{
		Kind:       KindServer,
		Message:    "Service Unavailable",
		RequestID:  "req_1234",
		Attempt:    2,
		MaxRetries: 3,
	}

	msg := err.Error()
	for _, want := range []string{"server", "Service Unavailable", "req_1234", "attempt 2/3"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestClientErrorUnwrapAndIs(t *testing.T) {
	cause := errors.New("connection refused")
	err := &ClientError{Kind: KindTransport, Message: "network request failed", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("Unwrap chain should reach the cause")
	}
	if !errors.Is(err, &ClientError{Kind: KindTransport}) {
		t.Error("Is should match on kind")
	}
	if errors.Is(err, &ClientError{Kind: KindClient}) {
		t.Error("Is should not match a different kind")
	}
}

func TestClientErrorDebugInfo(t *testing.T) {
	err := &ClientError{
		Kind:       KindServer,
		Message:    "Service Unavailable",
		Method:     "GET",
		URL:        "http://h/api/articles",
		StatusCode: 503,
		Attempt:    1,
		MaxRetries: 3,
	}

	info := err.DebugInfo()
	for _, want := range []string{"server", "GET", "http://h/api/articles", "503", "1/3"} {
		if !strings.Contains(info, want) {
			t.Errorf("DebugInfo missing %q:\n%s", want, info)
		}
	}

	var nilErr *ClientError
	if nilErr.DebugInfo() == "" {
		t.Error("DebugInfo on nil must still render")
	}
}
