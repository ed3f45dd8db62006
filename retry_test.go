package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// Every attempt failing with a retryable status exhausts the budget: exactly
// maxRetries+1 attempts, then a failed envelope.
func TestRetryBudgetExhausted(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server, WithMaxRetries(3))
	env := client.ListArticles(context.Background(), ArticleListOptions{})

	if env.Success {
		t.Fatal("Expected failure after exhausting retries")
	}
	if got := atomic.LoadInt64(&calls); got != 4 {
		t.Errorf("Expected maxRetries+1 = 4 attempts, got %d", got)
	}
	if env.Kind() != KindServer {
		t.Errorf("Expected kind %q, got %q", KindServer, env.Kind())
	}
}

// Each status in the retryable set is re-attempted; each other 4xx status is
// terminal after one attempt.
func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status       string
		code         int
		wantAttempts int64
	}{
		{"408 retried", http.StatusRequestTimeout, 2},
		{"429 retried", http.StatusTooManyRequests, 2},
		{"500 retried", http.StatusInternalServerError, 2},
		{"502 retried", http.StatusBadGateway, 2},
		{"503 retried", http.StatusServiceUnavailable, 2},
		{"504 retried", http.StatusGatewayTimeout, 2},
		{"400 terminal", http.StatusBadRequest, 1},
		{"401 terminal", http.StatusUnauthorized, 1},
		{"403 terminal", http.StatusForbidden, 1},
		{"404 terminal", http.StatusNotFound, 1},
		{"422 terminal", http.StatusUnprocessableEntity, 1},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			var calls int64
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt64(&calls, 1)
				w.WriteHeader(tt.code)
			}))
			defer server.Close()

			client := newTestClient(server, WithMaxRetries(1))
			env := client.Health(context.Background())

			if env.Success {
				t.Fatal("Expected failure")
			}
			if got := atomic.LoadInt64(&calls); got != tt.wantAttempts {
				t.Errorf("Status %d: expected %d attempts, got %d", tt.code, tt.wantAttempts, got)
			}
		})
	}
}

// A connection-level failure with no HTTP status is retryable up to the
// limit and surfaces as a transport failure.
func TestTransportFailureRetried(t *testing.T) {
	// A server that is already closed refuses every connection.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server, WithMaxRetries(2))
	env := client.Health(context.Background())

	if env.Success {
		t.Fatal("Expected failure against a dead server")
	}
	if env.Kind() != KindTransport {
		t.Errorf("Expected kind %q, got %q", KindTransport, env.Kind())
	}
}

// An attempt exceeding the per-attempt deadline is classified as retryable
// and counted toward the retry budget; each retry gets a fresh deadline.
func TestTimeoutRetryableAndCounted(t *testing.T) {
	var calls int64
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(block)

	client := newTestClient(server,
		WithMaxRetries(2),
		WithRequestTimeout(20*time.Millisecond),
	)
	env := client.Health(context.Background())

	if env.Success {
		t.Fatal("Expected failure when every attempt times out")
	}
	if env.Kind() != KindTransport {
		t.Errorf("Expected timeout classified as %q, got %q", KindTransport, env.Kind())
	}
	if got := atomic.LoadInt64(&calls); got != 3 {
		t.Errorf("Expected maxRetries+1 = 3 attempts, got %d", got)
	}
}

// Cancelling the caller's context stops the retry loop immediately instead
// of burning the remaining budget in backoff.
func TestCallerCancellationStopsRetries(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := newTestClient(server,
		WithMaxRetries(5),
		WithInitialBackoff(50*time.Millisecond),
	)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	env := client.Health(ctx)

	if env.Success {
		t.Fatal("Expected failure after cancellation")
	}
	if got := atomic.LoadInt64(&calls); got >= 6 {
		t.Errorf("Expected cancellation to cut the attempt budget short, got %d attempts", got)
	}
}

func TestBackoffDelayGrowth(t *testing.T) {
	client := New(
		WithInitialBackoff(time.Second),
		WithMaxBackoff(30*time.Second),
		WithBackoffMultiplier(2.0),
	)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{10, 30 * time.Second}, // capped
	}
	for _, tt := range tests {
		if got := client.backoffDelay(tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestSleepBackoffCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sleepBackoff(ctx, time.Minute); err == nil {
		t.Error("Expected an error from a cancelled backoff sleep")
	}
	if err := sleepBackoff(context.Background(), 0); err != nil {
		t.Errorf("Zero delay should return immediately, got %v", err)
	}
}

func TestEncodeBody(t *testing.T) {
	if data, err := encodeBody(nil); err != nil || data != nil {
		t.Errorf("nil body should encode to nil, got %v, %v", data, err)
	}

	data, err := encodeBody(map[string]string{"a": "b"})
	if err != nil {
		t.Fatalf("encodeBody failed: %v", err)
	}
	if string(data) != `{"a":"b"}` {
		t.Errorf("Unexpected encoding: %s", data)
	}

	raw, err := encodeBody([]byte(`{"pre":"encoded"}`))
	if err != nil || string(raw) != `{"pre":"encoded"}` {
		t.Errorf("Pre-encoded bytes should pass through, got %s, %v", raw, err)
	}
}

// A retryable status whose final failure carries the server's message keeps
// that message in the exhausted-budget envelope.
func TestExhaustedRetryKeepsServerMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"success":false,"error":{"message":"maintenance window"},"timestamp":"2024-01-01T00:00:00.000Z"}`))
	}))
	defer server.Close()

	client := newTestClient(server, WithMaxRetries(1))
	env := client.Health(context.Background())

	if env.Success {
		t.Fatal("Expected failure")
	}
	if env.ErrorMessage() != "maintenance window" {
		t.Errorf("Expected the server's message to survive exhaustion, got %q", env.ErrorMessage())
	}
}
