package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// maxResponseBytes caps how much of a response body is read. Anything larger
// is truncated and will fail envelope decoding rather than exhaust memory.
const maxResponseBytes = 10 * 1024 * 1024

// BackoffStrategy selects how retry delays grow between attempts.
type BackoffStrategy int

const (
	// ExponentialJitter grows delays as initialBackoff * multiplier^attempt,
	// optionally spread by uniform jitter. The default.
	ExponentialJitter BackoffStrategy = iota
	// DecorrelatedJitter randomizes each delay over a widening band, which
	// avoids synchronized retry storms across many clients.
	DecorrelatedJitter
)

// executePrimary runs the attempt loop against the primary backend: at most
// maxRetries+1 attempts, each under its own fresh deadline, with exponential
// backoff between retryable failures. Terminal failures short-circuit. The
// caller always gets an envelope, never an error.
func (c *Client) executePrimary(ctx context.Context, req *Request, requestID string, start time.Time) *Envelope {
	body, encErr := encodeBody(req.Body)
	if encErr != nil {
		if c.metrics != nil {
			c.metrics.RecordError(string(KindValidation), string(req.Operation))
		}
		return newFailureEnvelope(KindValidation, "invalid request body", &errorDetails{Cause: encErr.Error()})
	}

	var lastErr *ClientError
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if c.rateLimiter != nil {
			if !c.rateLimiter.Allow() {
				if c.debugEnabled(c.debug.LogRateLimit) {
					c.logger.Warn("Rate limit exceeded", "requestID", requestID, "operation", string(req.Operation))
				}
				if c.metrics != nil {
					c.metrics.RecordError(string(KindRateLimited), string(req.Operation))
				}
				return newFailureEnvelope(KindRateLimited, "rate limit exceeded", nil)
			}
			if c.metrics != nil {
				c.metrics.RecordRateLimiterTokens("default", int(c.rateLimiter.Tokens()))
			}
		}

		if attempt > 0 {
			if c.debugEnabled(c.debug.LogRetries) {
				c.logger.Info("Retry attempt", "requestID", requestID, "attempt", attempt, "maxRetries", c.maxRetries, "operation", string(req.Operation))
			}
			if c.metrics != nil {
				c.metrics.RecordRetry(string(req.Operation), attempt)
			}
		}

		env, clientErr := c.attemptPrimary(ctx, req, body, attempt, requestID, start)
		if clientErr == nil {
			return env
		}
		lastErr = clientErr

		if c.metrics != nil {
			c.metrics.RecordError(string(clientErr.Kind), string(req.Operation))
		}

		// A canceled caller context ends the loop immediately; only the
		// per-attempt deadline is retryable.
		if ctx.Err() != nil {
			break
		}

		if !clientErr.Retryable() {
			if c.debugEnabled(c.debug.LogRequests) {
				c.logger.Debug("Terminal failure", "requestID", requestID, "kind", string(clientErr.Kind), "statusCode", clientErr.StatusCode)
			}
			// A terminal status with a well-formed failure envelope from
			// the server is surfaced as-is, message included.
			if env != nil {
				return env
			}
			return envelopeFromClientError(clientErr)
		}

		if attempt == c.maxRetries {
			break
		}

		delay := c.backoffDelay(attempt)
		if c.debugEnabled(c.debug.LogRetries) {
			c.logger.Info("Scheduling retry", "requestID", requestID, "attempt", attempt+1, "backoff", delay, "operation", string(req.Operation))
		}
		if err := sleepBackoff(ctx, delay); err != nil {
			lastErr = &ClientError{
				Kind:       KindTransport,
				Message:    "request canceled",
				Cause:      err,
				RequestID:  requestID,
				Attempt:    attempt,
				MaxRetries: c.maxRetries,
				Timestamp:  time.Now(),
			}
			break
		}
	}

	return envelopeFromClientError(lastErr)
}

// attemptPrimary performs one network attempt under a fresh deadline.
// Returns (envelope, nil) on success. On failure it returns a classified
// error; for terminal HTTP statuses whose body is a well-formed failure
// envelope, that envelope is returned alongside so the server's message
// survives.
func (c *Client) attemptPrimary(ctx context.Context, req *Request, body []byte, attempt int, requestID string, start time.Time) (*Envelope, *ClientError) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	fullURL := c.requestURL(req)
	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, fullURL, reader)
	if err != nil {
		return nil, c.newClientError(KindValidation, "invalid request", err, requestID, req, fullURL, attempt, 0, start)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	c.attachAuth(httpReq, req, requestID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		message := "network request failed"
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			message = "request timed out"
		} else if ctx.Err() != nil {
			message = "request canceled"
		}
		return nil, c.newClientError(KindTransport, message, err, requestID, req, fullURL, attempt, 0, start)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.newClientError(KindTransport, "reading response failed", err, requestID, req, fullURL, attempt, resp.StatusCode, start)
	}

	if resp.StatusCode >= 400 {
		kind := classifyStatus(resp.StatusCode)
		serverEnv, decErr := decodeEnvelope(data)
		message := http.StatusText(resp.StatusCode)
		if message == "" {
			message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		if decErr == nil && !serverEnv.Success {
			message = serverEnv.Error.Message
			if serverEnv.Error.Kind == "" {
				serverEnv.Error.Kind = kind
			}
		} else {
			serverEnv = nil
		}
		clientErr := c.newClientError(kind, message, nil, requestID, req, fullURL, attempt, resp.StatusCode, start)
		if kind == KindClient {
			return serverEnv, clientErr
		}
		return nil, clientErr
	}

	env, decErr := decodeEnvelope(data)
	if decErr != nil {
		return nil, c.newClientError(KindMalformedResponse, "invalid response from server", decErr, requestID, req, fullURL, attempt, resp.StatusCode, start)
	}
	return env, nil
}

// attachAuth adds the bearer header when the request opts in and a token is
// present. Public requests never carry the token, present or not; protected
// requests without a token go out bare and let the server reject them.
func (c *Client) attachAuth(httpReq *http.Request, req *Request, requestID string) {
	if !req.RequiresAuth {
		return
	}
	token, ok := c.tokens.Token()
	if !ok {
		if c.debugEnabled(c.debug.LogAuth) {
			c.logger.Debug("No token for protected request", "requestID", requestID, "operation", string(req.Operation))
		}
		return
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	if c.debugEnabled(c.debug.LogAuth) {
		c.logger.Debug("Attached bearer token", "requestID", requestID, "operation", string(req.Operation))
	}
}

// backoffDelay computes the wait before the next attempt. Attempt indexes
// are zero-based, so the first retry of a 1s base waits 1s, the second 2s.
func (c *Client) backoffDelay(attempt int) time.Duration {
	return c.backoffCalc.Calculate(attempt, c.initialBackoff, c.maxBackoff, c.backoffMultiplier, c.jitter)
}

// sleepBackoff waits for the delay or until the caller's context ends,
// whichever comes first.
func sleepBackoff(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// encodeBody marshals a request body once so every retry reuses the same
// bytes. A nil body stays nil.
func encodeBody(body interface{}) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if raw, ok := body.(json.RawMessage); ok {
		return raw, nil
	}
	if raw, ok := body.([]byte); ok {
		return raw, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// newClientError assembles the diagnostic error for one failed attempt.
func (c *Client) newClientError(kind ErrorKind, message string, cause error, requestID string, req *Request, fullURL string, attempt, statusCode int, start time.Time) *ClientError {
	return &ClientError{
		Kind:       kind,
		Message:    message,
		Cause:      cause,
		RequestID:  requestID,
		Method:     req.Method,
		URL:        fullURL,
		Backend:    BackendPrimary,
		Attempt:    attempt,
		MaxRetries: c.maxRetries,
		StatusCode: statusCode,
		Endpoint:   req.Endpoint,
		Timestamp:  time.Now(),
		Duration:   time.Since(start),
	}
}
