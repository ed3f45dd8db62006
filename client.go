package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Hakeemolaj/Onward-Dominicans-V2-sub000/internal/backoff"
)

// Default values for every tunable. Each one is exposed through an option so
// tests can compress timings and deployments can tighten budgets.
const (
	DefaultBaseURL           = "http://localhost:3001/api"
	DefaultRequestTimeout    = 10 * time.Second
	DefaultCacheTTL          = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 1 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// Request describes one outbound call. Facade methods build these; Do is the
// escape hatch for endpoints the facade does not model yet.
type Request struct {
	// Operation labels the call for routing, logging and metrics.
	// Empty means OpCustom.
	Operation Operation
	// Method is the HTTP verb on the primary path. Empty means GET.
	Method string
	// Endpoint is the path under the primary base URL, e.g. "/articles".
	Endpoint string
	// Query is appended to the primary URL. Encoding sorts keys, so equal
	// logical requests share a cache identity.
	Query url.Values
	// Body is marshaled to JSON once and reused across retries.
	Body interface{}
	// RequiresAuth attaches the bearer token when one is present. Public
	// requests never carry the token even if one is held.
	RequiresAuth bool
	// NoCache bypasses the read cache for GET requests whose freshness
	// matters more than the saved round trip.
	NoCache bool
	// Standby carries the standby-side translation for operations the
	// standby can serve. Nil pins the request to the primary.
	Standby *StandbyQuery
}

// Client is the single object call sites talk to. It routes each logical
// operation to the primary or standby backend and layers caching, per
// attempt timeouts, retry with exponential backoff, token handling and
// optional de-duplication, rate limiting and metrics around the call. Every
// operation returns an envelope; no failure escapes as a Go error.
//
// A Client is safe for concurrent use. Construct one per process and share
// it.
type Client struct {
	httpClient *http.Client
	baseURL    string

	standbyURL    string
	standbyAPIKey string
	useStandby    func() bool

	maxRetries        int
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
	jitter            float64
	backoffCalc       *backoff.Calculator
	requestTimeout    time.Duration

	cache         *requestCache
	cacheTTL      time.Duration
	cacheDisabled bool

	tokens         *TokenStore
	tokenStorage   TokenStorage
	trustPersisted bool

	rateLimiter *RateLimiter
	dedup       *dedupeTracker

	metrics *MetricsCollector
	debug   *DebugConfig
	logger  Logger

	now func() time.Time

	validationError error
}

// New constructs a Client from the given options. Construction never panics:
// configuration problems are reported through IsValid / ValidationError, and
// a client with an invalid configuration answers every call with a failed
// validation envelope.
//
// On construction the persisted token, if any, is loaded and then discarded
// again, so every session starts unauthenticated until a fresh login.
// WithPersistedTokenTrust keeps the loaded token instead.
func New(options ...Option) *Client {
	c := &Client{
		httpClient:        &http.Client{},
		baseURL:           DefaultBaseURL,
		maxRetries:        DefaultMaxRetries,
		initialBackoff:    DefaultInitialBackoff,
		maxBackoff:        DefaultMaxBackoff,
		backoffMultiplier: DefaultBackoffMultiplier,
		jitter:            0,
		backoffCalc:       backoff.GetExponentialJitterCalculator(),
		requestTimeout:    DefaultRequestTimeout,
		cacheTTL:          DefaultCacheTTL,
		debug:             DefaultDebugConfig(),
		now:               time.Now,
	}

	for _, option := range options {
		option(c)
	}

	if c.debug == nil {
		c.debug = DefaultDebugConfig()
	}
	if !c.cacheDisabled {
		c.cache = newRequestCache(c.now)
	}
	c.tokens = NewTokenStore(c.tokenStorage)

	c.initToken()

	if err := c.ValidateConfiguration(); err != nil {
		c.validationError = err
	}

	return c
}

// initToken applies the startup token policy: load whatever durable storage
// holds, then clear it unless the client was told to trust persisted tokens.
func (c *Client) initToken() {
	ctx := context.Background()

	if err := c.tokens.Load(ctx); err != nil {
		if c.logger != nil {
			c.logger.Warn("Loading persisted token failed", "error", err.Error())
		}
	}
	if c.metrics != nil {
		c.metrics.RecordTokenOp("load")
	}

	if c.trustPersisted {
		if c.debugEnabled(c.debug.LogAuth) {
			c.logger.Debug("Trusting persisted token", "present", c.tokens.IsPresent())
		}
		return
	}

	hadToken := c.tokens.IsPresent()
	if err := c.tokens.Clear(ctx); err != nil {
		if c.logger != nil {
			c.logger.Warn("Startup token invalidation failed", "error", err.Error())
		}
	}
	if c.metrics != nil {
		c.metrics.RecordTokenOp("clear")
	}
	if hadToken && c.debugEnabled(c.debug.LogAuth) {
		c.logger.Debug("Discarded persisted token at startup")
	}
}

// Do executes one request with the full orchestration: route, cache, dedupe,
// retry under per-attempt deadlines, token attachment and cache write-back.
// It always returns an envelope.
func (c *Client) Do(ctx context.Context, req *Request) *Envelope {
	if req == nil {
		return newFailureEnvelope(KindValidation, "nil request", nil)
	}
	if c.validationError != nil {
		return newFailureEnvelope(KindValidation, "client configuration invalid", &errorDetails{Cause: c.validationError.Error()})
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.Operation == "" {
		req.Operation = OpCustom
	}

	start := time.Now()
	op := string(req.Operation)

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}

	if c.debugEnabled(c.debug.LogRequests) {
		c.logger.Debug("Starting request", "requestID", requestID, "operation", op, "method", req.Method, "endpoint", req.Endpoint)
	}

	if c.metrics != nil {
		c.metrics.RecordRequestStart(op)
		defer c.metrics.RecordRequestEnd(op)
	}

	target := c.route(req)
	if c.debugEnabled(c.debug.LogRouting) {
		c.logger.Debug("Routed request", "requestID", requestID, "operation", op, "backend", target.String())
	}

	var env *Envelope
	if target == BackendStandby {
		env = c.doStandby(ctx, req, requestID, start)
	} else {
		env = c.doPrimary(ctx, req, requestID, start)
	}

	if c.metrics != nil {
		outcome := "success"
		if !env.Success {
			outcome = "error"
		}
		c.metrics.RecordRequest(op, target.String(), outcome, time.Since(start))
	}
	return env
}

// doPrimary runs the primary-path pipeline: optional coalescing, cache
// lookup, the retry loop, then cache write-back for successful reads.
func (c *Client) doPrimary(ctx context.Context, req *Request, requestID string, start time.Time) *Envelope {
	op := string(req.Operation)
	cacheable := c.cache != nil && req.Method == http.MethodGet && !req.NoCache

	var key string
	if cacheable {
		key = cacheKey(req.Method, c.requestURL(req))
	}

	dedupOwner := false
	if c.dedup != nil && cacheable {
		entry, owner := c.dedup.getOrCreate(key)
		if !owner {
			shared, ok := entry.wait(ctx)
			if !ok {
				return newFailureEnvelope(KindTransport, "request canceled", nil)
			}
			if c.metrics != nil {
				c.metrics.RecordDedupHit(op)
			}
			if c.debugEnabled(c.debug.LogCache) {
				c.logger.Debug("Coalesced into in-flight request", "requestID", requestID, "key", key)
			}
			return shared
		}
		dedupOwner = true
	}

	var env *Envelope
	if cacheable {
		if cached, ok := c.cache.lookup(key, c.cacheTTL); ok {
			if c.metrics != nil {
				c.metrics.RecordCacheHit(op)
			}
			if c.debugEnabled(c.debug.LogCache) {
				c.logger.Debug("Cache hit", "requestID", requestID, "key", key)
			}
			env = cached
		} else {
			if c.metrics != nil {
				c.metrics.RecordCacheMiss(op)
			}
			if c.debugEnabled(c.debug.LogCache) {
				c.logger.Debug("Cache miss", "requestID", requestID, "key", key)
			}
		}
	}

	if env == nil {
		env = c.executePrimary(ctx, req, requestID, start)
		if cacheable && env.Success {
			c.cache.save(key, env)
			if c.metrics != nil {
				c.metrics.RecordCacheSize("default", c.cache.size())
			}
			if c.debugEnabled(c.debug.LogCache) {
				c.logger.Debug("Response cached", "requestID", requestID, "key", key, "ttl", c.cacheTTL)
			}
		}
	}

	if dedupOwner {
		c.dedup.complete(key, env)
	}
	return env
}

// requestURL resolves the full primary URL for a request, query included.
func (c *Client) requestURL(req *Request) string {
	base := strings.TrimRight(c.baseURL, "/")
	endpoint := req.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	full := base + endpoint
	if len(req.Query) > 0 {
		full += "?" + req.Query.Encode()
	}
	return full
}

// debugEnabled reports whether a debug area should log right now.
func (c *Client) debugEnabled(area bool) bool {
	return c.debug != nil && c.debug.Enabled && area && c.logger != nil
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// Tokens exposes the token store so host programs can inspect session state
// or wire the same store into other components.
func (c *Client) Tokens() *TokenStore {
	return c.tokens
}
