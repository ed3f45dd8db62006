package apiclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Hakeemolaj/Onward-Dominicans-V2-sub000/internal/backoff"
)

// Option configures a Client at construction time.
type Option func(*Client)

// WithBaseURL sets the primary backend base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP transport client. Per-attempt deadlines
// are enforced through request contexts, so the transport's own Timeout
// should normally stay zero.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithStandby configures the standby backend endpoint and its API key.
// Configuring the standby does not select it; see WithStandbyEnabled.
func WithStandby(u, apiKey string) Option {
	return func(c *Client) {
		c.standbyURL = u
		c.standbyAPIKey = apiKey
	}
}

// WithStandbyEnabled statically selects the standby backend for every
// standby-capable operation.
func WithStandbyEnabled(enabled bool) Option {
	return func(c *Client) {
		c.useStandby = func() bool { return enabled }
	}
}

// WithStandbyCondition selects the backend dynamically. The condition is
// re-evaluated on every call, so a flag flip takes effect immediately
// without restarting the process.
func WithStandbyCondition(fn func() bool) Option {
	return func(c *Client) {
		c.useStandby = fn
	}
}

// WithRequestTimeout sets the hard deadline for each network attempt. Every
// retry gets its own fresh deadline; this is not a shared budget.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.requestTimeout = d
	}
}

// WithMaxRetries sets how many times a retryable failure is re-attempted.
// The total attempt count is maxRetries + 1.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithInitialBackoff sets the delay before the first retry.
func WithInitialBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.initialBackoff = d
	}
}

// WithMaxBackoff caps the delay between attempts.
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.maxBackoff = d
	}
}

// WithBackoffMultiplier sets the growth factor between retry delays.
func WithBackoffMultiplier(f float64) Option {
	return func(c *Client) {
		c.backoffMultiplier = f
	}
}

// WithJitter spreads retry delays by up to the given fraction (0.0 to 1.0).
// The default of 0 keeps delays deterministic.
func WithJitter(f float64) Option {
	return func(c *Client) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		c.jitter = f
	}
}

// WithBackoffStrategy selects how retry delays are computed.
func WithBackoffStrategy(strategy BackoffStrategy) Option {
	return func(c *Client) {
		switch strategy {
		case DecorrelatedJitter:
			c.backoffCalc = backoff.GetDecorrelatedJitterCalculator()
		default:
			c.backoffCalc = backoff.GetExponentialJitterCalculator()
		}
	}
}

// WithCacheTTL sets how long a cached read stays fresh.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) {
		c.cacheTTL = d
	}
}

// WithoutCache disables read memoization entirely; every read hits the
// network.
func WithoutCache() Option {
	return func(c *Client) {
		c.cacheDisabled = true
	}
}

// WithTokenStorage sets the durable backend for the session token. The
// default keeps the token in process memory only.
func WithTokenStorage(storage TokenStorage) Option {
	return func(c *Client) {
		c.tokenStorage = storage
	}
}

// WithPersistedTokenTrust keeps a token found in durable storage at startup.
// Without this option the client loads and then immediately discards the
// persisted token, so every session begins unauthenticated.
func WithPersistedTokenTrust() Option {
	return func(c *Client) {
		c.trustPersisted = true
	}
}

// WithRateLimiter bounds outbound attempts with a client-side token bucket.
func WithRateLimiter(maxTokens int, refillRate time.Duration) Option {
	return func(c *Client) {
		c.rateLimiter = NewRateLimiter(maxTokens, refillRate)
	}
}

// WithDeduplication coalesces concurrent identical cacheable reads into one
// network attempt shared by every waiter.
func WithDeduplication() Option {
	return func(c *Client) {
		c.dedup = newDedupeTracker()
	}
}

// WithMetrics enables Prometheus metrics on the default registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets the logger debug output goes to.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables debug logging with the default area configuration.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets a custom debug area configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithSimpleLogger enables debug logging through a logrus-backed console
// logger. Convenient for examples and local development.
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithRequestIDGenerator sets a custom request ID generator for debug logs.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// WithClock injects the time source the read cache ages entries against.
// Tests use this to step through TTL expiry without sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// ValidateConfiguration checks the assembled configuration and returns a
// validation error listing every problem found.
func (c *Client) ValidateConfiguration() error {
	var problems []string

	problems = append(problems, c.validateBackendConfig()...)
	problems = append(problems, c.validateRetryConfig()...)
	problems = append(problems, c.validateCacheConfig()...)
	problems = append(problems, c.validateRateLimiterConfig()...)
	problems = append(problems, c.validateDebugConfig()...)
	problems = append(problems, c.validateHTTPClientConfig()...)
	problems = append(problems, c.validateExtremeValues()...)

	if len(problems) > 0 {
		return &ClientError{
			Kind:    KindValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", problems),
		}
	}

	return nil
}

func (c *Client) validateBackendConfig() []string {
	var problems []string

	if c.baseURL == "" {
		problems = append(problems, "baseURL must be set")
	}

	// A standby selector without a standby endpoint would silently pin
	// every call to the primary; surface the misconfiguration instead.
	if c.useStandby != nil && c.standbyURL == "" {
		problems = append(problems, "standby selection enabled but no standby URL configured")
	}
	if c.standbyURL != "" && c.standbyAPIKey == "" {
		problems = append(problems, "standby URL configured without an API key")
	}

	return problems
}

func (c *Client) validateRetryConfig() []string {
	var problems []string

	if c.maxRetries < 0 {
		problems = append(problems, "maxRetries must be non-negative")
	}
	if c.initialBackoff <= 0 {
		problems = append(problems, "initialBackoff must be positive")
	}
	if c.maxBackoff < c.initialBackoff {
		problems = append(problems, "maxBackoff must be greater than or equal to initialBackoff")
	}
	if c.backoffMultiplier <= 0 {
		problems = append(problems, "backoffMultiplier must be positive")
	}
	if c.jitter < 0 || c.jitter > 1 {
		problems = append(problems, "jitter must be between 0 and 1")
	}
	if c.requestTimeout <= 0 {
		problems = append(problems, "requestTimeout must be positive")
	}

	return problems
}

func (c *Client) validateCacheConfig() []string {
	var problems []string

	if !c.cacheDisabled && c.cacheTTL <= 0 {
		problems = append(problems, "cacheTTL must be positive when the cache is enabled")
	}

	return problems
}

func (c *Client) validateRateLimiterConfig() []string {
	var problems []string

	if c.rateLimiter != nil {
		if c.rateLimiter.maxTokens <= 0 {
			problems = append(problems, "rateLimiter maxTokens must be positive")
		}
		if c.rateLimiter.refillRate <= 0 {
			problems = append(problems, "rateLimiter refillRate must be positive")
		}
	}

	return problems
}

func (c *Client) validateDebugConfig() []string {
	var problems []string

	if c.debug != nil && c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			problems = append(problems, "debug RequestIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			problems = append(problems, "logger must be set when debug is enabled")
		}
	}

	return problems
}

func (c *Client) validateHTTPClientConfig() []string {
	var problems []string

	if c.httpClient == nil {
		problems = append(problems, "HTTP client cannot be nil")
	}

	return problems
}

func (c *Client) validateExtremeValues() []string {
	var problems []string

	if c.maxRetries > 100 {
		problems = append(problems, "maxRetries > 100 may cause excessive resource usage")
	}
	if c.initialBackoff > 10*time.Minute {
		problems = append(problems, "initialBackoff > 10m may cause very long delays")
	}
	if c.maxBackoff > time.Hour {
		problems = append(problems, "maxBackoff > 1h may cause extremely long delays")
	}
	if c.requestTimeout > 10*time.Minute {
		problems = append(problems, "requestTimeout > 10m may cause requests to hang for too long")
	}
	if c.rateLimiter != nil {
		if c.rateLimiter.maxTokens > 1000000 {
			problems = append(problems, "rateLimiter maxTokens > 1M may cause memory issues")
		}
		if c.rateLimiter.refillRate > 0 && c.rateLimiter.refillRate < time.Millisecond {
			problems = append(problems, "rateLimiter refillRate < 1ms may cause excessive CPU usage")
		}
	}
	if !c.cacheDisabled && c.cacheTTL > 24*time.Hour {
		problems = append(problems, "cacheTTL > 24h may cause stale data issues")
	}

	return problems
}
