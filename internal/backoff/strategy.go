package backoff

import (
	"math/rand"
	"time"
)

// Strategy computes the delay before the next retry attempt.
type Strategy interface {
	// Calculate returns the delay for the given zero-based attempt index.
	Calculate(attempt int, baseDelay, maxDelay time.Duration, multiplier, jitter float64) time.Duration
}

// ExponentialJitterStrategy grows the delay geometrically and optionally adds
// uniform jitter. With jitter 0 the delay is exactly
// baseDelay * multiplier^attempt, capped at maxDelay, which keeps retry
// schedules deterministic for callers that need predictable timing.
type ExponentialJitterStrategy struct{}

// Calculate implements Strategy.
func (s ExponentialJitterStrategy) Calculate(attempt int, baseDelay, maxDelay time.Duration, multiplier, jitter float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	// Cap the exponent so the float math cannot overflow into a negative
	// duration.
	if attempt > 30 {
		attempt = 30
	}

	delay := time.Duration(float64(baseDelay) * pow(multiplier, attempt))
	if delay < 0 || delay > maxDelay {
		delay = maxDelay
	}

	jitter = clampJitter(jitter)
	if jitter > 0 {
		jitterAmount := time.Duration(float64(delay) * jitter * rand.Float64())
		if delay+jitterAmount > maxDelay {
			delay = maxDelay
		} else {
			delay += jitterAmount
		}
	}
	return delay
}

// DecorrelatedJitterStrategy spreads delays over random_between(base,
// min(cap, base*3^attempt)). Smoother tail latencies than plain exponential
// jitter when many clients retry against the same backend.
type DecorrelatedJitterStrategy struct{}

// Calculate implements Strategy.
func (s DecorrelatedJitterStrategy) Calculate(attempt int, baseDelay, maxDelay time.Duration, multiplier, jitter float64) time.Duration {
	if attempt <= 0 {
		return baseDelay
	}

	if attempt > 10 {
		attempt = 10
	}

	base := float64(baseDelay)
	upper := base * pow(3.0, attempt)

	maxDelayFloat := float64(maxDelay)
	if upper > maxDelayFloat || upper < 0 {
		upper = maxDelayFloat
	}
	if upper < base {
		upper = base
	}

	delay := base + rand.Float64()*(upper-base)

	result := time.Duration(delay)
	if result < 0 || result > maxDelay {
		result = maxDelay
	}

	return result
}

// clampJitter bounds jitter to [0, 1].
func clampJitter(jitter float64) float64 {
	if jitter < 0 {
		return 0
	}
	if jitter > 1 {
		return 1
	}
	return jitter
}

// pow raises base to a non-negative integer exponent.
func pow(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
