package backoff

import (
	"time"
)

// Calculator binds a Strategy so callers hold one value instead of re-picking
// a strategy per call.
type Calculator struct {
	strategy Strategy
}

// NewCalculator creates a calculator using the given strategy.
func NewCalculator(strategy Strategy) *Calculator {
	return &Calculator{
		strategy: strategy,
	}
}

// Calculate computes the delay for the given attempt and parameters.
func (c *Calculator) Calculate(attempt int, baseDelay, maxDelay time.Duration, multiplier, jitter float64) time.Duration {
	return c.strategy.Calculate(attempt, baseDelay, maxDelay, multiplier, jitter)
}

// GetExponentialJitterCalculator returns a calculator using exponential backoff with jitter.
func GetExponentialJitterCalculator() *Calculator {
	return NewCalculator(ExponentialJitterStrategy{})
}

// GetDecorrelatedJitterCalculator returns a calculator using decorrelated jitter.
func GetDecorrelatedJitterCalculator() *Calculator {
	return NewCalculator(DecorrelatedJitterStrategy{})
}
