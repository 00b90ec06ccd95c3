package inference

import (
	"math/rand"
	"time"
)

// RetryConfig controls the retry loop around provider calls.
type RetryConfig struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultRetryConfig retries three times with exponential backoff starting
// at two seconds and capped at thirty.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}

// backoffDuration computes the wait before the next attempt, with up to
// twenty-five percent jitter so parallel workers do not retry in lockstep.
func backoffDuration(cfg RetryConfig, attempt int) time.Duration {
	backoff := cfg.BackoffBase
	for i := 1; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
	}
	if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}

	jitter := time.Duration(float64(backoff) * 0.25 * (rand.Float64()*2 - 1))
	backoff += jitter
	if backoff < 0 {
		backoff = 0
	}
	return backoff
}
