package worker

import (
	"math/rand"
	"time"
)

type BackoffConfig struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

var DefaultBackoffConfig = BackoffConfig{
	BaseDelay: time.Second,
	MaxDelay:  5 * time.Minute,
}

// FullJitter returns a delay in [exp/2, exp*1.5) where exp doubles with each
// attempt up to MaxDelay.
func FullJitter(attempt int, cfg BackoffConfig) time.Duration {
	if attempt <= 0 {
		return cfg.BaseDelay
	}

	exp := min(cfg.BaseDelay*time.Duration(1<<min(attempt, 30)), cfg.MaxDelay)
	if exp <= 0 {
		return 0
	}

	jitter := time.Duration(rand.Int63n(int64(exp)))

	return exp/2 + jitter
}
