package usecase

import (
	"math/rand"
	"time"
)

const (
	initialBackoff = 5 * time.Second
	quotaBackoff   = 60 * time.Second
	maxBackoff     = 1 * time.Hour
	jitterFactor   = 0.2 // +/- 20%
)

// nextRetryAt computes the backoff deadline for the given completed failure
// count: base * 2^failures, capped, with jitter to spread retry bursts.
func nextRetryAt(now time.Time, failures int, base time.Duration) time.Time {
	delay := base
	for i := 0; i < failures && delay < maxBackoff; i++ {
		delay *= 2
	}
	if delay > maxBackoff {
		delay = maxBackoff
	}

	jitter := 1 + jitterFactor*(2*rand.Float64()-1)
	return now.Add(time.Duration(float64(delay) * jitter))
}
