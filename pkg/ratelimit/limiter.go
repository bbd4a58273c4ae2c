package ratelimit

import (
	"context"
	"math/rand"
	"time"
)

// Limiter paces successive requests against the remote host
type Limiter interface {
	// Wait blocks until the next request may proceed or the context is
	// cancelled
	Wait(ctx context.Context) error
}

// RandomDelay sleeps a uniformly distributed duration between Min and
// Max before each request, to avoid request bursts against the host
type RandomDelay struct {
	Min time.Duration
	Max time.Duration
}

// NewRandomDelay creates a random-delay limiter
func NewRandomDelay(min, max time.Duration) *RandomDelay {
	if max < min {
		max = min
	}
	return &RandomDelay{Min: min, Max: max}
}

// Wait sleeps for a random duration within the configured bounds
func (r *RandomDelay) Wait(ctx context.Context) error {
	delay := r.Min
	if span := r.Max - r.Min; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span) + 1))
	}
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
