// Package ratelimit implements a per-resource token bucket rate limiter.
//
// Each named resource (one per upstream API) gets its own bucket. Tokens
// refill continuously at a constant rate and each request consumes one
// token. The limiter is process-local: concurrent processes against the
// same provider do not share a limit.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotConfigured is returned when a resource name was never configured.
var ErrNotConfigured = errors.New("rate limit resource not configured")

// TimeoutError is returned by Acquire when the caller's deadline elapsed
// before a token became available.
type TimeoutError struct {
	Resource string
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("rate limit timeout for %s after %.1fs", e.Resource, e.Elapsed.Seconds())
}

// bucket holds the mutable token state for one resource.
// Invariant: 0 <= tokens <= capacity at every observation point.
type bucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
}

// refillLocked adds tokens for the time elapsed since the last refill.
// Caller must hold mu.
func (b *bucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.refillRate)
	}
	b.lastRefill = now
}

// consume attempts to take one token, refilling first.
func (b *bucket) consume(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(now)
	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return true
	}
	return false
}

// timeUntilNextToken returns how long until one full token is available.
func (b *bucket) timeUntilNextToken(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(now)
	if b.tokens >= 1.0 {
		return 0
	}
	needed := (1.0 - b.tokens) / b.refillRate
	return time.Duration(needed * float64(time.Second))
}

// available returns the current whole-token count.
func (b *bucket) available(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(now)
	return int(b.tokens)
}

// Limiter manages token buckets for named resources.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
	log     zerolog.Logger
}

// New creates an empty limiter. Resources must be configured before use.
func New(log zerolog.Logger) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
		log:     log.With().Str("component", "ratelimit").Logger(),
	}
}

// Configure sets the rate limit for a resource. The bucket starts full so an
// initial burst up to capacity is allowed. Re-configuring an existing
// resource resets its bucket.
func (l *Limiter) Configure(name string, requestsPerHour int) {
	l.mu.Lock()
	l.buckets[name] = &bucket{
		capacity:   float64(requestsPerHour),
		refillRate: float64(requestsPerHour) / 3600.0,
		tokens:     float64(requestsPerHour),
		lastRefill: l.now(),
	}
	l.mu.Unlock()

	l.log.Info().
		Str("resource", name).
		Int("requests_per_hour", requestsPerHour).
		Msg("Configured rate limit")
}

func (l *Limiter) bucket(name string) (*bucket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, name)
	}
	return b, nil
}

// Acquire blocks until a token is available for the resource, then consumes
// it. It sleeps in bounded increments (at most one second per iteration) so
// it stays responsive to the context; when the context deadline elapses it
// returns a *TimeoutError instead of blocking indefinitely.
func (l *Limiter) Acquire(ctx context.Context, name string) error {
	b, err := l.bucket(name)
	if err != nil {
		return err
	}

	start := l.now()
	for {
		if b.consume(l.now()) {
			return nil
		}

		wait := b.timeUntilNextToken(l.now())
		if wait > time.Second {
			wait = time.Second
		}
		if wait <= 0 {
			wait = time.Millisecond
		}

		l.log.Debug().
			Str("resource", name).
			Dur("wait", wait).
			Msg("Rate limit reached, waiting")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return &TimeoutError{Resource: name, Elapsed: l.now().Sub(start)}
			}
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryAcquire consumes a token without blocking. It returns false when the
// rate limit is currently exhausted.
func (l *Limiter) TryAcquire(name string) (bool, error) {
	b, err := l.bucket(name)
	if err != nil {
		return false, err
	}
	return b.consume(l.now()), nil
}

// AvailableTokens returns the current whole-token count for a resource.
func (l *Limiter) AvailableTokens(name string) (int, error) {
	b, err := l.bucket(name)
	if err != nil {
		return 0, err
	}
	return b.available(l.now()), nil
}
