// Package retry provides an explicit retry policy for provider calls.
// The policy is a plain value composed around an operation, rather than a
// wrapper hidden inside individual clients, so every provider retries the
// same way.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Policy describes how an operation is retried after transient failures.
type Policy struct {
	MaxAttempts   int           // total attempts, including the first
	BackoffFactor float64       // delay multiplier per attempt
	BaseDelay     time.Duration // delay before the second attempt
}

// DefaultPolicy matches the retry behavior used against provider APIs:
// three attempts with exponential backoff starting at one second.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   3,
		BackoffFactor: 2.0,
		BaseDelay:     time.Second,
	}
}

// Do runs fn until it succeeds, attempts are exhausted, or the context is
// done. The last error is returned on exhaustion.
func (p Policy) Do(ctx context.Context, log zerolog.Logger, op string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt == attempts {
			log.Error().
				Err(lastErr).
				Str("op", op).
				Int("attempts", attempts).
				Msg("Operation failed, retries exhausted")
			break
		}

		delay := time.Duration(float64(p.BaseDelay) * math.Pow(p.BackoffFactor, float64(attempt-1)))
		log.Warn().
			Err(lastErr).
			Str("op", op).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Dur("delay", delay).
			Msg("Operation failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, lastErr)
}
