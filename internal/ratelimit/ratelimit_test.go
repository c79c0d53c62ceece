package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(clock *fakeClock) *Limiter {
	l := New(zerolog.Nop())
	if clock != nil {
		l.now = clock.Now
	}
	return l
}

func TestTryAcquireDrainsCapacity(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)
	l.Configure("api", 3600) // 1 token/sec, starts with 3600 tokens

	for i := 0; i < 3600; i++ {
		ok, err := l.TryAcquire("api")
		require.NoError(t, err)
		require.True(t, ok, "acquire %d should succeed within initial capacity", i)
	}

	// Bucket is empty and no time has passed
	ok, err := l.TryAcquire("api")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefillIsContinuous(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)
	l.Configure("api", 3600) // 1 token/sec

	// Drain the bucket
	for i := 0; i < 3600; i++ {
		ok, _ := l.TryAcquire("api")
		require.True(t, ok)
	}

	// Half a second refills half a token - not enough
	clock.Advance(500 * time.Millisecond)
	ok, err := l.TryAcquire("api")
	require.NoError(t, err)
	assert.False(t, ok)

	// Another half second completes the token
	clock.Advance(500 * time.Millisecond)
	ok, err = l.TryAcquire("api")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBucketFullAfterIdlePeriod(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)
	l.Configure("api", 60) // capacity 60, refill 1/minute

	for i := 0; i < 60; i++ {
		ok, _ := l.TryAcquire("api")
		require.True(t, ok)
	}

	// capacity/refillRate seconds idle refills the whole bucket
	clock.Advance(time.Hour)
	tokens, err := l.AvailableTokens("api")
	require.NoError(t, err)
	assert.Equal(t, 60, tokens)
}

func TestTokensNeverExceedCapacity(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)
	l.Configure("api", 10)

	// Idle far longer than needed to refill
	clock.Advance(48 * time.Hour)
	tokens, err := l.AvailableTokens("api")
	require.NoError(t, err)
	assert.Equal(t, 10, tokens)
}

func TestReconfigureResetsBucket(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(clock)
	l.Configure("api", 5)

	for i := 0; i < 5; i++ {
		ok, _ := l.TryAcquire("api")
		require.True(t, ok)
	}

	l.Configure("api", 3)
	tokens, err := l.AvailableTokens("api")
	require.NoError(t, err)
	assert.Equal(t, 3, tokens)
}

func TestUnconfiguredResourceFails(t *testing.T) {
	l := newTestLimiter(nil)

	_, err := l.TryAcquire("never-configured")
	assert.ErrorIs(t, err, ErrNotConfigured)

	err = l.Acquire(context.Background(), "never-configured")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = l.AvailableTokens("never-configured")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAcquireSucceedsImmediatelyWithTokens(t *testing.T) {
	l := newTestLimiter(nil)
	l.Configure("api", 100)

	err := l.Acquire(context.Background(), "api")
	assert.NoError(t, err)
}

func TestAcquireTimesOutWhenExhausted(t *testing.T) {
	l := New(zerolog.Nop())
	l.Configure("api", 1) // refill 1 token/hour

	ok, err := l.TryAcquire("api")
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = l.Acquire(ctx, "api")
	require.Error(t, err)

	var timeoutErr *TimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, "api", timeoutErr.Resource)
}

func TestAcquireRespectsCancellation(t *testing.T) {
	l := New(zerolog.Nop())
	l.Configure("api", 1)

	ok, err := l.TryAcquire("api")
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err = l.Acquire(ctx, "api")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAcquireWaitsForRefill(t *testing.T) {
	l := New(zerolog.Nop())
	// 36000/hour = 10 tokens/sec: a drained bucket refills in ~100ms
	l.Configure("api", 36000)

	for {
		ok, err := l.TryAcquire("api")
		require.NoError(t, err)
		if !ok {
			break
		}
	}

	start := time.Now()
	err := l.Acquire(context.Background(), "api")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestConcurrentAcquireNoLostTokens(t *testing.T) {
	l := newTestLimiter(newFakeClock())
	l.Configure("api", 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.TryAcquire("api")
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Exactly the initial capacity is granted, nothing more
	assert.Equal(t, 100, granted)
}
