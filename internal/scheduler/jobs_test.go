package scheduler

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/halalscreen/internal/cache"
)

func newTestStore(t *testing.T) *cache.Store {
	t.Helper()
	store, err := cache.New(cache.Config{Dir: t.TempDir()}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPurgeExpiredJob(t *testing.T) {
	store := newTestStore(t)
	store.Set("stale", []byte("x"), -time.Second)
	store.Set("fresh", []byte("y"), time.Hour)

	job := &PurgeExpiredJob{Store: store, Log: zerolog.Nop()}
	assert.Equal(t, "cache_purge_expired", job.Name())
	require.NoError(t, job.Run())

	assert.Equal(t, int64(1), store.GetStats().Entries)
}

func TestWALCheckpointJob(t *testing.T) {
	store := newTestStore(t)
	store.Set("k", []byte("v"), time.Hour)

	job := &WALCheckpointJob{Store: store, Log: zerolog.Nop()}
	assert.Equal(t, "cache_wal_checkpoint", job.Name())
	assert.NoError(t, job.Run())
}

func TestCacheStatsJob(t *testing.T) {
	store := newTestStore(t)

	job := &CacheStatsJob{Store: store, Log: zerolog.Nop()}
	assert.Equal(t, "cache_stats", job.Name())
	assert.NoError(t, job.Run())
}

func TestSchedulerRunNow(t *testing.T) {
	store := newTestStore(t)
	store.Set("stale", []byte("x"), -time.Second)

	s := New(zerolog.Nop())
	require.NoError(t, s.RunNow(&PurgeExpiredJob{Store: store, Log: zerolog.Nop()}))
	assert.Equal(t, int64(0), store.GetStats().Entries)
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a schedule", &CacheStatsJob{Store: newTestStore(t), Log: zerolog.Nop()})
	assert.Error(t, err)
}
