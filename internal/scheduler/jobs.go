package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/aristath/halalscreen/internal/cache"
)

// PurgeExpiredJob deletes expired cache entries so the store does not
// accumulate dead rows between reads.
type PurgeExpiredJob struct {
	Store *cache.Store
	Log   zerolog.Logger
}

func (j *PurgeExpiredJob) Name() string { return "cache_purge_expired" }

func (j *PurgeExpiredJob) Run() error {
	purged := j.Store.PurgeExpired()
	if purged > 0 {
		j.Log.Info().Int64("purged", purged).Msg("Purged expired cache entries")
	}
	return nil
}

// WALCheckpointJob truncates the cache database WAL so it does not grow
// unbounded under the synchronous=OFF write profile.
type WALCheckpointJob struct {
	Store *cache.Store
	Log   zerolog.Logger
}

func (j *WALCheckpointJob) Name() string { return "cache_wal_checkpoint" }

func (j *WALCheckpointJob) Run() error {
	return j.Store.Checkpoint()
}

// CacheStatsJob logs cache occupancy for operational visibility.
type CacheStatsJob struct {
	Store *cache.Store
	Log   zerolog.Logger
}

func (j *CacheStatsJob) Name() string { return "cache_stats" }

func (j *CacheStatsJob) Run() error {
	stats := j.Store.GetStats()
	j.Log.Info().
		Int64("entries", stats.Entries).
		Int64("size_bytes", stats.SizeBytes).
		Msg("Cache stats")
	return nil
}
