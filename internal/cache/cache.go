// Package cache provides a persistent TTL cache backed by SQLite.
//
// Entries carry an absolute expiry and an access timestamp; when the total
// occupied size exceeds the configured byte limit, least-recently-used
// entries are evicted until the store is back under the limit. Every storage
// failure degrades to cache-miss behavior (absent on get, silent no-op on
// set) so callers always have a safe path to the origin provider.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	key         TEXT PRIMARY KEY,
	value       BLOB NOT NULL,
	expires_at  INTEGER NOT NULL,
	accessed_at INTEGER NOT NULL,
	size        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entries_accessed ON entries(accessed_at);
CREATE INDEX IF NOT EXISTS idx_entries_expires ON entries(expires_at);
`

// Config holds cache store configuration.
type Config struct {
	Dir            string // directory for the cache database
	SizeLimitBytes int64  // soft cap on occupied size, 0 disables eviction
}

// Stats describes the current cache occupancy.
type Stats struct {
	Entries   int64  `json:"entries"`
	SizeBytes int64  `json:"size_bytes"`
	Path      string `json:"path"`
}

// Store is a persistent key-value cache with per-entry TTLs and LRU eviction.
type Store struct {
	mu        sync.Mutex
	db        *sql.DB
	path      string
	sizeLimit int64
	now       func() time.Time
	log       zerolog.Logger
}

// New opens (or creates) the cache database under cfg.Dir.
func New(cfg Config, log zerolog.Logger) (*Store, error) {
	absDir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory: %w", err)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	path := filepath.Join(absDir, "cache.db")

	// Cache profile: maximum speed, no fsync - the data is reconstructible
	connStr := path + "?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(OFF)" +
		"&_pragma=auto_vacuum(FULL)" +
		"&_pragma=temp_store(MEMORY)" +
		"&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	s := &Store{
		db:        db,
		path:      path,
		sizeLimit: cfg.SizeLimitBytes,
		now:       time.Now,
		log:       log.With().Str("component", "cache").Logger(),
	}

	s.log.Info().
		Str("path", path).
		Int64("size_limit_bytes", cfg.SizeLimitBytes).
		Msg("Initialized cache")

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw value for a key, or absent when the key is missing,
// expired, or the storage read failed. An expired entry is purged lazily and
// never resurrected.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixNano()

	var value []byte
	var expiresAt int64
	err := s.db.QueryRow(
		"SELECT value, expires_at FROM entries WHERE key = ?", key,
	).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("Cache get failed, treating as miss")
		return nil, false
	}

	if now >= expiresAt {
		if _, err := s.db.Exec("DELETE FROM entries WHERE key = ?", key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to purge expired entry")
		}
		return nil, false
	}

	// Touch for LRU ordering; a failed touch only skews eviction order
	if _, err := s.db.Exec("UPDATE entries SET accessed_at = ? WHERE key = ?", now, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to touch entry")
	}

	return value, true
}

// Set stores a value with an absolute expiry of now+ttl, overwriting any
// prior entry for the key. Storage failures are logged and swallowed.
func (s *Store) Set(key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	size := int64(len(key) + len(value))

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO entries (key, value, expires_at, accessed_at, size) VALUES (?, ?, ?, ?, ?)",
		key, value, now.Add(ttl).UnixNano(), now.UnixNano(), size,
	)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("Cache set failed")
		return
	}

	s.evictLocked()
}

// evictLocked removes least-recently-used entries until the occupied size is
// back under the limit. Caller must hold mu.
func (s *Store) evictLocked() {
	if s.sizeLimit <= 0 {
		return
	}

	for {
		var total sql.NullInt64
		if err := s.db.QueryRow("SELECT SUM(size) FROM entries").Scan(&total); err != nil {
			s.log.Warn().Err(err).Msg("Failed to compute cache size, skipping eviction")
			return
		}
		if !total.Valid || total.Int64 <= s.sizeLimit {
			return
		}

		res, err := s.db.Exec(
			"DELETE FROM entries WHERE key = (SELECT key FROM entries ORDER BY accessed_at ASC LIMIT 1)",
		)
		if err != nil {
			s.log.Warn().Err(err).Msg("Cache eviction failed")
			return
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return
		}
	}
}

// Delete removes a single entry. The key is matched literally, so keys
// containing glob metacharacters are safe here, unlike with Invalidate.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM entries WHERE key = ?", key); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("Cache delete failed")
	}
}

// Invalidate removes every key matching the glob pattern (SQLite GLOB
// syntax, e.g. "compliance:zoya:*"). Returns the number of removed entries.
func (s *Store) Invalidate(pattern string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM entries WHERE key GLOB ?", pattern)
	if err != nil {
		s.log.Error().Err(err).Str("pattern", pattern).Msg("Cache invalidate failed")
		return 0
	}
	n, _ := res.RowsAffected()

	s.log.Info().
		Str("pattern", pattern).
		Int64("removed", n).
		Msg("Invalidated cache entries")

	return n
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM entries"); err != nil {
		s.log.Error().Err(err).Msg("Cache clear failed")
		return
	}
	s.log.Info().Msg("Cleared all cache entries")
}

// PurgeExpired removes entries whose expiry has passed. Returns the number
// of removed entries. Expired entries are also purged lazily on Get; this
// exists so a maintenance job can reclaim space for keys never read again.
func (s *Store) PurgeExpired() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM entries WHERE expires_at <= ?", s.now().UnixNano())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to purge expired entries")
		return 0
	}
	n, _ := res.RowsAffected()
	return n
}

// GetStats returns entry count and approximate occupied size.
func (s *Store) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{Path: s.path}

	var entries sql.NullInt64
	var size sql.NullInt64
	err := s.db.QueryRow("SELECT COUNT(*), SUM(size) FROM entries").Scan(&entries, &size)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read cache stats")
		return stats
	}
	stats.Entries = entries.Int64
	stats.SizeBytes = size.Int64
	return stats
}

// Checkpoint forces a WAL checkpoint to keep the WAL file from growing
// unbounded between maintenance windows.
func (s *Store) Checkpoint() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("WAL checkpoint failed: %w", err)
	}
	return nil
}
