package cache

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// GetObject fetches a key and decodes its msgpack value into v. Returns
// false on a miss or when the stored bytes fail to decode (a poisoned entry
// is purged so the next read goes to the origin).
func (s *Store) GetObject(key string, v interface{}) bool {
	raw, ok := s.Get(key)
	if !ok {
		return false
	}
	if err := msgpack.Unmarshal(raw, v); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to decode cached value, purging")
		s.Delete(key)
		return false
	}
	return true
}

// SetObject encodes v with msgpack and stores it under key. Encoding
// failures are logged and swallowed, matching Set's degrade-to-no-op policy.
func (s *Store) SetObject(key string, v interface{}, ttl time.Duration) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("Failed to encode value for cache")
		return
	}
	s.Set(key, raw, ttl)
}
