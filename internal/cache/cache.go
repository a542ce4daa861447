// Package cache implements the two-tier TTL cache backing catalog responses:
// a Redis durable tier (with a no-op substitute when Redis is unreachable)
// and a process-local tier swept on access.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or its entry has
// outlived its TTL.
var ErrMiss = errors.New("cache: miss")

// Store is the durable-tier contract. Implementations must tolerate
// concurrent writers; entries are self-describing via their own timestamp,
// so last-write-wins is acceptable.
type Store interface {
	// Get unmarshals the cached payload for key into out. Returns ErrMiss
	// when absent or expired.
	Get(ctx context.Context, key string, out any) error

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes a single key.
	Delete(ctx context.Context, key string) error

	// DeletePattern removes every key matching a glob pattern.
	DeletePattern(ctx context.Context, pattern string) error
}

// Entry wraps a cached payload with its creation instant and TTL so any
// reader can decide staleness independently of the store's own eviction.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	TTLSecs   int64           `json:"ttlSeconds"`
	Provider  string          `json:"provider,omitempty"`
}

// Expired reports whether the entry has outlived its TTL at instant now.
// A zero TTL never expires from the entry's point of view; the store's own
// eviction still applies.
func (e Entry) Expired(now time.Time) bool {
	if e.TTLSecs <= 0 {
		return false
	}
	return now.Sub(e.Timestamp) >= time.Duration(e.TTLSecs)*time.Second
}

// Key derives the cache key for a provider. Both tiers use this derivation
// so cross-tier invalidation stays consistent.
func Key(provider string) string {
	return "games:" + provider
}
