package cache

import (
	"path"
	"sync"
	"time"
)

// Local is the process-local cache tier sitting in front of the durable
// store at the request-handling boundary. It shares the durable tier's key
// space but keeps its own TTL, and sweeps expired entries on each access.
type Local struct {
	mu         sync.Mutex
	entries    map[string]localEntry
	defaultTTL time.Duration
	now        func() time.Time
}

type localEntry struct {
	value     any
	timestamp time.Time
	ttl       time.Duration
}

// NewLocal creates a local tier with the given default TTL.
func NewLocal(defaultTTL time.Duration) *Local {
	return &Local{
		entries:    make(map[string]localEntry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the cached value for key, or false on a miss or an expired
// entry.
func (l *Local) Get(key string) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep()

	e, ok := l.entries[key]
	if !ok {
		return nil, false
	}
	if l.now().Sub(e.timestamp) >= e.ttl {
		delete(l.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. A non-positive ttl uses the tier default.
func (l *Local) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = l.defaultTTL
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = localEntry{value: value, timestamp: l.now(), ttl: ttl}
}

// Delete removes a single key.
func (l *Local) Delete(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// DeletePattern removes every key matching a glob pattern, mirroring the
// durable tier's pattern invalidation.
func (l *Local) DeletePattern(pattern string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(l.entries, key)
		}
	}
}

// Len reports the number of live entries.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep()
	return len(l.entries)
}

// sweep drops expired entries. Caller must hold the mutex.
func (l *Local) sweep() {
	now := l.now()
	for key, e := range l.entries {
		if now.Sub(e.timestamp) >= e.ttl {
			delete(l.entries, key)
		}
	}
}
