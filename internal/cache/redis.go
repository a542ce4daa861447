package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/slotferry/slotferry/internal/logger"
)

// RedisStore is the durable cache tier.
type RedisStore struct {
	client *redis.Client
}

// NewRedis connects to Redis at addr and returns the durable store. When the
// connection cannot be established the returned Store is a no-op substitute:
// the pipeline keeps working, just uncached.
func NewRedis(ctx context.Context, addr string) Store {
	opts := &redis.Options{
		Addr:         addr,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		MaxRetries:   3,
	}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			logger.Warn("invalid redis URL, caching disabled", "addr", addr, "error", err)
			return NewNoop()
		}
		opts = parsed
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, caching disabled", "addr", addr, "error", err)
		_ = client.Close()
		return NewNoop()
	}

	logger.Info("redis connected", "addr", opts.Addr)
	return &RedisStore{client: client}
}

// Get reads key and unmarshals its payload into out. An entry whose age
// exceeds its own TTL counts as a miss even if Redis still holds the key.
func (s *RedisStore) Get(ctx context.Context, key string, out any) error {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	if entry.Expired(time.Now()) {
		return ErrMiss
	}

	if err := json.Unmarshal(entry.Data, out); err != nil {
		return fmt.Errorf("corrupt cache payload %s: %w", key, err)
	}
	logger.Debug("cache hit", "key", key, "age", time.Since(entry.Timestamp).Round(time.Second))
	return nil
}

// Set wraps value in a timestamped entry and stores it with ttl.
func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache payload %s: %w", key, err)
	}

	entry := Entry{
		Data:      data,
		Timestamp: time.Now(),
		TTLSecs:   int64(ttl / time.Second),
		Provider:  strings.TrimPrefix(key, "games:"),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry %s: %w", key, err)
	}

	if err := s.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	logger.Debug("cache set", "key", key, "ttl", ttl)
	return nil
}

// Delete removes a single key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// DeletePattern removes every key matching pattern.
func (s *RedisStore) DeletePattern(ctx context.Context, pattern string) error {
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return fmt.Errorf("redis keys %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del pattern %s: %w", pattern, err)
	}
	logger.Debug("cache delete pattern", "pattern", pattern, "keys", len(keys))
	return nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
