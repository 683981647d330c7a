// Package cache memoizes read-mostly query results for a fixed time.
//
// Entries expire an absolute ttl after they were written. There is no
// invalidation and no single-flight: concurrent misses on one key may each
// compute once.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"
)

// Backend stores encoded values. A miss is reported as (nil, false, nil).
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type Cache struct {
	backend Backend
	logger  *slog.Logger
}

// New wraps backend. A nil backend turns every lookup into a computation.
func New(backend Backend, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = defaultLogger()
	}
	return &Cache{backend: backend, logger: logger}
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{
			AddSource: false,
			Level:     slog.LevelInfo,
		}))
}

// GetOrCompute returns the value cached under key, or calls compute and caches
// its result for ttl. Backend and codec failures are logged and never
// returned; errors from compute are returned and not cached.
func GetOrCompute[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	if c == nil || c.backend == nil || ttl <= 0 {
		return compute(ctx)
	}
	data, found, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache get failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		var cached T
		err := json.Unmarshal(data, &cached)
		if err == nil {
			return cached, nil
		}
		c.logger.Warn("cache decode failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}
	data, err = json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", slog.String("key", key), slog.String("error", err.Error()))
		return value, nil
	}
	if err := c.backend.Set(ctx, key, data, ttl); err != nil {
		c.logger.Warn("cache set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return value, nil
}
