package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

const (
	defaultStatsKey = "election:stats"
	defaultTTL      = 30 * time.Second
)

// StatsCache stores the last computed statistics as JSON under a single key.
type StatsCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

var _ ports.StatsCache = (*StatsCache)(nil)

type StatsCacheOption func(*StatsCache)

func WithTTL(ttl time.Duration) StatsCacheOption {
	return func(c *StatsCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithKey namespaces the cache entry, mostly so tests can share a server.
func WithKey(key string) StatsCacheOption {
	return func(c *StatsCache) {
		if key != "" {
			c.key = key
		}
	}
}

func NewStatsCache(client *redis.Client, opts ...StatsCacheOption) *StatsCache {
	c := &StatsCache{
		client: client,
		key:    defaultStatsKey,
		ttl:    defaultTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *StatsCache) Get(ctx context.Context) (*domain.Stats, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read stats: %w", err)
	}

	var stats domain.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, false, fmt.Errorf("failed to decode stats: %w", err)
	}
	return &stats, true, nil
}

func (c *StatsCache) Set(ctx context.Context, stats *domain.Stats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write stats: %w", err)
	}
	return nil
}

func (c *StatsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate stats: %w", err)
	}
	return nil
}
