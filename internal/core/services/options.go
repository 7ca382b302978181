package services

import (
	"log/slog"
	"time"

	"github.com/vncsmyrnk/election/internal/core/ports"
	"github.com/vncsmyrnk/election/internal/platform/logger"
	"github.com/vncsmyrnk/election/internal/platform/metrics"
)

const defaultMaxRetries = 5

type options struct {
	logger     *slog.Logger
	metrics    *metrics.Metrics
	cache      ports.StatsCache
	now        func() time.Time
	maxRetries int
}

// Option configures the services built in this package.
type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithStatsCache makes the stats service read through cache and the
// election service invalidate it after every write.
func WithStatsCache(c ports.StatsCache) Option {
	return func(o *options) {
		o.cache = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithMaxRetries bounds how many times a command is re-applied after an
// optimistic concurrency conflict.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:     logger.Discard(),
		now:        func() time.Time { return time.Now().UTC() },
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
