package ports

import (
	"context"

	"github.com/vncsmyrnk/election/internal/core/domain"
)

//go:generate mockgen -source=stats_ports.go -destination=mocks/stats_mocks.go -package=mocks StatsCache

// StatsCache holds the last computed statistics. A miss is reported with
// ok == false and a nil error.
type StatsCache interface {
	Get(ctx context.Context) (stats *domain.Stats, ok bool, err error)
	Set(ctx context.Context, stats *domain.Stats) error
	Invalidate(ctx context.Context) error
}

type StatsService interface {
	ComputeStats(ctx context.Context) (*domain.Stats, error)
	VerifyTallies(ctx context.Context) ([]domain.TallyViolation, error)
}
