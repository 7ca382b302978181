package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type statsService struct {
	elections ports.ElectionRepository
	users     ports.UserRepository
	group     singleflight.Group
	opts      options
}

func NewStatsService(elections ports.ElectionRepository, users ports.UserRepository, opts ...Option) ports.StatsService {
	return &statsService{
		elections: elections,
		users:     users,
		opts:      buildOptions(opts),
	}
}

// ComputeStats serves cached figures when available. Concurrent misses share
// a single computation.
func (s *statsService) ComputeStats(ctx context.Context) (*domain.Stats, error) {
	if s.opts.cache != nil {
		stats, ok, err := s.opts.cache.Get(ctx)
		switch {
		case err != nil:
			s.opts.logger.WarnContext(ctx, "stats cache read failed", slog.String("error", err.Error()))
		case ok:
			s.opts.metrics.IncrementStatsCache("hit")
			return stats, nil
		}
		s.opts.metrics.IncrementStatsCache("miss")
	}

	v, err, _ := s.group.Do("stats", func() (any, error) {
		return s.compute(ctx)
	})
	if err != nil {
		return nil, err
	}
	stats := *v.(*domain.Stats)

	if s.opts.cache != nil {
		if err := s.opts.cache.Set(ctx, &stats); err != nil {
			s.opts.logger.WarnContext(ctx, "stats cache write failed", slog.String("error", err.Error()))
		}
	}
	return &stats, nil
}

func (s *statsService) compute(ctx context.Context) (*domain.Stats, error) {
	var elections, voters, votes int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if elections, err = s.elections.Count(gctx); err != nil {
			return fmt.Errorf("failed to count elections: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if voters, err = s.users.CountByRole(gctx, domain.RoleVoter); err != nil {
			return fmt.Errorf("failed to count voters: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if votes, err = s.elections.CountVotes(gctx); err != nil {
			return fmt.Errorf("failed to count votes: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return domain.NewStats(elections, voters, votes), nil
}

// VerifyTallies walks every stored election and reports those whose counts,
// ledgers or winner disagree.
func (s *statsService) VerifyTallies(ctx context.Context) ([]domain.TallyViolation, error) {
	elections, err := s.elections.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch all elections: %w", err)
	}

	var violations []domain.TallyViolation
	for _, e := range elections {
		problems := e.CheckInvariants()
		if len(problems) == 0 {
			continue
		}
		s.opts.logger.WarnContext(ctx, "tally violation",
			slog.String("election_id", e.ID.String()),
			slog.Int("problems", len(problems)),
		)
		violations = append(violations, domain.TallyViolation{
			ElectionID: e.ID,
			Title:      e.Title,
			Problems:   problems,
		})
	}
	return violations, nil
}
