package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
	"github.com/vncsmyrnk/election/internal/platform/metrics"
)

var tracer = otel.Tracer("github.com/vncsmyrnk/election/internal/core/services")

type electionService struct {
	elections  ports.ElectionRepository
	candidates ports.CandidateRepository
	locks      *keyedMutex
	opts       options
}

// NewElectionService builds the lifecycle service. Commands against one
// election are serialized in process and every write is retried on version
// conflicts, so concurrent votes from several replicas are never lost.
func NewElectionService(elections ports.ElectionRepository, candidates ports.CandidateRepository, opts ...Option) ports.ElectionService {
	return &electionService{
		elections:  elections,
		candidates: candidates,
		locks:      newKeyedMutex(),
		opts:       buildOptions(opts),
	}
}

func (s *electionService) CreateElection(ctx context.Context, input ports.CreateElectionInput) (_ *domain.Election, err error) {
	ctx, span := tracer.Start(ctx, "ElectionService.CreateElection")
	defer func() { endSpan(span, err) }()

	title := strings.TrimSpace(input.Title)
	if err := domain.ValidateElectionFields(title, input.Year, input.StartDate, input.StartTime, input.EndTime, len(input.CandidateIDs)); err != nil {
		return nil, err
	}

	candidates, err := s.loadCandidates(ctx, input.CandidateIDs)
	if err != nil {
		return nil, err
	}

	election, err := domain.NewElection(domain.NewElectionParams{
		ID:         uuid.New(),
		Title:      title,
		Year:       input.Year,
		StartDate:  input.StartDate,
		StartTime:  input.StartTime,
		EndTime:    input.EndTime,
		Candidates: candidates,
		Now:        s.opts.now(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.elections.Create(ctx, election); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("election.id", election.ID.String()))
	s.opts.metrics.IncrementTransition("created")
	s.opts.logger.InfoContext(ctx, "election created",
		slog.String("election_id", election.ID.String()),
		slog.String("title", election.Title),
		slog.Int("candidates", len(election.Candidates)),
	)
	s.invalidateStats(ctx)

	return election, nil
}

// loadCandidates fetches the roster concurrently, keeping the request order.
func (s *electionService) loadCandidates(ctx context.Context, ids []uuid.UUID) ([]*domain.Candidate, error) {
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, domain.Validationf("candidate %s listed more than once", id)
		}
		seen[id] = true
	}

	candidates := make([]*domain.Candidate, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			c, err := s.candidates.GetByID(gctx, id)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("%w: %s", domain.ErrCandidateNotFound, id)
				}
				return fmt.Errorf("failed to load candidate %s: %w", id, err)
			}
			candidates[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return candidates, nil
}

func (s *electionService) StartElection(ctx context.Context, actor domain.Principal, electionID uuid.UUID) (_ *domain.Election, err error) {
	ctx, span := tracer.Start(ctx, "ElectionService.StartElection",
		trace.WithAttributes(attribute.String("election.id", electionID.String())))
	defer func() { endSpan(span, err) }()

	if !actor.IsAdmin() {
		return nil, domain.ErrAdminRequired
	}

	election, err := s.mutate(ctx, electionID, func(e *domain.Election) error {
		if err := e.Start(s.opts.now()); err != nil {
			return err
		}
		active, err := s.elections.GetActive(ctx)
		switch {
		case errors.Is(err, domain.ErrNoActiveElection):
			return nil
		case err != nil:
			return err
		case active.ID != e.ID:
			return domain.ErrAnotherActive
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.opts.metrics.IncrementTransition("started")
	s.opts.logger.InfoContext(ctx, "election started", slog.String("election_id", electionID.String()))
	return election, nil
}

func (s *electionService) CastVote(ctx context.Context, voter domain.Principal, electionID, candidateID uuid.UUID) (err error) {
	ctx, span := tracer.Start(ctx, "ElectionService.CastVote",
		trace.WithAttributes(attribute.String("election.id", electionID.String())))
	began := time.Now()
	defer func() {
		s.opts.metrics.ObserveVoteLatency(time.Since(began))
		s.opts.metrics.IncrementVote(voteOutcome(err))
		endSpan(span, err)
	}()

	if voter.Role != domain.RoleVoter {
		return domain.ErrVoterRequired
	}

	_, err = s.mutate(ctx, electionID, func(e *domain.Election) error {
		return e.CastVote(voter.ID, candidateID, s.opts.now())
	})
	if err != nil {
		s.opts.logger.DebugContext(ctx, "vote rejected",
			slog.String("election_id", electionID.String()),
			slog.String("reason", err.Error()),
		)
		return err
	}

	// the chosen candidate is never logged
	s.opts.logger.InfoContext(ctx, "vote recorded", slog.String("election_id", electionID.String()))
	s.invalidateStats(ctx)
	return nil
}

func (s *electionService) CloseElection(ctx context.Context, actor domain.Principal, electionID uuid.UUID) (_ *domain.Winner, err error) {
	ctx, span := tracer.Start(ctx, "ElectionService.CloseElection",
		trace.WithAttributes(attribute.String("election.id", electionID.String())))
	defer func() { endSpan(span, err) }()

	if !actor.IsAdmin() {
		return nil, domain.ErrAdminRequired
	}

	var winner *domain.Winner
	_, err = s.mutate(ctx, electionID, func(e *domain.Election) error {
		w, err := e.Close(s.opts.now())
		winner = w
		return err
	})
	if err != nil {
		return nil, err
	}

	attrs := []any{slog.String("election_id", electionID.String())}
	if winner != nil {
		attrs = append(attrs, slog.String("winner_id", winner.CandidateID.String()))
	}
	s.opts.metrics.IncrementTransition("closed")
	s.opts.logger.InfoContext(ctx, "election closed", attrs...)
	s.invalidateStats(ctx)
	return winner, nil
}

func (s *electionService) GetElection(ctx context.Context, electionID uuid.UUID) (*domain.Election, error) {
	return s.elections.GetByID(ctx, electionID)
}

func (s *electionService) GetActiveElection(ctx context.Context) (*domain.Election, error) {
	return s.elections.GetActive(ctx)
}

// ListClosedElections returns closed elections that declared a winner.
func (s *electionService) ListClosedElections(ctx context.Context) ([]*domain.Election, error) {
	closed, err := s.elections.ListByState(ctx, domain.ElectionStateClosed)
	if err != nil {
		return nil, fmt.Errorf("failed to list closed elections: %w", err)
	}

	decided := make([]*domain.Election, 0, len(closed))
	for _, e := range closed {
		if e.Winner != nil {
			decided = append(decided, e)
		}
	}
	return decided, nil
}

func (s *electionService) ListElections(ctx context.Context) ([]*domain.Election, error) {
	return s.elections.List(ctx)
}

// mutate loads the election, applies fn and writes it back, re-reading and
// re-applying fn whenever the stored version moved underneath it.
func (s *electionService) mutate(ctx context.Context, id uuid.UUID, fn func(*domain.Election) error) (*domain.Election, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var lastErr error
	for attempt := 1; attempt <= s.opts.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		election, err := s.elections.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(election); err != nil {
			return nil, err
		}

		err = s.elections.Update(ctx, election)
		if err == nil {
			return election, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}

		lastErr = err
		s.opts.metrics.IncrementConflict()
		s.opts.logger.WarnContext(ctx, "version conflict, retrying",
			slog.String("election_id", id.String()),
			slog.Int("attempt", attempt),
		)
	}

	return nil, fmt.Errorf("%w: gave up after %d attempts", lastErr, s.opts.maxRetries)
}

func (s *electionService) invalidateStats(ctx context.Context) {
	if s.opts.cache == nil {
		return
	}
	if err := s.opts.cache.Invalidate(ctx); err != nil {
		s.opts.logger.WarnContext(ctx, "failed to invalidate stats cache", slog.String("error", err.Error()))
	}
}

func voteOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeAccepted
	case errors.Is(err, domain.ErrDuplicateVote):
		return metrics.OutcomeDuplicate
	case errors.Is(err, domain.ErrConflict):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeRejected
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
