package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type candidateService struct {
	candidates ports.CandidateRepository
	elections  ports.ElectionRepository
	opts       options
}

func NewCandidateService(candidates ports.CandidateRepository, elections ports.ElectionRepository, opts ...Option) ports.CandidateService {
	return &candidateService{
		candidates: candidates,
		elections:  elections,
		opts:       buildOptions(opts),
	}
}

func (s *candidateService) Create(ctx context.Context, input ports.CreateCandidateInput) (*domain.Candidate, error) {
	now := s.opts.now()
	candidate := &domain.Candidate{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(input.Name),
		Party:     strings.TrimSpace(input.Party),
		Age:       input.Age,
		LogoRef:   strings.TrimSpace(input.LogoRef),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	if err := s.candidates.Create(ctx, candidate); err != nil {
		return nil, fmt.Errorf("failed to create candidate: %w", err)
	}

	s.opts.logger.InfoContext(ctx, "candidate registered", slog.String("candidate_id", candidate.ID.String()))
	return candidate, nil
}

func (s *candidateService) Get(ctx context.Context, id uuid.UUID) (*domain.Candidate, error) {
	return s.candidates.GetByID(ctx, id)
}

func (s *candidateService) List(ctx context.Context) ([]*domain.Candidate, error) {
	return s.candidates.List(ctx)
}

// Update edits the registry entry only. Rosters already snapshotted into
// elections keep the values they were created with.
func (s *candidateService) Update(ctx context.Context, id uuid.UUID, input ports.UpdateCandidateInput) (*domain.Candidate, error) {
	candidate, err := s.candidates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		candidate.Name = strings.TrimSpace(*input.Name)
	}
	if input.Party != nil {
		candidate.Party = strings.TrimSpace(*input.Party)
	}
	if input.Age != nil {
		candidate.Age = input.Age
	}
	if input.LogoRef != nil {
		candidate.LogoRef = strings.TrimSpace(*input.LogoRef)
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}
	candidate.UpdatedAt = s.opts.now()

	if err := s.candidates.Update(ctx, candidate); err != nil {
		return nil, err
	}
	return candidate, nil
}

// Delete removes a candidate from the registry unless an open election
// already holds ballots for it.
func (s *candidateService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.candidates.GetByID(ctx, id); err != nil {
		return err
	}

	elections, err := s.elections.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to check election rosters: %w", err)
	}
	for _, e := range elections {
		if e.State != domain.ElectionStateClosed && e.HasCandidate(id) && e.TotalVotes() > 0 {
			return domain.ErrCandidateInUse
		}
	}

	if err := s.candidates.Delete(ctx, id); err != nil {
		return err
	}

	s.opts.logger.InfoContext(ctx, "candidate removed", slog.String("candidate_id", id.String()))
	return nil
}
