package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
)

//go:generate mockgen -source=candidate_ports.go -destination=mocks/candidate_mocks.go -package=mocks CandidateRepository

type CandidateRepository interface {
	Create(ctx context.Context, candidate *domain.Candidate) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Candidate, error)
	List(ctx context.Context) ([]*domain.Candidate, error)
	Update(ctx context.Context, candidate *domain.Candidate) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type CreateCandidateInput struct {
	Name    string
	Party   string
	Age     *int
	LogoRef string
}

// UpdateCandidateInput carries a partial update; nil fields are left as is.
type UpdateCandidateInput struct {
	Name    *string
	Party   *string
	Age     *int
	LogoRef *string
}

type CandidateService interface {
	Create(ctx context.Context, input CreateCandidateInput) (*domain.Candidate, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Candidate, error)
	List(ctx context.Context) ([]*domain.Candidate, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCandidateInput) (*domain.Candidate, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
