package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
)

//go:generate mockgen -source=election_ports.go -destination=mocks/election_mocks.go -package=mocks ElectionRepository

// ElectionRepository persists one record per election. Update must only
// succeed when the stored version equals election.Version, and bumps it.
type ElectionRepository interface {
	Create(ctx context.Context, election *domain.Election) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Election, error)
	GetActive(ctx context.Context) (*domain.Election, error)
	List(ctx context.Context) ([]*domain.Election, error)
	ListByState(ctx context.Context, state domain.ElectionState) ([]*domain.Election, error)
	Update(ctx context.Context, election *domain.Election) error
	Count(ctx context.Context) (int64, error)
	CountVotes(ctx context.Context) (int64, error)
}

type CreateElectionInput struct {
	Title        string
	Year         int
	StartDate    time.Time
	StartTime    string
	EndTime      string
	CandidateIDs []uuid.UUID
}

type ElectionService interface {
	CreateElection(ctx context.Context, input CreateElectionInput) (*domain.Election, error)
	StartElection(ctx context.Context, actor domain.Principal, electionID uuid.UUID) (*domain.Election, error)
	CastVote(ctx context.Context, voter domain.Principal, electionID, candidateID uuid.UUID) error
	CloseElection(ctx context.Context, actor domain.Principal, electionID uuid.UUID) (*domain.Winner, error)
	GetElection(ctx context.Context, electionID uuid.UUID) (*domain.Election, error)
	GetActiveElection(ctx context.Context) (*domain.Election, error)
	ListClosedElections(ctx context.Context) ([]*domain.Election, error)
	ListElections(ctx context.Context) ([]*domain.Election, error)
}
