package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/election/internal/core/domain"
)

//go:generate mockgen -source=user_ports.go -destination=mocks/user_mocks.go -package=mocks UserRepository

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	CountByRole(ctx context.Context, role domain.Role) (int64, error)
	ListByRole(ctx context.Context, role domain.Role) ([]*domain.User, error)
}

type UserService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ListVoters(ctx context.Context) ([]*domain.User, error)
}
