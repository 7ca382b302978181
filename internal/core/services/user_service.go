package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type UserService struct {
	repo ports.UserRepository
}

func NewUserService(repo ports.UserRepository) ports.UserService {
	return &UserService{
		repo: repo,
	}
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *UserService) ListVoters(ctx context.Context) ([]*domain.User, error) {
	users, err := s.repo.ListByRole(ctx, domain.RoleVoter)
	if err != nil {
		return nil, fmt.Errorf("failed to list voters: %w", err)
	}
	return users, nil
}
