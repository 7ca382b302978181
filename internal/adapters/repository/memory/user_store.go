package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type UserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]domain.User
}

var _ ports.UserRepository = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[uuid.UUID]domain.User)}
}

func (s *UserStore) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (s *UserStore) Create(_ context.Context, user *domain.User) error {
	if !user.Role.Valid() {
		return domain.Validationf("unknown role %q", user.Role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return domain.Validationf("email %s already registered", user.Email)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, u := range s.users {
		if u.Role == role && u.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (s *UserStore) ListByRole(_ context.Context, role domain.Role) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.User
	for _, u := range s.users {
		if u.Role == role && u.DeletedAt == nil {
			u := u
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Email < out[j].Email
	})
	return out, nil
}
