package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

// ElectionStore keeps elections in a map and applies the same version and
// uniqueness rules as the Postgres repository. It hands out copies so
// callers never share ledgers with the store.
type ElectionStore struct {
	mu        sync.RWMutex
	elections map[uuid.UUID]*domain.Election
}

var _ ports.ElectionRepository = (*ElectionStore)(nil)

func NewElectionStore() *ElectionStore {
	return &ElectionStore{elections: make(map[uuid.UUID]*domain.Election)}
}

func (s *ElectionStore) Create(_ context.Context, election *domain.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.elections[election.ID]; ok {
		return domain.Validationf("election %s already exists", election.ID)
	}
	for _, e := range s.elections {
		if e.Title == election.Title {
			return domain.ErrTitleTaken
		}
	}
	if election.State == domain.ElectionStateActive && s.activeLocked() != nil {
		return domain.ErrAnotherActive
	}

	election.Version = 1
	s.elections[election.ID] = election.Clone()
	return nil
}

func (s *ElectionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.elections[id]
	if !ok {
		return nil, domain.ErrElectionNotFound
	}
	return e.Clone(), nil
}

func (s *ElectionStore) GetActive(_ context.Context) (*domain.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e := s.activeLocked(); e != nil {
		return e.Clone(), nil
	}
	return nil, domain.ErrNoActiveElection
}

func (s *ElectionStore) activeLocked() *domain.Election {
	for _, e := range s.elections {
		if e.State == domain.ElectionStateActive {
			return e
		}
	}
	return nil
}

// List returns every election, newest first.
func (s *ElectionStore) List(_ context.Context) ([]*domain.Election, error) {
	return s.filter(func(*domain.Election) bool { return true }), nil
}

func (s *ElectionStore) ListByState(_ context.Context, state domain.ElectionState) ([]*domain.Election, error) {
	return s.filter(func(e *domain.Election) bool { return e.State == state }), nil
}

func (s *ElectionStore) filter(keep func(*domain.Election) bool) []*domain.Election {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Election, 0, len(s.elections))
	for _, e := range s.elections {
		if keep(e) {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Update replaces the stored election when its version still matches and
// bumps election.Version on success.
func (s *ElectionStore) Update(_ context.Context, election *domain.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.elections[election.ID]
	if !ok {
		return domain.ErrElectionNotFound
	}
	if stored.Version != election.Version {
		return domain.ErrVersionConflict
	}
	if election.State == domain.ElectionStateActive {
		if active := s.activeLocked(); active != nil && active.ID != election.ID {
			return domain.ErrAnotherActive
		}
	}

	election.Version++
	s.elections[election.ID] = election.Clone()
	return nil
}

func (s *ElectionStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.elections)), nil
}

func (s *ElectionStore) CountVotes(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, e := range s.elections {
		total += e.TotalVotes()
	}
	return total, nil
}
