package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type CandidateStore struct {
	mu         sync.RWMutex
	candidates map[uuid.UUID]domain.Candidate
}

var _ ports.CandidateRepository = (*CandidateStore)(nil)

func NewCandidateStore() *CandidateStore {
	return &CandidateStore{candidates: make(map[uuid.UUID]domain.Candidate)}
}

func (s *CandidateStore) Create(_ context.Context, candidate *domain.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.candidates[candidate.ID]; ok {
		return domain.Validationf("candidate %s already exists", candidate.ID)
	}
	s.candidates[candidate.ID] = copyCandidate(*candidate)
	return nil
}

func (s *CandidateStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candidates[id]
	if !ok {
		return nil, domain.ErrCandidateNotFound
	}
	c = copyCandidate(c)
	return &c, nil
}

// List returns candidates ordered by name.
func (s *CandidateStore) List(_ context.Context) ([]*domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Candidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		c := copyCandidate(c)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *CandidateStore) Update(_ context.Context, candidate *domain.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.candidates[candidate.ID]; !ok {
		return domain.ErrCandidateNotFound
	}
	s.candidates[candidate.ID] = copyCandidate(*candidate)
	return nil
}

func (s *CandidateStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.candidates[id]; !ok {
		return domain.ErrCandidateNotFound
	}
	delete(s.candidates, id)
	return nil
}

func copyCandidate(c domain.Candidate) domain.Candidate {
	if c.Age != nil {
		age := *c.Age
		c.Age = &age
	}
	return c
}
