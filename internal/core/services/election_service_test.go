package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vncsmyrnk/election/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
	"github.com/vncsmyrnk/election/internal/core/ports/mocks"
	"github.com/vncsmyrnk/election/internal/core/services"
	"github.com/vncsmyrnk/election/internal/platform/metrics"
)

var (
	admin       = domain.Principal{ID: uuid.New(), Role: domain.RoleAdmin}
	electionDay = time.Date(2025, 11, 4, 0, 0, 0, 0, time.UTC)
)

type fixture struct {
	elections  *memory.ElectionStore
	candidates *memory.CandidateStore
	users      *memory.UserStore
	service    ports.ElectionService
	registry   ports.CandidateService
	stats      ports.StatsService
}

func newFixture(t *testing.T, opts ...services.Option) *fixture {
	t.Helper()
	f := &fixture{
		elections:  memory.NewElectionStore(),
		candidates: memory.NewCandidateStore(),
		users:      memory.NewUserStore(),
	}
	f.service = services.NewElectionService(f.elections, f.candidates, opts...)
	f.registry = services.NewCandidateService(f.candidates, f.elections, opts...)
	f.stats = services.NewStatsService(f.elections, f.users, opts...)
	return f
}

func (f *fixture) candidate(t *testing.T, name, party string) *domain.Candidate {
	t.Helper()
	c, err := f.registry.Create(context.Background(), ports.CreateCandidateInput{Name: name, Party: party})
	require.NoError(t, err)
	return c
}

func (f *fixture) voter(t *testing.T) domain.Principal {
	t.Helper()
	id := uuid.New()
	require.NoError(t, f.users.Create(context.Background(), &domain.User{
		ID:    id,
		Email: id.String() + "@example.com",
		Name:  "Voter",
		Role:  domain.RoleVoter,
	}))
	return domain.Principal{ID: id, Role: domain.RoleVoter}
}

func (f *fixture) election(t *testing.T, title string, candidates ...*domain.Candidate) *domain.Election {
	t.Helper()
	ids := make([]uuid.UUID, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	e, err := f.service.CreateElection(context.Background(), ports.CreateElectionInput{
		Title:        title,
		Year:         2025,
		StartDate:    electionDay,
		StartTime:    "08:00",
		EndTime:      "17:00",
		CandidateIDs: ids,
	})
	require.NoError(t, err)
	return e
}

func TestElectionLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// 1. Register candidates and voters
	a := f.candidate(t, "Alice", "Blue")
	b := f.candidate(t, "Bruno", "Green")
	c := f.candidate(t, "Carla", "Red")
	v1, v2, v3, v4 := f.voter(t), f.voter(t), f.voter(t), f.voter(t)

	// 2. Create and start
	e := f.election(t, "Council 2025", a, b, c)
	assert.Equal(t, domain.ElectionStateDraft, e.State)
	assert.Nil(t, e.Winner)
	require.Len(t, e.Candidates, 3)

	started, err := f.service.StartElection(ctx, admin, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ElectionStateActive, started.State)
	assert.NotNil(t, started.StartedAt)

	active, err := f.service.GetActiveElection(ctx)
	require.NoError(t, err)
	assert.Equal(t, e.ID, active.ID)

	// 3. Vote
	require.NoError(t, f.service.CastVote(ctx, v1, e.ID, b.ID))
	require.NoError(t, f.service.CastVote(ctx, v2, e.ID, b.ID))
	require.NoError(t, f.service.CastVote(ctx, v3, e.ID, a.ID))
	assert.ErrorIs(t, f.service.CastVote(ctx, v1, e.ID, c.ID), domain.ErrDuplicateVote)

	// 4. Close
	winner, err := f.service.CloseElection(ctx, admin, e.ID)
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, b.ID, winner.CandidateID)

	assert.ErrorIs(t, f.service.CastVote(ctx, v4, e.ID, a.ID), domain.ErrInvalidState)

	closed, err := f.service.ListClosedElections(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, "Bruno", closed[0].Winner.Name)

	stored, err := f.service.GetElection(ctx, e.ID)
	require.NoError(t, err)
	assert.EqualValues(t, []int64{1, 2, 0}, []int64{
		stored.Candidates[0].VoteCount, stored.Candidates[1].VoteCount, stored.Candidates[2].VoteCount,
	})
	assert.Empty(t, stored.CheckInvariants())

	// 5. Stats
	stats, err := f.stats.ComputeStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalElections)
	assert.EqualValues(t, 4, stats.TotalVoters)
	assert.EqualValues(t, 3, stats.TotalVotes)
	assert.Equal(t, "75.00%", stats.Turnout)
}

func TestCreateElection_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.candidate(t, "Alice", "Blue")
	b := f.candidate(t, "Bruno", "Green")

	tests := []struct {
		name  string
		input ports.CreateElectionInput
		kind  error
	}{
		{
			name:  "single candidate",
			input: ports.CreateElectionInput{Title: "Solo", Year: 2025, StartDate: electionDay, CandidateIDs: []uuid.UUID{a.ID}},
			kind:  domain.ErrValidation,
		},
		{
			name:  "repeated candidate",
			input: ports.CreateElectionInput{Title: "Twice", Year: 2025, StartDate: electionDay, CandidateIDs: []uuid.UUID{a.ID, a.ID}},
			kind:  domain.ErrValidation,
		},
		{
			name:  "unknown candidate",
			input: ports.CreateElectionInput{Title: "Ghost", Year: 2025, StartDate: electionDay, CandidateIDs: []uuid.UUID{a.ID, uuid.New()}},
			kind:  domain.ErrNotFound,
		},
		{
			name:  "missing title",
			input: ports.CreateElectionInput{Title: "  ", Year: 2025, StartDate: electionDay, CandidateIDs: []uuid.UUID{a.ID, b.ID}},
			kind:  domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateElection(ctx, tt.input)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	count, err := f.elections.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	f.election(t, "Council 2025", a, b)
	_, err = f.service.CreateElection(ctx, ports.CreateElectionInput{
		Title: "Council 2025", Year: 2025, StartDate: electionDay, CandidateIDs: []uuid.UUID{a.ID, b.ID},
	})
	assert.ErrorIs(t, err, domain.ErrTitleTaken)
}

func TestStartElection_Rules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.candidate(t, "Alice", "Blue")
	b := f.candidate(t, "Bruno", "Green")
	first := f.election(t, "First", a, b)
	second := f.election(t, "Second", a, b)

	_, err := f.service.StartElection(ctx, uuidVoter(), first.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.service.StartElection(ctx, admin, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.service.StartElection(ctx, admin, first.ID)
	require.NoError(t, err)

	_, err = f.service.StartElection(ctx, admin, first.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyActive)

	_, err = f.service.StartElection(ctx, admin, second.ID)
	assert.ErrorIs(t, err, domain.ErrAnotherActive)

	_, err = f.service.CloseElection(ctx, admin, first.ID)
	require.NoError(t, err)

	_, err = f.service.StartElection(ctx, admin, first.ID)
	assert.ErrorIs(t, err, domain.ErrElectionClosed)

	_, err = f.service.StartElection(ctx, admin, second.ID)
	assert.NoError(t, err)
}

func TestCastVote_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.candidate(t, "Alice", "Blue")
	b := f.candidate(t, "Bruno", "Green")
	outsider := f.candidate(t, "Otto", "Grey")
	e := f.election(t, "Council 2025", a, b)
	v := f.voter(t)

	assert.ErrorIs(t, f.service.CastVote(ctx, v, uuid.New(), a.ID), domain.ErrNotFound)
	assert.ErrorIs(t, f.service.CastVote(ctx, v, e.ID, a.ID), domain.ErrNotActive)

	_, err := f.service.StartElection(ctx, admin, e.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.service.CastVote(ctx, admin, e.ID, a.ID), domain.ErrForbidden)
	assert.ErrorIs(t, f.service.CastVote(ctx, v, e.ID, outsider.ID), domain.ErrInvalidCandidate)

	require.NoError(t, f.service.CastVote(ctx, v, e.ID, a.ID))
	for j := 0; j < 3; j++ {
		assert.ErrorIs(t, f.service.CastVote(ctx, v, e.ID, b.ID), domain.ErrAlreadyVoted)
	}

	stored, err := f.service.GetElection(ctx, e.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.TotalVotes())
	assert.EqualValues(t, 0, stored.Candidates[1].VoteCount)
}

func TestCastVote_ConcurrentDistinctVoters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.candidate(t, "Alice", "Blue")
	b := f.candidate(t, "Bruno", "Green")
	e := f.election(t, "Council 2025", a, b)
	_, err := f.service.StartElection(ctx, admin, e.ID)
	require.NoError(t, err)

	const n = 64
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			target := a.ID
			if i%2 == 1 {
				target = b.ID
			}
			errs <- f.service.CastVote(ctx, uuidVoter(), e.ID, target)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := f.service.GetElection(ctx, e.ID)
	require.NoError(t, err)
	assert.EqualValues(t, n, stored.TotalVotes())
	assert.EqualValues(t, n/2, stored.Candidates[0].VoteCount)
	assert.EqualValues(t, n/2, stored.Candidates[1].VoteCount)
	assert.Empty(t, stored.CheckInvariants())
}

func TestCastVote_ConcurrentSameVoter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.candidate(t, "Alice", "Blue")
	b := f.candidate(t, "Bruno", "Green")
	e := f.election(t, "Council 2025", a, b)
	_, err := f.service.StartElection(ctx, admin, e.ID)
	require.NoError(t, err)

	v := uuidVoter()
	results := make([]error, 2)
	var wg sync.WaitGroup
	for i, target := range []uuid.UUID{a.ID, b.ID} {
		i, target := i, target
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = f.service.CastVote(ctx, v, e.ID, target)
		}()
	}
	wg.Wait()

	var ok, dup int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrDuplicateVote):
			dup++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)

	stored, err := f.service.GetElection(ctx, e.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.TotalVotes())
}

// Two service instances over one store behave like two replicas: only the
// version check keeps them from losing each other's ballots.
func TestCastVote_ReplicasShareStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.candidate(t, "Alice", "Blue")
	b := f.candidate(t, "Bruno", "Green")
	e := f.election(t, "Council 2025", a, b)
	_, err := f.service.StartElection(ctx, admin, e.ID)
	require.NoError(t, err)

	replicas := []ports.ElectionService{
		services.NewElectionService(f.elections, f.candidates, services.WithMaxRetries(100)),
		services.NewElectionService(f.elections, f.candidates, services.WithMaxRetries(100)),
	}

	const perReplica = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*perReplica)
	for _, svc := range replicas {
		svc := svc
		for j := 0; j < perReplica; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- svc.CastVote(ctx, uuidVoter(), e.ID, a.ID)
			}()
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := f.service.GetElection(ctx, e.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2*perReplica, stored.Candidates[0].VoteCount)
	assert.Empty(t, stored.CheckInvariants())
}

func TestCastVote_RetriesVersionConflicts(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockElectionRepository(ctrl)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	e := activeElection(t)
	voter := uuidVoter()

	repo.EXPECT().GetByID(gomock.Any(), e.ID).DoAndReturn(func(context.Context, uuid.UUID) (*domain.Election, error) {
		return e.Clone(), nil
	}).Times(2)
	gomock.InOrder(
		repo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(domain.ErrVersionConflict),
		repo.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, got *domain.Election) error {
			assert.True(t, got.HasVoted(voter.ID))
			return nil
		}),
	)

	svc := services.NewElectionService(repo, nil, services.WithMetrics(m))
	require.NoError(t, svc.CastVote(ctx, voter, e.ID, e.Candidates[0].CandidateID))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.VoteConflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VotesCast.WithLabelValues(metrics.OutcomeAccepted)))
}

func TestCastVote_GivesUpAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockElectionRepository(ctrl)
	m := metrics.New(prometheus.NewRegistry())

	e := activeElection(t)
	repo.EXPECT().GetByID(gomock.Any(), e.ID).DoAndReturn(func(context.Context, uuid.UUID) (*domain.Election, error) {
		return e.Clone(), nil
	}).Times(3)
	repo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(domain.ErrVersionConflict).Times(3)

	svc := services.NewElectionService(repo, nil, services.WithMaxRetries(3), services.WithMetrics(m))
	err := svc.CastVote(ctx, uuidVoter(), e.ID, e.Candidates[0].CandidateID)

	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.VoteConflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VotesCast.WithLabelValues(metrics.OutcomeConflict)))
}

func TestCloseElection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.candidate(t, "Alice", "Blue")
	b := f.candidate(t, "Bruno", "Green")
	c := f.candidate(t, "Carla", "Red")

	t.Run("tie goes to roster order", func(t *testing.T) {
		e := f.election(t, "Tie", a, b, c)
		_, err := f.service.StartElection(ctx, admin, e.ID)
		require.NoError(t, err)

		for _, target := range []uuid.UUID{a.ID, b.ID, b.ID, c.ID, c.ID} {
			require.NoError(t, f.service.CastVote(ctx, uuidVoter(), e.ID, target))
		}

		winner, err := f.service.CloseElection(ctx, admin, e.ID)
		require.NoError(t, err)
		assert.Equal(t, b.ID, winner.CandidateID)
	})

	t.Run("no votes means no winner", func(t *testing.T) {
		e := f.election(t, "Empty", a, b)
		_, err := f.service.StartElection(ctx, admin, e.ID)
		require.NoError(t, err)

		winner, err := f.service.CloseElection(ctx, admin, e.ID)
		require.NoError(t, err)
		assert.Nil(t, winner)

		closed, err := f.service.ListClosedElections(ctx)
		require.NoError(t, err)
		for _, ce := range closed {
			assert.NotEqual(t, e.ID, ce.ID)
		}
	})

	t.Run("rejections", func(t *testing.T) {
		e := f.election(t, "Draft", a, b)

		_, err := f.service.CloseElection(ctx, uuidVoter(), e.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)

		_, err = f.service.CloseElection(ctx, admin, e.ID)
		assert.ErrorIs(t, err, domain.ErrNotActive)

		_, err = f.service.CloseElection(ctx, admin, uuid.New())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.candidate(t, "Alice", "Blue")
	b := f.candidate(t, "Bruno", "Green")
	e := f.election(t, "Council 2025", a, b)

	renamed := "Alicia"
	_, err := f.registry.Update(ctx, a.ID, ports.UpdateCandidateInput{Name: &renamed})
	require.NoError(t, err)
	require.NoError(t, f.registry.Delete(ctx, b.ID))

	stored, err := f.service.GetElection(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", stored.Candidates[0].Name)
	assert.Equal(t, "Bruno", stored.Candidates[1].Name)

	// the deleted candidate can still receive and win votes in this election
	_, err = f.service.StartElection(ctx, admin, e.ID)
	require.NoError(t, err)
	require.NoError(t, f.service.CastVote(ctx, uuidVoter(), e.ID, b.ID))
	winner, err := f.service.CloseElection(ctx, admin, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bruno", winner.Name)
}

func TestStatsCacheInvalidatedOnWrites(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockStatsCache(ctrl)
	f := newFixture(t, services.WithStatsCache(cache))

	a := f.candidate(t, "Alice", "Blue")
	b := f.candidate(t, "Bruno", "Green")

	// create, vote and close each drop the cached figures
	cache.EXPECT().Invalidate(gomock.Any()).Return(nil).Times(3)

	e := f.election(t, "Council 2025", a, b)
	_, err := f.service.StartElection(ctx, admin, e.ID)
	require.NoError(t, err)
	require.NoError(t, f.service.CastVote(ctx, uuidVoter(), e.ID, a.ID))
	_, err = f.service.CloseElection(ctx, admin, e.ID)
	require.NoError(t, err)
}

func TestListElections_NewestFirst(t *testing.T) {
	ctx := context.Background()
	clock := electionDay
	f := newFixture(t, services.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	a := f.candidate(t, "Alice", "Blue")
	b := f.candidate(t, "Bruno", "Green")

	first := f.election(t, "First", a, b)
	second := f.election(t, "Second", a, b)

	all, err := f.service.ListElections(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
}

func uuidVoter() domain.Principal {
	return domain.Principal{ID: uuid.New(), Role: domain.RoleVoter}
}

func activeElection(t *testing.T) *domain.Election {
	t.Helper()
	e, err := domain.NewElection(domain.NewElectionParams{
		ID:        uuid.New(),
		Title:     "Council 2025",
		Year:      2025,
		StartDate: electionDay,
		Candidates: []*domain.Candidate{
			{ID: uuid.New(), Name: "Alice", Party: "Blue"},
			{ID: uuid.New(), Name: "Bruno", Party: "Green"},
		},
		Now: electionDay,
	})
	require.NoError(t, err)
	require.NoError(t, e.Start(electionDay))
	return e
}
