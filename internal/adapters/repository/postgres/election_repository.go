package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

const uniqueViolation = "23505"

const electionColumns = `
	id, title, year, start_date, start_time, end_time, state, candidates, winner,
	version, created_at, updated_at, started_at, closed_at
`

type electionRepository struct {
	db *sql.DB
}

func NewElectionRepository(db *sql.DB) ports.ElectionRepository {
	return &electionRepository{
		db: db,
	}
}

func (r *electionRepository) Create(ctx context.Context, election *domain.Election) error {
	candidates, winner, err := encodeRoster(election)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO elections (id, title, year, start_date, start_time, end_time, state, candidates, winner,
			version, created_at, updated_at, started_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11, $12, $13)
	`
	_, err = r.db.ExecContext(ctx, query,
		election.ID, election.Title, election.Year, election.StartDate, election.StartTime, election.EndTime,
		election.State, candidates, winner, election.CreatedAt, election.UpdatedAt, election.StartedAt, election.ClosedAt,
	)
	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to insert election: %w", err)
	}

	election.Version = 1
	return nil
}

func (r *electionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE id = $1`
	election, err := scanElection(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrElectionNotFound
		}
		return nil, fmt.Errorf("failed to get election: %w", err)
	}
	return election, nil
}

func (r *electionRepository) GetActive(ctx context.Context) (*domain.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE state = 'active' LIMIT 1`
	election, err := scanElection(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoActiveElection
		}
		return nil, fmt.Errorf("failed to get active election: %w", err)
	}
	return election, nil
}

func (r *electionRepository) List(ctx context.Context) ([]*domain.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list elections: %w", err)
	}
	defer rows.Close()

	return scanElections(rows)
}

func (r *electionRepository) ListByState(ctx context.Context, state domain.ElectionState) ([]*domain.Election, error) {
	query := `SELECT ` + electionColumns + ` FROM elections WHERE state = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, state)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s elections: %w", state, err)
	}
	defer rows.Close()

	return scanElections(rows)
}

// Update writes the whole record in one statement guarded by the version
// the caller loaded.
func (r *electionRepository) Update(ctx context.Context, election *domain.Election) error {
	candidates, winner, err := encodeRoster(election)
	if err != nil {
		return err
	}

	query := `
		UPDATE elections
		SET title = $3, year = $4, start_date = $5, start_time = $6, end_time = $7, state = $8,
			candidates = $9, winner = $10, updated_at = $11, started_at = $12, closed_at = $13,
			version = version + 1
		WHERE id = $1 AND version = $2
	`
	res, err := r.db.ExecContext(ctx, query,
		election.ID, election.Version, election.Title, election.Year, election.StartDate, election.StartTime,
		election.EndTime, election.State, candidates, winner, election.UpdatedAt, election.StartedAt, election.ClosedAt,
	)
	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("failed to update election: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		var exists bool
		err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM elections WHERE id = $1)`, election.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check election: %w", err)
		}
		if !exists {
			return domain.ErrElectionNotFound
		}
		return domain.ErrVersionConflict
	}

	election.Version++
	return nil
}

func (r *electionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM elections`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count elections: %w", err)
	}
	return n, nil
}

// CountVotes sums ledger sizes across every roster entry of every election.
func (r *electionRepository) CountVotes(ctx context.Context) (int64, error) {
	query := `
		SELECT COALESCE(SUM(jsonb_array_length(entry->'votes')), 0)
		FROM elections, jsonb_array_elements(candidates) AS entry
	`
	var n int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanElection(row rowScanner) (*domain.Election, error) {
	var (
		e          domain.Election
		candidates []byte
		winner     []byte
	)
	err := row.Scan(
		&e.ID, &e.Title, &e.Year, &e.StartDate, &e.StartTime, &e.EndTime, &e.State, &candidates, &winner,
		&e.Version, &e.CreatedAt, &e.UpdatedAt, &e.StartedAt, &e.ClosedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(candidates, &e.Candidates); err != nil {
		return nil, fmt.Errorf("failed to decode roster of election %s: %w", e.ID, err)
	}
	for i := range e.Candidates {
		if e.Candidates[i].Votes == nil {
			e.Candidates[i].Votes = []domain.Ballot{}
		}
	}
	if len(winner) > 0 {
		e.Winner = &domain.Winner{}
		if err := json.Unmarshal(winner, e.Winner); err != nil {
			return nil, fmt.Errorf("failed to decode winner of election %s: %w", e.ID, err)
		}
	}
	return &e, nil
}

func scanElections(rows *sql.Rows) ([]*domain.Election, error) {
	elections := []*domain.Election{}
	for rows.Next() {
		e, err := scanElection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		elections = append(elections, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating elections: %w", err)
	}
	return elections, nil
}

// encodeRoster renders the JSONB columns. Text is passed instead of bytes
// so the driver does not send them as bytea.
func encodeRoster(e *domain.Election) (candidates string, winner any, err error) {
	raw, err := json.Marshal(e.Candidates)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode roster: %w", err)
	}
	if e.Winner != nil {
		w, err := json.Marshal(e.Winner)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode winner: %w", err)
		}
		winner = string(w)
	}
	return string(raw), winner, nil
}

// mapConstraintError turns unique violations on election constraints into
// domain errors and returns nil for anything else.
func mapConstraintError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return nil
	}
	switch pqErr.Constraint {
	case "elections_title_key":
		return domain.ErrTitleTaken
	case "elections_single_active":
		return domain.ErrAnotherActive
	}
	return domain.Validationf("%s", pqErr.Message)
}
