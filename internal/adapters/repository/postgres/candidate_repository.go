package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vncsmyrnk/election/internal/core/domain"
	"github.com/vncsmyrnk/election/internal/core/ports"
)

type candidateRepository struct {
	db *sql.DB
}

func NewCandidateRepository(db *sql.DB) ports.CandidateRepository {
	return &candidateRepository{
		db: db,
	}
}

func (r *candidateRepository) Create(ctx context.Context, c *domain.Candidate) error {
	query := `
		INSERT INTO candidates (id, name, party, age, logo_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Party, nullableAge(c.Age), c.LogoRef, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert candidate: %w", err)
	}
	return nil
}

func (r *candidateRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Candidate, error) {
	query := `
		SELECT id, name, party, age, logo_ref, created_at, updated_at
		FROM candidates
		WHERE id = $1
	`
	c, err := scanCandidate(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return c, nil
}

func (r *candidateRepository) List(ctx context.Context) ([]*domain.Candidate, error) {
	query := `
		SELECT id, name, party, age, logo_ref, created_at, updated_at
		FROM candidates
		ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	candidates := []*domain.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}
	return candidates, nil
}

func (r *candidateRepository) Update(ctx context.Context, c *domain.Candidate) error {
	query := `
		UPDATE candidates
		SET name = $2, party = $3, age = $4, logo_ref = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Party, nullableAge(c.Age), c.LogoRef, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update candidate: %w", err)
	}
	return expectOneRow(res, domain.ErrCandidateNotFound)
}

func (r *candidateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete candidate: %w", err)
	}
	return expectOneRow(res, domain.ErrCandidateNotFound)
}

func scanCandidate(row rowScanner) (*domain.Candidate, error) {
	var (
		c   domain.Candidate
		age sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Party, &age, &c.LogoRef, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if age.Valid {
		v := int(age.Int64)
		c.Age = &v
	}
	return &c, nil
}

func nullableAge(age *int) sql.NullInt64 {
	if age == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*age), Valid: true}
}

func expectOneRow(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
