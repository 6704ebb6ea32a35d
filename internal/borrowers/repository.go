package borrowers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/libris/libris/internal/platform/db"
)

const borrowerColumns = `id, name, email, kind, active, roles, loan_ids, version, created_at, updated_at`

// TxRepository exposes operations usable inside a unit of work.
type TxRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Borrower, error)
	ExistsEmail(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
	Add(ctx context.Context, borrower *Borrower) error
	Update(ctx context.Context, borrower *Borrower) error
}

// Repository persists borrowers in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewQueries(tx))
	})
}

// GetByID loads a borrower outside of a transaction.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Borrower, error) {
	return NewQueries(r.pool).GetByID(ctx, id)
}

// CountActive returns the number of borrowers and how many are active.
func (r *Repository) CountActive(ctx context.Context) (total, active int, err error) {
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*), COUNT(*) FILTER (WHERE active) FROM borrowers`).Scan(&total, &active)
	return total, active, err
}

// Queries runs borrower statements against a pool or a transaction.
type Queries struct {
	db db.DBTX
}

// NewQueries binds borrower statements to conn.
func NewQueries(conn db.DBTX) *Queries {
	return &Queries{db: conn}
}

// GetByID loads one borrower.
func (q *Queries) GetByID(ctx context.Context, id uuid.UUID) (*Borrower, error) {
	var b Borrower
	err := q.db.QueryRow(ctx, `SELECT `+borrowerColumns+` FROM borrowers WHERE id = $1`, id).
		Scan(&b.ID, &b.Name, &b.Email, &b.Kind, &b.Active, &b.Roles, &b.LoanIDs, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w %s", ErrBorrowerNotFound, id)
		}
		return nil, err
	}
	return &b, nil
}

// ExistsEmail reports whether another borrower already uses email.
func (q *Queries) ExistsEmail(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM borrowers WHERE lower(email) = lower($1) AND id <> $2)`, email, exclude).Scan(&exists)
	return exists, err
}

// Add inserts a new borrower.
func (q *Queries) Add(ctx context.Context, b *Borrower) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO borrowers (id, name, email, kind, active, roles, loan_ids, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		b.ID, b.Name, b.Email, b.Kind, b.Active, b.Roles, b.LoanIDs, b.Version, b.CreatedAt, b.UpdatedAt)
	return db.MapError(err)
}

// Update writes the borrower if nobody changed it since it was read.
func (q *Queries) Update(ctx context.Context, b *Borrower) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE borrowers SET name = $3, email = $4, kind = $5, active = $6, roles = $7, loan_ids = $8,
			updated_at = $9, version = version + 1
		WHERE id = $1 AND version = $2`,
		b.ID, b.Version, b.Name, b.Email, b.Kind, b.Active, b.Roles, b.LoanIDs, b.UpdatedAt)
	if err := db.ExpectOne(tag, err); err != nil {
		return fmt.Errorf("borrowers: update %s: %w", b.ID, err)
	}
	b.Version++
	return nil
}

var _ TxRepository = (*Queries)(nil)
