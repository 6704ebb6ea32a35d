package penalties

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/libris/libris/internal/platform/db"
)

const penaltyColumns = `id, borrower_id, loan_id, amount::text, starts_at, ends_at, reason, active, closed_reason, created_at, updated_at`

// TxRepository exposes operations usable inside a unit of work.
type TxRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Penalty, error)
	ListActiveByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]Penalty, error)
	BorrowerExists(ctx context.Context, id uuid.UUID) (bool, error)
	LoanExists(ctx context.Context, id uuid.UUID) (bool, error)
	Add(ctx context.Context, p *Penalty) error
	Update(ctx context.Context, p *Penalty) error
}

// Repository persists penalties in PostgreSQL.
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

// CountActive counts penalties in force at now.
func (r *Repository) CountActive(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM penalties WHERE active AND starts_at <= $1 AND ends_at >= $1`, now).Scan(&n)
	return n, err
}

// Queries runs penalty statements against a pool or a transaction.
type Queries struct {
	db db.DBTX
}

// NewQueries binds penalty statements to conn.
func NewQueries(conn db.DBTX) *Queries {
	return &Queries{db: conn}
}

// GetByID loads one penalty.
func (q *Queries) GetByID(ctx context.Context, id uuid.UUID) (*Penalty, error) {
	p, err := scanPenalty(q.db.QueryRow(ctx, `SELECT `+penaltyColumns+` FROM penalties WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w %s", ErrPenaltyNotFound, id)
		}
		return nil, err
	}
	return p, nil
}

// ListActiveByBorrower returns penalties still flagged active, oldest first.
func (q *Queries) ListActiveByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]Penalty, error) {
	rows, err := q.db.Query(ctx, `SELECT `+penaltyColumns+` FROM penalties WHERE borrower_id = $1 AND active ORDER BY starts_at`, borrowerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Penalty
	for rows.Next() {
		p, err := scanPenalty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// BorrowerExists reports whether the borrower exists.
func (q *Queries) BorrowerExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM borrowers WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

// LoanExists reports whether the loan exists.
func (q *Queries) LoanExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := q.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM loans WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

// Add inserts a penalty.
func (q *Queries) Add(ctx context.Context, p *Penalty) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO penalties (id, borrower_id, loan_id, amount, starts_at, ends_at, reason, active, closed_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.BorrowerID, p.LoanID, p.Amount.StringFixed(2), p.StartsAt, p.EndsAt, p.Reason, p.Active, p.ClosedReason, p.CreatedAt, p.UpdatedAt)
	return db.MapError(err)
}

// Update writes the mutable fields of a penalty.
func (q *Queries) Update(ctx context.Context, p *Penalty) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE penalties SET ends_at = $2, active = $3, closed_reason = $4, updated_at = $5
		WHERE id = $1`,
		p.ID, p.EndsAt, p.Active, p.ClosedReason, p.UpdatedAt)
	if err := db.ExpectOne(tag, err); err != nil {
		return fmt.Errorf("penalties: update %s: %w", p.ID, err)
	}
	return nil
}

func scanPenalty(row pgx.Row) (*Penalty, error) {
	var (
		p      Penalty
		amount string
	)
	err := row.Scan(&p.ID, &p.BorrowerID, &p.LoanID, &amount, &p.StartsAt, &p.EndsAt, &p.Reason, &p.Active, &p.ClosedReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("penalties: parse amount %q: %w", amount, err)
	}
	return &p, nil
}

var _ TxRepository = (*Queries)(nil)
