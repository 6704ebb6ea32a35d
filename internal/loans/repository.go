package loans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/libris/libris/internal/borrowers"
	"github.com/libris/libris/internal/catalog"
	"github.com/libris/libris/internal/penalties"
	"github.com/libris/libris/internal/platform/db"
)

var loanColumns = []any{"id", "book_id", "borrower_id", "starts_at", "due_at", "status", "returned_at", "notes", "cancel_reason", "created_at", "updated_at", "version"}

// Repository is the PostgreSQL Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a repeatable-read transaction spanning loans, books,
// borrowers and penalties.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, UnitOfWork) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgUnit{tx: tx})
	})
}

// Loans serves reads outside of a transaction.
func (r *Repository) Loans() LoanRepository {
	return NewQueries(r.pool)
}

// CountByStatus groups loans by status.
func (r *Repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM loans GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status Status
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CountOverdue counts active loans past due at ref.
func (r *Repository) CountOverdue(ctx context.Context, ref time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM loans WHERE status = 'ACTIVE' AND due_at < $1`, ref).Scan(&n)
	return n, err
}

type pgUnit struct {
	tx pgx.Tx
}

func (u *pgUnit) Loans() LoanRepository         { return NewQueries(u.tx) }
func (u *pgUnit) Books() BookRepository         { return catalog.NewQueries(u.tx) }
func (u *pgUnit) Borrowers() BorrowerRepository { return borrowers.NewQueries(u.tx) }
func (u *pgUnit) Penalties() PenaltyRepository  { return penalties.NewQueries(u.tx) }

// Queries runs loan statements against a pool or a transaction.
type Queries struct {
	db db.DBTX
}

// NewQueries binds loan statements to conn.
func NewQueries(conn db.DBTX) *Queries {
	return &Queries{db: conn}
}

func selectLoans() *goqu.SelectDataset {
	return goqu.Dialect("postgres").From("loans").Select(loanColumns...).Prepared(true)
}

// GetByID loads one loan.
func (q *Queries) GetByID(ctx context.Context, id uuid.UUID) (*Loan, error) {
	query, args, err := selectLoans().Where(goqu.C("id").Eq(id.String())).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("loans: build get: %w", err)
	}
	loan, err := scanLoan(q.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w %s", ErrLoanNotFound, id)
		}
		return nil, err
	}
	return loan, nil
}

// Add inserts a new loan.
func (q *Queries) Add(ctx context.Context, loan *Loan) error {
	s := loan.Snapshot()
	_, err := q.db.Exec(ctx, `
		INSERT INTO loans (id, book_id, borrower_id, starts_at, due_at, status, returned_at, notes, cancel_reason, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.BookID, s.BorrowerID, s.Start, s.Due, s.Status, s.ReturnedAt, s.Notes, s.CancelReason, s.CreatedAt, s.UpdatedAt, s.Version)
	if err := db.MapError(err); err != nil {
		return fmt.Errorf("loans: add %s: %w", s.ID, err)
	}
	return nil
}

// Update writes the loan if nobody changed it since it was read.
func (q *Queries) Update(ctx context.Context, loan *Loan) error {
	s := loan.Snapshot()
	tag, err := q.db.Exec(ctx, `
		UPDATE loans SET due_at = $3, status = $4, returned_at = $5, notes = $6, cancel_reason = $7,
			updated_at = $8, version = version + 1
		WHERE id = $1 AND version = $2`,
		s.ID, s.Version, s.Due, s.Status, s.ReturnedAt, s.Notes, s.CancelReason, s.UpdatedAt)
	if err := db.ExpectOne(tag, err); err != nil {
		return fmt.Errorf("loans: update %s: %w", s.ID, err)
	}
	loan.version++
	return nil
}

// ExistsActiveOrPending reports whether the borrower already has an open loan for the book.
func (q *Queries) ExistsActiveOrPending(ctx context.Context, bookID, borrowerID uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM loans WHERE book_id = $1 AND borrower_id = $2 AND status IN ('PENDING', 'ACTIVE')
		)`, bookID, borrowerID).Scan(&exists)
	return exists, err
}

// FindOverdue lists active loans whose due date passed before ref.
func (q *Queries) FindOverdue(ctx context.Context, ref time.Time) ([]*Loan, error) {
	ds := selectLoans().
		Where(goqu.C("status").Eq(string(StatusActive)), goqu.C("due_at").Lt(ref)).
		Order(goqu.C("due_at").Asc())
	return q.list(ctx, ds)
}

// ListByBorrower lists every loan of a borrower, newest first.
func (q *Queries) ListByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]*Loan, error) {
	ds := selectLoans().
		Where(goqu.C("borrower_id").Eq(borrowerID.String())).
		Order(goqu.C("created_at").Desc())
	return q.list(ctx, ds)
}

// ListActiveByBook lists the active loans of a book.
func (q *Queries) ListActiveByBook(ctx context.Context, bookID uuid.UUID) ([]*Loan, error) {
	ds := selectLoans().
		Where(goqu.C("book_id").Eq(bookID.String()), goqu.C("status").Eq(string(StatusActive))).
		Order(goqu.C("due_at").Asc())
	return q.list(ctx, ds)
}

func (q *Queries) list(ctx context.Context, ds *goqu.SelectDataset) ([]*Loan, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("loans: build list: %w", err)
	}
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loan)
	}
	return out, rows.Err()
}

func scanLoan(row pgx.Row) (*Loan, error) {
	var s Snapshot
	err := row.Scan(&s.ID, &s.BookID, &s.BorrowerID, &s.Start, &s.Due, &s.Status, &s.ReturnedAt, &s.Notes, &s.CancelReason, &s.CreatedAt, &s.UpdatedAt, &s.Version)
	if err != nil {
		return nil, err
	}
	return Restore(s)
}

var (
	_ Store          = (*Repository)(nil)
	_ LoanRepository = (*Queries)(nil)
)
