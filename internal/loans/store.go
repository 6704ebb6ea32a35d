package loans

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/libris/libris/internal/borrowers"
	"github.com/libris/libris/internal/catalog"
	"github.com/libris/libris/internal/penalties"
)

// LoanRepository persists loans.
type LoanRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Loan, error)
	Add(ctx context.Context, loan *Loan) error
	Update(ctx context.Context, loan *Loan) error
	ExistsActiveOrPending(ctx context.Context, bookID, borrowerID uuid.UUID) (bool, error)
	FindOverdue(ctx context.Context, ref time.Time) ([]*Loan, error)
	ListByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]*Loan, error)
	ListActiveByBook(ctx context.Context, bookID uuid.UUID) ([]*Loan, error)
}

// BookRepository is the slice of the catalog the lifecycle needs.
type BookRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*catalog.Book, error)
	Update(ctx context.Context, book *catalog.Book) error
}

// BorrowerRepository is the slice of the borrower store the lifecycle needs.
type BorrowerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*borrowers.Borrower, error)
	Update(ctx context.Context, borrower *borrowers.Borrower) error
}

// PenaltyRepository records generated penalties.
type PenaltyRepository interface {
	Add(ctx context.Context, p *penalties.Penalty) error
}

// UnitOfWork groups the repositories whose writes commit or roll back together.
type UnitOfWork interface {
	Loans() LoanRepository
	Books() BookRepository
	Borrowers() BorrowerRepository
	Penalties() PenaltyRepository
}

// Store opens units of work and serves reads outside of one.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, UnitOfWork) error) error
	Loans() LoanRepository
}
