package loans

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/libris/libris/internal/catalog"
	"github.com/libris/libris/internal/shared"
)

// ServiceConfig groups lifecycle settings.
type ServiceConfig struct {
	Reservation ReservationPolicy
	Penalty     PenaltyPolicy
}

// Service is the loan lifecycle manager. Every operation runs in one unit of
// work: all in-memory transitions happen first, then the mutated aggregates are
// persisted, book first. It never retries.
type Service struct {
	store       Store
	reservation ReservationPolicy
	penalty     PenaltyPolicy
	now         func() time.Time
}

// NewService builds Service.
func NewService(store Store, cfg ServiceConfig) *Service {
	return &Service{
		store:       store,
		reservation: cfg.Reservation,
		penalty:     cfg.Penalty,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ReservationPolicy returns the configured reservation policy.
func (s *Service) ReservationPolicy() ReservationPolicy {
	return s.reservation
}

// RequestLoan creates a pending loan for an available book.
func (s *Service) RequestLoan(ctx context.Context, input RequestInput) (*Loan, error) {
	period, err := NewPeriod(input.Start, input.Due)
	if err != nil {
		return nil, err
	}
	var loan *Loan
	err = s.store.WithTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		now := s.now()
		book, err := uow.Books().GetByID(ctx, input.BookID)
		if err != nil {
			return err
		}
		borrower, err := uow.Borrowers().GetByID(ctx, input.BorrowerID)
		if err != nil {
			return err
		}
		if !borrower.Active {
			return fmt.Errorf("%w %s", ErrBorrowerInactive, borrower.ID)
		}
		exists, err := uow.Loans().ExistsActiveOrPending(ctx, book.ID, borrower.ID)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateLoan
		}
		if book.AvailableCopies == 0 || !book.Status.CanLend() {
			return fmt.Errorf("%w: book %s", ErrNoCopies, book.ID)
		}
		loan, err = NewLoan(book.ID, borrower.ID, period, now)
		if err != nil {
			return err
		}
		if s.reservation != ReserveOnRequest {
			return uow.Loans().Add(ctx, loan)
		}

		if err := book.CheckOut(now); err != nil {
			return err
		}
		borrower.RegisterLoan(loan.ID(), now)
		if err := uow.Books().Update(ctx, book); err != nil {
			return err
		}
		if err := uow.Loans().Add(ctx, loan); err != nil {
			return err
		}
		return uow.Borrowers().Update(ctx, borrower)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// ActivateLoan hands the copy to the borrower.
func (s *Service) ActivateLoan(ctx context.Context, id uuid.UUID) (*Loan, error) {
	var loan *Loan
	err := s.store.WithTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		now := s.now()
		var err error
		loan, err = uow.Loans().GetByID(ctx, id)
		if err != nil {
			return err
		}
		book, err := uow.Books().GetByID(ctx, loan.BookID())
		if err != nil {
			return err
		}
		borrower, err := uow.Borrowers().GetByID(ctx, loan.BorrowerID())
		if err != nil {
			return err
		}
		if err := loan.Activate(now); err != nil {
			return err
		}
		bookChanged := false
		if s.reservation == ReserveOnActivation {
			if err := book.CheckOut(now); err != nil {
				return fmt.Errorf("%w: %w", shared.ErrInvalidState, err)
			}
			bookChanged = true
		}
		borrowerChanged := !borrower.HasLoan(loan.ID())
		borrower.RegisterLoan(loan.ID(), now)

		if bookChanged {
			if err := uow.Books().Update(ctx, book); err != nil {
				return err
			}
		}
		if err := uow.Loans().Update(ctx, loan); err != nil {
			return err
		}
		if borrowerChanged {
			return uow.Borrowers().Update(ctx, borrower)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// RegisterReturn closes an active loan, puts the copy back and charges a
// penalty when the return is late.
func (s *Service) RegisterReturn(ctx context.Context, id uuid.UUID, input ReturnInput) (*Loan, error) {
	var loan *Loan
	err := s.store.WithTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		now := s.now()
		var err error
		loan, err = uow.Loans().GetByID(ctx, id)
		if err != nil {
			return err
		}
		book, err := uow.Books().GetByID(ctx, loan.BookID())
		if err != nil {
			return err
		}
		if err := loan.MarkReturned(input.ReturnedAt, input.Notes, now); err != nil {
			return err
		}
		if err := book.CheckIn(now); err != nil {
			return err
		}
		penalty, err := s.penalty.Generate(loan.Period().Due(), input.ReturnedAt, loan.BorrowerID(), loan.ID(), now)
		if err != nil {
			return fmt.Errorf("loans: generate penalty: %w", err)
		}

		if err := uow.Books().Update(ctx, book); err != nil {
			return err
		}
		if err := uow.Loans().Update(ctx, loan); err != nil {
			return err
		}
		if penalty != nil {
			return uow.Penalties().Add(ctx, penalty)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// CancelLoan cancels a pending or active loan, releasing its copy if it held one.
func (s *Service) CancelLoan(ctx context.Context, id uuid.UUID, reason string) (*Loan, error) {
	var loan *Loan
	err := s.store.WithTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		now := s.now()
		var err error
		loan, err = uow.Loans().GetByID(ctx, id)
		if err != nil {
			return err
		}
		heldCopy := loan.HoldsCopy(s.reservation)
		if err := loan.Cancel(reason, now); err != nil {
			return err
		}
		var book *catalog.Book
		if heldCopy {
			book, err = uow.Books().GetByID(ctx, loan.BookID())
			if err != nil {
				return err
			}
			if err := book.CheckIn(now); err != nil {
				return err
			}
		}

		if book != nil {
			if err := uow.Books().Update(ctx, book); err != nil {
				return err
			}
		}
		return uow.Loans().Update(ctx, loan)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// ExtendLoan pushes the due date forward.
func (s *Service) ExtendLoan(ctx context.Context, id uuid.UUID, days int) (*Loan, error) {
	var loan *Loan
	err := s.store.WithTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		var err error
		loan, err = uow.Loans().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := loan.Extend(days, s.now()); err != nil {
			return err
		}
		return uow.Loans().Update(ctx, loan)
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// Get returns one loan.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Loan, error) {
	return s.store.Loans().GetByID(ctx, id)
}

// ListByBorrower returns the borrower's loans, newest first.
func (s *Service) ListByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]*Loan, error) {
	return s.store.Loans().ListByBorrower(ctx, borrowerID)
}

// ListActiveByBook returns the active loans of a book.
func (s *Service) ListActiveByBook(ctx context.Context, bookID uuid.UUID) ([]*Loan, error) {
	return s.store.Loans().ListActiveByBook(ctx, bookID)
}

// ListOverdue returns active loans past due at ref. A zero ref means now.
func (s *Service) ListOverdue(ctx context.Context, ref time.Time) ([]*Loan, error) {
	if ref.IsZero() {
		ref = s.now()
	}
	return s.store.Loans().FindOverdue(ctx, ref)
}
