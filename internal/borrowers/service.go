package borrowers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetByID(ctx context.Context, id uuid.UUID) (*Borrower, error)
	CountActive(ctx context.Context) (total, active int, err error)
}

// Service coordinates borrower operations.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Create registers a borrower.
func (s *Service) Create(ctx context.Context, input CreateBorrowerInput) (*Borrower, error) {
	borrower, err := NewBorrower(input, s.now())
	if err != nil {
		return nil, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := ensureUniqueEmail(ctx, tx, borrower); err != nil {
			return err
		}
		return tx.Add(ctx, borrower)
	})
	if err != nil {
		return nil, err
	}
	return borrower, nil
}

// Get returns one borrower.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Borrower, error) {
	return s.repo.GetByID(ctx, id)
}

// Update changes the profile.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateBorrowerInput) (*Borrower, error) {
	return s.mutate(ctx, id, func(ctx context.Context, tx TxRepository, b *Borrower) error {
		if err := b.Update(input, s.now()); err != nil {
			return err
		}
		return ensureUniqueEmail(ctx, tx, b)
	})
}

// Deactivate blocks new loans for the borrower.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*Borrower, error) {
	return s.mutate(ctx, id, func(_ context.Context, _ TxRepository, b *Borrower) error {
		return b.Deactivate(s.now())
	})
}

// Reactivate lifts a deactivation.
func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) (*Borrower, error) {
	return s.mutate(ctx, id, func(_ context.Context, _ TxRepository, b *Borrower) error {
		return b.Reactivate(s.now())
	})
}

// AssignRole grants a role.
func (s *Service) AssignRole(ctx context.Context, id uuid.UUID, role string) (*Borrower, error) {
	return s.mutate(ctx, id, func(_ context.Context, _ TxRepository, b *Borrower) error {
		return b.AssignRole(role, s.now())
	})
}

// RevokeRole removes a role.
func (s *Service) RevokeRole(ctx context.Context, id uuid.UUID, role string) (*Borrower, error) {
	return s.mutate(ctx, id, func(_ context.Context, _ TxRepository, b *Borrower) error {
		return b.RevokeRole(role, s.now())
	})
}

// CountActive returns totals for reports.
func (s *Service) CountActive(ctx context.Context) (int, int, error) {
	return s.repo.CountActive(ctx)
}

func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(context.Context, TxRepository, *Borrower) error) (*Borrower, error) {
	var borrower *Borrower
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		borrower, err = tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, tx, borrower); err != nil {
			return err
		}
		return tx.Update(ctx, borrower)
	})
	if err != nil {
		return nil, err
	}
	return borrower, nil
}

func ensureUniqueEmail(ctx context.Context, tx TxRepository, b *Borrower) error {
	exists, err := tx.ExistsEmail(ctx, b.Email, b.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, b.Email)
	}
	return nil
}
