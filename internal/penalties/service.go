package penalties

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/libris/libris/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CountActive(ctx context.Context, now time.Time) (int, error)
}

// Service coordinates penalty operations.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Create records an administrative penalty.
func (s *Service) Create(ctx context.Context, input CreatePenaltyInput) (*Penalty, error) {
	p, err := New(input.BorrowerID, input.LoanID, input.Amount, input.StartsAt, input.EndsAt, input.Reason, s.now())
	if err != nil {
		return nil, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.BorrowerExists(ctx, input.BorrowerID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: borrower %s", shared.ErrNotFound, input.BorrowerID)
		}
		if input.LoanID != nil {
			ok, err := tx.LoanExists(ctx, *input.LoanID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: loan %s", shared.ErrNotFound, *input.LoanID)
			}
		}
		return tx.Add(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListActiveByBorrower returns the penalties in force. Penalties whose window has
// passed are flipped to inactive and persisted on the way; penalties that have not
// started yet are left out.
func (s *Service) ListActiveByBorrower(ctx context.Context, borrowerID uuid.UUID) ([]Penalty, error) {
	now := s.now()
	active := []Penalty{}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		list, err := tx.ListActiveByBorrower(ctx, borrowerID)
		if err != nil {
			return err
		}
		for i := range list {
			p := &list[i]
			if p.Refresh(now) {
				if err := tx.Update(ctx, p); err != nil {
					return err
				}
				continue
			}
			if p.InForce(now) {
				active = append(active, *p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return active, nil
}

// CloseEarly ends a penalty before its window expires.
func (s *Service) CloseEarly(ctx context.Context, id uuid.UUID, input CloseInput) (*Penalty, error) {
	var p *Penalty
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		p, err = tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := p.CloseEarly(input.Reason, s.now()); err != nil {
			return err
		}
		return tx.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CountActive counts penalties currently in force.
func (s *Service) CountActive(ctx context.Context) (int, error) {
	return s.repo.CountActive(ctx, s.now())
}
