// Package penalties holds borrower penalties and their validity windows.
package penalties

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/libris/libris/internal/shared"
)

// Penalty is a fee or suspension recorded against a borrower. Active turns false
// once the window has passed or the penalty was closed; a penalty starting in the
// future stays active but is not in force yet.
type Penalty struct {
	ID           uuid.UUID       `json:"id"`
	BorrowerID   uuid.UUID       `json:"borrower_id"`
	LoanID       *uuid.UUID      `json:"loan_id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	StartsAt     time.Time       `json:"starts_at"`
	EndsAt       time.Time       `json:"ends_at"`
	Reason       string          `json:"reason"`
	Active       bool            `json:"active"`
	ClosedReason *string         `json:"closed_reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// New builds an active penalty valid over [startsAt, endsAt].
func New(borrowerID uuid.UUID, loanID *uuid.UUID, amount decimal.Decimal, startsAt, endsAt time.Time, reason string, now time.Time) (*Penalty, error) {
	if borrowerID == uuid.Nil {
		return nil, fmt.Errorf("%w: borrower is required", shared.ErrInvalidArgument)
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if endsAt.Before(startsAt) {
		return nil, fmt.Errorf("%w: penalty ends before it starts", shared.ErrInvalidPeriod)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	p := &Penalty{
		ID:         uuid.New(),
		BorrowerID: borrowerID,
		LoanID:     loanID,
		Amount:     amount,
		StartsAt:   startsAt,
		EndsAt:     endsAt,
		Reason:     reason,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	p.Refresh(now)
	return p, nil
}

// InForce reports whether the penalty applies at now.
func (p *Penalty) InForce(now time.Time) bool {
	return p.Active && !now.Before(p.StartsAt) && !now.After(p.EndsAt)
}

// Refresh re-evaluates the active flag against now and reports whether it flipped.
func (p *Penalty) Refresh(now time.Time) bool {
	if p.Active && now.After(p.EndsAt) {
		p.Active = false
		p.UpdatedAt = now
		return true
	}
	return false
}

// CloseEarly ends an active penalty before its window expires.
func (p *Penalty) CloseEarly(reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}
	p.Refresh(now)
	if !p.Active {
		return ErrAlreadyClosed
	}
	p.Active = false
	p.EndsAt = now
	if p.EndsAt.Before(p.StartsAt) {
		p.EndsAt = p.StartsAt
	}
	p.ClosedReason = &reason
	p.UpdatedAt = now
	return nil
}
