package loans

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/libris/libris/internal/penalties"
	"github.com/libris/libris/internal/shared"
)

const day = 24 * time.Hour

// OverdueReason is recorded on penalties created for late returns.
const OverdueReason = "overdue return"

// PenaltyPolicy computes late-return fees: DailyRate for every started day past
// the due date, valid for Duration from the moment of return registration.
type PenaltyPolicy struct {
	DailyRate decimal.Decimal
	Duration  time.Duration
}

// DefaultPenaltyPolicy charges 1.00 per late day for thirty days.
func DefaultPenaltyPolicy() PenaltyPolicy {
	return PenaltyPolicy{DailyRate: decimal.NewFromInt(1), Duration: 30 * day}
}

// NewPenaltyPolicy validates a configured policy.
func NewPenaltyPolicy(rate decimal.Decimal, duration time.Duration) (PenaltyPolicy, error) {
	if !rate.IsPositive() {
		return PenaltyPolicy{}, fmt.Errorf("%w: penalty daily rate must be positive", shared.ErrInvalidArgument)
	}
	if duration <= 0 {
		return PenaltyPolicy{}, fmt.Errorf("%w: penalty duration must be positive", shared.ErrInvalidArgument)
	}
	return PenaltyPolicy{DailyRate: rate, Duration: duration}, nil
}

// LateDays counts started days between due and returnedAt. Returns at or before
// due count zero.
func LateDays(due, returnedAt time.Time) int {
	late := returnedAt.Sub(due)
	if late <= 0 {
		return 0
	}
	days := late / day
	if late%day != 0 {
		days++
	}
	return int(days)
}

// Amount is the fee for the given number of late days.
func (p PenaltyPolicy) Amount(lateDays int) decimal.Decimal {
	if lateDays <= 0 {
		return decimal.Zero
	}
	return p.DailyRate.Mul(decimal.NewFromInt(int64(lateDays)))
}

// Generate returns the penalty owed for a return, or nil when the loan came back
// on time. It has no side effects.
func (p PenaltyPolicy) Generate(due, returnedAt time.Time, borrowerID, loanID uuid.UUID, now time.Time) (*penalties.Penalty, error) {
	days := LateDays(due, returnedAt)
	if days == 0 {
		return nil, nil
	}
	ref := loanID
	return penalties.New(borrowerID, &ref, p.Amount(days), now, now.Add(p.Duration), OverdueReason, now)
}
