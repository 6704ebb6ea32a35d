// Package loans implements the loan lifecycle: requesting, activating, returning,
// cancelling and extending loans together with their effects on books, borrowers
// and penalties.
package loans

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/libris/libris/internal/shared"
)

// Status represents the lifecycle position of a loan.
type Status string

const (
	StatusPending   Status = "PENDING"   // Requested, no copy handed out yet
	StatusActive    Status = "ACTIVE"    // Copy is with the borrower
	StatusReturned  Status = "RETURNED"  // Terminal
	StatusCancelled Status = "CANCELLED" // Terminal
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusReturned, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanActivate checks if a loan in this status can be activated.
func (s Status) CanActivate() bool {
	return s == StatusPending
}

// CanReturn checks if a loan in this status can be returned.
func (s Status) CanReturn() bool {
	return s == StatusActive
}

// CanCancel checks if a loan in this status can be cancelled.
func (s Status) CanCancel() bool {
	return s == StatusPending || s == StatusActive
}

// CanExtend checks if a loan in this status can be extended.
func (s Status) CanExtend() bool {
	return s == StatusPending || s == StatusActive
}

// IsTerminal reports whether no transition leaves this status.
func (s Status) IsTerminal() bool {
	return s == StatusReturned || s == StatusCancelled
}

// Period is the commitment window of a loan. Start is always before Due.
type Period struct {
	start time.Time
	due   time.Time
}

// NewPeriod validates and builds a period.
func NewPeriod(start, due time.Time) (Period, error) {
	if start.IsZero() || due.IsZero() || !start.Before(due) {
		return Period{}, fmt.Errorf("%w: start %s, due %s", shared.ErrInvalidPeriod, start.Format(time.RFC3339), due.Format(time.RFC3339))
	}
	return Period{start: start, due: due}, nil
}

// Start returns the beginning of the period.
func (p Period) Start() time.Time { return p.start }

// Due returns the due timestamp.
func (p Period) Due() time.Time { return p.due }

// Loan is one borrowing transaction. Its status only changes through the
// transition methods.
type Loan struct {
	id           uuid.UUID
	bookID       uuid.UUID
	borrowerID   uuid.UUID
	period       Period
	status       Status
	returnedAt   *time.Time
	notes        *string
	cancelReason *string
	createdAt    time.Time
	updatedAt    time.Time
	version      int64
}

// NewLoan creates a pending loan.
func NewLoan(bookID, borrowerID uuid.UUID, period Period, now time.Time) (*Loan, error) {
	if bookID == uuid.Nil || borrowerID == uuid.Nil {
		return nil, fmt.Errorf("%w: book and borrower are required", shared.ErrInvalidArgument)
	}
	if _, err := NewPeriod(period.start, period.due); err != nil {
		return nil, err
	}
	return &Loan{
		id:         uuid.New(),
		bookID:     bookID,
		borrowerID: borrowerID,
		period:     period,
		status:     StatusPending,
		createdAt:  now,
		updatedAt:  now,
		version:    1,
	}, nil
}

func (l *Loan) ID() uuid.UUID          { return l.id }
func (l *Loan) BookID() uuid.UUID      { return l.bookID }
func (l *Loan) BorrowerID() uuid.UUID  { return l.borrowerID }
func (l *Loan) Period() Period         { return l.period }
func (l *Loan) Status() Status         { return l.status }
func (l *Loan) ReturnedAt() *time.Time { return l.returnedAt }
func (l *Loan) Notes() *string         { return l.notes }
func (l *Loan) CancelReason() *string  { return l.cancelReason }
func (l *Loan) CreatedAt() time.Time   { return l.createdAt }
func (l *Loan) UpdatedAt() time.Time   { return l.updatedAt }
func (l *Loan) Version() int64         { return l.version }

// IsOverdue reports whether the loan is out past its due date at ref.
func (l *Loan) IsOverdue(ref time.Time) bool {
	return l.status == StatusActive && ref.After(l.period.due)
}

// HoldsCopy reports whether the loan currently accounts for one unavailable copy.
func (l *Loan) HoldsCopy(policy ReservationPolicy) bool {
	switch l.status {
	case StatusActive:
		return true
	case StatusPending:
		return policy == ReserveOnRequest
	default:
		return false
	}
}

// Activate moves a pending loan to active.
func (l *Loan) Activate(now time.Time) error {
	if !l.status.CanActivate() {
		return l.transitionError("activate")
	}
	l.status = StatusActive
	l.updatedAt = now
	return nil
}

// MarkReturned closes an active loan at the given return timestamp.
func (l *Loan) MarkReturned(at time.Time, notes string, now time.Time) error {
	if !l.status.CanReturn() {
		return l.transitionError("return")
	}
	if at.IsZero() || at.Before(l.period.start) {
		return fmt.Errorf("%w: return at %s precedes loan start %s", shared.ErrInvalidTimestamp, at.Format(time.RFC3339), l.period.start.Format(time.RFC3339))
	}
	returned := at
	l.returnedAt = &returned
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		l.notes = &trimmed
	}
	l.status = StatusReturned
	l.updatedAt = now
	return nil
}

// Cancel ends a pending or active loan.
func (l *Loan) Cancel(reason string, now time.Time) error {
	if !l.status.CanCancel() {
		return l.transitionError("cancel")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrCancelReasonRequired
	}
	l.cancelReason = &reason
	l.status = StatusCancelled
	l.updatedAt = now
	return nil
}

// MaxExtensionDays bounds a single extension.
const MaxExtensionDays = 365

// Extend pushes the due date forward by days, at most MaxExtensionDays.
func (l *Loan) Extend(days int, now time.Time) error {
	if !l.status.CanExtend() {
		return l.transitionError("extend")
	}
	if days <= 0 || days > MaxExtensionDays {
		return ErrInvalidExtension
	}
	l.period.due = l.period.due.Add(time.Duration(days) * 24 * time.Hour)
	l.updatedAt = now
	return nil
}

func (l *Loan) transitionError(op string) error {
	return fmt.Errorf("%w: cannot %s loan %s in status %s", shared.ErrInvalidState, op, l.id, l.status)
}

// Snapshot is the persisted form of a loan.
type Snapshot struct {
	ID           uuid.UUID
	BookID       uuid.UUID
	BorrowerID   uuid.UUID
	Start        time.Time
	Due          time.Time
	Status       Status
	ReturnedAt   *time.Time
	Notes        *string
	CancelReason *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int64
}

// Snapshot exports the loan state for persistence.
func (l *Loan) Snapshot() Snapshot {
	return Snapshot{
		ID:           l.id,
		BookID:       l.bookID,
		BorrowerID:   l.borrowerID,
		Start:        l.period.start,
		Due:          l.period.due,
		Status:       l.status,
		ReturnedAt:   l.returnedAt,
		Notes:        l.notes,
		CancelReason: l.cancelReason,
		CreatedAt:    l.createdAt,
		UpdatedAt:    l.updatedAt,
		Version:      l.version,
	}
}

// Restore rebuilds a loan read from storage. Inconsistent rows are reported as
// invariant violations.
func Restore(s Snapshot) (*Loan, error) {
	if !s.Status.IsValid() {
		return nil, fmt.Errorf("%w: loan %s has unknown status %q", shared.ErrInvariantViolation, s.ID, s.Status)
	}
	if !s.Start.Before(s.Due) {
		return nil, fmt.Errorf("%w: loan %s has an empty period", shared.ErrInvariantViolation, s.ID)
	}
	if (s.Status == StatusReturned) != (s.ReturnedAt != nil) {
		return nil, fmt.Errorf("%w: loan %s return timestamp does not match status %s", shared.ErrInvariantViolation, s.ID, s.Status)
	}
	return &Loan{
		id:           s.ID,
		bookID:       s.BookID,
		borrowerID:   s.BorrowerID,
		period:       Period{start: s.Start, due: s.Due},
		status:       s.Status,
		returnedAt:   s.ReturnedAt,
		notes:        s.Notes,
		cancelReason: s.CancelReason,
		createdAt:    s.CreatedAt,
		updatedAt:    s.UpdatedAt,
		version:      s.Version,
	}, nil
}
