package loans

import (
	"time"

	"github.com/google/uuid"
)

// RequestInput asks for a new loan.
type RequestInput struct {
	BookID     uuid.UUID `json:"book_id" validate:"required"`
	BorrowerID uuid.UUID `json:"borrower_id" validate:"required"`
	Start      time.Time `json:"start" validate:"required"`
	Due        time.Time `json:"due" validate:"required"`
}

// ReturnInput registers a return.
type ReturnInput struct {
	ReturnedAt time.Time `json:"returned_at"`
	Notes      string    `json:"notes" validate:"max=1000"`
}

// CancelInput cancels a loan.
type CancelInput struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ExtendInput extends a loan.
type ExtendInput struct {
	Days int `json:"days" validate:"gt=0,lte=365"`
}

// View is the JSON representation of a loan.
type View struct {
	ID           uuid.UUID  `json:"id"`
	BookID       uuid.UUID  `json:"book_id"`
	BorrowerID   uuid.UUID  `json:"borrower_id"`
	Start        time.Time  `json:"start"`
	Due          time.Time  `json:"due"`
	Status       Status     `json:"status"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	CancelReason *string    `json:"cancel_reason,omitempty"`
	Overdue      bool       `json:"overdue"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Version      int64      `json:"version"`
}

// NewView maps a loan for responses.
func NewView(l *Loan, ref time.Time) View {
	s := l.Snapshot()
	return View{
		ID:           s.ID,
		BookID:       s.BookID,
		BorrowerID:   s.BorrowerID,
		Start:        s.Start,
		Due:          s.Due,
		Status:       s.Status,
		ReturnedAt:   s.ReturnedAt,
		Notes:        s.Notes,
		CancelReason: s.CancelReason,
		Overdue:      l.IsOverdue(ref),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		Version:      s.Version,
	}
}

// NewViews maps a list of loans.
func NewViews(list []*Loan, ref time.Time) []View {
	out := make([]View, 0, len(list))
	for _, l := range list {
		out = append(out, NewView(l, ref))
	}
	return out
}
