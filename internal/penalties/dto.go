package penalties

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreatePenaltyInput carries an administrative penalty.
type CreatePenaltyInput struct {
	BorrowerID uuid.UUID       `json:"borrower_id" validate:"required"`
	LoanID     *uuid.UUID      `json:"loan_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	StartsAt   time.Time       `json:"starts_at" validate:"required"`
	EndsAt     time.Time       `json:"ends_at" validate:"required"`
	Reason     string          `json:"reason" validate:"required,max=500"`
}

// CloseInput closes a penalty early.
type CloseInput struct {
	Reason string `json:"reason" validate:"required,max=500"`
}
