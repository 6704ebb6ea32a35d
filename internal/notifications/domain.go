// Package notifications stores messages addressed to borrowers and tracks
// whether they were delivered and read.
package notifications

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification.
type Kind string

const (
	KindGeneral         Kind = "GENERAL"
	KindOverdueReminder Kind = "OVERDUE_REMINDER"
)

// IsValid checks if the kind is known.
func (k Kind) IsValid() bool {
	return k == KindGeneral || k == KindOverdueReminder
}

// Notification is a message for one borrower.
type Notification struct {
	ID          uuid.UUID  `json:"id"`
	BorrowerID  uuid.UUID  `json:"borrower_id"`
	Subject     string     `json:"subject"`
	Message     string     `json:"message"`
	Kind        Kind       `json:"kind"`
	Read        bool       `json:"read"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// New validates input and builds an unread notification.
func New(input CreateInput, now time.Time) (*Notification, error) {
	subject := strings.TrimSpace(input.Subject)
	message := strings.TrimSpace(input.Message)
	if subject == "" || message == "" {
		return nil, ErrContentRequired
	}
	kind := input.Kind
	if kind == "" {
		kind = KindGeneral
	}
	if !kind.IsValid() {
		return nil, ErrInvalidKind
	}
	return &Notification{
		ID:         uuid.New(),
		BorrowerID: input.BorrowerID,
		Subject:    subject,
		Message:    message,
		Kind:       kind,
		CreatedAt:  now,
	}, nil
}
