package notifications

import "github.com/google/uuid"

// CreateInput describes a new notification.
type CreateInput struct {
	BorrowerID uuid.UUID `json:"borrower_id" validate:"required"`
	Subject    string    `json:"subject" validate:"required,max=200"`
	Message    string    `json:"message" validate:"required,max=4000"`
	Kind       Kind      `json:"kind" validate:"omitempty,oneof=GENERAL OVERDUE_REMINDER"`
}

// MarkReadResult reports how many notifications were marked.
type MarkReadResult struct {
	Updated int `json:"updated"`
}

// UnreadCount is the response of the unread counter.
type UnreadCount struct {
	BorrowerID uuid.UUID `json:"borrower_id"`
	Unread     int       `json:"unread"`
}
