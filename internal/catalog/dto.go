package catalog

import "time"

// CreateBookInput carries data for a new catalog record.
type CreateBookInput struct {
	Title       string     `json:"title" validate:"required,max=300"`
	Author      string     `json:"author" validate:"required,max=200"`
	TotalCopies int        `json:"total_copies" validate:"gt=0"`
	ISBN        *string    `json:"isbn,omitempty" validate:"omitempty,max=20"`
	Location    *string    `json:"location,omitempty" validate:"omitempty,max=100"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// UpdateBookInput carries descriptive changes.
type UpdateBookInput struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,max=300"`
	Author      *string    `json:"author,omitempty" validate:"omitempty,max=200"`
	ISBN        *string    `json:"isbn,omitempty" validate:"omitempty,max=20"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// LocationInput moves a book.
type LocationInput struct {
	Location *string `json:"location" validate:"omitempty,max=100"`
}

// StatusInput requests an explicit status change.
type StatusInput struct {
	Status Status `json:"status" validate:"required,oneof=AVAILABLE LOANED RESERVED DAMAGED INACTIVE"`
}

// SearchFilter narrows a catalog search.
type SearchFilter struct {
	Title  string
	Author string
	Limit  int
	Offset int
}

// StatusCount is one row of the books-by-status report.
type StatusCount struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}
