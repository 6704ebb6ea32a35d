// Package catalog manages the library's book records and copy availability.
package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/libris/libris/internal/shared"
)

// Status represents the circulation state of a book.
type Status string

const (
	StatusAvailable Status = "AVAILABLE" // At least one copy on the shelf
	StatusLoaned    Status = "LOANED"    // Every copy is out
	StatusReserved  Status = "RESERVED"  // Held back from lending
	StatusDamaged   Status = "DAMAGED"   // Out of circulation for repair
	StatusInactive  Status = "INACTIVE"  // Withdrawn from the collection
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusLoaned, StatusReserved, StatusDamaged, StatusInactive:
		return true
	default:
		return false
	}
}

// CanLend reports whether copies in this status may be handed out.
func (s Status) CanLend() bool {
	return s == StatusAvailable || s == StatusLoaned
}

// Book is a catalog record with its copy counters.
type Book struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	ISBN            *string    `json:"isbn,omitempty"`
	Location        *string    `json:"location,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	TotalCopies     int        `json:"total_copies"`
	AvailableCopies int        `json:"available_copies"`
	Status          Status     `json:"status"`
	Version         int64      `json:"version"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewBook builds a book with every copy available.
func NewBook(input CreateBookInput, now time.Time) (*Book, error) {
	title := strings.TrimSpace(input.Title)
	author := strings.TrimSpace(input.Author)
	if title == "" || author == "" {
		return nil, ErrTitleAuthorRequired
	}
	if input.TotalCopies <= 0 {
		return nil, ErrInvalidCopies
	}
	return &Book{
		ID:              uuid.New(),
		Title:           title,
		Author:          author,
		ISBN:            normalizeOptional(input.ISBN),
		Location:        normalizeOptional(input.Location),
		PublishedAt:     input.PublishedAt,
		TotalCopies:     input.TotalCopies,
		AvailableCopies: input.TotalCopies,
		Status:          StatusAvailable,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// CheckOut takes one copy off the shelf for a loan.
func (b *Book) CheckOut(now time.Time) error {
	if !b.Status.CanLend() {
		return fmt.Errorf("%w: book %s is %s", shared.ErrUnavailable, b.ID, b.Status)
	}
	if b.AvailableCopies <= 0 {
		return fmt.Errorf("%w: book %s has no copies left", shared.ErrUnavailable, b.ID)
	}
	b.AvailableCopies--
	if b.AvailableCopies == 0 {
		b.Status = StatusLoaned
	}
	b.UpdatedAt = now
	return nil
}

// CheckIn puts one copy back on the shelf.
func (b *Book) CheckIn(now time.Time) error {
	if b.AvailableCopies+1 > b.TotalCopies {
		return fmt.Errorf("%w: book %s would exceed %d copies", shared.ErrInvariantViolation, b.ID, b.TotalCopies)
	}
	b.AvailableCopies++
	if b.Status == StatusLoaned {
		b.Status = StatusAvailable
	}
	b.UpdatedAt = now
	return nil
}

// ChangeStatus applies an explicit status change requested by staff.
func (b *Book) ChangeStatus(next Status, now time.Time) error {
	if !next.IsValid() {
		return fmt.Errorf("%w: unknown book status %q", shared.ErrInvalidArgument, next)
	}
	switch next {
	case StatusAvailable:
		if b.AvailableCopies == 0 {
			return ErrNoCopiesOnShelf
		}
	case StatusLoaned:
		if b.AvailableCopies > 0 {
			return ErrCopiesOnShelf
		}
	case StatusReserved:
		if b.Status != StatusAvailable {
			return ErrCannotReserve
		}
	case StatusInactive:
		if b.AvailableCopies != b.TotalCopies {
			return ErrCopiesOnLoan
		}
	}
	b.Status = next
	b.UpdatedAt = now
	return nil
}

// Update replaces descriptive data. Nil fields are left untouched.
func (b *Book) Update(input UpdateBookInput, now time.Time) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return ErrTitleAuthorRequired
		}
		b.Title = title
	}
	if input.Author != nil {
		author := strings.TrimSpace(*input.Author)
		if author == "" {
			return ErrTitleAuthorRequired
		}
		b.Author = author
	}
	if input.ISBN != nil {
		b.ISBN = normalizeOptional(input.ISBN)
	}
	if input.PublishedAt != nil {
		b.PublishedAt = input.PublishedAt
	}
	b.UpdatedAt = now
	return nil
}

// SetLocation moves the book to a shelf location, or clears it.
func (b *Book) SetLocation(location *string, now time.Time) {
	b.Location = normalizeOptional(location)
	b.UpdatedAt = now
}

func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
