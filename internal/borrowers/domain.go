// Package borrowers manages library members and the loans they hold.
package borrowers

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/libris/libris/internal/shared"
)

// Kind classifies a borrower.
type Kind string

const (
	KindReader  Kind = "READER"
	KindStaff   Kind = "STAFF"
	KindTeacher Kind = "TEACHER"
)

// IsValid checks if the kind is known.
func (k Kind) IsValid() bool {
	switch k {
	case KindReader, KindStaff, KindTeacher:
		return true
	default:
		return false
	}
}

// Borrower is a library member.
type Borrower struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Kind      Kind        `json:"kind"`
	Active    bool        `json:"active"`
	Roles     []string    `json:"roles"`
	LoanIDs   []uuid.UUID `json:"loan_ids"`
	Version   int64       `json:"version"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewBorrower builds an active borrower with no loans.
func NewBorrower(input CreateBorrowerInput, now time.Time) (*Borrower, error) {
	name, err := normalizeName(input.Name)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	kind := input.Kind
	if kind == "" {
		kind = KindReader
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown borrower kind %q", shared.ErrInvalidArgument, kind)
	}
	return &Borrower{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Kind:      kind,
		Active:    true,
		Roles:     []string{},
		LoanIDs:   []uuid.UUID{},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// HasLoan reports whether loanID is already registered.
func (b *Borrower) HasLoan(loanID uuid.UUID) bool {
	return slices.Contains(b.LoanIDs, loanID)
}

// RegisterLoan records a loan reference. Registering the same loan twice is a no-op.
func (b *Borrower) RegisterLoan(loanID uuid.UUID, now time.Time) {
	if b.HasLoan(loanID) {
		return
	}
	b.LoanIDs = append(b.LoanIDs, loanID)
	b.UpdatedAt = now
}

// Update changes the name and/or email. Empty fields are left untouched.
func (b *Borrower) Update(input UpdateBorrowerInput, now time.Time) error {
	if input.Name != nil {
		name, err := normalizeName(*input.Name)
		if err != nil {
			return err
		}
		b.Name = name
	}
	if input.Email != nil {
		email, err := normalizeEmail(*input.Email)
		if err != nil {
			return err
		}
		b.Email = email
	}
	b.UpdatedAt = now
	return nil
}

// Deactivate blocks the borrower from new loans.
func (b *Borrower) Deactivate(now time.Time) error {
	if !b.Active {
		return ErrAlreadyInactive
	}
	b.Active = false
	b.UpdatedAt = now
	return nil
}

// Reactivate lets the borrower request loans again.
func (b *Borrower) Reactivate(now time.Time) error {
	if b.Active {
		return ErrAlreadyActive
	}
	b.Active = true
	b.UpdatedAt = now
	return nil
}

// AssignRole adds a role. Assigning an existing role is a no-op.
func (b *Borrower) AssignRole(role string, now time.Time) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ErrRoleRequired
	}
	if slices.Contains(b.Roles, role) {
		return nil
	}
	b.Roles = append(b.Roles, role)
	b.UpdatedAt = now
	return nil
}

// RevokeRole removes a role.
func (b *Borrower) RevokeRole(role string, now time.Time) error {
	role = strings.ToLower(strings.TrimSpace(role))
	idx := slices.Index(b.Roles, role)
	if idx < 0 {
		return fmt.Errorf("%w: role %q", shared.ErrNotFound, role)
	}
	b.Roles = slices.Delete(b.Roles, idx, idx+1)
	b.UpdatedAt = now
	return nil
}

var emailRule = validator.New()

// normalizeName collapses whitespace. Names typed entirely in lower case are
// title-cased; any other casing is kept as entered.
func normalizeName(raw string) (string, error) {
	name := strings.Join(strings.Fields(raw), " ")
	if name == "" {
		return "", ErrNameRequired
	}
	if name == strings.ToLower(name) {
		return cases.Title(language.Und).String(name), nil
	}
	return name, nil
}

// normalizeEmail applies the same rule as the request DTO and lower-cases the address.
func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if err := emailRule.Var(email, "required,email"); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, raw)
	}
	return strings.ToLower(email), nil
}
