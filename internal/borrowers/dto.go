package borrowers

// CreateBorrowerInput carries data for a new borrower.
type CreateBorrowerInput struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Kind  Kind   `json:"kind" validate:"omitempty,oneof=READER STAFF TEACHER"`
}

// UpdateBorrowerInput carries profile changes.
type UpdateBorrowerInput struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

// RoleInput names a role to assign.
type RoleInput struct {
	Role string `json:"role" validate:"required,max=50"`
}
