package borrowers

import (
	"fmt"

	"github.com/libris/libris/internal/shared"
)

// Domain errors for borrowers.
var (
	ErrBorrowerNotFound = fmt.Errorf("%w: borrower", shared.ErrNotFound)
	ErrDuplicateEmail   = fmt.Errorf("%w: email already registered", shared.ErrConflict)

	ErrNameRequired = fmt.Errorf("%w: name is required", shared.ErrInvalidArgument)
	ErrInvalidEmail = fmt.Errorf("%w: invalid email", shared.ErrInvalidArgument)
	ErrRoleRequired = fmt.Errorf("%w: role is required", shared.ErrInvalidArgument)

	ErrAlreadyInactive = fmt.Errorf("%w: borrower already inactive", shared.ErrInvalidState)
	ErrAlreadyActive   = fmt.Errorf("%w: borrower already active", shared.ErrInvalidState)
)
