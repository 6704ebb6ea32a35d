package catalog

import (
	"fmt"

	"github.com/libris/libris/internal/shared"
)

// Domain errors for the catalog.
var (
	ErrBookNotFound  = fmt.Errorf("%w: book", shared.ErrNotFound)
	ErrDuplicateISBN = fmt.Errorf("%w: isbn already registered", shared.ErrConflict)

	// Validation errors.
	ErrTitleAuthorRequired = fmt.Errorf("%w: title and author are required", shared.ErrInvalidArgument)
	ErrInvalidCopies       = fmt.Errorf("%w: total copies must be greater than zero", shared.ErrInvalidArgument)
	ErrSearchTermRequired  = fmt.Errorf("%w: title or author is required", shared.ErrInvalidArgument)

	// Status transition errors.
	ErrNoCopiesOnShelf = fmt.Errorf("%w: no copies on the shelf", shared.ErrInvalidState)
	ErrCopiesOnShelf   = fmt.Errorf("%w: copies are still on the shelf", shared.ErrInvalidState)
	ErrCannotReserve   = fmt.Errorf("%w: only available books can be reserved", shared.ErrInvalidState)
	ErrCopiesOnLoan    = fmt.Errorf("%w: copies are still on loan", shared.ErrInvalidState)
)
