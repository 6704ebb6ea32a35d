package loans

import (
	"fmt"

	"github.com/libris/libris/internal/shared"
)

// Domain errors for loans.
var (
	ErrLoanNotFound = fmt.Errorf("%w: loan", shared.ErrNotFound)

	ErrCancelReasonRequired = fmt.Errorf("%w: cancellation reason is required", shared.ErrInvalidArgument)
	ErrInvalidExtension     = fmt.Errorf("%w: extension must be between 1 and %d days", shared.ErrInvalidArgument, MaxExtensionDays)

	ErrDuplicateLoan    = fmt.Errorf("%w: borrower already has an open loan for this book", shared.ErrConflict)
	ErrNoCopies         = fmt.Errorf("%w: no copies available", shared.ErrUnavailable)
	ErrBorrowerInactive = fmt.Errorf("%w: borrower is inactive", shared.ErrInvalidState)
)
