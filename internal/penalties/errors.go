package penalties

import (
	"fmt"

	"github.com/libris/libris/internal/shared"
)

// Domain errors for penalties.
var (
	ErrPenaltyNotFound = fmt.Errorf("%w: penalty", shared.ErrNotFound)
	ErrInvalidAmount   = fmt.Errorf("%w: amount must be greater than zero", shared.ErrInvalidArgument)
	ErrReasonRequired  = fmt.Errorf("%w: reason is required", shared.ErrInvalidArgument)
	ErrAlreadyClosed   = fmt.Errorf("%w: penalty already closed", shared.ErrInvalidState)
)
