package notifications

import (
	"fmt"

	"github.com/libris/libris/internal/shared"
)

// Domain errors for notifications.
var (
	ErrNotificationNotFound = fmt.Errorf("%w: notification", shared.ErrNotFound)
	ErrBorrowerNotFound     = fmt.Errorf("%w: borrower", shared.ErrNotFound)

	ErrContentRequired = fmt.Errorf("%w: subject and message are required", shared.ErrInvalidArgument)
	ErrInvalidKind     = fmt.Errorf("%w: unknown notification kind", shared.ErrInvalidArgument)
)
