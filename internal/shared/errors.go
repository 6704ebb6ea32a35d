package shared

import (
	"errors"
	"fmt"
)

// Error kinds shared by every domain package. Domain errors wrap one of these so
// transport code can classify them with errors.Is.
var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState indicates the operation is illegal for the entity's current state.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidArgument indicates malformed input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidPeriod is the malformed-period case of ErrInvalidArgument.
	ErrInvalidPeriod = fmt.Errorf("%w: period start must precede due date", ErrInvalidArgument)
	// ErrInvalidTimestamp is the malformed-timestamp case of ErrInvalidArgument.
	ErrInvalidTimestamp = fmt.Errorf("%w: timestamp outside allowed range", ErrInvalidArgument)
	// ErrConflict indicates a duplicate or a lost concurrent update.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable indicates no copies are left to lend.
	ErrUnavailable = errors.New("unavailable")
	// ErrInvariantViolation signals corrupted state. It is a bug, not a user error.
	ErrInvariantViolation = errors.New("invariant violation")
)

// IsInvariantViolation reports whether err signals systemic corruption.
func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}

// IsClientError reports whether err is caused by the caller's input or by the
// current state of the data rather than by the system.
func IsClientError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrUnavailable):
		return true
	default:
		return false
	}
}
