package loans

import (
	"fmt"
	"strings"

	"github.com/libris/libris/internal/shared"
)

// ReservationPolicy decides when a loan takes a copy off the shelf.
type ReservationPolicy int

const (
	// ReserveOnActivation takes the copy when the loan becomes active.
	ReserveOnActivation ReservationPolicy = iota
	// ReserveOnRequest takes the copy as soon as the loan is requested and gives it
	// back if the pending loan is cancelled.
	ReserveOnRequest
)

func (p ReservationPolicy) String() string {
	switch p {
	case ReserveOnRequest:
		return "request"
	default:
		return "activation"
	}
}

// ParseReservationPolicy reads the configured policy name.
func ParseReservationPolicy(raw string) (ReservationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "activation":
		return ReserveOnActivation, nil
	case "request":
		return ReserveOnRequest, nil
	default:
		return ReserveOnActivation, fmt.Errorf("%w: unknown reservation policy %q", shared.ErrInvalidArgument, raw)
	}
}
