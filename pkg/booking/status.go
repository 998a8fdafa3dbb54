package booking

import (
	"fmt"
	"strings"
)

// ReservationStatus tracks a reservation from booking to departure.
type ReservationStatus string

const (
	StatusPending    ReservationStatus = "PENDING"
	StatusPaid       ReservationStatus = "PAID"
	StatusCheckedIn  ReservationStatus = "CHECKED_IN"
	StatusCheckedOut ReservationStatus = "CHECKED_OUT"
	StatusCancelled  ReservationStatus = "CANCELLED"
)

var allowedTransitions = map[ReservationStatus][]ReservationStatus{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusCheckedIn, StatusCancelled},
	StatusCheckedIn: {StatusCheckedOut},
}

// ActiveStatuses still hold the room against new bookings.
func ActiveStatuses() []ReservationStatus {
	return []ReservationStatus{StatusPending, StatusPaid, StatusCheckedIn}
}

// ParseReservationStatus validates a status label (case-insensitive).
func ParseReservationStatus(raw string) (ReservationStatus, error) {
	switch status := ReservationStatus(strings.ToUpper(strings.TrimSpace(raw))); status {
	case StatusPending, StatusPaid, StatusCheckedIn, StatusCheckedOut, StatusCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

func (status ReservationStatus) String() string {
	return string(status)
}

// IsActive reports whether the status blocks overlapping bookings.
func (status ReservationStatus) IsActive() bool {
	switch status {
	case StatusPending, StatusPaid, StatusCheckedIn:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no transition leaves the status.
func (status ReservationStatus) IsTerminal() bool {
	return len(allowedTransitions[status]) == 0
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from ReservationStatus, to ReservationStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// SourceStatuses lists every status that may move to target.
func SourceStatuses(target ReservationStatus) []ReservationStatus {
	sources := make([]ReservationStatus, 0, 2)
	for _, from := range []ReservationStatus{StatusPending, StatusPaid, StatusCheckedIn} {
		if CanTransition(from, target) {
			sources = append(sources, from)
		}
	}
	return sources
}

func checkTransition(from ReservationStatus, to ReservationStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrForbiddenTransition, from, to)
}

// TransitionOutcome is the per-reservation result of a bulk transition.
type TransitionOutcome string

const (
	OutcomeApplied              TransitionOutcome = "applied"
	OutcomeSkippedInvalidSource TransitionOutcome = "skipped_invalid_source"
	OutcomeNotFound             TransitionOutcome = "not_found"
)

// TransitionResult reports what a bulk transition did to one reservation.
type TransitionResult struct {
	ReservationID  ReservationID
	PreviousStatus ReservationStatus
	Outcome        TransitionOutcome
}
