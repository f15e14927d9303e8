// Package booking holds the lifecycle rules for a table booking.  A booking
// starts out pending and is moved along by staff; it is never deleted and
// never returns to pending.
package booking

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	Pending   Status = "pending"
	Confirmed Status = "confirmed"
	NoShow    Status = "no_show"
	Canceled  Status = "canceled"
)

// ErrInvalidTransition is wrapped by every *TransitionError.
var ErrInvalidTransition = errors.New("invalid booking status transition")

// ErrUnknownStatus is returned by ParseStatus.
var ErrUnknownStatus = errors.New("unknown booking status")

// TransitionError describes a rejected status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot change booking status from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// allowed lists the forward moves out of each state.  no_show and canceled
// are terminal.
var allowed = map[Status][]Status{
	Pending:   {Confirmed, NoShow, Canceled},
	Confirmed: {NoShow, Canceled},
}

// ParseStatus validates a raw status value.  Matching is case-insensitive.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case Pending, Confirmed, NoShow, Canceled:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

// Statuses returns all states in lifecycle order.
func Statuses() []Status {
	return []Status{Pending, Confirmed, NoShow, Canceled}
}

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	return len(allowed[s]) == 0
}

// Outcome is the result of an accepted transition.
type Outcome struct {
	// From is the status the booking had before the call.
	From Status
	// Changed is false when the booking already had the requested status.
	Changed bool
	// CountsConfirmation is true when the owning guest's
	// confirmed_bookings_count must grow by one.
	CountsConfirmation bool
}

// Transition checks whether a booking in state from may move to state to.
//
// Re-applying the current status is accepted and reports Changed=false, so
// a retried request has no side effects.  Entering confirmed from any other
// state counts a confirmation.  Leaving confirmed never takes one back:
// confirmed_bookings_count is an "ever confirmed" tally, so a guest who was
// confirmed, canceled, re-booked and confirmed again has a count of two
// even though only one booking is confirmed now.
func Transition(from, to Status) (Outcome, error) {
	if from == to {
		return Outcome{From: from}, nil
	}
	for _, next := range allowed[from] {
		if next == to {
			return Outcome{From: from, Changed: true, CountsConfirmation: to == Confirmed}, nil
		}
	}
	return Outcome{}, &TransitionError{From: from, To: to}
}
