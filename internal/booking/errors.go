package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceInactive means the service exists but is no longer offered.
	ErrServiceInactive = errors.New("service is inactive")

	// ErrStartInPast means the requested start is not strictly in the future.
	ErrStartInPast = errors.New("booking date is in the past")

	// ErrSlotTaken means the commit-time overlap check found a blocking
	// booking for the same provider and interval.
	ErrSlotTaken = errors.New("slot unavailable")

	// ErrCalendarBusy means another create for the same provider holds the
	// reservation lock; the caller should retry.
	ErrCalendarBusy = errors.New("provider calendar is busy, please retry")
)

// InvalidTransitionError is returned when a status change is not in the
// allow-list of the booking status machine.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}
