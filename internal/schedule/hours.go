package schedule

import "time"

// Shop hours are fixed for the whole business: weekdays, 08:00 to 18:00.
// A slot starting at the close hour is not bookable.
const (
	OpenHour  = 8
	CloseHour = 18

	// SlotStepMinutes is the spacing between candidate slot starts.
	SlotStepMinutes = 30

	// DefaultDurationMinutes is used when a service carries no duration.
	DefaultDurationMinutes = 60
)

// WithinBusinessHours reports whether t falls on a weekday inside
// [OpenHour, CloseHour). Only the instant itself is checked; whether a
// whole interval fits is the caller's concern.
func WithinBusinessHours(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	h := t.Hour()
	return h >= OpenHour && h < CloseHour
}
