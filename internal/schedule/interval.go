package schedule

import "time"

// Interval is a half-open time range [Start, End()) derived from a start
// instant and a duration in minutes. Immutable by convention.
type Interval struct {
	Start           time.Time
	DurationMinutes int
}

func NewInterval(start time.Time, durationMinutes int) Interval {
	return Interval{Start: start, DurationMinutes: durationMinutes}
}

func (i Interval) End() time.Time {
	return i.Start.Add(time.Duration(i.DurationMinutes) * time.Minute)
}

// Overlaps reports whether two half-open intervals share at least one
// instant: a.Start < b.End && a.End > b.Start. An interval ending exactly
// when another starts does not overlap, so back-to-back bookings are fine.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End()) && i.End().After(other.Start)
}
