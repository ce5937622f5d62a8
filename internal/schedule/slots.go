package schedule

import "time"

// CandidateStarts generates every bookable slot start over the next
// horizonDays calendar days, beginning with now's day. Candidates land on
// half-hour boundaries from 08:00 up to (but not including) 18:00, skip
// weekends, and must be strictly in the future. The result is in ascending
// chronological order; callers rely on that.
//
// Note that only the start is checked against closing time: a long service
// starting at 17:30 runs past 18:00. That matches how the shop has always
// operated (the last chair of the day finishes the cut).
func CandidateStarts(now time.Time, horizonDays int) []time.Time {
	if horizonDays <= 0 {
		horizonDays = 7
	}

	loc := now.Location()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	var out []time.Time
	for d := 0; d < horizonDays; d++ {
		cur := day.AddDate(0, 0, d)

		switch cur.Weekday() {
		case time.Saturday, time.Sunday:
			continue
		}

		for h := OpenHour; h < CloseHour; h++ {
			for m := 0; m < 60; m += SlotStepMinutes {
				t := time.Date(cur.Year(), cur.Month(), cur.Day(), h, m, 0, 0, loc)
				if !t.After(now) {
					continue
				}
				out = append(out, t)
			}
		}
	}
	return out
}

// FilterAvailable removes candidates whose interval [c, c+duration) would
// overlap any busy interval, preserving order. Pure function over its
// inputs; the caller fetches the provider's current bookings. The result
// is advisory only and can go stale, so the create path re-checks overlap
// under its own lock before inserting.
func FilterAvailable(candidates []time.Time, durationMinutes int, busy []Interval) []time.Time {
	if durationMinutes <= 0 {
		durationMinutes = DefaultDurationMinutes
	}

	out := make([]time.Time, 0, len(candidates))
	for _, c := range candidates {
		cand := Interval{Start: c, DurationMinutes: durationMinutes}

		taken := false
		for _, b := range busy {
			if cand.Overlaps(b) {
				taken = true
				break
			}
		}
		if !taken {
			out = append(out, c)
		}
	}
	return out
}
