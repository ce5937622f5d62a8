package schedule

import (
	"testing"
	"time"
)

func at(h, m int) time.Time {
	return time.Date(2026, 9, 1, h, m, 0, 0, time.UTC) // a Tuesday
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", NewInterval(at(10, 0), 60), NewInterval(at(10, 0), 60), true},
		{"contained", NewInterval(at(10, 0), 60), NewInterval(at(10, 15), 30), true},
		{"partial front", NewInterval(at(9, 30), 60), NewInterval(at(10, 0), 60), true},
		{"partial back", NewInterval(at(10, 30), 60), NewInterval(at(10, 0), 60), true},
		{"back to back before", NewInterval(at(9, 0), 60), NewInterval(at(10, 0), 60), false},
		{"back to back after", NewInterval(at(11, 0), 30), NewInterval(at(10, 0), 60), false},
		{"disjoint", NewInterval(at(8, 0), 30), NewInterval(at(15, 0), 60), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("a.Overlaps(b) = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("b.Overlaps(a) = %v, want %v (must be symmetric)", got, tt.want)
			}
		})
	}
}

func TestIntervalEnd(t *testing.T) {
	iv := NewInterval(at(10, 0), 45)
	if want := at(10, 45); !iv.End().Equal(want) {
		t.Fatalf("End() = %s, want %s", iv.End(), want)
	}
}
