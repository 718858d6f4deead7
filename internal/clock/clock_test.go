package clock

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.Local)
}

func TestCurrentDay(t *testing.T) {
	start := date(2024, time.January, 1, 0, 0)

	cases := []struct {
		now  time.Time
		want int
	}{
		{date(2024, time.January, 1, 0, 1), 1},
		{date(2024, time.January, 1, 23, 59), 1},
		{date(2024, time.January, 2, 0, 0), 2},
		{date(2024, time.January, 5, 9, 0), 5},
		{date(2024, time.January, 31, 12, 0), 31},
	}
	for _, tc := range cases {
		if got := CurrentDay(start, tc.now); got != tc.want {
			t.Errorf("CurrentDay(%s) = %d, want %d", tc.now, got, tc.want)
		}
	}
}

// Starting late in the evening must not burn day 1.
func TestCurrentDayLateStart(t *testing.T) {
	start := date(2024, time.March, 10, 23, 0)

	if got := CurrentDay(start, date(2024, time.March, 10, 23, 45)); got != 1 {
		t.Fatalf("same evening: got %d, want 1", got)
	}
	if got := CurrentDay(start, date(2024, time.March, 11, 0, 30)); got != 2 {
		t.Fatalf("past midnight: got %d, want 2", got)
	}
}

// Monotonicity: for now1 <= now2, CurrentDay(now1) <= CurrentDay(now2).
func TestCurrentDayMonotonic(t *testing.T) {
	start := date(2024, time.January, 1, 14, 30)
	prev := 0
	now := start
	for i := 0; i < 40*24; i++ {
		got := CurrentDay(start, now)
		if got < prev {
			t.Fatalf("day index regressed from %d to %d at %s", prev, got, now)
		}
		prev = got
		now = now.Add(time.Hour)
	}
}

func TestRollover(t *testing.T) {
	start := date(2024, time.January, 1, 8, 0)

	day, changed := Rollover(1, start, date(2024, time.January, 1, 22, 0))
	if changed || day != 1 {
		t.Fatalf("same day: got (%d, %v), want (1, false)", day, changed)
	}

	day, changed = Rollover(1, start, date(2024, time.January, 3, 7, 0))
	if !changed || day != 3 {
		t.Fatalf("two days later: got (%d, %v), want (3, true)", day, changed)
	}
}

// A device clock moved backwards must never regress the stored day.
func TestRolloverIgnoresClockSkew(t *testing.T) {
	start := date(2024, time.January, 1, 8, 0)

	day, changed := Rollover(6, start, date(2024, time.January, 3, 12, 0))
	if changed || day != 6 {
		t.Fatalf("clock skew: got (%d, %v), want (6, false)", day, changed)
	}
}
