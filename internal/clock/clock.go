// Package clock derives a challenge's true current day from its start date
// and the wall clock. The stored currentDay on the document is a cache; this
// package is the source of truth on every poll.
package clock

import (
	"math"
	"time"
)

// midnight strips the time of day in the local zone. A challenge started at
// 11pm still counts as day 1 for the rest of that calendar day.
func midnight(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// CurrentDay returns the 1-based day index of now within a challenge that
// began on start. Rounding absorbs DST transitions, where a calendar day is
// 23 or 25 hours long.
func CurrentDay(start, now time.Time) int {
	days := int(math.Round(midnight(now).Sub(midnight(start)).Hours() / 24))
	return days + 1
}

// Rollover compares the freshly computed day against the stored one and
// reports whether a day-advance must be persisted. The stored value never
// decreases: a device clock moved backwards is ignored, not an error.
func Rollover(stored int, start, now time.Time) (int, bool) {
	computed := CurrentDay(start, now)
	if computed <= stored {
		return stored, false
	}
	return computed, true
}
