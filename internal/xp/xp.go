// Package xp holds the gamification math: experience points, levels and the
// day milestones that trigger a celebration.
package xp

import "tradeMonkAPI/internal/types/challenge"

const (
	perTask  = 100
	perLevel = 1000
)

// milestoneDays are the day numbers that trigger a celebration, once each,
// on the day-advance event that reaches them.
var milestoneDays = []int{7, 14, 30, 75}

// Compute returns the challenge's experience points: 100 per completed task
// across every day, past and present.
func Compute(ch *challenge.Challenge) int {
	total := 0
	for _, d := range ch.Days {
		for _, t := range d.Tasks {
			if t.Completed {
				total += perTask
			}
		}
	}
	return total
}

// Level is 1-based: 0-999 XP is level 1.
func Level(xp int) int {
	return xp/perLevel + 1
}

// ProgressToNextLevel returns how far into the current level the score is,
// as a 0-100 percentage.
func ProgressToNextLevel(xp int) float64 {
	return float64(xp%perLevel) / 10
}

// MilestonesCrossed returns the milestone days passed when advancing from
// prevDay to newDay. Firing is tied to the advance itself, never to a
// re-render, so each milestone fires exactly once.
func MilestonesCrossed(prevDay, newDay int) []int {
	var crossed []int
	for _, m := range milestoneDays {
		if prevDay < m && newDay >= m {
			crossed = append(crossed, m)
		}
	}
	return crossed
}
