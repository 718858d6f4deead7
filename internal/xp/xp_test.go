package xp

import (
	"reflect"
	"testing"

	"tradeMonkAPI/internal/types/challenge"
)

func TestCompute(t *testing.T) {
	ch := &challenge.Challenge{
		Days: []*challenge.Day{
			{Tasks: []*challenge.Task{{Completed: true}, {Completed: true}, {Completed: false}}},
			{Tasks: []*challenge.Task{{Completed: true}}},
			{Tasks: []*challenge.Task{{Completed: false}}},
		},
	}
	if got := Compute(ch); got != 300 {
		t.Fatalf("xp = %d, want 300", got)
	}
}

func TestLevel(t *testing.T) {
	cases := []struct{ xp, want int }{
		{0, 1},
		{999, 1},
		{1000, 2},
		{2500, 3},
	}
	for _, tc := range cases {
		if got := Level(tc.xp); got != tc.want {
			t.Errorf("Level(%d) = %d, want %d", tc.xp, got, tc.want)
		}
	}
}

func TestProgressToNextLevel(t *testing.T) {
	if got := ProgressToNextLevel(2500); got != 50 {
		t.Fatalf("progress(2500) = %v, want 50", got)
	}
	if got := ProgressToNextLevel(1000); got != 0 {
		t.Fatalf("progress(1000) = %v, want 0", got)
	}
}

func TestMilestonesCrossed(t *testing.T) {
	if got := MilestonesCrossed(6, 7); !reflect.DeepEqual(got, []int{7}) {
		t.Fatalf("6->7 = %v, want [7]", got)
	}
	// A multi-day jump (app closed over a weekend) fires every milestone
	// in between exactly once.
	if got := MilestonesCrossed(5, 20); !reflect.DeepEqual(got, []int{7, 14}) {
		t.Fatalf("5->20 = %v, want [7 14]", got)
	}
	// Re-evaluating the same day fires nothing.
	if got := MilestonesCrossed(7, 7); got != nil {
		t.Fatalf("7->7 = %v, want nil", got)
	}
}
