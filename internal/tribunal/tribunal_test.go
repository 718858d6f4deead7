package tribunal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradeMonkAPI/internal/types/challenge"
	"tradeMonkAPI/internal/types/trade"
)

func mkTrade(pnl float64, notes string) *trade.Trade {
	d := decimal.NewFromFloat(pnl)
	return &trade.Trade{
		ID:      "t",
		Date:    time.Now(),
		PnL:     &d,
		Notes:   notes,
		Outcome: trade.OutcomePending,
	}
}

func pnlOf(trades []*trade.Trade) decimal.Decimal {
	return trade.SumPnL(trades)
}

func TestEvaluateMaxLoss(t *testing.T) {
	task := &challenge.Task{
		ID:               "0_0",
		Label:            "Stay above -$500",
		VerificationType: challenge.VerifyMaxLoss,
		Threshold:        500,
		Status:           challenge.TaskActive,
	}

	trades := []*trade.Trade{mkTrade(-450, "scalp")}
	if got := Evaluate(task, trades, pnlOf(trades)); got != challenge.TaskPassing {
		t.Fatalf("pnl -450 against limit 500: got %s, want passing", got)
	}

	trades = append(trades, mkTrade(-100, "revenge"))
	got := Evaluate(task, trades, pnlOf(trades))
	if got != challenge.TaskFailed {
		t.Fatalf("pnl -550 against limit 500: got %s, want failed", got)
	}
	task.Status = got

	// A winning trade later in the day cannot overturn the verdict.
	trades = append(trades, mkTrade(200, "recovery"))
	if got := Evaluate(task, trades, pnlOf(trades)); got != challenge.TaskFailed {
		t.Fatalf("failed verdict was overturned: got %s", got)
	}
}

func TestEvaluateMaxLossExactLimit(t *testing.T) {
	task := &challenge.Task{
		VerificationType: challenge.VerifyMaxLoss,
		Threshold:        500,
		Status:           challenge.TaskActive,
	}
	trades := []*trade.Trade{mkTrade(-500, "max pain")}
	if got := Evaluate(task, trades, pnlOf(trades)); got != challenge.TaskFailed {
		t.Fatalf("pnl exactly at -limit must fail, got %s", got)
	}
}

func TestEvaluateMaxTrades(t *testing.T) {
	task := &challenge.Task{
		VerificationType: challenge.VerifyMaxTrades,
		Threshold:        3,
		Status:           challenge.TaskActive,
	}

	trades := []*trade.Trade{mkTrade(10, ""), mkTrade(20, ""), mkTrade(-5, "")}
	if got := Evaluate(task, trades, pnlOf(trades)); got != challenge.TaskPassing {
		t.Fatalf("3 trades within limit 3: got %s, want passing", got)
	}

	trades = append(trades, mkTrade(1, ""))
	if got := Evaluate(task, trades, pnlOf(trades)); got != challenge.TaskFailed {
		t.Fatalf("4 trades over limit 3: got %s, want failed", got)
	}
}

func TestEvaluateJournalAll(t *testing.T) {
	task := &challenge.Task{
		VerificationType: challenge.VerifyJournal,
		Status:           challenge.TaskActive,
	}

	// No trades yet: nothing to journal, status unchanged.
	if got := Evaluate(task, nil, decimal.Zero); got != challenge.TaskActive {
		t.Fatalf("no trades: got %s, want active", got)
	}

	// One placeholder note keeps the task open.
	trades := []*trade.Trade{
		mkTrade(100, "solid breakout thesis"),
		mkTrade(-30, "oops"),
	}
	if got := Evaluate(task, trades, pnlOf(trades)); got != challenge.TaskActive {
		t.Fatalf("short note: got %s, want active", got)
	}

	trades[1].Notes = "chased the open, cut quickly"
	if got := Evaluate(task, trades, pnlOf(trades)); got != challenge.TaskCompleted {
		t.Fatalf("all journaled: got %s, want completed", got)
	}
}

func TestEvaluateJournalNeverAutoFails(t *testing.T) {
	task := &challenge.Task{
		VerificationType: challenge.VerifyJournal,
		Status:           challenge.TaskPassing,
	}
	trades := []*trade.Trade{mkTrade(0, "")}
	if got := Evaluate(task, trades, pnlOf(trades)); got != challenge.TaskPassing {
		t.Fatalf("journal task must never auto-fail, got %s", got)
	}
}

func TestEvaluateManualUntouched(t *testing.T) {
	task := &challenge.Task{
		VerificationType: challenge.VerifyManual,
		Status:           challenge.TaskActive,
	}
	trades := []*trade.Trade{mkTrade(-9999, "")}
	if got := Evaluate(task, trades, pnlOf(trades)); got != challenge.TaskActive {
		t.Fatalf("manual task was auto-evaluated: got %s", got)
	}
}

// Once a verdict is terminal, no sequence of further evaluations may change
// it within the same day.
func TestEvaluateTerminalIsFinal(t *testing.T) {
	for _, terminal := range []challenge.TaskStatus{challenge.TaskFailed, challenge.TaskCompleted} {
		task := &challenge.Task{
			VerificationType: challenge.VerifyMaxTrades,
			Threshold:        1,
			Status:           terminal,
		}
		inputs := [][]*trade.Trade{
			nil,
			{mkTrade(5, "a note long enough")},
			{mkTrade(5, ""), mkTrade(-5, ""), mkTrade(1, "")},
		}
		for _, trades := range inputs {
			if got := Evaluate(task, trades, pnlOf(trades)); got != terminal {
				t.Fatalf("terminal %s changed to %s", terminal, got)
			}
		}
	}
}

func TestAggregateDay(t *testing.T) {
	mk := func(completed bool, status challenge.TaskStatus) *challenge.Task {
		return &challenge.Task{Completed: completed, Status: status}
	}

	cases := []struct {
		name    string
		tasks   []*challenge.Task
		started bool
		want    challenge.DayStatus
	}{
		{
			name:    "all completed",
			tasks:   []*challenge.Task{mk(true, challenge.TaskCompleted), mk(true, challenge.TaskCompleted)},
			started: true,
			want:    challenge.DayCompleted,
		},
		{
			name:    "one failed",
			tasks:   []*challenge.Task{mk(true, challenge.TaskCompleted), mk(false, challenge.TaskFailed)},
			started: true,
			want:    challenge.DayFailed,
		},
		{
			name:    "in progress",
			tasks:   []*challenge.Task{mk(true, challenge.TaskCompleted), mk(false, challenge.TaskPassing)},
			started: true,
			want:    challenge.DayActive,
		},
		{
			name:    "future day",
			tasks:   []*challenge.Task{mk(false, challenge.TaskPending)},
			started: false,
			want:    challenge.DayPending,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AggregateDay(tc.tasks, tc.started); got != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}
