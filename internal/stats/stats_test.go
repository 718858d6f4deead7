package stats

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradeMonkAPI/internal/types/challenge"
	"tradeMonkAPI/internal/types/trade"
)

func dayWith(status challenge.DayStatus) *challenge.Day {
	return &challenge.Day{Status: status}
}

func mkTrade(day time.Time, pnl float64, outcome trade.Outcome) *trade.Trade {
	d := decimal.NewFromFloat(pnl)
	return &trade.Trade{Date: day, PnL: &d, Outcome: outcome}
}

func TestComputeStatsStreak(t *testing.T) {
	// Days: completed, completed, failed, completed; today is day 5.
	// Only the immediately preceding completed day counts; the streak
	// resets at the failed day.
	ch := &challenge.Challenge{
		CurrentDay: 5,
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local),
		Days: []*challenge.Day{
			dayWith(challenge.DayCompleted),
			dayWith(challenge.DayCompleted),
			dayWith(challenge.DayFailed),
			dayWith(challenge.DayCompleted),
			dayWith(challenge.DayActive),
		},
	}

	got := ComputeStats(ch, nil)
	if got.CurrentStreak != 1 {
		t.Fatalf("streak = %d, want 1", got.CurrentStreak)
	}
	if got.CompletedDays != 3 {
		t.Fatalf("completed days = %d, want 3", got.CompletedDays)
	}
	// 3 of 4 elapsed days, rounded.
	if got.CompletionRate != 75 {
		t.Fatalf("completion rate = %d, want 75", got.CompletionRate)
	}
}

func TestComputeStatsDayOne(t *testing.T) {
	ch := &challenge.Challenge{
		CurrentDay: 1,
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local),
		Days:       []*challenge.Day{dayWith(challenge.DayActive)},
	}

	got := ComputeStats(ch, nil)
	if got.CurrentStreak != 0 {
		t.Fatalf("streak on day 1 = %d, want 0", got.CurrentStreak)
	}
	if got.CompletionRate != 0 {
		t.Fatalf("completion rate on day 1 = %d, want 0", got.CompletionRate)
	}
}

func TestProtocolPnLOnlyCountsChallengeTrades(t *testing.T) {
	start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.Local)
	ch := &challenge.Challenge{CurrentDay: 2, StartDate: start, Days: []*challenge.Day{dayWith(challenge.DayCompleted), dayWith(challenge.DayActive)}}

	trades := []*trade.Trade{
		mkTrade(start.AddDate(0, 0, -3), 1000, trade.OutcomeWin), // before the protocol
		mkTrade(start, 150, trade.OutcomeWin),
		mkTrade(start.AddDate(0, 0, 1), -50, trade.OutcomeLoss),
	}

	got := ComputeStats(ch, trades)
	if want := decimal.NewFromInt(100); !got.ProtocolPnL.Equal(want) {
		t.Fatalf("protocol pnl = %s, want %s", got.ProtocolPnL, want)
	}
}

func TestComputeTradeAnalytics(t *testing.T) {
	base := time.Date(2024, 2, 1, 10, 0, 0, 0, time.Local)
	trades := []*trade.Trade{
		mkTrade(base, 100, trade.OutcomeWin),
		mkTrade(base.AddDate(0, 0, 1), -250, trade.OutcomeLoss),
		mkTrade(base.AddDate(0, 0, 2), 50, trade.OutcomeWin),
		mkTrade(base.AddDate(0, 0, 3), 0, trade.OutcomePending),
	}

	got := ComputeTradeAnalytics(trades)
	if got.TotalTrades != 4 {
		t.Fatalf("total = %d, want 4", got.TotalTrades)
	}
	// 2 wins out of 3 decided trades.
	if got.WinRate != 67 {
		t.Fatalf("win rate = %d, want 67", got.WinRate)
	}
	if want := decimal.NewFromInt(-100); !got.NetPnL.Equal(want) {
		t.Fatalf("net pnl = %s, want %s", got.NetPnL, want)
	}
	// Peak 100, trough -150.
	if want := decimal.NewFromInt(250); !got.MaxDrawdown.Equal(want) {
		t.Fatalf("max drawdown = %s, want %s", got.MaxDrawdown, want)
	}
	if len(got.EquityCurve) != 4 {
		t.Fatalf("curve length = %d, want 4", len(got.EquityCurve))
	}
	if last := got.EquityCurve[3].Equity; !last.Equal(decimal.NewFromInt(-100)) {
		t.Fatalf("curve end = %s, want -100", last)
	}
}

func TestComputeTradeAnalyticsEmpty(t *testing.T) {
	got := ComputeTradeAnalytics(nil)
	if got.WinRate != 0 || got.TotalTrades != 0 || !got.NetPnL.IsZero() {
		t.Fatalf("empty log produced %+v", got)
	}
}
