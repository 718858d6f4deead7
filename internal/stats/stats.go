// Package stats derives read-only numbers from a challenge and the trade
// log. Nothing in here writes anything back.
package stats

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"tradeMonkAPI/internal/types/challenge"
	"tradeMonkAPI/internal/types/trade"
)

type ChallengeStats struct {
	CompletedDays  int             `json:"completed_days"`
	CompletionRate int             `json:"completion_rate"` // percent, 0-100
	CurrentStreak  int             `json:"current_streak"`
	ProtocolPnL    decimal.Decimal `json:"protocol_pnl"`
}

// ComputeStats derives the challenge scoreboard. The streak counts
// consecutive completed days walking backwards from the day before today;
// today is still in progress and never counts.
func ComputeStats(ch *challenge.Challenge, trades []*trade.Trade) ChallengeStats {
	completed := 0
	for _, d := range ch.Days {
		if d.Status == challenge.DayCompleted {
			completed++
		}
	}

	elapsed := ch.CurrentDay - 1
	if elapsed < 1 {
		elapsed = 1
	}
	rate := int(math.Round(100 * float64(completed) / float64(elapsed)))

	streak := 0
	for i := ch.CurrentDay - 2; i >= 0 && i < len(ch.Days); i-- {
		if ch.Days[i].Status != challenge.DayCompleted {
			break
		}
		streak++
	}

	return ChallengeStats{
		CompletedDays:  completed,
		CompletionRate: rate,
		CurrentStreak:  streak,
		ProtocolPnL:    trade.SumPnL(trade.FilterSince(trades, ch.StartDate)),
	}
}

type EquityPoint struct {
	Date   string          `json:"date"`
	Equity decimal.Decimal `json:"equity"`
}

type TradeAnalytics struct {
	TotalTrades int             `json:"total_trades"`
	WinRate     int             `json:"win_rate"` // percent of decided trades
	NetPnL      decimal.Decimal `json:"net_pnl"`
	MaxDrawdown decimal.Decimal `json:"max_drawdown"`
	EquityCurve []EquityPoint   `json:"equity_curve"`
}

// ComputeTradeAnalytics rolls the whole trade log into the journal's
// headline numbers. Pending trades count toward the curve via their realized
// pnl (zero when absent) but not toward the win rate.
func ComputeTradeAnalytics(trades []*trade.Trade) TradeAnalytics {
	sorted := make([]*trade.Trade, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	wins, decided := 0, 0
	equity := decimal.Zero
	peak := decimal.Zero
	drawdown := decimal.Zero
	curve := make([]EquityPoint, 0, len(sorted))

	for _, t := range sorted {
		switch t.Outcome {
		case trade.OutcomeWin:
			wins++
			decided++
		case trade.OutcomeLoss, trade.OutcomeBreakeven:
			decided++
		}

		equity = equity.Add(t.PnLOrZero())
		if equity.GreaterThan(peak) {
			peak = equity
		}
		if dd := peak.Sub(equity); dd.GreaterThan(drawdown) {
			drawdown = dd
		}
		curve = append(curve, EquityPoint{
			Date:   t.Date.Local().Format("2006-01-02"),
			Equity: equity,
		})
	}

	winRate := 0
	if decided > 0 {
		winRate = int(math.Round(100 * float64(wins) / float64(decided)))
	}

	return TradeAnalytics{
		TotalTrades: len(sorted),
		WinRate:     winRate,
		NetPnL:      equity,
		MaxDrawdown: drawdown,
		EquityCurve: curve,
	}
}
