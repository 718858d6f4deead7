package trade

import (
	"time"

	"github.com/shopspring/decimal"
)

type Outcome string

const (
	OutcomeWin       Outcome = "win"
	OutcomeLoss      Outcome = "loss"
	OutcomeBreakeven Outcome = "breakeven"
	OutcomePending   Outcome = "pending"
)

type Trade struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Symbol    string           `json:"symbol" db:"symbol"`
	Date      time.Time        `json:"date" db:"executed_at"`
	PnL       *decimal.Decimal `json:"pnl,omitempty" db:"pnl"`
	Notes     string           `json:"notes" db:"notes"`
	Outcome   Outcome          `json:"outcome" db:"outcome"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`
}

type CreateTradeRequest struct {
	Symbol  string           `json:"symbol"`
	Date    *time.Time       `json:"date,omitempty"`
	PnL     *decimal.Decimal `json:"pnl,omitempty"`
	Notes   string           `json:"notes"`
	Outcome Outcome          `json:"outcome"`
}

// PnLOrZero treats a missing pnl (open or unpriced trade) as zero.
func (t *Trade) PnLOrZero() decimal.Decimal {
	if t.PnL == nil {
		return decimal.Zero
	}
	return *t.PnL
}

// SumPnL totals realized pnl over a set of trades.
func SumPnL(trades []*Trade) decimal.Decimal {
	total := decimal.Zero
	for _, t := range trades {
		total = total.Add(t.PnLOrZero())
	}
	return total
}

// FilterOnDay returns the trades executed on the same local calendar day as day.
func FilterOnDay(trades []*Trade, day time.Time) []*Trade {
	y, m, d := day.Date()
	var out []*Trade
	for _, t := range trades {
		ty, tm, td := t.Date.Local().Date()
		if ty == y && tm == m && td == d {
			out = append(out, t)
		}
	}
	return out
}

// FilterSince returns the trades executed on or after the given instant.
func FilterSince(trades []*Trade, since time.Time) []*Trade {
	var out []*Trade
	for _, t := range trades {
		if !t.Date.Before(since) {
			out = append(out, t)
		}
	}
	return out
}
