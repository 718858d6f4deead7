package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"tradeMonkAPI/internal/types/trade"
)

var ErrTradeNotFound = errors.New("trade not found")

// TradeService owns the trade log in Postgres and tells its subscribers
// whenever a user's trades change. Subscribers are invoked synchronously
// after each successful write.
type TradeService struct {
	db *pgxpool.Pool

	mu   sync.RWMutex
	subs []func(userID string)
}

func NewTradeService(db *pgxpool.Pool) *TradeService {
	return &TradeService{db: db}
}

// OnChange registers a trades-changed subscriber.
func (s *TradeService) OnChange(fn func(userID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *TradeService) notify(userID string) {
	s.mu.RLock()
	subs := make([]func(string), len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(userID)
	}
}

func (s *TradeService) CreateTrade(ctx context.Context, userID string, req *trade.CreateTradeRequest) (*trade.Trade, error) {
	executedAt := time.Now()
	if req.Date != nil {
		executedAt = *req.Date
	}
	outcome := req.Outcome
	if outcome == "" {
		outcome = trade.OutcomePending
	}

	t := &trade.Trade{
		ID:        uuid.New().String(),
		UserID:    userID,
		Symbol:    req.Symbol,
		Date:      executedAt,
		PnL:       req.PnL,
		Notes:     req.Notes,
		Outcome:   outcome,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	query := `
	INSERT INTO trades (id, user_id, symbol, executed_at, pnl, notes, outcome, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var pnl *string
	if t.PnL != nil {
		v := t.PnL.String()
		pnl = &v
	}

	_, err := s.db.Exec(ctx, query,
		t.ID, t.UserID, t.Symbol, t.Date, pnl, t.Notes, string(t.Outcome), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}

	s.notify(userID)
	return t, nil
}

func (s *TradeService) UpdateTrade(ctx context.Context, userID, tradeID string, req *trade.CreateTradeRequest) (*trade.Trade, error) {
	var pnl *string
	if req.PnL != nil {
		v := req.PnL.String()
		pnl = &v
	}

	query := `
	UPDATE trades
	SET symbol = $1, pnl = $2, notes = $3, outcome = $4, updated_at = NOW()
	WHERE id = $5 AND user_id = $6
	`

	tag, err := s.db.Exec(ctx, query, req.Symbol, pnl, req.Notes, string(req.Outcome), tradeID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrTradeNotFound
	}

	t, err := s.getTrade(ctx, userID, tradeID)
	if err != nil {
		return nil, err
	}

	s.notify(userID)
	return t, nil
}

func (s *TradeService) DeleteTrade(ctx context.Context, userID, tradeID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM trades WHERE id = $1 AND user_id = $2`, tradeID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTradeNotFound
	}

	s.notify(userID)
	return nil
}

func (s *TradeService) getTrade(ctx context.Context, userID, tradeID string) (*trade.Trade, error) {
	row := s.db.QueryRow(ctx, `
	SELECT id, user_id, symbol, executed_at, pnl::text, notes, outcome, created_at, updated_at
	FROM trades
	WHERE id = $1 AND user_id = $2
	`, tradeID, userID)

	t, err := scanTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTradeNotFound
	}
	return t, err
}

// ListTrades returns the user's whole trade log, oldest first. The engine
// treats it as a read-only snapshot.
func (s *TradeService) ListTrades(ctx context.Context, userID string) ([]*trade.Trade, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, user_id, symbol, executed_at, pnl::text, notes, outcome, created_at, updated_at
	FROM trades
	WHERE user_id = $1
	ORDER BY executed_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	var out []*trade.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TradesOn returns the trades executed on the same local calendar day as day.
// The day filtering runs in Go so the local-midnight semantics match the
// challenge clock rather than the database's timezone.
func (s *TradeService) TradesOn(ctx context.Context, userID string, day time.Time) ([]*trade.Trade, error) {
	all, err := s.ListTrades(ctx, userID)
	if err != nil {
		return nil, err
	}
	return trade.FilterOnDay(all, day), nil
}

func scanTrade(row pgx.Row) (*trade.Trade, error) {
	t := &trade.Trade{}
	var pnl *string
	var outcome string
	if err := row.Scan(&t.ID, &t.UserID, &t.Symbol, &t.Date, &pnl, &t.Notes, &outcome, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan trade: %w", err)
	}
	t.Outcome = trade.Outcome(outcome)
	if pnl != nil {
		d, err := decimal.NewFromString(*pnl)
		if err != nil {
			return nil, fmt.Errorf("failed to parse pnl %q: %w", *pnl, err)
		}
		t.PnL = &d
	}
	return t, nil
}
