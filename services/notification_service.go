package services

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"tradeMonkAPI/internal/notification"
	"tradeMonkAPI/internal/types/challenge"
)

// PushProvider delivers a notification to a set of devices.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

// NotificationService turns engine events into device pushes. Delivery is
// best-effort: a failed push is logged and dropped.
type NotificationService struct {
	db       *pgxpool.Pool
	provider PushProvider
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

// SetPushProvider injects the FCM client. Without a provider the service
// only logs.
func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.provider = p
}

func (s *NotificationService) RegisterDevice(ctx context.Context, userID, token, platform string) error {
	query := `
	INSERT INTO device_tokens (user_id, token, platform, created_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (token)
	DO UPDATE SET user_id = $1, platform = $3
	`
	if _, err := s.db.Exec(ctx, query, userID, token, platform); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *NotificationService) tokensFor(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// NotifyMilestone fires the celebration push for a day milestone.
func (s *NotificationService) NotifyMilestone(ctx context.Context, userID string, day int) {
	title := fmt.Sprintf("Day %d!", day)
	body := fmt.Sprintf("You've held the line for %d days. Keep going.", day)
	s.push(ctx, userID, title, body, map[string]any{"type": "milestone", "day": day})
}

// NotifyDayVerdict fires when the tribunal settles a day.
func (s *NotificationService) NotifyDayVerdict(ctx context.Context, userID string, ch *challenge.Challenge, day *challenge.Day) {
	var title, body string
	switch day.Status {
	case challenge.DayCompleted:
		title = "Day complete"
		body = fmt.Sprintf("Day %d of %s is in the books.", day.DayNumber, ch.Title)
	case challenge.DayFailed:
		title = "The Tribunal has spoken"
		body = fmt.Sprintf("Day %d of %s is lost. Tomorrow is a new day.", day.DayNumber, ch.Title)
	default:
		return
	}
	s.push(ctx, userID, title, body, map[string]any{
		"type":      "day_verdict",
		"day":       day.DayNumber,
		"status":    string(day.Status),
		"challenge": ch.ID,
	})
}

func (s *NotificationService) push(ctx context.Context, userID, title, body string, data map[string]any) {
	if s.provider == nil {
		log.Printf("Notification (no provider) for %s: %s - %s", userID, title, body)
		return
	}

	tokens, err := s.tokensFor(ctx, userID)
	if err != nil {
		log.Printf("Notification: %v", err)
		return
	}
	if err := s.provider.SendPush(ctx, tokens, title, body, data); err != nil {
		log.Printf("Notification: push to %s failed: %v", userID, err)
	}
}
