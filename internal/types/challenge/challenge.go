package challenge

import (
	"fmt"
	"time"
)

type VerificationType string

const (
	VerifyManual    VerificationType = "manual"
	VerifyMaxLoss   VerificationType = "max_loss"
	VerifyMaxTrades VerificationType = "max_trades"
	VerifyJournal   VerificationType = "journal_all"
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskActive    TaskStatus = "active"
	TaskPassing   TaskStatus = "passing"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Terminal reports whether the tribunal's verdict on this status is final
// for the day.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

type DayStatus string

const (
	DayPending   DayStatus = "pending"
	DayActive    DayStatus = "active"
	DayCompleted DayStatus = "completed"
	DayFailed    DayStatus = "failed"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Task struct {
	ID               string           `json:"id" firestore:"id"`
	Label            string           `json:"label" firestore:"label"`
	Completed        bool             `json:"completed" firestore:"completed"`
	VerificationType VerificationType `json:"verification_type" firestore:"verificationType"`
	Threshold        float64          `json:"threshold,omitempty" firestore:"threshold,omitempty"`
	Status           TaskStatus       `json:"status" firestore:"status"`
}

type Day struct {
	DayNumber int       `json:"day_number" firestore:"dayNumber"`
	Date      time.Time `json:"date" firestore:"date"`
	Tasks     []*Task   `json:"tasks" firestore:"tasks"`
	Status    DayStatus `json:"status" firestore:"status"`
}

type Challenge struct {
	ID          string    `json:"id" firestore:"id"`
	UserID      string    `json:"user_id" firestore:"userId"`
	Title       string    `json:"title" firestore:"title"`
	Description string    `json:"description" firestore:"description"`
	TotalDays   int       `json:"total_days" firestore:"totalDays"`
	StartDate   time.Time `json:"start_date" firestore:"startDate"`
	CurrentDay  int       `json:"current_day" firestore:"currentDay"`
	Status      Status    `json:"status" firestore:"status"`
	Rules       []string  `json:"rules" firestore:"rules"`
	Theme       string    `json:"theme" firestore:"theme"`
	ThemeColor  string    `json:"theme_color,omitempty" firestore:"themeColor,omitempty"`
	Stakes      string    `json:"stakes,omitempty" firestore:"stakes,omitempty"`
	XP          int       `json:"xp" firestore:"xp"`
	Days        []*Day    `json:"days" firestore:"days"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt"`
}

// TaskID builds the task identifier used across the whole challenge document.
// Both indexes are zero-based; the result is unique within the challenge.
func TaskID(dayIndex, taskIndex int) string {
	return fmt.Sprintf("%d_%d", dayIndex, taskIndex)
}

// DayAt returns the day for the given 1-based day number, or nil when out of
// range.
func (c *Challenge) DayAt(dayNumber int) *Day {
	if dayNumber < 1 || dayNumber > len(c.Days) {
		return nil
	}
	return c.Days[dayNumber-1]
}

// Clone deep-copies the challenge so callers can mutate a working copy
// without touching the cached document.
func (c *Challenge) Clone() *Challenge {
	cp := *c
	cp.Rules = append([]string(nil), c.Rules...)
	cp.Days = make([]*Day, len(c.Days))
	for i, d := range c.Days {
		dc := *d
		dc.Tasks = make([]*Task, len(d.Tasks))
		for j, t := range d.Tasks {
			tc := *t
			dc.Tasks[j] = &tc
		}
		cp.Days[i] = &dc
	}
	return &cp
}

type TaskSpec struct {
	Label            string           `json:"label"`
	VerificationType VerificationType `json:"verification_type"`
	Threshold        float64          `json:"threshold,omitempty"`
}

type Template struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	TotalDays   int        `json:"total_days"`
	Rules       []string   `json:"rules"`
	Theme       string     `json:"theme"`
	ThemeColor  string     `json:"theme_color"`
	Tasks       []TaskSpec `json:"tasks"`
}

type CustomDefinition struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	TotalDays   int        `json:"total_days"`
	Rules       []string   `json:"rules"`
	Theme       string     `json:"theme"`
	ThemeColor  string     `json:"theme_color,omitempty"`
	Stakes      string     `json:"stakes,omitempty"`
	Tasks       []TaskSpec `json:"tasks"`
}
