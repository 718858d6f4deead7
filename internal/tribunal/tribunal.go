// Package tribunal holds the rule engine that judges a challenge day: pure
// functions that map the day's trades onto task verdicts and task verdicts
// onto a day verdict. Nothing in here mutates state or talks to storage.
package tribunal

import (
	"strings"

	"github.com/shopspring/decimal"

	"tradeMonkAPI/internal/types/challenge"
	"tradeMonkAPI/internal/types/trade"
)

// minJournalLength is the minimum note length for an entry to count as a
// real journal entry rather than a placeholder.
const minJournalLength = 10

// Evaluate returns the next status for a task given the trades executed on
// the day under judgment and their summed pnl.
//
// A task that already reached a terminal status keeps it: the verdict is
// final for the day, later trades cannot overturn it. Manual tasks are never
// auto-evaluated; they only move through an explicit user toggle.
func Evaluate(task *challenge.Task, todays []*trade.Trade, todaysPnL decimal.Decimal) challenge.TaskStatus {
	if task.Status.Terminal() {
		return task.Status
	}

	switch task.VerificationType {
	case challenge.VerifyMaxLoss:
		// Fails once the day's realized pnl reaches the loss limit.
		limit := decimal.NewFromFloat(task.Threshold).Neg()
		if todaysPnL.LessThanOrEqual(limit) {
			return challenge.TaskFailed
		}
		return challenge.TaskPassing

	case challenge.VerifyMaxTrades:
		if len(todays) > int(task.Threshold) {
			return challenge.TaskFailed
		}
		return challenge.TaskPassing

	case challenge.VerifyJournal:
		// Completes once there is at least one trade and every trade
		// carries a real note. Never auto-fails: an unjournaled trade can
		// still be journaled before the day ends.
		if len(todays) == 0 {
			return task.Status
		}
		for _, t := range todays {
			if len(strings.TrimSpace(t.Notes)) <= minJournalLength {
				return task.Status
			}
		}
		return challenge.TaskCompleted

	default:
		// Manual and unknown kinds are left to the user.
		return task.Status
	}
}

// AggregateDay derives a day's status from its tasks. The started flag tells
// the aggregator whether the day has been reached yet; tasks alone cannot
// distinguish an untouched current day from a future one.
func AggregateDay(tasks []*challenge.Task, started bool) challenge.DayStatus {
	allCompleted := len(tasks) > 0
	anyFailed := false
	for _, t := range tasks {
		if !t.Completed {
			allCompleted = false
		}
		if t.Status == challenge.TaskFailed {
			anyFailed = true
		}
	}

	switch {
	case allCompleted:
		return challenge.DayCompleted
	case anyFailed:
		return challenge.DayFailed
	case started:
		return challenge.DayActive
	default:
		return challenge.DayPending
	}
}
