package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradeMonkAPI/internal/clock"
	"tradeMonkAPI/internal/stats"
	"tradeMonkAPI/internal/tribunal"
	"tradeMonkAPI/internal/types/challenge"
	"tradeMonkAPI/internal/types/trade"
	"tradeMonkAPI/internal/xp"
	"tradeMonkAPI/middleware"
)

// ErrInvalidOperation rejects mutations the state machine forbids: toggling
// a failed task, touching a non-active challenge, acknowledging a challenge
// that is not past its last day.
var ErrInvalidOperation = errors.New("invalid operation")

var ErrNoActiveChallenge = errors.New("no active challenge")

// ValidationError reports a malformed challenge definition. It is returned
// before any state is created or persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid challenge: %s %s", e.Field, e.Reason)
}

// ChallengeStore is the persistence collaborator. Update is a full-document
// replace keyed by the challenge ID; the service never issues partial
// patches.
type ChallengeStore interface {
	Create(ctx context.Context, ch *challenge.Challenge) error
	Update(ctx context.Context, ch *challenge.Challenge) error
	ActiveForUser(ctx context.Context, userID string) (*challenge.Challenge, error)
	ListByUser(ctx context.Context, userID string) ([]*challenge.Challenge, error)
	Subscribe(userID string, onChange func(*challenge.Challenge)) func()
}

// TradeSource is the trade log collaborator: a read-only snapshot plus a
// trades-changed notification.
type TradeSource interface {
	ListTrades(ctx context.Context, userID string) ([]*trade.Trade, error)
	OnChange(fn func(userID string))
}

// Notifier receives celebration and verdict events. Delivery is
// fire-and-forget; failures never block the engine.
type Notifier interface {
	NotifyMilestone(ctx context.Context, userID string, day int)
	NotifyDayVerdict(ctx context.Context, userID string, ch *challenge.Challenge, day *challenge.Day)
}

type ChallengeServiceConfig struct {
	// AutoComplete flips an active challenge to completed as soon as the
	// clock rolls past its last day. When false the challenge waits for an
	// explicit Acknowledge call.
	AutoComplete bool
}

// ChallengeService is the only component that constructs or replaces a
// challenge and the only one that talks to the store. All mutations for a
// user are serialized through a per-user lock, so two overlapping tribunal
// runs can never overwrite each other's verdicts.
type ChallengeService struct {
	store    ChallengeStore
	trades   TradeSource
	notifier Notifier
	cfg      ChallengeServiceConfig
	now      func() time.Time

	mu     sync.Mutex
	active map[string]*challenge.Challenge
	locks  map[string]*sync.Mutex
	unsubs map[string]func()
}

func NewChallengeService(store ChallengeStore, trades TradeSource, cfg ChallengeServiceConfig) *ChallengeService {
	s := &ChallengeService{
		store:  store,
		trades: trades,
		cfg:    cfg,
		now:    time.Now,
		active: make(map[string]*challenge.Challenge),
		locks:  make(map[string]*sync.Mutex),
		unsubs: make(map[string]func()),
	}
	if trades != nil {
		trades.OnChange(s.onTradesChanged)
	}
	return s
}

// SetNotifier injects the push provider. Optional; without it events are
// only logged.
func (s *ChallengeService) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *ChallengeService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// Init loads the user's active challenge and starts the store subscription
// that keeps the local copy fresh. The cached challenge is only a cache:
// every snapshot from the store replaces it wholesale.
func (s *ChallengeService) Init(ctx context.Context, userID string) error {
	ch, err := s.store.ActiveForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load active challenge: %w", err)
	}

	lock := s.userLock(userID)
	lock.Lock()
	s.setActive(userID, ch)
	lock.Unlock()

	unsub := s.store.Subscribe(userID, func(fresh *challenge.Challenge) {
		lock := s.userLock(userID)
		lock.Lock()
		s.setActive(userID, fresh)
		lock.Unlock()
	})

	s.mu.Lock()
	if old, ok := s.unsubs[userID]; ok {
		old()
	}
	s.unsubs[userID] = unsub
	s.mu.Unlock()

	return nil
}

// Teardown stops the subscription and drops the cached challenge.
func (s *ChallengeService) Teardown(userID string) {
	s.mu.Lock()
	if unsub, ok := s.unsubs[userID]; ok {
		unsub()
		delete(s.unsubs, userID)
	}
	delete(s.active, userID)
	s.mu.Unlock()
}

func (s *ChallengeService) setActive(userID string, ch *challenge.Challenge) {
	s.mu.Lock()
	s.active[userID] = ch
	s.mu.Unlock()
}

func (s *ChallengeService) cachedActive(userID string) *challenge.Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[userID]
}

// CreateFromTemplate builds a challenge from the built-in catalog. The
// result is not persisted until Start.
func (s *ChallengeService) CreateFromTemplate(userID, templateID string) (*challenge.Challenge, error) {
	tpl, ok := challenge.TemplateByID(templateID)
	if !ok {
		return nil, &ValidationError{Field: "template_id", Reason: "is unknown"}
	}
	return s.build(userID, tpl.Title, tpl.Description, tpl.TotalDays, tpl.Rules, tpl.Theme, tpl.ThemeColor, "", tpl.Tasks)
}

// CreateCustom builds a challenge from a user-supplied definition.
func (s *ChallengeService) CreateCustom(userID string, def *challenge.CustomDefinition) (*challenge.Challenge, error) {
	return s.build(userID, def.Title, def.Description, def.TotalDays, def.Rules, def.Theme, def.ThemeColor, def.Stakes, def.Tasks)
}

func (s *ChallengeService) build(userID, title, description string, totalDays int, rules []string, theme, themeColor, stakes string, specs []challenge.TaskSpec) (*challenge.Challenge, error) {
	if title == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if len(specs) == 0 {
		return nil, &ValidationError{Field: "tasks", Reason: "must not be empty"}
	}
	if totalDays <= 0 {
		return nil, &ValidationError{Field: "total_days", Reason: "must be positive"}
	}
	for i, spec := range specs {
		switch spec.VerificationType {
		case challenge.VerifyMaxLoss:
			if spec.Threshold < 0 {
				return nil, &ValidationError{Field: fmt.Sprintf("tasks[%d].threshold", i), Reason: "must not be negative"}
			}
		case challenge.VerifyMaxTrades:
			if spec.Threshold < 0 || spec.Threshold != math.Trunc(spec.Threshold) {
				return nil, &ValidationError{Field: fmt.Sprintf("tasks[%d].threshold", i), Reason: "must be a whole number of trades"}
			}
		}
	}

	now := s.now()
	days := make([]*challenge.Day, totalDays)
	for i := range days {
		tasks := make([]*challenge.Task, len(specs))
		for j, spec := range specs {
			status := challenge.TaskPending
			if i == 0 {
				status = challenge.TaskActive
			}
			tasks[j] = &challenge.Task{
				ID:               challenge.TaskID(i, j),
				Label:            spec.Label,
				VerificationType: spec.VerificationType,
				Threshold:        spec.Threshold,
				Status:           status,
			}
		}
		dayStatus := challenge.DayPending
		if i == 0 {
			dayStatus = challenge.DayActive
		}
		days[i] = &challenge.Day{
			DayNumber: i + 1,
			Date:      now.AddDate(0, 0, i),
			Tasks:     tasks,
			Status:    dayStatus,
		}
	}

	return &challenge.Challenge{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: description,
		TotalDays:   totalDays,
		StartDate:   now,
		CurrentDay:  1,
		Status:      challenge.StatusActive,
		Rules:       append([]string(nil), rules...),
		Theme:       theme,
		ThemeColor:  themeColor,
		Stakes:      stakes,
		Days:        days,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Start persists a freshly built challenge. Any challenge already active for
// the user is superseded first: at most one active challenge per user, and
// the invariant is enforced here, not in storage.
func (s *ChallengeService) Start(ctx context.Context, ch *challenge.Challenge) error {
	lock := s.userLock(ch.UserID)
	lock.Lock()
	defer lock.Unlock()

	prev := s.cachedActive(ch.UserID)
	if prev == nil {
		loaded, err := s.store.ActiveForUser(ctx, ch.UserID)
		if err != nil {
			return fmt.Errorf("failed to check for an active challenge: %w", err)
		}
		prev = loaded
	}
	if prev != nil && prev.Status == challenge.StatusActive {
		prev.Status = challenge.StatusFailed
		prev.UpdatedAt = s.now()
		s.persist(ctx, prev)
		log.Printf("Challenge %s superseded by %s for user %s", prev.ID, ch.ID, ch.UserID)
	}

	if err := s.store.Create(ctx, ch); err != nil {
		return fmt.Errorf("failed to persist new challenge: %w", err)
	}
	s.setActive(ch.UserID, ch)
	return nil
}

// Active returns a copy of the user's active challenge, after applying any
// pending day rollover.
func (s *ChallengeService) Active(ctx context.Context, userID string) (*challenge.Challenge, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ch := s.cachedActive(userID)
	if ch == nil {
		return nil, ErrNoActiveChallenge
	}
	s.advanceLocked(ctx, userID, ch)
	return ch.Clone(), nil
}

// History lists every challenge the user ever ran.
func (s *ChallengeService) History(ctx context.Context, userID string) ([]*challenge.Challenge, error) {
	return s.store.ListByUser(ctx, userID)
}

// ToggleTask flips the completed flag of a task. Only the user may do this,
// and only while the task has not received a failed verdict; a failed task
// is final for the day.
func (s *ChallengeService) ToggleTask(ctx context.Context, userID string, dayNumber int, taskID string) (*challenge.Challenge, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ch := s.cachedActive(userID)
	if ch == nil {
		return nil, ErrNoActiveChallenge
	}
	if ch.Status != challenge.StatusActive {
		return nil, fmt.Errorf("%w: challenge is %s", ErrInvalidOperation, ch.Status)
	}

	day := ch.DayAt(dayNumber)
	if day == nil {
		return nil, fmt.Errorf("%w: day %d out of range", ErrInvalidOperation, dayNumber)
	}
	if dayNumber > ch.CurrentDay {
		// Days ahead of the clock stay pending; no banking tasks early.
		return nil, fmt.Errorf("%w: day %d has not started", ErrInvalidOperation, dayNumber)
	}

	var task *challenge.Task
	for _, t := range day.Tasks {
		if t.ID == taskID {
			task = t
			break
		}
	}
	if task == nil {
		return nil, fmt.Errorf("%w: unknown task %s", ErrInvalidOperation, taskID)
	}
	if task.Status == challenge.TaskFailed {
		return nil, fmt.Errorf("%w: task %s already failed", ErrInvalidOperation, taskID)
	}

	if task.Completed {
		task.Completed = false
		task.Status = challenge.TaskActive
		// An auto-verified task may already hold a verdict for the day's
		// trades; recompute it rather than leaving the task bare until the
		// next tribunal run.
		if task.VerificationType != challenge.VerifyManual && s.trades != nil {
			if all, err := s.trades.ListTrades(ctx, userID); err == nil {
				todays := trade.FilterOnDay(all, day.Date)
				task.Status = tribunal.Evaluate(task, todays, trade.SumPnL(todays))
				task.Completed = task.Status == challenge.TaskCompleted
			}
		}
	} else {
		task.Completed = true
		task.Status = challenge.TaskCompleted
	}

	day.Status = tribunal.AggregateDay(day.Tasks, true)
	ch.XP = xp.Compute(ch)
	ch.UpdatedAt = s.now()
	s.persist(ctx, ch)

	return ch.Clone(), nil
}

// RunTribunal applies the verification rules to every non-manual task of the
// current day and persists the challenge only when at least one status
// changed. Running it twice against an unchanged trade set is a no-op the
// second time.
func (s *ChallengeService) RunTribunal(ctx context.Context, userID string, trades []*trade.Trade) (bool, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.runTribunalLocked(ctx, userID, trades)
}

func (s *ChallengeService) runTribunalLocked(ctx context.Context, userID string, trades []*trade.Trade) (bool, error) {
	ch := s.cachedActive(userID)
	if ch == nil {
		return false, ErrNoActiveChallenge
	}
	if ch.Status != challenge.StatusActive {
		return false, nil
	}

	day := ch.DayAt(ch.CurrentDay)
	if day == nil {
		// Past the last day; nothing left to judge.
		return false, nil
	}

	todays := trade.FilterOnDay(trades, day.Date)
	todaysPnL := trade.SumPnL(todays)

	changed := false
	transitions := 0
	for _, task := range day.Tasks {
		if task.VerificationType == challenge.VerifyManual {
			continue
		}
		next := tribunal.Evaluate(task, todays, todaysPnL)
		if next == task.Status {
			continue
		}
		task.Status = next
		task.Completed = next == challenge.TaskCompleted
		changed = true
		transitions++
	}

	prevDayStatus := day.Status
	newDayStatus := tribunal.AggregateDay(day.Tasks, true)
	if newDayStatus != day.Status {
		day.Status = newDayStatus
		changed = true
	}

	middleware.RecordTribunalRun(transitions)

	if !changed {
		return false, nil
	}

	ch.XP = xp.Compute(ch)
	ch.UpdatedAt = s.now()
	s.persist(ctx, ch)

	if prevDayStatus != newDayStatus && (newDayStatus == challenge.DayFailed || newDayStatus == challenge.DayCompleted) {
		log.Printf("Tribunal verdict for user %s: day %d is %s", userID, day.DayNumber, newDayStatus)
		if s.notifier != nil {
			s.notifier.NotifyDayVerdict(ctx, userID, ch, day)
		}
	}

	return true, nil
}

// CheckDayRollover recomputes the current day from the wall clock and
// persists an advance when one happened. It must be called on every poll:
// the clock is pull-based, nothing pushes midnight at us.
func (s *ChallengeService) CheckDayRollover(ctx context.Context, userID string) (*challenge.Challenge, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ch := s.cachedActive(userID)
	if ch == nil {
		return nil, ErrNoActiveChallenge
	}
	s.advanceLocked(ctx, userID, ch)
	return ch.Clone(), nil
}

// advanceLocked moves the current-day pointer forward when the calendar says
// so. The pointer never moves backwards, whatever the device clock claims.
func (s *ChallengeService) advanceLocked(ctx context.Context, userID string, ch *challenge.Challenge) {
	if ch.Status != challenge.StatusActive {
		return
	}

	newDay, advanced := clock.Rollover(ch.CurrentDay, ch.StartDate, s.now())
	if !advanced {
		return
	}

	prevDay := ch.CurrentDay
	if newDay > ch.TotalDays {
		newDay = ch.TotalDays + 1
	}
	ch.CurrentDay = newDay

	// Close out every day the calendar has left behind: unresolved tasks
	// fail, the day aggregates accordingly. The verdict window is the day
	// itself.
	for i := 0; i < newDay-1 && i < len(ch.Days); i++ {
		d := ch.Days[i]
		if d.Status == challenge.DayCompleted || d.Status == challenge.DayFailed {
			continue
		}
		for _, t := range d.Tasks {
			if !t.Status.Terminal() {
				t.Status = challenge.TaskFailed
			}
		}
		d.Status = tribunal.AggregateDay(d.Tasks, true)
	}

	// Open the new current day.
	if day := ch.DayAt(ch.CurrentDay); day != nil && day.Status == challenge.DayPending {
		day.Status = challenge.DayActive
		for _, t := range day.Tasks {
			if t.Status == challenge.TaskPending {
				t.Status = challenge.TaskActive
			}
		}
	}

	if ch.CurrentDay > ch.TotalDays && s.cfg.AutoComplete {
		ch.Status = challenge.StatusCompleted
		log.Printf("Challenge %s completed for user %s", ch.ID, userID)
	}

	ch.XP = xp.Compute(ch)
	ch.UpdatedAt = s.now()
	s.persist(ctx, ch)

	for _, m := range xp.MilestonesCrossed(prevDay, ch.CurrentDay) {
		log.Printf("User %s reached day %d of %s", userID, m, ch.Title)
		if s.notifier != nil {
			s.notifier.NotifyMilestone(ctx, userID, m)
		}
	}
}

// Acknowledge closes out a challenge that ran past its last day when
// auto-completion is off.
func (s *ChallengeService) Acknowledge(ctx context.Context, userID string) (*challenge.Challenge, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ch := s.cachedActive(userID)
	if ch == nil {
		return nil, ErrNoActiveChallenge
	}
	if ch.Status != challenge.StatusActive || ch.CurrentDay <= ch.TotalDays {
		return nil, fmt.Errorf("%w: challenge has days remaining", ErrInvalidOperation)
	}

	ch.Status = challenge.StatusCompleted
	ch.UpdatedAt = s.now()
	s.persist(ctx, ch)
	return ch.Clone(), nil
}

// Abort fails the active challenge. Irreversible: a new challenge is a new
// document, never a resurrection.
func (s *ChallengeService) Abort(ctx context.Context, userID string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ch := s.cachedActive(userID)
	if ch == nil {
		return ErrNoActiveChallenge
	}
	if ch.Status != challenge.StatusActive {
		return fmt.Errorf("%w: challenge is %s", ErrInvalidOperation, ch.Status)
	}

	ch.Status = challenge.StatusFailed
	ch.UpdatedAt = s.now()
	s.persist(ctx, ch)
	s.setActive(userID, nil)
	return nil
}

// Stats derives the scoreboard for the active challenge.
func (s *ChallengeService) Stats(ctx context.Context, userID string) (*stats.ChallengeStats, error) {
	lock := s.userLock(userID)
	lock.Lock()
	ch := s.cachedActive(userID)
	if ch == nil {
		lock.Unlock()
		return nil, ErrNoActiveChallenge
	}
	snapshot := ch.Clone()
	lock.Unlock()

	trades, err := s.trades.ListTrades(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}

	st := stats.ComputeStats(snapshot, trades)
	return &st, nil
}

// TradesForTribunal snapshots the user's trade log for an explicit
// evaluation pass.
func (s *ChallengeService) TradesForTribunal(ctx context.Context, userID string) ([]*trade.Trade, error) {
	return s.trades.ListTrades(ctx, userID)
}

// onTradesChanged reacts to the trade log: advance the day if midnight
// passed, then put the current day in front of the tribunal. Runs are
// serialized per user by the same lock every other mutation takes.
func (s *ChallengeService) onTradesChanged(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ch := s.cachedActive(userID)
	if ch == nil {
		return
	}
	s.advanceLocked(ctx, userID, ch)

	trades, err := s.trades.ListTrades(ctx, userID)
	if err != nil {
		log.Printf("Tribunal: failed to load trades for %s: %v", userID, err)
		return
	}
	if _, err := s.runTribunalLocked(ctx, userID, trades); err != nil {
		log.Printf("Tribunal: run failed for %s: %v", userID, err)
	}
}

// persist writes the whole challenge document. Writes are optimistic: on
// failure the local copy is kept and the error logged, and the store
// subscription re-syncs us whenever the next successful write lands.
func (s *ChallengeService) persist(ctx context.Context, ch *challenge.Challenge) {
	if err := s.store.Update(ctx, ch); err != nil {
		middleware.RecordPersistFailure()
		log.Printf("Failed to persist challenge %s: %v (keeping local state)", ch.ID, err)
	}
}
