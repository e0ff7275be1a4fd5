package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/remindbot/remindbot/internal/models"
	"github.com/remindbot/remindbot/internal/scheduler"
	"github.com/remindbot/remindbot/internal/services/ai"
	"github.com/remindbot/remindbot/internal/store"
)

// Notifier delivers a fired reminder to the user. It is implemented by the
// chat transport adapter outside this package.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, userID int64, text string) error

func (f NotifierFunc) Notify(ctx context.Context, userID int64, text string) error {
	return f(ctx, userID, text)
}

// Service is the task-scheduling and timezone-normalization engine. It owns
// the task store and the reminder scheduler; the conversation layer calls
// into it and never touches either directly.
//
// The service mutex keeps store mutations and their matching schedule or
// cancel calls atomic: a cancel-then-reschedule during timezone
// reconciliation can never interleave with task creation or deletion for
// the same user. Oracle calls happen outside the lock.
type Service struct {
	mu       sync.Mutex
	store    *store.TaskStore
	sched    scheduler.Scheduler
	oracle   ai.Oracle
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service clock. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates the engine with its own task store and timer scheduler.
func NewService(oracle ai.Oracle, notifier Notifier, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		store:    store.NewTaskStore(),
		oracle:   oracle,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.sched = scheduler.NewTimerScheduler(s.handleFire, logger)
	return s
}

// ResolveTimezone resolves a free-text place name to an IANA timezone
// identifier via the oracle, using the current UTC instant as the
// disambiguation reference.
func (s *Service) ResolveTimezone(ctx context.Context, city string) (string, error) {
	return s.oracle.ResolveTimezone(ctx, city, s.now().UTC())
}

// CreateFromMessage extracts a task and time from a free-text message and
// creates the reminder. tz must be a canonical IANA identifier.
//
// Returned errors are ai.ErrMalformedReply, store.ErrBadTimeFormat or
// store.ErrNotFuture; the caller maps each to a re-prompt.
func (s *Service) CreateFromMessage(ctx context.Context, userID int64, message, tz string) (*models.Task, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", tz, err)
	}

	userNow := s.now().In(loc)

	extraction, err := s.oracle.ExtractTask(ctx, message, userNow)
	if err != nil {
		return nil, err
	}

	return s.CreateTask(userID, extraction.Task, extraction.Time, loc, userNow)
}

// CreateTask runs the creation pipeline: parse the local timestamp, reject
// past instants, insert into the store and schedule the reminder job.
func (s *Service) CreateTask(userID int64, description, timeStr string, loc *time.Location, now time.Time) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.store.Create(userID, description, timeStr, loc, now)
	if err != nil {
		return nil, err
	}

	s.sched.Schedule(task.ID, task.Time.Sub(now), scheduler.FirePayload{
		UserID: userID,
		TaskID: task.ID,
	})

	s.logger.Info("task created",
		zap.Int64("user_id", userID),
		zap.String("task_id", task.ID),
		zap.Time("fire_at", task.Time),
	)

	return task, nil
}

// ListTasks returns the user's tasks sorted ascending by time.
func (s *Service) ListTasks(userID int64) []*models.Task {
	return s.store.List(userID)
}

// GetTask returns the task, or nil when it does not exist.
func (s *Service) GetTask(userID int64, taskID string) *models.Task {
	return s.store.Get(userID, taskID)
}

// DeleteTask removes the task and its pending job, reporting whether the
// task existed. Deleting an already-gone task is a no-op.
func (s *Service) DeleteTask(userID int64, taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	existed := s.store.Delete(userID, taskID)
	s.sched.Cancel(taskID)

	if existed {
		s.logger.Info("task deleted",
			zap.Int64("user_id", userID),
			zap.String("task_id", taskID),
		)
	}
	return existed
}

// ReconcileTimezone rewrites every pending task of the user into newTz and
// reschedules its job with the recomputed delay. The underlying instants do
// not move; only their zoned representation changes. Returns the number of
// tasks reconciled.
//
// A first-time timezone set (empty oldTz) and a no-op change perform no
// reconciliation.
func (s *Service) ReconcileTimezone(userID int64, oldTz, newTz string) (int, error) {
	if oldTz == "" || oldTz == newTz {
		return 0, nil
	}

	loc, err := time.LoadLocation(newTz)
	if err != nil {
		return 0, fmt.Errorf("load location %q: %w", newTz, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().In(loc)
	count := 0
	for _, task := range s.store.List(userID) {
		updated := s.store.Rebase(userID, task.ID, loc)
		if updated == nil {
			continue
		}

		s.sched.Cancel(task.ID)
		s.sched.Schedule(task.ID, updated.Time.Sub(now), scheduler.FirePayload{
			UserID: userID,
			TaskID: task.ID,
		})
		count++
	}

	s.logger.Info("tasks reconciled to new timezone",
		zap.Int64("user_id", userID),
		zap.String("old_tz", oldTz),
		zap.String("new_tz", newTz),
		zap.Int("count", count),
	)

	return count, nil
}

// Stop cancels every pending job. In-flight fires drain on their own.
func (s *Service) Stop() {
	s.sched.Stop()
}

// handleFire runs on a scheduler goroutine when a job's delay elapses. The
// task is claimed under the service mutex: it is read back from the store and
// removed in one critical section, so a concurrent delete or reconciliation
// for the same id either ran first (the claim finds nothing and the fire is
// silently dropped) or runs after (and finds no task left to act on).
// Delivery happens outside the lock from the claimed copy.
func (s *Service) handleFire(payload scheduler.FirePayload) {
	s.mu.Lock()
	task := s.store.Get(payload.UserID, payload.TaskID)
	if task == nil {
		s.mu.Unlock()
		s.logger.Debug("stale job fire discarded",
			zap.Int64("user_id", payload.UserID),
			zap.String("task_id", payload.TaskID),
		)
		return
	}
	s.store.Delete(payload.UserID, payload.TaskID)
	s.mu.Unlock()

	if err := s.notifier.Notify(context.Background(), task.UserID, renderReminder(task)); err != nil {
		s.logger.Error("failed to deliver reminder",
			zap.Int64("user_id", task.UserID),
			zap.String("task_id", task.ID),
			zap.Error(err),
		)
	}

	s.logger.Info("reminder fired",
		zap.Int64("user_id", payload.UserID),
		zap.String("task_id", payload.TaskID),
	)
}
