package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// FirePayload identifies the task a fired job refers to. It deliberately
// carries ids only: task state may have changed since scheduling, so the
// fire handler must read the task back from the store.
type FirePayload struct {
	UserID int64
	TaskID string
}

// FireFunc is invoked once when a scheduled job's delay elapses.
type FireFunc func(payload FirePayload)

// Scheduler registers one-shot delayed callbacks keyed by task id.
//
// Contract: at most one pending job per task id; Schedule replaces any
// pending job under the same id; Cancel of a missing id is a no-op.
// Rescheduling is always expressed as Cancel plus a fresh Schedule.
type Scheduler interface {
	Schedule(taskID string, delay time.Duration, payload FirePayload)
	Cancel(taskID string) bool
	Pending(taskID string) bool
	Stop()
}

// job is a pending timer tagged with the generation that created it, so a
// timer that already fired into its goroutine cannot deliver for a
// superseded registration.
type job struct {
	timer *time.Timer
	gen   uint64
}

// TimerScheduler backs the Scheduler contract with one time.Timer per
// pending job.
type TimerScheduler struct {
	mu      sync.Mutex
	jobs    map[string]*job
	gen     uint64
	onFire  FireFunc
	logger  *zap.Logger
	stopped bool
}

// NewTimerScheduler creates a scheduler that delivers fired jobs to onFire.
func NewTimerScheduler(onFire FireFunc, logger *zap.Logger) *TimerScheduler {
	return &TimerScheduler{
		jobs:   make(map[string]*job),
		onFire: onFire,
		logger: logger,
	}
}

// Schedule registers a job for taskID after delay, replacing any pending job
// under the same id. Non-positive delays are clamped to zero; the callback
// still runs on a timer goroutine, never inline.
func (s *TimerScheduler) Schedule(taskID string, delay time.Duration, payload FirePayload) {
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if existing, ok := s.jobs[taskID]; ok {
		existing.timer.Stop()
		delete(s.jobs, taskID)
		s.logger.Debug("superseding pending job",
			zap.String("task_id", taskID),
		)
	}

	s.gen++
	gen := s.gen
	timer := time.AfterFunc(delay, func() {
		s.fire(taskID, gen, payload)
	})
	s.jobs[taskID] = &job{timer: timer, gen: gen}

	s.logger.Debug("job scheduled",
		zap.String("task_id", taskID),
		zap.Duration("delay", delay),
	)
}

// Cancel removes the pending job for taskID, reporting whether one existed.
func (s *TimerScheduler) Cancel(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[taskID]
	if !ok {
		return false
	}

	j.timer.Stop()
	delete(s.jobs, taskID)

	s.logger.Debug("job cancelled", zap.String("task_id", taskID))
	return true
}

// Pending reports whether a job is currently registered for taskID.
func (s *TimerScheduler) Pending(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[taskID]
	return ok
}

// Stop cancels every pending job and rejects further scheduling. Jobs whose
// timers already fired may still reach fire, where they are discarded.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for taskID, j := range s.jobs {
		j.timer.Stop()
		delete(s.jobs, taskID)
	}
	s.stopped = true
}

// fire runs on the timer goroutine. The generation check drops deliveries
// for registrations that were cancelled or superseded after the timer went
// off but before it acquired the lock.
func (s *TimerScheduler) fire(taskID string, gen uint64, payload FirePayload) {
	s.mu.Lock()
	j, ok := s.jobs[taskID]
	if !ok || j.gen != gen || s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.jobs, taskID)
	s.mu.Unlock()

	s.onFire(payload)
}
