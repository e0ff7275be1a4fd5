package scheduler

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fireRecorder collects fired payloads for assertions.
type fireRecorder struct {
	mu    sync.Mutex
	fired []FirePayload
	ch    chan FirePayload
}

func newFireRecorder() *fireRecorder {
	return &fireRecorder{ch: make(chan FirePayload, 16)}
}

func (r *fireRecorder) onFire(p FirePayload) {
	r.mu.Lock()
	r.fired = append(r.fired, p)
	r.mu.Unlock()
	r.ch <- p
}

func (r *fireRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func (r *fireRecorder) wait(t *testing.T, timeout time.Duration) FirePayload {
	t.Helper()
	select {
	case p := <-r.ch:
		return p
	case <-time.After(timeout):
		t.Fatal("timed out waiting for fire")
		return FirePayload{}
	}
}

func TestTimerScheduler_FiresWithPayload(t *testing.T) {
	t.Parallel()

	rec := newFireRecorder()
	s := NewTimerScheduler(rec.onFire, zap.NewNop())
	defer s.Stop()

	s.Schedule("abc", 10*time.Millisecond, FirePayload{UserID: 7, TaskID: "abc"})

	p := rec.wait(t, time.Second)
	if p.UserID != 7 || p.TaskID != "abc" {
		t.Errorf("unexpected payload %+v", p)
	}
	if s.Pending("abc") {
		t.Error("job should be gone after firing")
	}
}

func TestTimerScheduler_NonPositiveDelayFiresAsync(t *testing.T) {
	t.Parallel()

	rec := newFireRecorder()
	s := NewTimerScheduler(rec.onFire, zap.NewNop())
	defer s.Stop()

	s.Schedule("abc", -5*time.Second, FirePayload{UserID: 1, TaskID: "abc"})
	// Schedule must return before the callback runs; the fire happens on a
	// timer goroutine.
	if got := rec.count(); got != 0 {
		t.Errorf("fire ran inline, count=%d", got)
	}

	rec.wait(t, time.Second)
}

func TestTimerScheduler_CancelPreventsFire(t *testing.T) {
	t.Parallel()

	rec := newFireRecorder()
	s := NewTimerScheduler(rec.onFire, zap.NewNop())
	defer s.Stop()

	s.Schedule("abc", 30*time.Millisecond, FirePayload{UserID: 1, TaskID: "abc"})
	if !s.Cancel("abc") {
		t.Error("cancel of a pending job should report true")
	}
	if s.Cancel("abc") {
		t.Error("second cancel should be a no-op")
	}
	if s.Cancel("never-scheduled") {
		t.Error("cancel of an unknown id should be a no-op")
	}

	time.Sleep(80 * time.Millisecond)
	if got := rec.count(); got != 0 {
		t.Errorf("cancelled job fired %d times", got)
	}
}

func TestTimerScheduler_ScheduleSupersedes(t *testing.T) {
	t.Parallel()

	rec := newFireRecorder()
	s := NewTimerScheduler(rec.onFire, zap.NewNop())
	defer s.Stop()

	// Re-scheduling under the same id replaces the earlier registration;
	// only one fire may be observed.
	s.Schedule("abc", 20*time.Millisecond, FirePayload{UserID: 1, TaskID: "abc"})
	s.Schedule("abc", 40*time.Millisecond, FirePayload{UserID: 2, TaskID: "abc"})

	p := rec.wait(t, time.Second)
	if p.UserID != 2 {
		t.Errorf("expected the superseding registration to fire, got %+v", p)
	}

	time.Sleep(80 * time.Millisecond)
	if got := rec.count(); got != 1 {
		t.Errorf("expected exactly one fire, got %d", got)
	}
}

func TestTimerScheduler_AtMostOnePending(t *testing.T) {
	t.Parallel()

	rec := newFireRecorder()
	s := NewTimerScheduler(rec.onFire, zap.NewNop())
	defer s.Stop()

	for i := 0; i < 10; i++ {
		s.Schedule("abc", time.Minute, FirePayload{UserID: 1, TaskID: "abc"})
	}
	s.mu.Lock()
	pending := len(s.jobs)
	s.mu.Unlock()

	if pending != 1 {
		t.Errorf("expected exactly one pending job, got %d", pending)
	}
}

func TestTimerScheduler_StopCancelsAll(t *testing.T) {
	t.Parallel()

	rec := newFireRecorder()
	s := NewTimerScheduler(rec.onFire, zap.NewNop())

	s.Schedule("a", 20*time.Millisecond, FirePayload{UserID: 1, TaskID: "a"})
	s.Schedule("b", 20*time.Millisecond, FirePayload{UserID: 1, TaskID: "b"})
	s.Stop()

	// Scheduling after Stop is rejected.
	s.Schedule("c", time.Millisecond, FirePayload{UserID: 1, TaskID: "c"})

	time.Sleep(60 * time.Millisecond)
	if got := rec.count(); got != 0 {
		t.Errorf("expected no fires after Stop, got %d", got)
	}
}
