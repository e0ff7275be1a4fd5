package store

import (
	"errors"
	"testing"
	"time"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("failed to load location %s: %v", name, err)
	}
	return loc
}

func TestTaskStore_Create(t *testing.T) {
	t.Parallel()

	paris := mustLocation(t, "Europe/Paris")
	now := time.Date(2024, 3, 1, 11, 0, 0, 0, paris)

	tests := []struct {
		name    string
		timeStr string
		wantErr error
	}{
		{
			name:    "future time - created",
			timeStr: "2024-03-01 11:30:00",
			wantErr: nil,
		},
		{
			name:    "past time - rejected",
			timeStr: "2024-03-01 10:59:59",
			wantErr: ErrNotFuture,
		},
		{
			name:    "equal to now - rejected",
			timeStr: "2024-03-01 11:00:00",
			wantErr: ErrNotFuture,
		},
		{
			name:    "garbage - rejected",
			timeStr: "tomorrow at noon",
			wantErr: ErrBadTimeFormat,
		},
		{
			name:    "wrong layout - rejected",
			timeStr: "01.03.2024 11:30",
			wantErr: ErrBadTimeFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewTaskStore()
			task, err := s.Create(1, "call Alice", tt.timeStr, paris, now)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				if task != nil {
					t.Errorf("expected no task on rejection, got %+v", task)
				}
				if s.Count(1) != 0 {
					t.Errorf("rejected creation must not insert, store holds %d tasks", s.Count(1))
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if task.ID == "" {
				t.Error("expected a generated task id")
			}
			if !task.Time.After(now) {
				t.Errorf("stored time %v must be strictly after now %v", task.Time, now)
			}
			if got := task.Time.Format("2006-01-02 15:04:05"); got != tt.timeStr {
				t.Errorf("expected stored time %s, got %s", tt.timeStr, got)
			}
		})
	}
}

func TestTaskStore_ListOrdering(t *testing.T) {
	t.Parallel()

	paris := mustLocation(t, "Europe/Paris")
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, paris)
	s := NewTaskStore()

	later, err := s.Create(1, "later", "2024-03-01 15:00:00", paris, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sooner, err := s.Create(1, "sooner", "2024-03-01 10:00:00", paris, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Same instant as "later": insertion order breaks the tie.
	tied, err := s.Create(1, "tied", "2024-03-01 15:00:00", paris, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := s.List(1)
	if len(got) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(got))
	}
	wantOrder := []string{sooner.ID, later.ID, tied.ID}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Errorf("position %d: expected task %s, got %s", i, want, got[i].ID)
		}
	}
}

func TestTaskStore_ListIsolatesUsers(t *testing.T) {
	t.Parallel()

	paris := mustLocation(t, "Europe/Paris")
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, paris)
	s := NewTaskStore()

	if _, err := s.Create(1, "mine", "2024-03-01 10:00:00", paris, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := s.List(2); len(got) != 0 {
		t.Errorf("expected no tasks for other user, got %d", len(got))
	}
}

func TestTaskStore_DeleteIdempotent(t *testing.T) {
	t.Parallel()

	paris := mustLocation(t, "Europe/Paris")
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, paris)
	s := NewTaskStore()

	task, err := s.Create(1, "call Alice", "2024-03-01 10:00:00", paris, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !s.Delete(1, task.ID) {
		t.Error("first delete should report the task existed")
	}
	if s.Delete(1, task.ID) {
		t.Error("second delete should report the task was already gone")
	}
	if s.Delete(1, "missing") {
		t.Error("deleting an unknown id should be a no-op")
	}
	if s.Get(1, task.ID) != nil {
		t.Error("deleted task should not be readable")
	}
}

func TestTaskStore_RebasePreservesInstant(t *testing.T) {
	t.Parallel()

	paris := mustLocation(t, "Europe/Paris")
	newYork := mustLocation(t, "America/New_York")
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, paris)
	s := NewTaskStore()

	task, err := s.Create(1, "call Alice", "2024-03-01 11:30:00", paris, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	utcBefore := task.Time.UTC()

	rebased := s.Rebase(1, task.ID, newYork)
	if rebased == nil {
		t.Fatal("expected rebased task")
	}

	if got := rebased.Time.Format("2006-01-02 15:04:05"); got != "2024-03-01 05:30:00" {
		t.Errorf("expected New York representation 2024-03-01 05:30:00, got %s", got)
	}
	if !rebased.Time.UTC().Equal(utcBefore) {
		t.Errorf("rebase moved the instant: %v != %v", rebased.Time.UTC(), utcBefore)
	}

	if s.Rebase(1, "missing", newYork) != nil {
		t.Error("rebase of a missing task should return nil")
	}
}

func TestTaskStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	paris := mustLocation(t, "Europe/Paris")
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, paris)
	s := NewTaskStore()

	task, err := s.Create(1, "call Alice", "2024-03-01 10:00:00", paris, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := s.Get(1, task.ID)
	got.Description = "mutated"

	if s.Get(1, task.ID).Description != "call Alice" {
		t.Error("mutating a returned task must not affect the store")
	}
}
