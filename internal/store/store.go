package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/remindbot/remindbot/internal/models"
)

// TaskStore is the authoritative, in-memory home of task state, mapping
// user id to task id to task. All access goes through its methods; callers
// never hold references into the internal maps.
//
// State is volatile and does not survive a process restart.
type TaskStore struct {
	mu    sync.RWMutex
	users map[int64]map[string]*entry
	seq   uint64
}

// entry pairs a task with its insertion sequence, the List tie-break for
// tasks scheduled at the same instant.
type entry struct {
	task *models.Task
	seq  uint64
}

// NewTaskStore creates an empty task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		users: make(map[int64]map[string]*entry),
	}
}

// Create validates and inserts a new task from the extracted description and
// local timestamp string.
//
// The timestamp is parsed against models.TaskTimeLayout and anchored in loc.
// ErrBadTimeFormat is returned when it does not parse, ErrNotFuture when the
// resulting instant is not strictly after now.
func (s *TaskStore) Create(userID int64, description, timeStr string, loc *time.Location, now time.Time) (*models.Task, error) {
	parsed, err := time.ParseInLocation(models.TaskTimeLayout, timeStr, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadTimeFormat, timeStr)
	}

	if !parsed.After(now) {
		return nil, ErrNotFuture
	}

	task := &models.Task{
		ID:          models.NewTaskID(),
		UserID:      userID,
		Description: description,
		Time:        parsed,
		CreatedAt:   now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, ok := s.users[userID]
	if !ok {
		tasks = make(map[string]*entry)
		s.users[userID] = tasks
	}

	s.seq++
	tasks[task.ID] = &entry{task: task, seq: s.seq}

	return cloneTask(task), nil
}

// Get returns a copy of the task, or nil when it does not exist.
func (s *TaskStore) Get(userID int64, taskID string) *models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.users[userID][taskID]
	if !ok {
		return nil
	}
	return cloneTask(e.task)
}

// List returns copies of the user's tasks sorted ascending by time, with
// insertion order breaking ties.
func (s *TaskStore) List(userID int64) []*models.Task {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.users[userID]))
	for _, e := range s.users[userID] {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].task.Time.Equal(entries[j].task.Time) {
			return entries[i].seq < entries[j].seq
		}
		return entries[i].task.Time.Before(entries[j].task.Time)
	})

	tasks := make([]*models.Task, 0, len(entries))
	for _, e := range entries {
		tasks = append(tasks, cloneTask(e.task))
	}
	return tasks
}

// Delete removes the task and reports whether it existed. Deleting a missing
// task is a no-op, not an error; a second Delete for the same id returns
// false.
func (s *TaskStore) Delete(userID int64, taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, ok := s.users[userID]
	if !ok {
		return false
	}
	if _, ok := tasks[taskID]; !ok {
		return false
	}

	delete(tasks, taskID)
	if len(tasks) == 0 {
		delete(s.users, userID)
	}
	return true
}

// Rebase re-anchors the task's time in loc, preserving the underlying
// instant, and returns a copy of the updated task. Returns nil when the task
// does not exist.
func (s *TaskStore) Rebase(userID int64, taskID string, loc *time.Location) *models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.users[userID][taskID]
	if !ok {
		return nil
	}

	e.task.Time = e.task.Time.In(loc)
	return cloneTask(e.task)
}

// Count returns the number of tasks the user currently holds.
func (s *TaskStore) Count(userID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users[userID])
}

func cloneTask(t *models.Task) *models.Task {
	c := *t
	return &c
}
