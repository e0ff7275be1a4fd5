package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskTimeLayout is the textual timestamp format exchanged with the oracle
// and shown to users.
const TaskTimeLayout = "2006-01-02 15:04:05"

// Task represents a single scheduled reminder owned by one user.
//
// Time is an absolute instant anchored in the owner's current timezone.
// A timezone change rewrites the anchor (via time.Time.In) without moving
// the underlying instant.
type Task struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	Description string    `json:"description"`
	Time        time.Time `json:"time"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewTaskID returns a fresh task identifier. A truncated UUID keeps button
// callback payloads short; collisions are negligible at per-user task counts.
func NewTaskID() string {
	return uuid.NewString()[:8]
}

// FormattedTime renders the task time in the exchange layout, in the
// timezone the task is currently anchored to.
func (t *Task) FormattedTime() string {
	return t.Time.Format(TaskTimeLayout)
}
