package bot

import "sync"

// State is the conversation state of one user.
type State int

const (
	// StateIdle means no flow is in progress; free-text messages create
	// tasks.
	StateIdle State = iota
	// StateAwaitingCity means onboarding asked for a city and the next
	// message is treated as one.
	StateAwaitingCity
	// StatePostTimezoneSet means the timezone was just set and the user is
	// choosing between instructions and starting right away.
	StatePostTimezoneSet
	// StateAwaitingCityForChange means the change-timezone flow asked for a
	// city.
	StateAwaitingCityForChange
)

// Session is the per-user mutable bag the conversation layer keeps between
// events: the FSM state, the resolved timezone, and the task id awaiting
// delete confirmation.
type Session struct {
	State               State
	Timezone            string
	PendingDeleteTaskID string
}

// Sessions holds one session per user. Events for a single user are
// processed one at a time by the transport, so sessions themselves need no
// internal locking; the map does.
type Sessions struct {
	mu sync.Mutex
	m  map[int64]*Session
}

// NewSessions creates an empty session table.
func NewSessions() *Sessions {
	return &Sessions{m: make(map[int64]*Session)}
}

// Get returns the user's session, creating it on first use.
func (s *Sessions) Get(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.m[userID]
	if !ok {
		sess = &Session{State: StateIdle}
		s.m[userID] = sess
	}
	return sess
}
