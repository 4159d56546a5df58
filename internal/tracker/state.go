package tracker

import (
	"sync"
	"time"
)

// Status describes the most recent update cycles.
type Status struct {
	LastCycleID   string    `json:"last_cycle_id,omitempty"`
	LastAttempt   time.Time `json:"last_attempt,omitempty"`
	LastSuccess   time.Time `json:"last_success,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	LastErrorKind string    `json:"last_error_kind,omitempty"`
	HourlyCount   int       `json:"hourly_count"`
	DailyCount    int       `json:"daily_count"`
}

// State is the in-memory record of cycle outcomes shared between the
// scheduler goroutine and readers.
type State struct {
	mu     sync.RWMutex
	status Status
}

func NewState() *State {
	return &State{}
}

func (s *State) RecordSuccess(cycleID string, at time.Time, hourly, daily int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastCycleID = cycleID
	s.status.LastAttempt = at
	s.status.LastSuccess = at
	s.status.LastError = ""
	s.status.LastErrorKind = ""
	s.status.HourlyCount = hourly
	s.status.DailyCount = daily
}

func (s *State) RecordFailure(cycleID string, at time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastCycleID = cycleID
	s.status.LastAttempt = at
	s.status.LastError = err.Error()
	s.status.LastErrorKind = ErrorKind(err)
}

// Snapshot returns a copy of the current status.
func (s *State) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
