package workflow

import (
	"sync"
	"time"
)

// Stats tracks engine runs across all users
type Stats struct {
	mutex sync.RWMutex

	TotalRuns     int
	SuspendedRuns int
	CompletedRuns int
	FailedRuns    int
	LastRun       time.Time
	LastError     error
	running       int
}

// StatsSnapshot is a point-in-time copy of Stats
type StatsSnapshot struct {
	TotalRuns     int       `json:"total_runs"`
	SuspendedRuns int       `json:"suspended_runs"`
	CompletedRuns int       `json:"completed_runs"`
	FailedRuns    int       `json:"failed_runs"`
	Running       int       `json:"running"`
	LastRun       time.Time `json:"last_run"`
	LastError     string    `json:"last_error,omitempty"`
}

// NewStats creates an empty collector
func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) runStarted(at time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.TotalRuns++
	s.running++
	s.LastRun = at
}

func (s *Stats) runFinished(outcome Outcome) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.running--
	if outcome == OutcomeCompleted {
		s.CompletedRuns++
	} else {
		s.SuspendedRuns++
	}
}

func (s *Stats) runFailed(err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.running--
	s.FailedRuns++
	s.LastError = err
}

// Snapshot returns a copy safe to hand out
func (s *Stats) Snapshot() StatsSnapshot {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	snap := StatsSnapshot{
		TotalRuns:     s.TotalRuns,
		SuspendedRuns: s.SuspendedRuns,
		CompletedRuns: s.CompletedRuns,
		FailedRuns:    s.FailedRuns,
		Running:       s.running,
		LastRun:       s.LastRun,
	}
	if s.LastError != nil {
		snap.LastError = s.LastError.Error()
	}
	return snap
}
