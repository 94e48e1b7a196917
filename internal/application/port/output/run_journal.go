package output

import (
	"context"
	"time"
)

// RunJournal records step-level history of triage runs
type RunJournal interface {
	Record(ctx context.Context, entry JournalEntry) error
}

// JournalEntry is one step execution
type JournalEntry struct {
	Timestamp time.Time `json:"ts"`
	UserID    string    `json:"user_id"`
	RunID     string    `json:"run_id"`
	Step      string    `json:"step"`
	Cursor    int       `json:"cursor"`
	Drafts    int       `json:"drafts"`
	Awaiting  bool      `json:"awaiting"`
	ElapsedMs int64     `json:"elapsed_ms"`
	Error     string    `json:"error,omitempty"`
}

// NopJournal discards entries
type NopJournal struct{}

// Record implements RunJournal
func (NopJournal) Record(context.Context, JournalEntry) error { return nil }
