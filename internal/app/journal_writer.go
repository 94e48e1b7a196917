package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
)

// JournalWriter appends run journal entries as NDJSON lines
type JournalWriter struct {
	fs     afero.Fs
	path   string
	logger Logger

	mu sync.Mutex
}

var _ output.RunJournal = (*JournalWriter)(nil)

// NewJournalWriter creates a journal writing to path on fs
func NewJournalWriter(fs afero.Fs, path string) *JournalWriter {
	return &JournalWriter{fs: fs, path: path, logger: GetLogger()}
}

// Path returns the journal file path
func (w *JournalWriter) Path() string {
	return w.path
}

// Record implements output.RunJournal. Every line is synced before returning.
func (w *JournalWriter) Record(ctx context.Context, entry output.JournalEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.Step == "" {
		entry.Step = "unknown"
	}

	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if dir := filepath.Dir(w.path); dir != "." {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create journal directory: %w", err)
		}
	}

	f, err := w.fs.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(b, '\n')); err != nil {
		return err
	}

	if err := f.Sync(); err != nil {
		// the line is written; only durability is in doubt
		w.logger.Warn("failed to fsync journal: %v", err)
	}
	return nil
}
