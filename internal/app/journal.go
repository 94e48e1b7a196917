package app

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
)

// JournalFilter narrows ReadJournal results; zero fields match everything
type JournalFilter struct {
	UserID string
	RunID  string
	Limit  int // Keep only the last Limit entries
}

func (f JournalFilter) match(e output.JournalEntry) bool {
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	return true
}

// ReadJournal returns matching entries in file order. A missing journal is empty.
// Lines that fail to decode are skipped and counted in the returned skip total.
func ReadJournal(fs afero.Fs, path string, filter JournalFilter) ([]output.JournalEntry, int, error) {
	f, err := fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []output.JournalEntry{}, 0, nil
		}
		return nil, 0, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	entries := []output.JournalEntry{}
	skipped := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e output.JournalEntry
		if err := json.Unmarshal(line, &e); err != nil {
			skipped++
			continue
		}
		if filter.match(e) {
			entries = append(entries, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("read journal: %w", err)
	}

	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[len(entries)-filter.Limit:]
	}
	return entries, skipped, nil
}
