package app

import (
	"os"
	"path/filepath"
)

// DefaultHome is used when neither the settings file nor INBOXZERO_HOME names one
const DefaultHome = ".inboxzero"

// Paths holds all resolved paths under the inboxzero home directory
type Paths struct {
	Home    string // .inboxzero
	Mailbox string // .inboxzero/mailbox
	State   string // .inboxzero/state

	// Key files
	StateDB    string // .inboxzero/state.db (bbolt backend)
	ApprovalDB string // .inboxzero/approvals.db
	Journal    string // .inboxzero/journal.ndjson
}

// ResolvePaths returns all paths below home. An empty home falls back to
// INBOXZERO_HOME and then DefaultHome.
func ResolvePaths(home string) Paths {
	if home == "" {
		home = os.Getenv("INBOXZERO_HOME")
	}
	if home == "" {
		home = DefaultHome
	}

	return Paths{
		Home:       home,
		Mailbox:    filepath.Join(home, "mailbox"),
		State:      filepath.Join(home, "state"),
		StateDB:    filepath.Join(home, "state.db"),
		ApprovalDB: filepath.Join(home, "approvals.db"),
		Journal:    filepath.Join(home, "journal.ndjson"),
	}
}
