package workflow

import (
	"time"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
)

// Config holds tunables for the triage engine
type Config struct {
	// GateTimeout is how long the publish gate waits on one draft before skipping it
	GateTimeout time.Duration

	FetchLimit  int  // Unread messages per run, capped at output.MaxUnreadResults
	ThreadDepth int  // Recent messages pulled from each unread message's thread
	UnreadOnly  bool // Restrict the listing to unread messages
	PrimaryOnly bool // Restrict the listing to the primary category

	SummaryMessages   int // Messages included in the summary prompt
	SummaryBodyLimit  int // Runes of each body shown to the summarizer
	AnalysisBodyLimit int // Runes of each body shown to the triage step

	SummaryMaxTokens int
	TriageMaxTokens  int
	DraftMaxTokens   int
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		GateTimeout:       time.Hour,
		FetchLimit:        output.MaxUnreadResults,
		ThreadDepth:       4,
		UnreadOnly:        true,
		PrimaryOnly:       true,
		SummaryMessages:   3,
		SummaryBodyLimit:  300,
		AnalysisBodyLimit: 500,
		SummaryMaxTokens:  500,
		TriageMaxTokens:   1000,
		DraftMaxTokens:    500,
	}
}

// withDefaults fills zero values from DefaultConfig
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.GateTimeout <= 0 {
		c.GateTimeout = d.GateTimeout
	}
	if c.FetchLimit <= 0 || c.FetchLimit > output.MaxUnreadResults {
		c.FetchLimit = output.MaxUnreadResults
	}
	if c.ThreadDepth < 0 {
		c.ThreadDepth = 0
	}
	if c.SummaryMessages <= 0 {
		c.SummaryMessages = d.SummaryMessages
	}
	if c.SummaryBodyLimit <= 0 {
		c.SummaryBodyLimit = d.SummaryBodyLimit
	}
	if c.AnalysisBodyLimit <= 0 {
		c.AnalysisBodyLimit = d.AnalysisBodyLimit
	}
	if c.SummaryMaxTokens <= 0 {
		c.SummaryMaxTokens = d.SummaryMaxTokens
	}
	if c.TriageMaxTokens <= 0 {
		c.TriageMaxTokens = d.TriageMaxTokens
	}
	if c.DraftMaxTokens <= 0 {
		c.DraftMaxTokens = d.DraftMaxTokens
	}
	return c
}
