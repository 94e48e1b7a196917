package presenter

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/dto"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
)

// CLIPresenter implements output.Presenter for terminal output
type CLIPresenter struct {
	output io.Writer
}

// NewCLIPresenter creates a new CLI presenter
func NewCLIPresenter(output io.Writer) output.Presenter {
	return &CLIPresenter{output: output}
}

// PresentSuccess presents a successful result
func (p *CLIPresenter) PresentSuccess(message string, data interface{}) error {
	fmt.Fprintf(p.output, "✓ %s\n\n", message)

	switch v := data.(type) {
	case nil:
	case *dto.TriageResult:
		p.presentResult(v)
	case *dto.StateDTO:
		p.presentState(v)
	case []output.JournalEntry:
		p.presentJournal(v)
	case map[string]string:
		for _, k := range sortedKeys(v) {
			fmt.Fprintf(p.output, "%s: %s\n", k, v[k])
		}
	default:
		fmt.Fprintf(p.output, "%+v\n", data)
	}
	return nil
}

// PresentError presents an error
func (p *CLIPresenter) PresentError(err error) error {
	fmt.Fprintf(p.output, "✗ Error: %v\n", err)
	return err
}

// PresentProgress presents progress information
func (p *CLIPresenter) PresentProgress(message string, progress int, total int) error {
	if total <= 0 {
		fmt.Fprintf(p.output, "%s\n", message)
		return nil
	}
	if progress > total {
		progress = total
	}
	bar := strings.Repeat("█", progress) + strings.Repeat("░", total-progress)
	fmt.Fprintf(p.output, "%s [%s] %d/%d\n", message, bar, progress, total)
	return nil
}

func (p *CLIPresenter) presentResult(r *dto.TriageResult) {
	fmt.Fprintf(p.output, "User: %s\n", r.UserID)
	if r.RunID != "" {
		fmt.Fprintf(p.output, "Run: %s\n", r.RunID)
	}
	fmt.Fprintf(p.output, "Status: %s\n", r.Status)
	if r.TotalDrafts > 0 {
		fmt.Fprintf(p.output, "Drafts: %d/%d decided\n", r.Cursor, r.TotalDrafts)
	}
	if r.AwaitingDecision && r.PendingApprovalID != "" {
		fmt.Fprintf(p.output, "Awaiting approval: %s\n", r.PendingApprovalID)
	}
	if r.FinalSummary != "" {
		fmt.Fprintf(p.output, "\n%s\n", r.FinalSummary)
	}
	if r.Message != "" {
		fmt.Fprintf(p.output, "\n%s\n", r.Message)
	}
}

func (p *CLIPresenter) presentState(s *dto.StateDTO) {
	fmt.Fprintf(p.output, "User: %s\n", s.UserID)
	fmt.Fprintf(p.output, "Run: %s\n", s.RunID)
	fmt.Fprintf(p.output, "Step: %s\n", s.CurrentStep)
	fmt.Fprintf(p.output, "Started: %s\n", s.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(p.output, "Unread: %d\n", s.UnreadCount)

	if s.Summary != "" {
		fmt.Fprintf(p.output, "\nSummary:\n%s\n", s.Summary)
	}

	if len(s.Drafts) > 0 {
		fmt.Fprintf(p.output, "\nDrafts:\n")
		for i, d := range s.Drafts {
			marker := " "
			if i == s.Cursor && s.AwaitingDecision {
				marker = "▶"
			}
			fmt.Fprintf(p.output, "%s %d. [%s] %s → %s (%s)\n", marker, i+1, d.Priority, d.Subject, d.Recipient, d.Outcome)
		}
	}

	if len(s.PendingApprovals) > 0 {
		fmt.Fprintf(p.output, "\nPending approvals:\n")
		for _, a := range s.PendingApprovals {
			fmt.Fprintf(p.output, "  - %s %s (expires %s)\n", a.ID, a.Subject, a.ExpiresAt.Format("2006-01-02 15:04"))
		}
	}

	if s.Error != "" {
		fmt.Fprintf(p.output, "\nLast Error: %s\n", s.Error)
	}
	if s.Complete {
		fmt.Fprintf(p.output, "\nComplete: %s\n", s.FinalSummary)
	}
}

func (p *CLIPresenter) presentJournal(entries []output.JournalEntry) {
	if len(entries) == 0 {
		fmt.Fprintf(p.output, "No journal entries.\n")
		return
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-8s %-16s cursor=%d/%d %dms",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.UserID, e.Step, e.Cursor, e.Drafts, e.ElapsedMs)
		if e.Awaiting {
			line += " awaiting"
		}
		if e.Error != "" {
			line += " error=" + e.Error
		}
		fmt.Fprintln(p.output, line)
	}
	fmt.Fprintf(p.output, "\nTotal: %d entries\n", len(entries))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
