package triage

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
)

// Message is one mail message as captured at fetch time
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Date      time.Time `json:"date"`
	Body      string    `json:"body"`
	Important bool      `json:"important"`
	Unread    bool      `json:"unread"`
	Labels    []string  `json:"labels,omitempty"`
}

// Summary is the digest produced by the summarize step
type Summary struct {
	Text           string         `json:"text"`
	TotalUnread    int            `json:"total_unread"`
	BySender       map[string]int `json:"by_sender"`
	ImportantCount int            `json:"important_count"`
}

// Priority ranks a candidate reply
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ParsePriority normalizes free-form model output; unknown values fall back to Medium
func ParsePriority(s string) Priority {
	p := Priority(cases.Title(language.Und).String(strings.ToLower(strings.TrimSpace(s))))
	if p.IsValid() {
		return p
	}
	return PriorityMedium
}

// IsValid checks if the priority is known
func (p Priority) IsValid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Candidate is a message the triage step decided deserves a reply
type Candidate struct {
	MessageRef   string   `json:"message_ref"`
	Priority     Priority `json:"priority"`
	ResponseType string   `json:"response_type"`
	Reason       string   `json:"reason"`
}

// Draft is a reply stored in the mailbox awaiting a decision
type Draft struct {
	MessageRef    string   `json:"message_ref"`
	DraftRef      string   `json:"draft_ref"`
	Priority      Priority `json:"priority"`
	Sender        string   `json:"sender"`
	Recipient     string   `json:"recipient"`
	Subject       string   `json:"subject"`
	GeneratedText string   `json:"generated_text"`
}

// Preview returns the approver-facing view of the draft
func (d Draft) Preview() approval.DraftPreview {
	return approval.DraftPreview{
		DraftRef:  d.DraftRef,
		Sender:    d.Sender,
		Recipient: d.Recipient,
		Subject:   d.Subject,
		Body:      d.GeneratedText,
	}
}

// Outcome records how the cursor moved past a draft
type Outcome string

const (
	OutcomeApproved      Outcome = "approved"
	OutcomeRejected      Outcome = "rejected"
	OutcomeSaved         Outcome = "saved"
	OutcomeTimedOut      Outcome = "timed_out"
	OutcomePublishFailed Outcome = "publish_failed"
)

// OutcomeFor maps a human decision onto a resolution outcome
func OutcomeFor(d approval.Decision) Outcome {
	switch d {
	case approval.DecisionApprove:
		return OutcomeApproved
	case approval.DecisionSave:
		return OutcomeSaved
	default:
		return OutcomeRejected
	}
}

// IsDecided reports whether a human acted on the draft
func (o Outcome) IsDecided() bool {
	return o == OutcomeApproved || o == OutcomeRejected || o == OutcomeSaved
}

// Resolution is the record left behind for every draft the cursor has passed
type Resolution struct {
	DraftRef   string    `json:"draft_ref"`
	ApprovalID string    `json:"approval_id,omitempty"`
	Outcome    Outcome   `json:"outcome"`
	At         time.Time `json:"at"`
}
