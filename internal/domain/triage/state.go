package triage

import (
	"fmt"
	"strings"
	"time"
)

// WorkflowState is the single record that flows through every step of a triage run.
// It is the unit of persistence: a paused run is exactly one stored WorkflowState.
type WorkflowState struct {
	UserID    string    `json:"user_id"`
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CurrentStep StepName `json:"current_step"`

	UnreadMessages     []Message   `json:"unread_messages"`
	Summary            *Summary    `json:"summary,omitempty"`
	CandidateDecisions []Candidate `json:"candidate_decisions"`

	// Drafts is append-only; Resolutions holds one entry per draft before Cursor.
	Drafts      []Draft      `json:"drafts"`
	Resolutions []Resolution `json:"resolutions"`
	Cursor      int          `json:"cursor"`

	AwaitingDecision  bool       `json:"awaiting_decision"`
	AwaitingSince     *time.Time `json:"awaiting_since,omitempty"`
	PendingApprovalID string     `json:"pending_approval_id,omitempty"`

	Error          string `json:"error,omitempty"`
	ShouldContinue bool   `json:"should_continue"`
	FinalSummary   string `json:"final_summary,omitempty"`
	Complete       bool   `json:"complete"`
}

// NewWorkflowState creates a fresh state for a run
func NewWorkflowState(userID, runID string, now time.Time) (*WorkflowState, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidRequest.WithMessage("user id is required")
	}
	if strings.TrimSpace(runID) == "" {
		return nil, ErrInvalidRequest.WithMessage("run id is required")
	}

	return &WorkflowState{
		UserID:             userID,
		RunID:              runID,
		StartedAt:          now,
		UpdatedAt:          now,
		CurrentStep:        StepFetchUnread,
		UnreadMessages:     []Message{},
		CandidateDecisions: []Candidate{},
		Drafts:             []Draft{},
		Resolutions:        []Resolution{},
		ShouldContinue:     true,
	}, nil
}

// Validate checks the structural invariants of the state
func (s *WorkflowState) Validate() error {
	if s == nil {
		return ErrTypeValidation.WithMessage("workflow state is nil")
	}
	if strings.TrimSpace(s.UserID) == "" {
		return ErrTypeValidation.WithMessage("user_id is required")
	}
	if strings.TrimSpace(s.RunID) == "" {
		return ErrTypeValidation.WithMessage("run_id is required")
	}
	if s.CurrentStep != "" && !s.CurrentStep.IsValid() {
		return ErrTypeValidation.WithMessage("unknown step %q", s.CurrentStep)
	}
	if s.Cursor < 0 || s.Cursor > len(s.Drafts) {
		return ErrTypeValidation.WithMessage("cursor %d out of range [0,%d]", s.Cursor, len(s.Drafts))
	}
	if len(s.Resolutions) != s.Cursor {
		return ErrTypeValidation.WithMessage("%d resolutions recorded for cursor %d", len(s.Resolutions), s.Cursor)
	}
	if s.AwaitingDecision {
		if s.Cursor >= len(s.Drafts) {
			return ErrTypeValidation.WithMessage("awaiting a decision with no draft at cursor %d", s.Cursor)
		}
		if s.AwaitingSince == nil {
			return ErrTypeValidation.WithMessage("awaiting a decision without awaiting_since")
		}
		if s.PendingApprovalID == "" {
			return ErrTypeValidation.WithMessage("awaiting a decision without pending_approval_id")
		}
	}
	if s.Complete && s.AwaitingDecision {
		return ErrTypeValidation.WithMessage("completed run cannot await a decision")
	}
	for i, d := range s.Drafts {
		if d.DraftRef == "" {
			return ErrTypeValidation.WithMessage("draft %d has no draft_ref", i)
		}
	}
	return nil
}

// RecordError appends a failure description without interrupting the run
func (s *WorkflowState) RecordError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if s.Error == "" {
		s.Error = msg
		return
	}
	s.Error = s.Error + "; " + msg
}

// CurrentDraft returns the draft under the cursor
func (s *WorkflowState) CurrentDraft() (Draft, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Drafts) {
		return Draft{}, false
	}
	return s.Drafts[s.Cursor], true
}

// HasMoreDrafts reports whether drafts remain at or after the cursor
func (s *WorkflowState) HasMoreDrafts() bool {
	return s.Cursor < len(s.Drafts)
}

// BeginAwaiting marks the current draft as published and waiting for a human
func (s *WorkflowState) BeginAwaiting(approvalID string, now time.Time) error {
	if s.Complete {
		return ErrRunCompleted
	}
	if !s.HasMoreDrafts() {
		return ErrInvalidRequest.WithMessage("no draft at cursor %d", s.Cursor)
	}
	if approvalID == "" {
		return ErrInvalidRequest.WithMessage("approval id is required")
	}

	s.AwaitingDecision = true
	s.AwaitingSince = &now
	s.PendingApprovalID = approvalID
	s.UpdatedAt = now
	return nil
}

// Advance resolves the draft under the cursor and moves past it.
// The cursor never moves backwards and never passes len(Drafts).
func (s *WorkflowState) Advance(outcome Outcome, now time.Time) error {
	if s.Complete {
		return ErrRunCompleted
	}
	draft, ok := s.CurrentDraft()
	if !ok {
		return ErrInvalidRequest.WithMessage("cursor %d already past the last draft", s.Cursor)
	}

	s.Resolutions = append(s.Resolutions, Resolution{
		DraftRef:   draft.DraftRef,
		ApprovalID: s.PendingApprovalID,
		Outcome:    outcome,
		At:         now,
	})
	s.Cursor++
	s.AwaitingDecision = false
	s.AwaitingSince = nil
	s.PendingApprovalID = ""
	s.UpdatedAt = now
	return nil
}

// AwaitingFor reports how long the current draft has been waiting
func (s *WorkflowState) AwaitingFor(now time.Time) time.Duration {
	if !s.AwaitingDecision || s.AwaitingSince == nil {
		return 0
	}
	return now.Sub(*s.AwaitingSince)
}

// UndecidedDrafts counts drafts left in the mailbox without a human decision
func (s *WorkflowState) UndecidedDrafts() int {
	n := len(s.Drafts) - s.Cursor
	for _, r := range s.Resolutions {
		if !r.Outcome.IsDecided() {
			n++
		}
	}
	return n
}

// MarkComplete seals the run with its final digest
func (s *WorkflowState) MarkComplete(finalSummary string, now time.Time) {
	s.FinalSummary = finalSummary
	s.Complete = true
	s.AwaitingDecision = false
	s.AwaitingSince = nil
	s.PendingApprovalID = ""
	s.CurrentStep = StepFinalize
	s.UpdatedAt = now
}

// FindMessage looks up a captured message by id
func (s *WorkflowState) FindMessage(id string) (Message, bool) {
	for _, m := range s.UnreadMessages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}
