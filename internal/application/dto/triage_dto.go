package dto

import (
	"time"

	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
)

// RunStatus is the externally visible outcome of a trigger
type RunStatus string

const (
	RunStatusPaused          RunStatus = "paused"
	RunStatusCompleted       RunStatus = "completed"
	RunStatusNothingToResume RunStatus = "nothing_to_resume"
	RunStatusIgnored         RunStatus = "ignored"
)

// StartRequest starts (or touches) a user's triage run
type StartRequest struct {
	UserID string `json:"user_id"`
}

// DecideRequest applies a decision to the draft currently awaiting one
type DecideRequest struct {
	UserID   string `json:"user_id"`
	Decision string `json:"decision"`
}

// CallbackRequest is an approval callback from the approval channel
type CallbackRequest struct {
	ApprovalID string `json:"approval_id"`
	Decision   string `json:"decision"`
	ActorID    string `json:"actor_id"`
}

// TriageResult reports where a run stands after a trigger
type TriageResult struct {
	UserID            string       `json:"user_id"`
	RunID             string       `json:"run_id,omitempty"`
	Status            RunStatus    `json:"status"`
	Resumed           bool         `json:"resumed"`
	AwaitingDecision  bool         `json:"awaiting_decision"`
	WorkflowComplete  bool         `json:"workflow_complete"`
	Cursor            int          `json:"cursor"`
	TotalDrafts       int          `json:"total_drafts"`
	PendingApprovalID string       `json:"pending_approval_id,omitempty"`
	FinalSummary      string       `json:"final_summary,omitempty"`
	Message           string       `json:"message"`
	Approval          *ApprovalDTO `json:"approval,omitempty"`
}

// Messages shown for each status
const (
	MessagePaused          = "Workflow paused. Waiting for next draft approval."
	MessageCompleted       = "Workflow completed successfully!"
	MessageNothingToResume = "No paused workflow to resume."
	MessageIgnored         = "Decision ignored: it does not match the draft awaiting approval."
)

// NewTriageResult summarizes a state under the given status
func NewTriageResult(s *triage.WorkflowState, status RunStatus) *TriageResult {
	r := &TriageResult{
		UserID:            s.UserID,
		RunID:             s.RunID,
		Status:            status,
		AwaitingDecision:  s.AwaitingDecision,
		WorkflowComplete:  s.Complete,
		Cursor:            s.Cursor,
		TotalDrafts:       len(s.Drafts),
		PendingApprovalID: s.PendingApprovalID,
		FinalSummary:      s.FinalSummary,
	}
	switch status {
	case RunStatusPaused:
		r.Message = MessagePaused
	case RunStatusCompleted:
		r.Message = MessageCompleted
	case RunStatusIgnored:
		r.Message = MessageIgnored
	}
	return r
}

// ApprovalDTO is an approval request as shown to callers
type ApprovalDTO struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	DraftRef   string     `json:"draft_ref"`
	Subject    string     `json:"subject"`
	Recipient  string     `json:"recipient"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
}

// NewApprovalDTO converts a domain request
func NewApprovalDTO(r *approval.Request) *ApprovalDTO {
	return &ApprovalDTO{
		ID:         r.ID,
		UserID:     r.UserID,
		DraftRef:   r.Draft.DraftRef,
		Subject:    r.Draft.Subject,
		Recipient:  r.Draft.Recipient,
		Status:     r.Status.String(),
		CreatedAt:  r.CreatedAt,
		ExpiresAt:  r.ExpiresAt,
		ResolvedAt: r.ResolvedAt,
		ResolvedBy: r.ResolvedBy,
	}
}

// DraftDTO is one draft with its resolution, if any
type DraftDTO struct {
	MessageRef string `json:"message_ref"`
	DraftRef   string `json:"draft_ref"`
	Priority   string `json:"priority"`
	Recipient  string `json:"recipient"`
	Subject    string `json:"subject"`
	Outcome    string `json:"outcome"`
}

// StateDTO is the full view of a user's stored run
type StateDTO struct {
	UserID           string         `json:"user_id"`
	RunID            string         `json:"run_id"`
	StartedAt        time.Time      `json:"started_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	CurrentStep      string         `json:"current_step"`
	UnreadCount      int            `json:"unread_count"`
	Summary          string         `json:"summary,omitempty"`
	Drafts           []DraftDTO     `json:"drafts"`
	Cursor           int            `json:"cursor"`
	AwaitingDecision bool           `json:"awaiting_decision"`
	AwaitingSince    *time.Time     `json:"awaiting_since,omitempty"`
	Error            string         `json:"error,omitempty"`
	FinalSummary     string         `json:"final_summary,omitempty"`
	Complete         bool           `json:"complete"`
	PendingApprovals []*ApprovalDTO `json:"pending_approvals"`
}

// NewStateDTO converts a stored state
func NewStateDTO(s *triage.WorkflowState) *StateDTO {
	out := &StateDTO{
		UserID:           s.UserID,
		RunID:            s.RunID,
		StartedAt:        s.StartedAt,
		UpdatedAt:        s.UpdatedAt,
		CurrentStep:      s.CurrentStep.String(),
		UnreadCount:      len(s.UnreadMessages),
		Drafts:           make([]DraftDTO, 0, len(s.Drafts)),
		Cursor:           s.Cursor,
		AwaitingDecision: s.AwaitingDecision,
		AwaitingSince:    s.AwaitingSince,
		Error:            s.Error,
		FinalSummary:     s.FinalSummary,
		Complete:         s.Complete,
		PendingApprovals: []*ApprovalDTO{},
	}
	if s.Summary != nil {
		out.Summary = s.Summary.Text
	}
	for i, d := range s.Drafts {
		outcome := "queued"
		switch {
		case i < len(s.Resolutions):
			outcome = string(s.Resolutions[i].Outcome)
		case i == s.Cursor && s.AwaitingDecision:
			outcome = "awaiting"
		}
		out.Drafts = append(out.Drafts, DraftDTO{
			MessageRef: d.MessageRef,
			DraftRef:   d.DraftRef,
			Priority:   string(d.Priority),
			Recipient:  d.Recipient,
			Subject:    d.Subject,
			Outcome:    outcome,
		})
	}
	return out
}
