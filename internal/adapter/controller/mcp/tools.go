package mcpserver

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/dto"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/input"
)

type tools struct {
	triage input.TriageUseCase
}

func registerTriageTools(server *mcpsdk.Server, t *tools) {
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "start_triage",
		Description: "Fetch unread mail, draft replies and post the first draft for approval. Re-enters an unfinished run instead of replacing it.",
	}, t.startTriage)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "decide_draft",
		Description: "Approve, reject or save the draft currently awaiting a decision and continue the run",
	}, t.decideDraft)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "resolve_approval",
		Description: "Resolve an approval request by id, as an approval button click would",
	}, t.resolveApproval)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "triage_status",
		Description: "Show the stored triage run for a user: drafts, cursor and pending approvals",
	}, t.triageStatus)
}

// shared output

type triageOutput struct {
	UserID            string `json:"user_id"`
	RunID             string `json:"run_id"`
	Status            string `json:"status"`
	Resumed           bool   `json:"resumed"`
	AwaitingDecision  bool   `json:"awaiting_decision"`
	WorkflowComplete  bool   `json:"workflow_complete"`
	Cursor            int    `json:"cursor"`
	TotalDrafts       int    `json:"total_drafts"`
	PendingApprovalID string `json:"pending_approval_id"`
	FinalSummary      string `json:"final_summary"`
	Message           string `json:"message"`
}

func toTriageOutput(r *dto.TriageResult) triageOutput {
	return triageOutput{
		UserID:            r.UserID,
		RunID:             r.RunID,
		Status:            string(r.Status),
		Resumed:           r.Resumed,
		AwaitingDecision:  r.AwaitingDecision,
		WorkflowComplete:  r.WorkflowComplete,
		Cursor:            r.Cursor,
		TotalDrafts:       r.TotalDrafts,
		PendingApprovalID: r.PendingApprovalID,
		FinalSummary:      r.FinalSummary,
		Message:           r.Message,
	}
}

// start_triage

type startTriageInput struct {
	UserID string `json:"user_id" jsonschema:"Mailbox owner to triage"`
}

func (t *tools) startTriage(ctx context.Context, req *mcpsdk.CallToolRequest, in startTriageInput) (*mcpsdk.CallToolResult, triageOutput, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, triageOutput{}, fmt.Errorf("user_id is required")
	}
	result, err := t.triage.Start(ctx, dto.StartRequest{UserID: in.UserID})
	if err != nil {
		return nil, triageOutput{}, err
	}
	return nil, toTriageOutput(result), nil
}

// decide_draft

type decideDraftInput struct {
	UserID   string `json:"user_id" jsonschema:"Mailbox owner whose run is paused"`
	Decision string `json:"decision" jsonschema:"approve, reject or save"`
}

func (t *tools) decideDraft(ctx context.Context, req *mcpsdk.CallToolRequest, in decideDraftInput) (*mcpsdk.CallToolResult, triageOutput, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, triageOutput{}, fmt.Errorf("user_id is required")
	}
	result, err := t.triage.Decide(ctx, dto.DecideRequest{UserID: in.UserID, Decision: in.Decision})
	if err != nil {
		return nil, triageOutput{}, err
	}
	return nil, toTriageOutput(result), nil
}

// resolve_approval

type resolveApprovalInput struct {
	ApprovalID string `json:"approval_id" jsonschema:"Approval request id"`
	Decision   string `json:"decision" jsonschema:"approve, reject or save"`
	ActorID    string `json:"actor_id,omitempty" jsonschema:"Who made the decision"`
}

func (t *tools) resolveApproval(ctx context.Context, req *mcpsdk.CallToolRequest, in resolveApprovalInput) (*mcpsdk.CallToolResult, triageOutput, error) {
	actor := in.ActorID
	if actor == "" {
		actor = "mcp"
	}
	result, err := t.triage.HandleCallback(ctx, dto.CallbackRequest{
		ApprovalID: in.ApprovalID,
		Decision:   in.Decision,
		ActorID:    actor,
	})
	if err != nil {
		return nil, triageOutput{}, err
	}
	return nil, toTriageOutput(result), nil
}

// triage_status

type triageStatusInput struct {
	UserID string `json:"user_id" jsonschema:"Mailbox owner"`
}

type draftOutput struct {
	DraftRef  string `json:"draft_ref"`
	Priority  string `json:"priority"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Outcome   string `json:"outcome"`
}

type triageStatusOutput struct {
	UserID           string        `json:"user_id"`
	RunID            string        `json:"run_id"`
	CurrentStep      string        `json:"current_step"`
	UnreadCount      int           `json:"unread_count"`
	Summary          string        `json:"summary"`
	Cursor           int           `json:"cursor"`
	AwaitingDecision bool          `json:"awaiting_decision"`
	Complete         bool          `json:"complete"`
	Error            string        `json:"error"`
	FinalSummary     string        `json:"final_summary"`
	Drafts           []draftOutput `json:"drafts"`
	PendingApprovals []string      `json:"pending_approvals"`
}

func (t *tools) triageStatus(ctx context.Context, req *mcpsdk.CallToolRequest, in triageStatusInput) (*mcpsdk.CallToolResult, triageStatusOutput, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, triageStatusOutput{}, fmt.Errorf("user_id is required")
	}
	state, err := t.triage.Status(ctx, in.UserID)
	if err != nil {
		return nil, triageStatusOutput{}, err
	}

	out := triageStatusOutput{
		UserID:           state.UserID,
		RunID:            state.RunID,
		CurrentStep:      state.CurrentStep,
		UnreadCount:      state.UnreadCount,
		Summary:          state.Summary,
		Cursor:           state.Cursor,
		AwaitingDecision: state.AwaitingDecision,
		Complete:         state.Complete,
		Error:            state.Error,
		FinalSummary:     state.FinalSummary,
		Drafts:           make([]draftOutput, 0, len(state.Drafts)),
		PendingApprovals: make([]string, 0, len(state.PendingApprovals)),
	}
	for _, d := range state.Drafts {
		out.Drafts = append(out.Drafts, draftOutput{
			DraftRef:  d.DraftRef,
			Priority:  d.Priority,
			Recipient: d.Recipient,
			Subject:   d.Subject,
			Outcome:   d.Outcome,
		})
	}
	for _, a := range state.PendingApprovals {
		out.PendingApprovals = append(out.PendingApprovals, a.ID)
	}
	return nil, out, nil
}
