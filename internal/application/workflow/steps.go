package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
)

// fetchUnread snapshots unread messages plus the recent messages of their threads
func (e *Engine) fetchUnread(ctx context.Context, s *triage.WorkflowState) (*triage.WorkflowState, error) {
	q := output.UnreadQuery{
		MaxResults:  e.cfg.FetchLimit,
		UnreadOnly:  e.cfg.UnreadOnly,
		PrimaryOnly: e.cfg.PrimaryOnly,
	}
	unread, err := e.deps.Mail.ListUnread(ctx, q)
	if err != nil {
		e.log.Warn("list unread for %s failed: %v", s.UserID, err)
		s.RecordError("fetching unread mail: %v", err)
		s.UnreadMessages = []triage.Message{}
		return s, nil
	}

	seen := make(map[string]bool, len(unread))
	msgs := make([]triage.Message, 0, len(unread))
	add := func(m triage.Message) {
		if m.ID == "" || seen[m.ID] {
			return
		}
		seen[m.ID] = true
		msgs = append(msgs, m)
	}

	for _, m := range unread {
		add(m)
		if m.ThreadID == "" || e.cfg.ThreadDepth == 0 {
			continue
		}
		thread, err := e.deps.Mail.RecentInThread(ctx, m.ThreadID, e.cfg.ThreadDepth)
		if err != nil {
			e.log.Warn("thread %s unavailable: %v", m.ThreadID, err)
			continue
		}
		for _, tm := range thread {
			add(tm)
		}
	}

	s.UnreadMessages = msgs
	e.log.Info("fetched %d messages for %s", len(msgs), s.UserID)
	return s, nil
}

// summarize asks the generator for a digest of the first few messages
func (e *Engine) summarize(ctx context.Context, s *triage.WorkflowState) (*triage.WorkflowState, error) {
	if len(s.UnreadMessages) == 0 {
		s.Summary = nil
		return s, nil
	}

	head := s.UnreadMessages
	if len(head) > e.cfg.SummaryMessages {
		head = head[:e.cfg.SummaryMessages]
	}

	resp, err := e.deps.Generator.Complete(ctx, output.CompletionRequest{
		Purpose:   output.PurposeSummarize,
		Prompt:    summaryPrompt(head, e.cfg.SummaryBodyLimit),
		MaxTokens: e.cfg.SummaryMaxTokens,
	})
	if err != nil {
		e.log.Warn("summary generation failed for %s: %v", s.UserID, err)
		s.RecordError("generating summary: %v", err)
		s.ShouldContinue = false
		return s, nil
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		text = "No summary available"
	}

	bySender := map[string]int{}
	important := 0
	for _, m := range s.UnreadMessages {
		bySender[m.From]++
		if m.Important {
			important++
		}
	}
	s.Summary = &triage.Summary{
		Text:           text,
		TotalUnread:    len(s.UnreadMessages),
		BySender:       bySender,
		ImportantCount: important,
	}
	return s, nil
}

// classify decides which messages deserve a reply
func (e *Engine) classify(ctx context.Context, s *triage.WorkflowState) (*triage.WorkflowState, error) {
	s.CandidateDecisions = []triage.Candidate{}
	if len(s.UnreadMessages) == 0 {
		return s, nil
	}

	resp, err := e.deps.Generator.Complete(ctx, output.CompletionRequest{
		Purpose:   output.PurposeTriage,
		Prompt:    triagePrompt(s.UnreadMessages, e.cfg.AnalysisBodyLimit),
		MaxTokens: e.cfg.TriageMaxTokens,
	})
	if err != nil {
		e.log.Warn("triage generation failed for %s: %v", s.UserID, err)
		s.RecordError("processing emails: %v", err)
		return s, nil
	}

	candidates, err := ParseTriageResponse(resp.Text)
	if err != nil {
		// malformed classifier output means nothing to reply to
		e.log.Warn("discarding triage response for %s: %v", s.UserID, err)
		return s, nil
	}

	for _, c := range candidates {
		if _, ok := s.FindMessage(c.MessageRef); !ok {
			e.log.Debug("triage named unknown message %s", c.MessageRef)
			continue
		}
		s.CandidateDecisions = append(s.CandidateDecisions, c)
	}
	e.log.Info("identified %d emails needing responses", len(s.CandidateDecisions))
	return s, nil
}

// composeDrafts writes one reply draft per candidate; failures skip the candidate
func (e *Engine) composeDrafts(ctx context.Context, s *triage.WorkflowState) (*triage.WorkflowState, error) {
	for _, c := range s.CandidateDecisions {
		msg, ok := s.FindMessage(c.MessageRef)
		if !ok {
			continue
		}

		draft, err := e.composeOne(ctx, msg, c)
		if err != nil {
			e.log.Warn("skipping draft for message %s: %v", msg.ID, err)
			continue
		}
		s.Drafts = append(s.Drafts, draft)
	}
	e.log.Info("created %d drafts for %s", len(s.Drafts), s.UserID)
	return s, nil
}

func (e *Engine) composeOne(ctx context.Context, msg triage.Message, c triage.Candidate) (triage.Draft, error) {
	resp, err := e.deps.Generator.Complete(ctx, output.CompletionRequest{
		Purpose:   output.PurposeDraft,
		Prompt:    draftPrompt(msg, c),
		MaxTokens: e.cfg.DraftMaxTokens,
	})
	if err != nil {
		return triage.Draft{}, fmt.Errorf("generate reply: %w", err)
	}
	body := strings.TrimSpace(resp.Text)
	if body == "" {
		return triage.Draft{}, fmt.Errorf("generator returned an empty reply")
	}

	fields := output.DraftFields{
		Sender:    msg.To,
		Recipient: msg.From,
		Subject:   replySubject(msg.Subject),
		Body:      body,
		ThreadID:  msg.ThreadID,
		InReplyTo: msg.ID,
	}
	ref, err := e.deps.Mail.CreateDraft(ctx, fields)
	if err != nil {
		return triage.Draft{}, fmt.Errorf("create draft: %w", err)
	}

	return triage.Draft{
		MessageRef:    msg.ID,
		DraftRef:      ref,
		Priority:      c.Priority,
		Sender:        fields.Sender,
		Recipient:     fields.Recipient,
		Subject:       fields.Subject,
		GeneratedText: body,
	}, nil
}

// publishGate is the only suspension point: it publishes the draft under the
// cursor, or skips it once the outstanding decision has waited too long
func (e *Engine) publishGate(ctx context.Context, s *triage.WorkflowState) (*triage.WorkflowState, error) {
	now := e.now()

	if s.AwaitingDecision {
		waited := s.AwaitingFor(now)
		if waited < e.cfg.GateTimeout {
			return s, nil
		}
		outcome, err := e.retire(ctx, s.PendingApprovalID)
		if err != nil {
			return s, err
		}
		if outcome == triage.OutcomeTimedOut {
			e.log.Info("draft %d of run %s waited %s, skipping", s.Cursor, s.RunID, waited.Truncate(time.Second))
		}
		if err := s.Advance(outcome, now); err != nil {
			return s, err
		}
		return s, nil
	}

	draft, ok := s.CurrentDraft()
	if !ok {
		return s, nil
	}

	req, err := e.deps.Publisher.Publish(ctx, s.UserID, s.RunID, draft)
	if err != nil {
		e.log.Warn("publishing draft %s failed: %v", draft.DraftRef, err)
		s.RecordError("publishing draft %s: %v", draft.DraftRef, err)
		return s, s.Advance(triage.OutcomePublishFailed, now)
	}

	if err := s.BeginAwaiting(req.ID, now); err != nil {
		return s, err
	}
	if err := e.deps.States.Save(ctx, s); err != nil {
		if _, xerr := e.deps.Publisher.Expire(ctx, req.ID); xerr != nil {
			e.log.Warn("retiring unsaved approval %s: %v", req.ID, xerr)
		}
		return s, fmt.Errorf("persist paused state: %w", err)
	}
	return s, nil
}

// retire closes the request the gate gave up on. A decision that landed
// before the request could be retired is kept as the draft's outcome.
func (e *Engine) retire(ctx context.Context, approvalID string) (triage.Outcome, error) {
	req, err := e.deps.Publisher.Expire(ctx, approvalID)
	if err != nil {
		if triage.IsApprovalNotFound(err) {
			e.log.Warn("approval %s is gone, skipping its draft", approvalID)
			return triage.OutcomeTimedOut, nil
		}
		return "", fmt.Errorf("retire approval %s: %w", approvalID, err)
	}
	if d, ok := req.Status.Decision(); ok {
		return triage.OutcomeFor(d), nil
	}
	return triage.OutcomeTimedOut, nil
}

// suspendWait ends the run while a decision is outstanding
func (e *Engine) suspendWait(ctx context.Context, s *triage.WorkflowState) (*triage.WorkflowState, error) {
	e.log.Info("run %s paused on draft %d of %d", s.RunID, s.Cursor+1, len(s.Drafts))
	return s, nil
}

// finalize writes the digest and seals the run
func (e *Engine) finalize(ctx context.Context, s *triage.WorkflowState) (*triage.WorkflowState, error) {
	s.MarkComplete(FinalSummary(s), e.now())
	e.log.Info("run %s complete", s.RunID)
	return s, nil
}

// FinalSummary renders the end-of-run digest
func FinalSummary(s *triage.WorkflowState) string {
	parts := []string{}

	if s.Summary != nil {
		parts = append(parts, "Email Summary\n"+s.Summary.Text)
	}
	if len(s.Drafts) > 0 {
		sent, rejected, saved := 0, 0, 0
		for _, r := range s.Resolutions {
			switch r.Outcome {
			case triage.OutcomeApproved:
				sent++
			case triage.OutcomeRejected:
				rejected++
			case triage.OutcomeSaved:
				saved++
			}
		}
		parts = append(parts, fmt.Sprintf("Draft Responses Created\n%d draft responses were created: %d sent, %d rejected, %d saved.",
			len(s.Drafts), sent, rejected, saved))
	}
	if pending := s.UndecidedDrafts(); pending > 0 {
		parts = append(parts, fmt.Sprintf("Pending Approvals\n%d drafts are still waiting in your mailbox.", pending))
	}
	if s.Error != "" {
		parts = append(parts, "Errors\n"+s.Error)
	}

	if len(parts) == 0 {
		return "No emails processed."
	}
	return strings.Join(parts, "\n\n")
}
