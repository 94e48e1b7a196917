package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/inboxzero/internal/app"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/dto"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/service"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/workflow"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/repository"
	domain "github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
)

// DecisionEvent is a human decision for the draft a user's run is waiting on.
// ApprovalID is optional; when set it must match the pending approval.
type DecisionEvent struct {
	UserID     string
	Decision   approval.Decision
	ApprovalID string
}

// ResumeBridge turns a decision event into the next leg of a paused run
type ResumeBridge struct {
	states repository.StateRepository
	engine *workflow.Engine
	locks  service.UserLocker
	now    func() time.Time
	logger app.Logger
}

// NewResumeBridge creates a new resume bridge
func NewResumeBridge(states repository.StateRepository, engine *workflow.Engine, locks service.UserLocker) *ResumeBridge {
	return &ResumeBridge{
		states: states,
		engine: engine,
		locks:  locks,
		now:    time.Now,
		logger: app.GetLogger(),
	}
}

// OnDecision loads the user's run, records the decision against the current
// draft and runs the engine from the publish gate
func (b *ResumeBridge) OnDecision(ctx context.Context, ev DecisionEvent) (*dto.TriageResult, error) {
	if ev.UserID == "" {
		return nil, domain.ErrInvalidRequest.WithMessage("user id is required")
	}
	if !ev.Decision.IsValid() {
		return nil, domain.ErrUnknownDecision.WithDetails(map[string]interface{}{"decision": string(ev.Decision)})
	}

	unlock := b.locks.Lock(ev.UserID)
	defer unlock()

	s, found, err := b.states.Load(ctx, ev.UserID)
	if err != nil {
		return nil, fmt.Errorf("load state for %s: %w", ev.UserID, err)
	}
	if !found {
		return &dto.TriageResult{
			UserID:  ev.UserID,
			Status:  dto.RunStatusNothingToResume,
			Message: dto.MessageNothingToResume,
		}, nil
	}
	if s.Complete {
		return dto.NewTriageResult(s, dto.RunStatusCompleted), nil
	}
	if !s.AwaitingDecision || (ev.ApprovalID != "" && ev.ApprovalID != s.PendingApprovalID) {
		b.logger.Info("ignoring %s for %s: awaiting=%v pending=%q event=%q",
			ev.Decision, ev.UserID, s.AwaitingDecision, s.PendingApprovalID, ev.ApprovalID)
		return dto.NewTriageResult(s, dto.RunStatusIgnored), nil
	}

	if err := s.Advance(domain.OutcomeFor(ev.Decision), b.now()); err != nil {
		return nil, err
	}
	// the broker has already acted on the decision
	if err := b.states.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save decision for %s: %w", ev.UserID, err)
	}

	res, err := b.engine.Resume(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("resume run %s: %w", s.RunID, err)
	}
	if err := b.states.Save(ctx, res.State); err != nil {
		return nil, fmt.Errorf("save state for %s: %w", ev.UserID, err)
	}

	out := dto.NewTriageResult(res.State, statusFor(res.Outcome))
	out.Resumed = true
	return out, nil
}

func statusFor(o workflow.Outcome) dto.RunStatus {
	if o == workflow.OutcomeCompleted {
		return dto.RunStatusCompleted
	}
	return dto.RunStatusPaused
}
