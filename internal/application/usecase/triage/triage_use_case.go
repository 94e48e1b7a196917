package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/inboxzero/internal/app"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/dto"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/input"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/service"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/workflow"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/repository"
	domain "github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
	"github.com/YoshitsuguKoike/inboxzero/internal/pkg/idgen"
)

// ApprovalResolver is the part of the approval broker the use cases need
type ApprovalResolver interface {
	Resolve(ctx context.Context, approvalID string, decision approval.Decision, actor string) (*approval.Request, bool, error)
	ListPending(ctx context.Context, userID string) ([]*approval.Request, error)
}

// UseCase implements input.TriageUseCase
type UseCase struct {
	states   repository.StateRepository
	engine   *workflow.Engine
	resolver ApprovalResolver
	bridge   *ResumeBridge
	locks    service.UserLocker
	now      func() time.Time
	newRunID func(time.Time) string
	logger   app.Logger
}

var _ input.TriageUseCase = (*UseCase)(nil)

// Option customizes a UseCase
type Option func(*UseCase)

// WithClock replaces time.Now for the use case and its bridge
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
		uc.bridge.now = now
	}
}

// WithRunIDs replaces the run id generator
func WithRunIDs(fn func(time.Time) string) Option {
	return func(uc *UseCase) { uc.newRunID = fn }
}

// WithLogger sets the logger for the use case and its bridge
func WithLogger(logger app.Logger) Option {
	return func(uc *UseCase) {
		uc.logger = logger
		uc.bridge.logger = logger
	}
}

// NewUseCase creates a new triage use case
func NewUseCase(
	states repository.StateRepository,
	engine *workflow.Engine,
	resolver ApprovalResolver,
	locks service.UserLocker,
	opts ...Option,
) *UseCase {
	if locks == nil {
		locks = service.NewPerUserLockManager()
	}
	uc := &UseCase{
		states:   states,
		engine:   engine,
		resolver: resolver,
		bridge:   NewResumeBridge(states, engine, locks),
		locks:    locks,
		now:      time.Now,
		newRunID: idgen.NewID,
		logger:   app.GetLogger(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Bridge exposes the resume bridge for transports that deliver decision events directly
func (uc *UseCase) Bridge() *ResumeBridge {
	return uc.bridge
}

// Start implements input.TriageUseCase
func (uc *UseCase) Start(ctx context.Context, req dto.StartRequest) (*dto.TriageResult, error) {
	if req.UserID == "" {
		return nil, domain.ErrInvalidRequest.WithMessage("user id is required")
	}

	unlock := uc.locks.Lock(req.UserID)
	defer unlock()

	existing, found, err := uc.states.Load(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load state for %s: %w", req.UserID, err)
	}

	var res *workflow.RunResult
	if found && !existing.Complete {
		uc.logger.Info("touching unfinished run %s for %s", existing.RunID, req.UserID)
		res, err = uc.engine.Resume(ctx, existing)
	} else {
		now := uc.now()
		s, nerr := domain.NewWorkflowState(req.UserID, uc.newRunID(now), now)
		if nerr != nil {
			return nil, nerr
		}
		uc.logger.Info("starting run %s for %s", s.RunID, req.UserID)
		res, err = uc.engine.Start(ctx, s)
	}
	if err != nil {
		return nil, fmt.Errorf("run triage for %s: %w", req.UserID, err)
	}

	if err := uc.states.Save(ctx, res.State); err != nil {
		return nil, fmt.Errorf("save state for %s: %w", req.UserID, err)
	}
	return dto.NewTriageResult(res.State, statusFor(res.Outcome)), nil
}

// Decide implements input.TriageUseCase
func (uc *UseCase) Decide(ctx context.Context, req dto.DecideRequest) (*dto.TriageResult, error) {
	if req.UserID == "" {
		return nil, domain.ErrInvalidRequest.WithMessage("user id is required")
	}
	decision, err := approval.ParseDecision(req.Decision)
	if err != nil {
		return nil, domain.ErrUnknownDecision.WithDetails(map[string]interface{}{"decision": req.Decision}).Wrap(err)
	}

	s, found, err := uc.states.Load(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load state for %s: %w", req.UserID, err)
	}
	if !found || s.Complete || !s.AwaitingDecision {
		// nothing for the broker to resolve; the bridge reports why
		return uc.bridge.OnDecision(ctx, DecisionEvent{UserID: req.UserID, Decision: decision})
	}

	resolved, applied, err := uc.resolver.Resolve(ctx, s.PendingApprovalID, decision, req.UserID)
	if err != nil {
		return nil, err
	}
	if !applied {
		return uc.notApplied(s, resolved), nil
	}

	out, err := uc.bridge.OnDecision(ctx, DecisionEvent{
		UserID:     req.UserID,
		Decision:   decision,
		ApprovalID: resolved.ID,
	})
	if err != nil {
		return nil, err
	}
	out.Approval = dto.NewApprovalDTO(resolved)
	return out, nil
}

// HandleCallback implements input.TriageUseCase
func (uc *UseCase) HandleCallback(ctx context.Context, req dto.CallbackRequest) (*dto.TriageResult, error) {
	if req.ApprovalID == "" {
		return nil, domain.ErrInvalidRequest.WithMessage("approval id is required")
	}
	decision, err := approval.ParseDecision(req.Decision)
	if err != nil {
		return nil, domain.ErrUnknownDecision.WithDetails(map[string]interface{}{"decision": req.Decision}).Wrap(err)
	}

	resolved, applied, err := uc.resolver.Resolve(ctx, req.ApprovalID, decision, req.ActorID)
	if err != nil {
		return nil, err
	}
	if !applied {
		s, found, lerr := uc.states.Load(ctx, resolved.UserID)
		if lerr != nil {
			return nil, fmt.Errorf("load state for %s: %w", resolved.UserID, lerr)
		}
		if !found {
			s = nil
		}
		return uc.notApplied(s, resolved), nil
	}

	out, err := uc.bridge.OnDecision(ctx, DecisionEvent{
		UserID:     resolved.UserID,
		Decision:   decision,
		ApprovalID: resolved.ID,
	})
	if err != nil {
		return nil, err
	}
	out.Approval = dto.NewApprovalDTO(resolved)
	return out, nil
}

// notApplied reports a decision the broker treated as a no-op
func (uc *UseCase) notApplied(s *domain.WorkflowState, req *approval.Request) *dto.TriageResult {
	uc.logger.Info("approval %s already %s", req.ID, req.Status)
	var out *dto.TriageResult
	if s != nil {
		out = dto.NewTriageResult(s, dto.RunStatusIgnored)
	} else {
		out = &dto.TriageResult{UserID: req.UserID, Status: dto.RunStatusIgnored}
	}
	out.Message = fmt.Sprintf("Approval %s is already %s.", req.ID, req.Status)
	out.Approval = dto.NewApprovalDTO(req)
	return out
}

// Status implements input.TriageUseCase
func (uc *UseCase) Status(ctx context.Context, userID string) (*dto.StateDTO, error) {
	if userID == "" {
		return nil, domain.ErrInvalidRequest.WithMessage("user id is required")
	}
	s, found, err := uc.states.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load state for %s: %w", userID, err)
	}
	if !found {
		return nil, domain.ErrNothingToResume.WithDetails(map[string]interface{}{"user_id": userID})
	}

	out := dto.NewStateDTO(s)
	pending, err := uc.resolver.ListPending(ctx, userID)
	if err != nil {
		uc.logger.Warn("listing pending approvals for %s: %v", userID, err)
	}
	for _, p := range pending {
		out.PendingApprovals = append(out.PendingApprovals, dto.NewApprovalDTO(p))
	}
	return out, nil
}

// Reset implements input.TriageUseCase
func (uc *UseCase) Reset(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrInvalidRequest.WithMessage("user id is required")
	}
	unlock := uc.locks.Lock(userID)
	defer unlock()

	if err := uc.states.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete state for %s: %w", userID, err)
	}
	uc.logger.Info("reset run state for %s", userID)
	return nil
}
