package workflow

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/YoshitsuguKoike/inboxzero/internal/app"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/repository"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
)

// ApprovalPublisher hands a draft to the approval broker
type ApprovalPublisher interface {
	Publish(ctx context.Context, userID, runID string, draft triage.Draft) (*approval.Request, error)
	// Expire retires a request so no later click can act on it
	Expire(ctx context.Context, approvalID string) (*approval.Request, error)
}

// Outcome is how a run stopped
type Outcome string

const (
	OutcomeSuspended Outcome = "suspended"
	OutcomeCompleted Outcome = "completed"
)

// RunResult is what Engine.Run hands back to its caller
type RunResult struct {
	State   *triage.WorkflowState
	Outcome Outcome
	Steps   []triage.StepName
}

// StepFunc executes one node against the state.
// Soft failures are recorded on the state; a returned error aborts the run.
type StepFunc func(ctx context.Context, s *triage.WorkflowState) (*triage.WorkflowState, error)

// Dependencies are the collaborators the engine drives
type Dependencies struct {
	Mail      output.MailStore
	Generator output.TextGenerator
	Publisher ApprovalPublisher
	States    repository.StateRepository
	Journal   output.RunJournal
	Logger    app.Logger
}

// Option customizes an Engine
type Option func(*Engine)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithGraph replaces the default transition table
func WithGraph(g *Graph) Option {
	return func(e *Engine) { e.graph = g }
}

// WithStats attaches a statistics collector
func WithStats(s *Stats) Option {
	return func(e *Engine) { e.stats = s }
}

// Engine drives a WorkflowState through the transition table until it
// suspends at the publish gate or completes
type Engine struct {
	deps  Dependencies
	cfg   Config
	graph *Graph
	steps map[triage.StepName]StepFunc
	now   func() time.Time
	log   app.Logger
	stats *Stats
}

// NewEngine creates a new engine
func NewEngine(deps Dependencies, cfg Config, opts ...Option) *Engine {
	if deps.Journal == nil {
		deps.Journal = output.NopJournal{}
	}
	e := &Engine{
		deps:  deps,
		cfg:   cfg.withDefaults(),
		graph: DefaultGraph(),
		now:   time.Now,
		log:   deps.Logger,
		stats: NewStats(),
	}
	if e.log == nil {
		e.log = app.GetLogger()
	}
	for _, opt := range opts {
		opt(e)
	}

	e.steps = map[triage.StepName]StepFunc{
		triage.StepFetchUnread:   e.fetchUnread,
		triage.StepSummarize:     e.summarize,
		triage.StepTriage:        e.classify,
		triage.StepComposeDrafts: e.composeDrafts,
		triage.StepPublishGate:   e.publishGate,
		triage.StepSuspendWait:   e.suspendWait,
		triage.StepFinalize:      e.finalize,
	}
	return e
}

// Config returns the effective configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Stats returns the engine's statistics collector
func (e *Engine) Stats() *Stats {
	return e.stats
}

// Start runs a fresh state from the first step
func (e *Engine) Start(ctx context.Context, s *triage.WorkflowState) (*RunResult, error) {
	return e.Run(ctx, s, triage.StepFetchUnread)
}

// Resume re-enters a paused state at the publish gate
func (e *Engine) Resume(ctx context.Context, s *triage.WorkflowState) (*RunResult, error) {
	return e.Run(ctx, s, triage.StepPublishGate)
}

// Run executes steps starting at from until a terminal step has run
func (e *Engine) Run(ctx context.Context, s *triage.WorkflowState, from triage.StepName) (*RunResult, error) {
	if s == nil {
		return nil, triage.ErrInvalidRequest.WithMessage("workflow state is nil")
	}
	if s.Complete {
		return nil, triage.ErrRunCompleted.WithDetails(map[string]interface{}{"run_id": s.RunID})
	}
	if !from.IsValid() {
		return nil, triage.ErrInvalidRequest.WithMessage("unknown step %q", from)
	}

	e.stats.runStarted(e.now())
	result := &RunResult{State: s}
	step := from

	for i := 0; ; i++ {
		if i > stepBudget(s) {
			err := fmt.Errorf("run %s exceeded its step budget at %s", s.RunID, step)
			e.stats.runFailed(err)
			return result, err
		}
		if err := ctx.Err(); err != nil {
			e.stats.runFailed(err)
			return result, err
		}

		s.CurrentStep = step
		started := e.now()
		next, err := e.execute(ctx, step, s)
		if next != nil {
			s = next
			result.State = s
		}
		e.record(ctx, s, step, started, err)
		if err != nil {
			e.stats.runFailed(err)
			return result, fmt.Errorf("step %s: %w", step, err)
		}
		result.Steps = append(result.Steps, step)

		if e.graph.IsTerminal(step) {
			break
		}
		if step, err = e.graph.Next(step, s); err != nil {
			e.stats.runFailed(err)
			return result, err
		}
	}

	if s.Complete {
		result.Outcome = OutcomeCompleted
	} else {
		result.Outcome = OutcomeSuspended
	}
	e.stats.runFinished(result.Outcome)
	return result, nil
}

// execute runs a single step, turning a panic into a recorded soft failure
func (e *Engine) execute(ctx context.Context, step triage.StepName, s *triage.WorkflowState) (next *triage.WorkflowState, err error) {
	fn, ok := e.steps[step]
	if !ok {
		return s, fmt.Errorf("no handler for step %s", step)
	}

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("step %s panicked: %v\n%s", step, r, debug.Stack())
			s.RecordError("%s: %v", step, r)
			next, err = s, nil
		}
	}()
	return fn(ctx, s)
}

func (e *Engine) record(ctx context.Context, s *triage.WorkflowState, step triage.StepName, started time.Time, stepErr error) {
	entry := output.JournalEntry{
		Timestamp: e.now().UTC(),
		UserID:    s.UserID,
		RunID:     s.RunID,
		Step:      step.String(),
		Cursor:    s.Cursor,
		Drafts:    len(s.Drafts),
		Awaiting:  s.AwaitingDecision,
		ElapsedMs: e.now().Sub(started).Milliseconds(),
	}
	if stepErr != nil {
		entry.Error = stepErr.Error()
	}
	if err := e.deps.Journal.Record(ctx, entry); err != nil {
		e.log.Warn("journal append failed for run %s: %v", s.RunID, err)
	}
}

// stepBudget bounds a run: every draft costs at most two gate visits
func stepBudget(s *triage.WorkflowState) int {
	return len(s.Drafts)*2 + 16
}
