package workflow

import (
	"fmt"

	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
)

// Branch names returned by route functions
const (
	BranchDone = "done"
	BranchWait = "wait"
	BranchNext = "next"
)

// Route picks a branch name from the current state
type Route func(s *triage.WorkflowState) string

// Transition describes where control goes after a step.
// Exactly one of Next or Route is set; terminal steps have neither.
type Transition struct {
	Next     triage.StepName
	Route    Route
	Branches map[string]triage.StepName
}

// Always is an unconditional transition
func Always(next triage.StepName) Transition {
	return Transition{Next: next}
}

// Branch is a conditional transition
func Branch(route Route, branches map[string]triage.StepName) Transition {
	return Transition{Route: route, Branches: branches}
}

// Graph is the named transition table of the triage workflow
type Graph struct {
	transitions map[triage.StepName]Transition
	terminal    map[triage.StepName]bool
}

// NewGraph validates the table against the step transition rules
func NewGraph(transitions map[triage.StepName]Transition, terminal ...triage.StepName) (*Graph, error) {
	g := &Graph{
		transitions: transitions,
		terminal:    map[triage.StepName]bool{},
	}
	for _, step := range terminal {
		if _, ok := transitions[step]; ok {
			return nil, fmt.Errorf("terminal step %s has an outgoing transition", step)
		}
		g.terminal[step] = true
	}

	for from, tr := range transitions {
		targets := []triage.StepName{}
		switch {
		case tr.Next != "" && tr.Route != nil:
			return nil, fmt.Errorf("step %s has both an unconditional and a routed transition", from)
		case tr.Next != "":
			targets = append(targets, tr.Next)
		case tr.Route != nil:
			if len(tr.Branches) == 0 {
				return nil, fmt.Errorf("step %s routes to no branches", from)
			}
			for _, to := range tr.Branches {
				targets = append(targets, to)
			}
		default:
			return nil, fmt.Errorf("step %s has an empty transition", from)
		}

		for _, to := range targets {
			if !from.CanTransitionTo(to) {
				return nil, fmt.Errorf("invalid transition %s -> %s", from, to)
			}
		}
	}
	return g, nil
}

// DefaultGraph is the triage pipeline:
// fetch_unread -> summarize -> triage -> compose_drafts -> publish_gate -> {suspend_wait | finalize}
func DefaultGraph() *Graph {
	g, err := NewGraph(map[triage.StepName]Transition{
		triage.StepFetchUnread:   Always(triage.StepSummarize),
		triage.StepSummarize:     Always(triage.StepTriage),
		triage.StepTriage:        Always(triage.StepComposeDrafts),
		triage.StepComposeDrafts: Always(triage.StepPublishGate),
		triage.StepPublishGate: Branch(GateRoute, map[string]triage.StepName{
			BranchDone: triage.StepFinalize,
			BranchWait: triage.StepSuspendWait,
			BranchNext: triage.StepPublishGate,
		}),
	}, triage.StepSuspendWait, triage.StepFinalize)
	if err != nil {
		panic(err)
	}
	return g
}

// GateRoute sends the gate to finalize once every draft is past the cursor,
// to suspension while a decision is outstanding, and back to itself otherwise
func GateRoute(s *triage.WorkflowState) string {
	switch {
	case !s.HasMoreDrafts():
		return BranchDone
	case s.AwaitingDecision:
		return BranchWait
	default:
		return BranchNext
	}
}

// IsTerminal reports whether the run stops after step
func (g *Graph) IsTerminal(step triage.StepName) bool {
	return g.terminal[step]
}

// Next resolves the step that follows from after it ran against s
func (g *Graph) Next(from triage.StepName, s *triage.WorkflowState) (triage.StepName, error) {
	if g.terminal[from] {
		return "", fmt.Errorf("step %s is terminal", from)
	}
	tr, ok := g.transitions[from]
	if !ok {
		return "", fmt.Errorf("no transition from step %s", from)
	}
	if tr.Route == nil {
		return tr.Next, nil
	}

	branch := tr.Route(s)
	next, ok := tr.Branches[branch]
	if !ok {
		return "", fmt.Errorf("step %s routed to unknown branch %q", from, branch)
	}
	return next, nil
}
