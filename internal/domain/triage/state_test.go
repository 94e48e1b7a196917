package triage

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func stateWithDrafts(t *testing.T, n int) *WorkflowState {
	t.Helper()
	s, err := NewWorkflowState("U1", "R1", t0)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		s.Drafts = append(s.Drafts, Draft{MessageRef: fmt.Sprintf("m%d", i), DraftRef: fmt.Sprintf("d%d", i)})
	}
	return s
}

func TestNewWorkflowState(t *testing.T) {
	_, err := NewWorkflowState("", "R1", t0)
	assert.True(t, IsInvalidRequest(err))

	s, err := NewWorkflowState("U1", "R1", t0)
	require.NoError(t, err)
	assert.Equal(t, StepFetchUnread, s.CurrentStep)
	assert.True(t, s.ShouldContinue)
	assert.NoError(t, s.Validate())
}

func TestWorkflowState_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *WorkflowState)
	}{
		{"missing user", func(s *WorkflowState) { s.UserID = "" }},
		{"missing run", func(s *WorkflowState) { s.RunID = " " }},
		{"unknown step", func(s *WorkflowState) { s.CurrentStep = "wander" }},
		{"negative cursor", func(s *WorkflowState) { s.Cursor = -1 }},
		{"cursor past drafts", func(s *WorkflowState) { s.Cursor = 3 }},
		{"resolution count mismatch", func(s *WorkflowState) { s.Resolutions = []Resolution{{DraftRef: "d0"}} }},
		{"awaiting without since", func(s *WorkflowState) {
			s.AwaitingDecision = true
			s.PendingApprovalID = "A"
		}},
		{"awaiting without approval", func(s *WorkflowState) {
			s.AwaitingDecision = true
			s.AwaitingSince = &t0
		}},
		{"complete and awaiting", func(s *WorkflowState) {
			s.AwaitingDecision = true
			s.AwaitingSince = &t0
			s.PendingApprovalID = "A"
			s.Complete = true
		}},
		{"draft without ref", func(s *WorkflowState) { s.Drafts[1].DraftRef = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := stateWithDrafts(t, 2)
			tt.mutate(s)
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, IsTypeValidation(err))
		})
	}

	var nilState *WorkflowState
	assert.True(t, IsTypeValidation(nilState.Validate()))
}

func TestWorkflowState_AdvanceIsMonotonicAndBounded(t *testing.T) {
	s := stateWithDrafts(t, 3)

	last := s.Cursor
	for i := 0; i < 3; i++ {
		require.NoError(t, s.BeginAwaiting(fmt.Sprintf("A%d", i), t0))
		require.NoError(t, s.Validate())
		require.NoError(t, s.Advance(OutcomeApproved, t0.Add(time.Minute)))
		assert.Greater(t, s.Cursor, last)
		last = s.Cursor
		assert.False(t, s.AwaitingDecision)
		assert.Empty(t, s.PendingApprovalID)
		require.NoError(t, s.Validate())
	}

	assert.Equal(t, 3, s.Cursor)
	assert.Error(t, s.Advance(OutcomeApproved, t0))
	assert.Equal(t, 3, s.Cursor)
	assert.Len(t, s.Resolutions, 3)
	assert.Equal(t, "A1", s.Resolutions[1].ApprovalID)
}

func TestWorkflowState_CompletedIsImmutable(t *testing.T) {
	s := stateWithDrafts(t, 1)
	s.MarkComplete("done", t0)

	assert.True(t, IsRunCompleted(s.BeginAwaiting("A", t0)))
	assert.True(t, IsRunCompleted(s.Advance(OutcomeRejected, t0)))
	assert.Equal(t, 0, s.Cursor)
}

func TestWorkflowState_UndecidedDrafts(t *testing.T) {
	s := stateWithDrafts(t, 4)
	require.NoError(t, s.Advance(OutcomeApproved, t0))
	require.NoError(t, s.Advance(OutcomeTimedOut, t0))
	require.NoError(t, s.Advance(OutcomeSaved, t0))

	// one timed out, one never reached
	assert.Equal(t, 2, s.UndecidedDrafts())
}

func TestWorkflowState_RecordError(t *testing.T) {
	s := stateWithDrafts(t, 0)
	s.RecordError("fetch: %v", errors.New("boom"))
	s.RecordError("summarize failed")
	assert.Equal(t, "fetch: boom; summarize failed", s.Error)
}

func TestWorkflowState_AwaitingFor(t *testing.T) {
	s := stateWithDrafts(t, 1)
	assert.Zero(t, s.AwaitingFor(t0))

	require.NoError(t, s.BeginAwaiting("A", t0))
	assert.Equal(t, 90*time.Minute, s.AwaitingFor(t0.Add(90*time.Minute)))
}

func TestParsePriority(t *testing.T) {
	assert.Equal(t, PriorityHigh, ParsePriority("HIGH"))
	assert.Equal(t, PriorityLow, ParsePriority(" low "))
	assert.Equal(t, PriorityMedium, ParsePriority("medium"))
	assert.Equal(t, PriorityMedium, ParsePriority("urgent!!"))
}

func TestStepName_CanTransitionTo(t *testing.T) {
	assert.True(t, StepFetchUnread.CanTransitionTo(StepSummarize))
	assert.True(t, StepPublishGate.CanTransitionTo(StepPublishGate))
	assert.True(t, StepPublishGate.CanTransitionTo(StepFinalize))
	assert.False(t, StepSummarize.CanTransitionTo(StepPublishGate))
	assert.False(t, StepFinalize.CanTransitionTo(StepFetchUnread))
	assert.True(t, StepSuspendWait.IsTerminal())
	assert.False(t, StepName("bogus").IsValid())
}

func TestError_Wrapping(t *testing.T) {
	err := fmt.Errorf("load state: %w", ErrCorruption.Wrap(errors.New("bad json")))
	assert.True(t, IsCorruption(err))
	assert.False(t, IsTypeValidation(err))
	assert.Contains(t, err.Error(), "STATE_CORRUPT")
	assert.Contains(t, err.Error(), "bad json")
}
