package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/inboxzero/internal/app"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/model/approval"
	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
	"github.com/YoshitsuguKoike/inboxzero/internal/testutil"
)

type recordingJournal struct {
	mu      sync.Mutex
	entries []output.JournalEntry
}

func (j *recordingJournal) Record(ctx context.Context, e output.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

type harness struct {
	mail    *testutil.MailStore
	gen     *testutil.Generator
	pub     *testutil.Publisher
	states  *testutil.StateStore
	clock   *testutil.Clock
	journal *recordingJournal
	engine  *Engine
}

func newHarness(t *testing.T, msgs ...triage.Message) *harness {
	t.Helper()
	h := &harness{
		mail:    testutil.NewMailStore(msgs...),
		gen:     testutil.NewGenerator(),
		states:  testutil.NewStateStore(),
		clock:   testutil.NewClock(time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)),
		journal: &recordingJournal{},
	}
	h.pub = testutil.NewPublisher(h.clock)
	h.engine = NewEngine(Dependencies{
		Mail:      h.mail,
		Generator: h.gen,
		Publisher: h.pub,
		States:    h.states,
		Journal:   h.journal,
		Logger:    app.Discard,
	}, DefaultConfig(), WithClock(h.clock.Now))
	return h
}

func (h *harness) fresh(t *testing.T) *triage.WorkflowState {
	t.Helper()
	s, err := triage.NewWorkflowState("U1", "R1", h.clock.Now())
	require.NoError(t, err)
	return s
}

func TestEngine_EmptyInboxCompletes(t *testing.T) {
	h := newHarness(t)

	res, err := h.engine.Start(context.Background(), h.fresh(t))
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, res.Outcome)
	s := res.State
	assert.Nil(t, s.Summary)
	assert.Empty(t, s.CandidateDecisions)
	assert.Empty(t, s.Drafts)
	assert.True(t, s.Complete)
	assert.Equal(t, "No emails processed.", s.FinalSummary)
	assert.Equal(t, []triage.StepName{
		triage.StepFetchUnread, triage.StepSummarize, triage.StepTriage,
		triage.StepComposeDrafts, triage.StepPublishGate, triage.StepFinalize,
	}, res.Steps)
	assert.Empty(t, h.gen.History(), "nothing to summarize or classify")
	assert.Len(t, h.journal.entries, 6)
}

func TestEngine_SuspendsOnFirstDraft(t *testing.T) {
	h := newHarness(t, testutil.Messages(2)...)
	h.gen.Triage = testutil.TriageJSON("m1", "m2")

	res, err := h.engine.Start(context.Background(), h.fresh(t))
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuspended, res.Outcome)
	s := res.State
	require.Len(t, s.Drafts, 2)
	assert.Equal(t, "m1", s.Drafts[0].MessageRef)
	assert.Equal(t, "Re: Question 1", s.Drafts[0].Subject)
	assert.Equal(t, "sender1@example.com", s.Drafts[0].Recipient)
	assert.Equal(t, 0, s.Cursor)
	assert.True(t, s.AwaitingDecision)
	assert.Equal(t, "approval-"+s.Drafts[0].DraftRef, s.PendingApprovalID)
	assert.Equal(t, 1, h.pub.Count())
	assert.Equal(t, triage.StepSuspendWait, res.Steps[len(res.Steps)-1])

	stored, found, err := h.states.Load(context.Background(), "U1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, stored.AwaitingDecision)
	assert.Equal(t, 1, h.states.Saves())
}

func TestEngine_GateHoldsUntilTimeout(t *testing.T) {
	h := newHarness(t, testutil.Messages(2)...)
	h.gen.Triage = testutil.TriageJSON("m1", "m2")
	ctx := context.Background()

	res, err := h.engine.Start(ctx, h.fresh(t))
	require.NoError(t, err)

	h.clock.Advance(59 * time.Minute)
	res, err = h.engine.Resume(ctx, res.State)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuspended, res.Outcome)
	assert.Equal(t, 0, res.State.Cursor)
	assert.Equal(t, 1, h.pub.Count(), "no republish while waiting")

	h.clock.Advance(2 * time.Minute)
	res, err = h.engine.Resume(ctx, res.State)
	require.NoError(t, err)
	s := res.State
	assert.Equal(t, OutcomeSuspended, res.Outcome)
	assert.Equal(t, 1, s.Cursor)
	require.Len(t, s.Resolutions, 1)
	assert.Equal(t, triage.OutcomeTimedOut, s.Resolutions[0].Outcome)
	assert.True(t, s.AwaitingDecision)
	assert.Equal(t, 2, h.pub.Count())
	assert.Equal(t, []string{"approval-" + s.Drafts[0].DraftRef}, h.pub.Expired)

	h.clock.Advance(2 * time.Hour)
	res, err = h.engine.Resume(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 2, res.State.Cursor)
	assert.Contains(t, res.State.FinalSummary, "Pending Approvals\n2 drafts")
}

func TestEngine_GateKeepsDecisionMadeBeforeTimeout(t *testing.T) {
	h := newHarness(t, testutil.Messages(2)...)
	h.gen.Triage = testutil.TriageJSON("m1", "m2")
	ctx := context.Background()

	res, err := h.engine.Start(ctx, h.fresh(t))
	require.NoError(t, err)
	require.NoError(t, h.pub.Resolve(res.State.PendingApprovalID, approval.DecisionApprove))

	h.clock.Advance(2 * time.Hour)
	res, err = h.engine.Resume(ctx, res.State)
	require.NoError(t, err)
	require.Len(t, res.State.Resolutions, 1)
	assert.Equal(t, triage.OutcomeApproved, res.State.Resolutions[0].Outcome)
	assert.Equal(t, 1, res.State.Cursor)
}

func TestEngine_GateRetireFailureAborts(t *testing.T) {
	h := newHarness(t, testutil.Messages(2)...)
	h.gen.Triage = testutil.TriageJSON("m1", "m2")
	ctx := context.Background()

	res, err := h.engine.Start(ctx, h.fresh(t))
	require.NoError(t, err)

	h.pub.ExpireErr = errors.New("store offline")
	h.clock.Advance(2 * time.Hour)
	_, err = h.engine.Resume(ctx, res.State)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store offline")
	assert.Equal(t, 0, res.State.Cursor)
	assert.True(t, res.State.AwaitingDecision)
	assert.Equal(t, 1, h.pub.Count())
}

func TestEngine_SummaryFailureIsSoft(t *testing.T) {
	h := newHarness(t, testutil.Messages(1)...)
	h.gen.Errs[output.PurposeSummarize] = errors.New("model overloaded")

	res, err := h.engine.Start(context.Background(), h.fresh(t))
	require.NoError(t, err)

	s := res.State
	assert.Nil(t, s.Summary)
	assert.False(t, s.ShouldContinue)
	assert.Contains(t, s.Error, "model overloaded")
	assert.True(t, s.Complete)
	assert.Contains(t, s.FinalSummary, "Errors\n")
}

func TestEngine_MalformedTriageYieldsNoCandidates(t *testing.T) {
	h := newHarness(t, testutil.Messages(2)...)
	h.gen.Triage = "Sure! Reply to the first one."

	res, err := h.engine.Start(context.Background(), h.fresh(t))
	require.NoError(t, err)

	s := res.State
	assert.Empty(t, s.CandidateDecisions)
	assert.Empty(t, s.Drafts)
	assert.Empty(t, s.Error)
	assert.True(t, s.Complete)
	require.NotNil(t, s.Summary)
	assert.Equal(t, 2, s.Summary.TotalUnread)
}

func TestEngine_TriageDropsUnknownMessages(t *testing.T) {
	h := newHarness(t, testutil.Messages(1)...)
	h.gen.Triage = testutil.TriageJSON("m1", "ghost")

	res, err := h.engine.Start(context.Background(), h.fresh(t))
	require.NoError(t, err)
	require.Len(t, res.State.CandidateDecisions, 1)
	assert.Equal(t, "m1", res.State.CandidateDecisions[0].MessageRef)
}

func TestEngine_ComposeSkipsFailures(t *testing.T) {
	h := newHarness(t, testutil.Messages(3)...)
	h.gen.Triage = testutil.TriageJSON("m1", "m2", "m3")
	h.mail.FailDraftFor["m2"] = true

	res, err := h.engine.Start(context.Background(), h.fresh(t))
	require.NoError(t, err)

	refs := []string{}
	for _, d := range res.State.Drafts {
		refs = append(refs, d.MessageRef)
	}
	assert.Equal(t, []string{"m1", "m3"}, refs)
	assert.Empty(t, res.State.Error)
}

func TestEngine_EmptyGenerationSkipsDraft(t *testing.T) {
	h := newHarness(t, testutil.Messages(1)...)
	h.gen.Triage = testutil.TriageJSON("m1")
	h.gen.Draft = "   "

	res, err := h.engine.Start(context.Background(), h.fresh(t))
	require.NoError(t, err)
	assert.Empty(t, res.State.Drafts)
	assert.Empty(t, h.mail.Drafts)
}

func TestEngine_FetchExpandsThreadsWithoutDuplicates(t *testing.T) {
	msgs := testutil.Messages(2)
	h := newHarness(t, msgs...)
	h.mail.Threads["t1"] = []triage.Message{
		msgs[0],
		{ID: "m9", ThreadID: "t1", From: "boss@example.com"},
		msgs[1],
	}

	res, err := h.engine.Start(context.Background(), h.fresh(t))
	require.NoError(t, err)

	ids := []string{}
	for _, m := range res.State.UnreadMessages {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"m1", "m9", "m2"}, ids)

	q := h.mail.Queries()
	require.Len(t, q, 1)
	assert.Equal(t, 25, q[0].Limit())
	assert.True(t, q[0].UnreadOnly)
	assert.True(t, q[0].PrimaryOnly)
}

func TestEngine_FetchFailureIsSoft(t *testing.T) {
	h := newHarness(t)
	h.mail.ListErr = errors.New("token expired")

	res, err := h.engine.Start(context.Background(), h.fresh(t))
	require.NoError(t, err)
	assert.True(t, res.State.Complete)
	assert.Contains(t, res.State.Error, "token expired")
}

func TestEngine_PublishFailureAdvancesCursor(t *testing.T) {
	h := newHarness(t, testutil.Messages(2)...)
	h.gen.Triage = testutil.TriageJSON("m1", "m2")
	h.pub.Err = errors.New("channel down")

	res, err := h.engine.Start(context.Background(), h.fresh(t))
	require.NoError(t, err)

	s := res.State
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 2, s.Cursor)
	for _, r := range s.Resolutions {
		assert.Equal(t, triage.OutcomePublishFailed, r.Outcome)
	}
	assert.Contains(t, s.Error, "channel down")
}

func TestEngine_PersistFailureAborts(t *testing.T) {
	h := newHarness(t, testutil.Messages(1)...)
	h.gen.Triage = testutil.TriageJSON("m1")
	h.states.SaveErr = errors.New("disk full")

	_, err := h.engine.Start(context.Background(), h.fresh(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, h.engine.Stats().Snapshot().FailedRuns)
	assert.Equal(t, 1, h.pub.Count())
	assert.Len(t, h.pub.Expired, 1, "an unsaved pause leaves no live approval behind")
}

func TestEngine_PanicIsRecordedOnState(t *testing.T) {
	h := newHarness(t, testutil.Messages(1)...)
	h.gen.CompleteFunc = func(ctx context.Context, req output.CompletionRequest) (*output.Completion, error) {
		if req.Purpose == output.PurposeSummarize {
			panic("nil pointer in client")
		}
		return &output.Completion{Text: `{"emails_to_respond":[]}`}, nil
	}

	res, err := h.engine.Start(context.Background(), h.fresh(t))
	require.NoError(t, err)
	assert.Contains(t, res.State.Error, "nil pointer in client")
	assert.True(t, res.State.Complete)
}

func TestEngine_RejectsCompletedState(t *testing.T) {
	h := newHarness(t)
	s := h.fresh(t)
	s.MarkComplete("done", h.clock.Now())

	_, err := h.engine.Resume(context.Background(), s)
	assert.True(t, triage.IsRunCompleted(err))

	_, err = h.engine.Run(context.Background(), h.fresh(t), "nowhere")
	assert.True(t, triage.IsInvalidRequest(err))
}

func TestEngine_CancelledContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.engine.Start(ctx, h.fresh(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_CursorNeverDecreases(t *testing.T) {
	h := newHarness(t, testutil.Messages(4)...)
	h.gen.Triage = testutil.TriageJSON("m1", "m2", "m3", "m4")
	ctx := context.Background()

	res, err := h.engine.Start(ctx, h.fresh(t))
	require.NoError(t, err)

	last := res.State.Cursor
	for i := 0; i < 10 && !res.State.Complete; i++ {
		h.clock.Advance(45 * time.Minute)
		res, err = h.engine.Resume(ctx, res.State)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.State.Cursor, last)
		assert.LessOrEqual(t, res.State.Cursor, len(res.State.Drafts))
		last = res.State.Cursor
	}
	assert.True(t, res.State.Complete)
}
