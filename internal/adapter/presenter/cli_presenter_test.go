package presenter_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/YoshitsuguKoike/inboxzero/internal/adapter/presenter"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/dto"
	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
)

func TestCLIPresenter_PresentSuccess(t *testing.T) {
	ts := time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name        string
		message     string
		data        interface{}
		wantContain []string
		wantAbsent  []string
	}{
		{
			name:    "paused run",
			message: "Triage started",
			data: &dto.TriageResult{
				UserID:            "U1",
				RunID:             "run-1",
				Status:            dto.RunStatusPaused,
				AwaitingDecision:  true,
				Cursor:            1,
				TotalDrafts:       3,
				PendingApprovalID: "A2",
				Message:           dto.MessagePaused,
			},
			wantContain: []string{"✓ Triage started", "User: U1", "Status: paused", "Drafts: 1/3 decided", "Awaiting approval: A2", dto.MessagePaused},
		},
		{
			name:        "nothing to resume",
			message:     "Decision",
			data:        &dto.TriageResult{UserID: "U1", Status: dto.RunStatusNothingToResume, Message: dto.MessageNothingToResume},
			wantContain: []string{"Status: nothing_to_resume", dto.MessageNothingToResume},
			wantAbsent:  []string{"Run:", "Drafts:"},
		},
		{
			name:    "state with drafts",
			message: "Status",
			data: &dto.StateDTO{
				UserID:           "U1",
				RunID:            "run-1",
				StartedAt:        ts,
				CurrentStep:      "suspend_wait",
				UnreadCount:      2,
				Summary:          "Two threads need replies",
				Cursor:           1,
				AwaitingDecision: true,
				Drafts: []dto.DraftDTO{
					{Priority: "High", Subject: "Re: Plan", Recipient: "a@example.com", Outcome: "approved"},
					{Priority: "Low", Subject: "Re: Lunch", Recipient: "b@example.com", Outcome: "awaiting"},
				},
				PendingApprovals: []*dto.ApprovalDTO{{ID: "A2", Subject: "Re: Lunch", ExpiresAt: ts.Add(time.Hour)}},
			},
			wantContain: []string{
				"Step: suspend_wait",
				"Started: 2026-03-04 09:30:00",
				"Two threads need replies",
				"  1. [High] Re: Plan → a@example.com (approved)",
				"▶ 2. [Low] Re: Lunch → b@example.com (awaiting)",
				"A2 Re: Lunch (expires 2026-03-04 10:30)",
			},
		},
		{
			name:    "journal",
			message: "History",
			data: []output.JournalEntry{
				{Timestamp: ts, UserID: "U1", Step: "publish_gate", Cursor: 0, Drafts: 2, Awaiting: true, ElapsedMs: 12},
				{Timestamp: ts, UserID: "U1", Step: "finalize", Error: "boom"},
			},
			wantContain: []string{"publish_gate", "cursor=0/2 12ms awaiting", "error=boom", "Total: 2 entries"},
		},
		{
			name:        "empty journal",
			message:     "History",
			data:        []output.JournalEntry{},
			wantContain: []string{"No journal entries."},
		},
		{
			name:        "version map",
			message:     "inboxzero",
			data:        map[string]string{"version": "v1", "buildInfo": "abc"},
			wantContain: []string{"buildInfo: abc\nversion: v1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			p := presenter.NewCLIPresenter(buf)

			if err := p.PresentSuccess(tt.message, tt.data); err != nil {
				t.Fatalf("PresentSuccess() error = %v", err)
			}

			out := buf.String()
			for _, want := range tt.wantContain {
				if !strings.Contains(out, want) {
					t.Errorf("Output does not contain %q\nGot: %s", want, out)
				}
			}
			for _, absent := range tt.wantAbsent {
				if strings.Contains(out, absent) {
					t.Errorf("Output unexpectedly contains %q\nGot: %s", absent, out)
				}
			}
		})
	}
}

func TestCLIPresenter_PresentError(t *testing.T) {
	buf := &bytes.Buffer{}
	p := presenter.NewCLIPresenter(buf)

	want := errors.New("mailbox unavailable")
	if err := p.PresentError(want); err != want {
		t.Fatalf("PresentError() = %v, want %v", err, want)
	}
	if !strings.Contains(buf.String(), "✗ Error: mailbox unavailable") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestCLIPresenter_PresentProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	p := presenter.NewCLIPresenter(buf)

	_ = p.PresentProgress("Drafting", 2, 4)
	_ = p.PresentProgress("Fetching", 0, 0)

	out := buf.String()
	if !strings.Contains(out, "Drafting [██░░] 2/4") {
		t.Errorf("missing progress bar: %s", out)
	}
	if !strings.Contains(out, "Fetching\n") {
		t.Errorf("missing plain progress line: %s", out)
	}
}
