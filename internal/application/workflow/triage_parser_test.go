package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
)

func TestParseTriageResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []triage.Candidate
		wantErr bool
	}{
		{
			name: "plain json",
			raw:  `{"emails_to_respond":[{"email_id":"m1","priority":"high","response_type":"Reply","reason":"question"}]}`,
			want: []triage.Candidate{{MessageRef: "m1", Priority: triage.PriorityHigh, ResponseType: "Reply", Reason: "question"}},
		},
		{
			name: "fenced with language tag",
			raw:  "```json\n{\"emails_to_respond\":[{\"email_id\":\"m2\",\"priority\":\"Low\"}]}\n```",
			want: []triage.Candidate{{MessageRef: "m2", Priority: triage.PriorityLow, ResponseType: "Reply"}},
		},
		{
			name: "drops blanks and duplicates",
			raw:  `{"emails_to_respond":[{"email_id":""},{"email_id":"m1"},{"email_id":"m1","priority":"High"}]}`,
			want: []triage.Candidate{{MessageRef: "m1", Priority: triage.PriorityMedium, ResponseType: "Reply"}},
		},
		{
			name: "empty list",
			raw:  `{"emails_to_respond":[]}`,
			want: []triage.Candidate{},
		},
		{name: "prose", raw: "I think you should answer Bob.", wantErr: true},
		{name: "empty", raw: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTriageResponse(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReplySubject(t *testing.T) {
	assert.Equal(t, "Re: Lunch", replySubject("Lunch"))
	assert.Equal(t, "RE: Lunch", replySubject("RE: Lunch"))
	assert.Equal(t, "Re: ", replySubject(""))
}

func TestClip(t *testing.T) {
	assert.Equal(t, "héllo", clip("  héllo ", 10))
	assert.Equal(t, "ab...", clip("abcdef", 2))
	assert.Equal(t, "abcdef", clip("abcdef", 0))
}
