package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
)

// OfflineGenerator answers prompts with deterministic heuristics so the
// workflow can run without network access
type OfflineGenerator struct{}

var _ output.TextGenerator = OfflineGenerator{}

// NewOfflineGenerator creates an offline generator
func NewOfflineGenerator() OfflineGenerator {
	return OfflineGenerator{}
}

// Complete implements output.TextGenerator
func (OfflineGenerator) Complete(ctx context.Context, req output.CompletionRequest) (*output.Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var text string
	switch req.Purpose {
	case output.PurposeSummarize:
		text = offlineSummary(req.Prompt)
	case output.PurposeTriage:
		text = offlineTriage(req.Prompt)
	case output.PurposeDraft:
		text = offlineDraft(req.Prompt)
	default:
		return nil, fmt.Errorf("offline generator: unknown purpose %q", req.Purpose)
	}

	return &output.Completion{
		Text:       text,
		Model:      "offline",
		Duration:   time.Millisecond,
		TokensUsed: len(text) / 4,
	}, nil
}

func offlineSummary(prompt string) string {
	senders := map[string]bool{}
	important := 0
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if i := strings.Index(line, "From: "); i >= 0 {
			senders[strings.TrimSpace(line[i+len("From: "):])] = true
		}
		if line == "Important: true" {
			important++
		}
	}
	return fmt.Sprintf("You have unread mail from %d senders, %d marked important.", len(senders), important)
}

// offlineTriage selects messages that are flagged important or ask a question
func offlineTriage(prompt string) string {
	type item struct {
		EmailID      string `json:"email_id"`
		Priority     string `json:"priority"`
		ResponseType string `json:"response_type"`
		Reason       string `json:"reason"`
	}
	out := struct {
		EmailsToRespond []item `json:"emails_to_respond"`
	}{EmailsToRespond: []item{}}

	for _, block := range strings.Split(prompt, "---\n") {
		id, important, question := "", false, false
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "ID: "):
				id = strings.TrimSpace(strings.TrimPrefix(line, "ID: "))
			case line == "Important: true":
				important = true
			case strings.HasPrefix(line, "Subject: "), strings.HasPrefix(line, "Body: "):
				question = question || strings.Contains(line, "?")
			}
		}
		if id == "" || !(important || question) {
			continue
		}
		it := item{EmailID: id, Priority: "Medium", ResponseType: "Reply", Reason: "asks a question"}
		if important {
			it.Priority = "High"
			it.Reason = "marked important"
		}
		out.EmailsToRespond = append(out.EmailsToRespond, it)
	}

	b, _ := json.Marshal(out)
	return string(b)
}

func offlineDraft(prompt string) string {
	subject := "your message"
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "Subject: ") {
			subject = strings.TrimSpace(strings.TrimPrefix(line, "Subject: "))
			break
		}
	}
	return fmt.Sprintf("Hi,\n\nThank you for your email about %q. I have read it and will follow up shortly.\n\nBest regards", subject)
}
