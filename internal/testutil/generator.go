package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
)

// Generator is a scripted output.TextGenerator for tests
type Generator struct {
	mu sync.Mutex

	Summary string
	Triage  string
	Draft   string

	// Errs fails every request of the given purpose
	Errs map[output.Purpose]error

	// CompleteFunc overrides everything above when set
	CompleteFunc func(ctx context.Context, req output.CompletionRequest) (*output.Completion, error)

	history []output.CompletionRequest
}

// NewGenerator creates a generator with harmless defaults
func NewGenerator() *Generator {
	return &Generator{
		Summary: "Two people are waiting on answers.",
		Triage:  `{"emails_to_respond":[]}`,
		Draft:   "Thanks, I will follow up shortly.",
		Errs:    map[output.Purpose]error{},
	}
}

func (g *Generator) Complete(ctx context.Context, req output.CompletionRequest) (*output.Completion, error) {
	g.mu.Lock()
	g.history = append(g.history, req)
	fn := g.CompleteFunc
	err := g.Errs[req.Purpose]
	var text string
	switch req.Purpose {
	case output.PurposeSummarize:
		text = g.Summary
	case output.PurposeTriage:
		text = g.Triage
	default:
		text = g.Draft
	}
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return &output.Completion{Text: text, Model: "scripted"}, nil
}

// History returns the requests received so far
func (g *Generator) History() []output.CompletionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]output.CompletionRequest(nil), g.history...)
}

// TriageJSON renders a triage response selecting the given message ids
func TriageJSON(ids ...string) string {
	type item struct {
		EmailID      string `json:"email_id"`
		Priority     string `json:"priority"`
		ResponseType string `json:"response_type"`
		Reason       string `json:"reason"`
	}
	items := make([]item, 0, len(ids))
	for _, id := range ids {
		items = append(items, item{EmailID: id, Priority: "High", ResponseType: "Reply", Reason: "asks a question"})
	}
	b, _ := json.Marshal(map[string]interface{}{"emails_to_respond": items})
	return string(b)
}
