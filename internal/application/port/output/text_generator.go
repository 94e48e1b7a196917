package output

import (
	"context"
	"time"
)

// TextGenerator is the interface for language model completion
// This abstraction allows hosted models and offline generators alike
type TextGenerator interface {
	// Complete produces text for a prompt
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// Purpose tells the generator which pipeline step is asking
type Purpose string

const (
	PurposeSummarize Purpose = "summarize"
	PurposeTriage    Purpose = "triage"
	PurposeDraft     Purpose = "draft"
)

// CompletionRequest represents a request to a TextGenerator
type CompletionRequest struct {
	Purpose   Purpose // Step issuing the request
	Prompt    string  // The prompt to send
	MaxTokens int     // Maximum tokens to generate (0 = generator default)
}

// Completion represents generated text
type Completion struct {
	Text       string        // Generated output
	Model      string        // Model that produced it
	Duration   time.Duration // Generation latency
	TokensUsed int           // Output tokens, if reported
}
