// Package llm provides output.TextGenerator implementations
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
)

const (
	// DefaultModel is used when the configuration names none
	DefaultModel     = anthropic.ModelClaude3_5HaikuLatest
	defaultMaxTokens = 1024
	defaultTimeout   = 2 * time.Minute
)

// MessagesAPI is the part of the Anthropic client the generator calls
type MessagesAPI interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicConfig configures the hosted generator
type AnthropicConfig struct {
	APIKey  string
	BaseURL string // optional
	Model   string // optional, DefaultModel when empty
	Timeout time.Duration
}

// AnthropicGenerator implements output.TextGenerator with the Messages API
type AnthropicGenerator struct {
	messages MessagesAPI
	model    anthropic.Model
	timeout  time.Duration
}

var _ output.TextGenerator = (*AnthropicGenerator)(nil)

// NewAnthropicGenerator creates a generator talking to the hosted API
func NewAnthropicGenerator(cfg AnthropicConfig) (*AnthropicGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	return NewAnthropicGeneratorWithClient(&client.Messages, cfg.Model, cfg.Timeout), nil
}

// NewAnthropicGeneratorWithClient creates a generator over a caller supplied messages API
func NewAnthropicGeneratorWithClient(messages MessagesAPI, model string, timeout time.Duration) *AnthropicGenerator {
	m := anthropic.Model(model)
	if model == "" {
		m = DefaultModel
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &AnthropicGenerator{messages: messages, model: m, timeout: timeout}
}

// Complete implements output.TextGenerator
func (g *AnthropicGenerator) Complete(ctx context.Context, req output.CompletionRequest) (*output.Completion, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	msg, err := g.messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s completion failed: %w", req.Purpose, err)
	}

	return &output.Completion{
		Text:       extractText(msg),
		Model:      string(msg.Model),
		Duration:   time.Since(start),
		TokensUsed: int(msg.Usage.OutputTokens),
	}, nil
}

// extractText joins the text blocks of a reply
func extractText(msg *anthropic.Message) string {
	if msg == nil {
		return ""
	}
	var parts []string
	for _, block := range msg.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
