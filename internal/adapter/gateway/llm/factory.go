package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/YoshitsuguKoike/inboxzero/internal/application/port/output"
)

// APIKeyEnv is read when the configuration carries no key
const APIKeyEnv = "ANTHROPIC_API_KEY"

// NewGenerator creates a generator for a provider name.
// Supported providers: anthropic, offline
func NewGenerator(provider, apiKey, model string, timeout time.Duration) (output.TextGenerator, error) {
	switch provider {
	case "", "anthropic":
		if apiKey == "" {
			apiKey = os.Getenv(APIKeyEnv)
		}
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable not set for anthropic provider", APIKeyEnv)
		}
		return NewAnthropicGenerator(AnthropicConfig{APIKey: apiKey, Model: model, Timeout: timeout})

	case "offline":
		return NewOfflineGenerator(), nil

	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: anthropic, offline)", provider)
	}
}
