package ai

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Request is one call to the model capability.
type Request struct {
	System    string
	Prompt    string
	Schema    *Schema // declared response schema; nil means free text
	MaxTokens int
}

// Provider is a hosted model. It returns the raw text of the first answer;
// interpreting that text is the caller's job.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// DefaultMaxTokens is used when a Request leaves MaxTokens unset.
const DefaultMaxTokens = 2048

// NewProvider creates a new AI provider based on the provider name
func NewProvider(name, model string) (Provider, error) {
	switch strings.ToLower(name) {
	case "gemini", "google", "":
		return NewGeminiProvider(model)
	case "claude", "anthropic":
		return NewClaudeProvider(model)
	case "openai", "gpt":
		return NewOpenAIProvider(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: gemini, claude, openai)", name)
	}
}

// apiKey returns the first non-empty environment variable.
func apiKey(vars ...string) (string, error) {
	for _, v := range vars {
		if key := os.Getenv(v); key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("%s environment variable required", strings.Join(vars, " or "))
}

func maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return DefaultMaxTokens
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (string, error)

func (f ProviderFunc) Name() string { return "func" }

func (f ProviderFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
