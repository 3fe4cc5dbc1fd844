package ai

import (
	"context"
	"fmt"
	"strings"
)

// ProviderConfig selects and configures a completion provider.
type ProviderConfig struct {
	Provider        string
	Model           string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	GeminiAPIKey    string
	Retry           RetryConfig
}

// NewCompleter builds the configured provider wrapped with retries.
// Provider "none" (or empty) yields a nil Completer, which makes the gateway fall back.
func NewCompleter(ctx context.Context, cfg ProviderConfig) (Completer, error) {
	var (
		completer Completer
		err       error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none":
		return nil, nil
	case "openai":
		completer, err = NewOpenAICompleter(OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Model: cfg.Model, BaseURL: cfg.OpenAIBaseURL})
	case "anthropic":
		completer, err = NewAnthropicCompleter(AnthropicConfig{APIKey: cfg.AnthropicAPIKey, Model: cfg.Model})
	case "gemini":
		completer, err = NewGeminiCompleter(ctx, GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.Model})
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return WithRetry(completer, cfg.Retry), nil
}
