package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const jsonOnlyInstruction = "Respond with a single JSON object and nothing else."

// AnthropicConfig holds Anthropic integration configuration.
type AnthropicConfig struct {
	APIKey string
	Model  string
}

// AnthropicCompleter implements Completer using the Anthropic messages API.
type AnthropicCompleter struct {
	client *anthropic.Client
	model  string
	tracer trace.Tracer
}

// NewAnthropicCompleter constructs a completer for Anthropic models.
func NewAnthropicCompleter(cfg AnthropicConfig) (*AnthropicCompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}

	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return &AnthropicCompleter{
		client: &client,
		model:  cfg.Model,
		tracer: otel.Tracer("github.com/noah-isme/labgen-api/pkg/ai/anthropic"),
	}, nil
}

// Complete sends one message request. JSON output is requested through the system prompt.
func (c *AnthropicCompleter) Complete(parent context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	ctx, span := c.tracer.Start(parent, "anthropic.complete", trace.WithAttributes(
		attribute.String("model", model),
	))
	defer span.End()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	system := req.SystemPrompt
	if req.ResponseFormat == ResponseFormatJSON {
		system = strings.TrimSpace(system + " " + jsonOnlyInstruction)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{{
			Role:    anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(req.UserPrompt)},
		}},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	start := time.Now()
	msg, err := c.client.Messages.New(ctx, params)
	completionDuration.WithLabelValues("anthropic", model).Observe(time.Since(start).Seconds())
	if err != nil {
		return CompletionResponse{}, c.fail(span, model, mapAnthropicError(err))
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return CompletionResponse{
				Content: stripCodeFence(block.Text),
				Model:   string(msg.Model),
				Usage: Usage{
					InputTokens:  int(msg.Usage.InputTokens),
					OutputTokens: int(msg.Usage.OutputTokens),
				},
			}, nil
		}
	}

	return CompletionResponse{}, c.fail(span, model, &InvalidResponseError{Err: errors.New("no text content in anthropic response")})
}

// ModelID returns the default model.
func (c *AnthropicCompleter) ModelID() string {
	return c.model
}

func (c *AnthropicCompleter) fail(span trace.Span, model string, err error) error {
	completionFailures.WithLabelValues("anthropic", model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func mapAnthropicError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return &RateLimitError{Err: err}
		case apiErr.StatusCode >= 500:
			return &ProviderUnavailableError{Err: err}
		}
		return err
	}
	return &ProviderUnavailableError{Err: err}
}

// stripCodeFence removes a surrounding ```json fence some models add despite instructions.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimPrefix(trimmed, "json")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
