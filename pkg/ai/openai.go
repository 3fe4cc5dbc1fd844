package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIConfig defines configuration options for the OpenAI completer.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// OpenAICompleter implements Completer against the OpenAI chat completion API.
type OpenAICompleter struct {
	client *openai.Client
	model  string
	tracer trace.Tracer
}

// NewOpenAICompleter builds a completer using the provided configuration.
func NewOpenAICompleter(cfg OpenAIConfig) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAICompleter{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
		tracer: otel.Tracer("github.com/noah-isme/labgen-api/pkg/ai/openai"),
	}, nil
}

// Complete sends one chat completion request.
func (c *OpenAICompleter) Complete(parent context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	ctx, span := c.tracer.Start(parent, "openai.complete", trace.WithAttributes(
		attribute.String("model", model),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
	}
	if req.ResponseFormat == ResponseFormatJSON {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	completionDuration.WithLabelValues("openai", model).Observe(time.Since(start).Seconds())
	if err != nil {
		return CompletionResponse{}, c.fail(span, model, mapOpenAIError(err))
	}

	if len(resp.Choices) == 0 {
		return CompletionResponse{}, c.fail(span, model, &InvalidResponseError{Err: errors.New("no choices returned from openai")})
	}

	return CompletionResponse{
		Content: strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:   resp.Model,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// ModelID returns the default model.
func (c *OpenAICompleter) ModelID() string {
	return c.model
}

func (c *OpenAICompleter) fail(span trace.Span, model string, err error) error {
	completionFailures.WithLabelValues("openai", model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func mapOpenAIError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return &RateLimitError{Err: err}
		case apiErr.HTTPStatusCode >= 500:
			return &ProviderUnavailableError{Err: err}
		}
		return err
	}
	return &ProviderUnavailableError{Err: err}
}
