package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// GeminiConfig holds Gemini integration configuration.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiCompleter implements Completer using the Google Gemini API.
type GeminiCompleter struct {
	client *genai.Client
	model  string
	tracer trace.Tracer
}

// NewGeminiCompleter creates a Gemini-backed completer.
func NewGeminiCompleter(ctx context.Context, cfg GeminiConfig) (*GeminiCompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiCompleter{
		client: client,
		model:  cfg.Model,
		tracer: otel.Tracer("github.com/noah-isme/labgen-api/pkg/ai/gemini"),
	}, nil
}

// Complete sends one GenerateContent request.
func (c *GeminiCompleter) Complete(parent context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	ctx, span := c.tracer.Start(parent, "gemini.complete", trace.WithAttributes(
		attribute.String("model", model),
	))
	defer span.End()

	config := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		config.Temperature = &temp
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	if req.ResponseFormat == ResponseFormatJSON {
		config.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: req.UserPrompt}},
	}}

	start := time.Now()
	result, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	completionDuration.WithLabelValues("gemini", model).Observe(time.Since(start).Seconds())
	if err != nil {
		return CompletionResponse{}, c.fail(span, model, mapGeminiError(err))
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return CompletionResponse{}, c.fail(span, model, &InvalidResponseError{Err: errors.New("empty gemini response")})
	}

	resp := CompletionResponse{Content: stripCodeFence(text), Model: model}
	if result.UsageMetadata != nil {
		resp.Usage = Usage{
			InputTokens:  int(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int(result.UsageMetadata.CandidatesTokenCount),
		}
	}
	return resp, nil
}

// ModelID returns the default model.
func (c *GeminiCompleter) ModelID() string {
	return c.model
}

func (c *GeminiCompleter) fail(span trace.Span, model string, err error) error {
	completionFailures.WithLabelValues("gemini", model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func mapGeminiError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return &RateLimitError{Err: err}
		case apiErr.Code >= 500:
			return &ProviderUnavailableError{Err: err}
		}
		return err
	}
	return &ProviderUnavailableError{Err: err}
}
