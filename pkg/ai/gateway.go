package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// FallbackAnswer is the expected answer recorded when no solution could be obtained.
	FallbackAnswer = "Solution not available - please solve manually"
	// FallbackDifficulty is the rating used when difficulty evaluation fails.
	FallbackDifficulty = 5.0

	consistencyThreshold = 1.0
)

// GatewayConfig tunes the calls the gateway makes.
type GatewayConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// Gateway rephrases and solves questions through a Completer. It never surfaces
// provider failures: callers receive fallback content instead.
type Gateway struct {
	completer Completer
	cfg       GatewayConfig
	logger    zerolog.Logger
	tracer    trace.Tracer
	policy    *bluemonday.Policy
}

// NewGateway creates a gateway. A nil completer makes every call fall back.
func NewGateway(completer Completer, cfg GatewayConfig) *Gateway {
	if cfg.Model == "" && completer != nil {
		cfg.Model = completer.ModelID()
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Gateway{
		completer: completer,
		cfg:       cfg,
		logger:    cfg.Logger.With().Str("component", "ai_gateway").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/labgen-api/pkg/ai/gateway"),
		policy:    bluemonday.StrictPolicy(),
	}
}

// Enabled reports whether a completion provider is configured.
func (g *Gateway) Enabled() bool {
	return g.completer != nil
}

// FallbackSolution is the solution used when the completion service cannot help.
func FallbackSolution(prompt QuestionPrompt) QuestionSolution {
	return QuestionSolution{
		QuestionText:   prompt.QuestionText,
		ExpectedAnswer: FallbackAnswer,
	}
}

// FallbackEvaluation rates every question at the neutral midpoint.
func FallbackEvaluation(count int) DifficultyEvaluation {
	difficulties := make([]float64, count)
	for i := range difficulties {
		difficulties[i] = FallbackDifficulty
	}
	return DifficultyEvaluation{
		AvgDifficulty: FallbackDifficulty,
		Difficulties:  difficulties,
		IsConsistent:  true,
		Reasoning:     "Difficulty evaluation unavailable; neutral ratings applied.",
		Fallback:      true,
	}
}

type solutionPayload struct {
	RephrasedQuestion string          `json:"rephrased_question"`
	SolutionSteps     json.RawMessage `json:"solution_steps"`
	FinalAnswer       json.RawMessage `json:"final_answer"`
}

// SolveQuestion asks the provider to rephrase and solve the question. Provider
// failures produce FallbackSolution; the only error returned is the caller's own
// context error, so loops can stop when the caller gives up.
func (g *Gateway) SolveQuestion(ctx context.Context, prompt QuestionPrompt) (QuestionSolution, error) {
	if err := ctx.Err(); err != nil {
		return QuestionSolution{}, err
	}

	payload, failure := g.requestSolution(ctx, prompt)
	if failure != nil {
		if err := ctx.Err(); err != nil {
			return QuestionSolution{}, err
		}
		g.logger.Warn().Err(failure.Err).Str("stage", failure.Stage).Str("subject", prompt.Subject).Msg("question solving fell back")
		fallbackTotal.WithLabelValues("solve", failure.Stage).Inc()
		return FallbackSolution(prompt), nil
	}

	questionText := g.sanitize(payload.RephrasedQuestion)
	if questionText == "" {
		questionText = prompt.QuestionText
	}

	return QuestionSolution{
		QuestionText:   questionText,
		ExpectedAnswer: g.sanitize(rawText(payload.SolutionSteps)) + "\n\nFinal Answer: " + g.sanitize(rawText(payload.FinalAnswer)),
		Rephrased:      true,
	}, nil
}

func (g *Gateway) requestSolution(parent context.Context, prompt QuestionPrompt) (solutionPayload, *ServiceFailure) {
	if g.completer == nil {
		return solutionPayload{}, &ServiceFailure{Stage: "unconfigured", Err: ErrNoCompleter}
	}

	ctx, span := g.tracer.Start(parent, "gateway.solve_question", trace.WithAttributes(
		attribute.String("subject", prompt.Subject),
	))
	defer span.End()

	content, failure := g.complete(ctx, CompletionRequest{
		SystemPrompt: solveSystemPrompt,
		UserPrompt:   buildSolvePrompt(prompt),
	})
	if failure != nil {
		span.RecordError(failure)
		return solutionPayload{}, failure
	}

	var payload solutionPayload
	if err := decodeValidated(solutionSchema, content, &payload); err != nil {
		span.RecordError(err)
		return solutionPayload{}, &ServiceFailure{Stage: "decode", Err: err}
	}
	return payload, nil
}

type difficultyPayload struct {
	Difficulties []float64 `json:"difficulties"`
	Reasoning    string    `json:"reasoning"`
}

// EvaluateDifficulty rates each question from 1 to 10 and reports whether the
// ratings are consistent (population standard deviation below 1.0).
// Any failure yields FallbackEvaluation.
func (g *Gateway) EvaluateDifficulty(ctx context.Context, questions []string) DifficultyEvaluation {
	if len(questions) == 0 {
		return FallbackEvaluation(0)
	}

	payload, failure := g.requestDifficulty(ctx, questions)
	if failure != nil {
		g.logger.Warn().Err(failure.Err).Str("stage", failure.Stage).Int("questions", len(questions)).Msg("difficulty evaluation fell back")
		fallbackTotal.WithLabelValues("evaluate_difficulty", failure.Stage).Inc()
		return FallbackEvaluation(len(questions))
	}

	avg, stddev := meanAndStdDev(payload.Difficulties)
	return DifficultyEvaluation{
		AvgDifficulty: math.Round(avg*10) / 10,
		Difficulties:  payload.Difficulties,
		IsConsistent:  stddev < consistencyThreshold,
		Reasoning:     g.sanitize(payload.Reasoning),
	}
}

func (g *Gateway) requestDifficulty(parent context.Context, questions []string) (difficultyPayload, *ServiceFailure) {
	if g.completer == nil {
		return difficultyPayload{}, &ServiceFailure{Stage: "unconfigured", Err: ErrNoCompleter}
	}

	ctx, span := g.tracer.Start(parent, "gateway.evaluate_difficulty", trace.WithAttributes(
		attribute.Int("questions", len(questions)),
	))
	defer span.End()

	content, failure := g.complete(ctx, CompletionRequest{
		SystemPrompt: difficultySystemPrompt,
		UserPrompt:   buildDifficultyPrompt(questions),
	})
	if failure != nil {
		span.RecordError(failure)
		return difficultyPayload{}, failure
	}

	var payload difficultyPayload
	if err := decodeValidated(difficultySchema, content, &payload); err != nil {
		span.RecordError(err)
		return difficultyPayload{}, &ServiceFailure{Stage: "decode", Err: err}
	}
	if len(payload.Difficulties) != len(questions) {
		err := fmt.Errorf("expected %d ratings, got %d", len(questions), len(payload.Difficulties))
		span.RecordError(err)
		return difficultyPayload{}, &ServiceFailure{Stage: "decode", Err: err}
	}
	return payload, nil
}

func (g *Gateway) complete(parent context.Context, req CompletionRequest) (string, *ServiceFailure) {
	ctx, cancel := context.WithTimeout(parent, g.cfg.Timeout)
	defer cancel()

	req.Model = g.cfg.Model
	req.Temperature = g.cfg.Temperature
	req.MaxTokens = g.cfg.MaxTokens
	req.ResponseFormat = ResponseFormatJSON

	resp, err := g.completer.Complete(ctx, req)
	if err != nil {
		return "", &ServiceFailure{Stage: "request", Err: err}
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", &ServiceFailure{Stage: "decode", Err: &InvalidResponseError{Err: fmt.Errorf("empty content")}}
	}
	return resp.Content, nil
}

func (g *Gateway) sanitize(value string) string {
	return strings.TrimSpace(html.UnescapeString(g.policy.Sanitize(value)))
}

// rawText flattens a string, string array or scalar JSON value into text.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, "\n")
	}
	return strings.TrimSpace(string(raw))
}

func meanAndStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}
