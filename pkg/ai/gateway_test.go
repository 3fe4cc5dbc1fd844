package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestGateway(completer Completer) *Gateway {
	return NewGateway(completer, GatewayConfig{Timeout: time.Second, Logger: zerolog.Nop()})
}

func titrationPrompt() QuestionPrompt {
	return QuestionPrompt{
		Subject:      "Chemistry",
		QuestionText: "You are performing a titration of 25 mL of 0.15 M HCl with 0.1 M NaOH.",
		Variables:    map[string]any{"volume": 25},
	}
}

func TestSolveQuestionUsesCompletion(t *testing.T) {
	mock := NewMockCompleter(MockResponse{Content: `{
		"rephrased_question": "A 25 mL sample of 0.15 M HCl is titrated with 0.1 M NaOH.",
		"solution_steps": ["moles HCl = 0.025 * 0.15", "V = moles / 0.1"],
		"final_answer": "37.5 mL"
	}`})
	gateway := newTestGateway(mock)

	solution, err := gateway.SolveQuestion(context.Background(), titrationPrompt())
	require.NoError(t, err)
	require.True(t, solution.Rephrased)
	require.Equal(t, "A 25 mL sample of 0.15 M HCl is titrated with 0.1 M NaOH.", solution.QuestionText)
	require.Equal(t, "moles HCl = 0.025 * 0.15\nV = moles / 0.1\n\nFinal Answer: 37.5 mL", solution.ExpectedAnswer)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, ResponseFormatJSON, calls[0].ResponseFormat)
	require.Equal(t, 0.7, calls[0].Temperature)
	require.Equal(t, solveSystemPrompt, calls[0].SystemPrompt)
	require.Contains(t, calls[0].UserPrompt, "You are an expert in Chemistry.")
	require.Contains(t, calls[0].UserPrompt, `"volume": 25`)
}

func TestSolveQuestionKeepsRenderedTextWhenRephrasingBlank(t *testing.T) {
	gateway := newTestGateway(NewMockCompleter(MockResponse{Content: `{"rephrased_question": "", "solution_steps": "step", "final_answer": 12.5}`}))

	solution, err := gateway.SolveQuestion(context.Background(), titrationPrompt())
	require.NoError(t, err)
	require.Equal(t, titrationPrompt().QuestionText, solution.QuestionText)
	require.Equal(t, "step\n\nFinal Answer: 12.5", solution.ExpectedAnswer)
}

func TestSolveQuestionSanitizesMarkup(t *testing.T) {
	gateway := newTestGateway(NewMockCompleter(MockResponse{Content: `{"rephrased_question": "<script>alert(1)</script>Find x < 5 <b>now</b>", "solution_steps": "s", "final_answer": "a"}`}))

	solution, err := gateway.SolveQuestion(context.Background(), titrationPrompt())
	require.NoError(t, err)
	require.Equal(t, "Find x < 5 now", solution.QuestionText)
}

func TestSolveQuestionFallsBack(t *testing.T) {
	cases := map[string]Completer{
		"no provider":     nil,
		"provider error":  NewMockCompleter(MockResponse{Err: &ProviderUnavailableError{Err: errors.New("boom")}}),
		"malformed json":  NewMockCompleter(MockResponse{Content: "not json"}),
		"missing answer":  NewMockCompleter(MockResponse{Content: `{"rephrased_question": "x"}`}),
		"empty content":   NewMockCompleter(MockResponse{Content: "   "}),
		"rate limited":    NewMockCompleter(MockResponse{Err: &RateLimitError{Err: errors.New("429")}}),
		"exhausted queue": NewMockCompleter(),
	}

	for name, completer := range cases {
		t.Run(name, func(t *testing.T) {
			gateway := newTestGateway(completer)
			solution, err := gateway.SolveQuestion(context.Background(), titrationPrompt())
			require.NoError(t, err)
			require.Equal(t, FallbackSolution(titrationPrompt()), solution)
			require.Equal(t, "Solution not available - please solve manually", solution.ExpectedAnswer)
			require.False(t, solution.Rephrased)
		})
	}
}

type blockingCompleter struct{}

func (blockingCompleter) Complete(ctx context.Context, _ CompletionRequest) (CompletionResponse, error) {
	<-ctx.Done()
	return CompletionResponse{}, ctx.Err()
}

func (blockingCompleter) ModelID() string { return "blocking" }

func TestSolveQuestionTimeoutFallsBack(t *testing.T) {
	gateway := NewGateway(blockingCompleter{}, GatewayConfig{Timeout: 20 * time.Millisecond, Logger: zerolog.Nop()})

	solution, err := gateway.SolveQuestion(context.Background(), titrationPrompt())
	require.NoError(t, err)
	require.Equal(t, FallbackAnswer, solution.ExpectedAnswer)
}

func TestSolveQuestionReturnsCallerCancellation(t *testing.T) {
	gateway := newTestGateway(blockingCompleter{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gateway.SolveQuestion(ctx, titrationPrompt())
	require.ErrorIs(t, err, context.Canceled)
}

func TestEvaluateDifficulty(t *testing.T) {
	mock := NewMockCompleter(MockResponse{Content: `{"difficulties": [6, 7, 6.5], "reasoning": "similar structure"}`})
	gateway := newTestGateway(mock)

	result := gateway.EvaluateDifficulty(context.Background(), []string{"q1", "q2", "q3"})
	require.False(t, result.Fallback)
	require.Equal(t, 6.5, result.AvgDifficulty)
	require.Equal(t, []float64{6, 7, 6.5}, result.Difficulties)
	require.True(t, result.IsConsistent)
	require.Equal(t, "similar structure", result.Reasoning)
	require.Contains(t, mock.Calls()[0].UserPrompt, "1. q1")
	require.Contains(t, mock.Calls()[0].UserPrompt, "3. q3")
}

func TestEvaluateDifficultyFlagsInconsistentRatings(t *testing.T) {
	gateway := newTestGateway(NewMockCompleter(MockResponse{Content: `{"difficulties": [2, 9], "reasoning": "spread"}`}))

	result := gateway.EvaluateDifficulty(context.Background(), []string{"q1", "q2"})
	require.Equal(t, 5.5, result.AvgDifficulty)
	require.False(t, result.IsConsistent)
}

func TestEvaluateDifficultyFallsBack(t *testing.T) {
	cases := map[string]Completer{
		"no provider":    nil,
		"count mismatch": NewMockCompleter(MockResponse{Content: `{"difficulties": [4], "reasoning": "x"}`}),
		"out of scale":   NewMockCompleter(MockResponse{Content: `{"difficulties": [4, 12], "reasoning": "x"}`}),
		"provider error": NewMockCompleter(MockResponse{Err: errors.New("network down")}),
	}

	for name, completer := range cases {
		t.Run(name, func(t *testing.T) {
			result := newTestGateway(completer).EvaluateDifficulty(context.Background(), []string{"q1", "q2"})
			require.Equal(t, FallbackEvaluation(2), result)
			require.Equal(t, 5.0, result.AvgDifficulty)
			require.Equal(t, []float64{5, 5}, result.Difficulties)
			require.True(t, result.IsConsistent)
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	require.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, stripCodeFence(`{"a":1}`))
}
