package ai

import "context"

// ResponseFormat selects how the completion service should shape its output.
type ResponseFormat string

const (
	// ResponseFormatText requests free text.
	ResponseFormatText ResponseFormat = "text"
	// ResponseFormatJSON requests a single JSON object.
	ResponseFormatJSON ResponseFormat = "json_object"
)

// CompletionRequest is one call to a text-completion service.
type CompletionRequest struct {
	Model          string
	SystemPrompt   string
	UserPrompt     string
	ResponseFormat ResponseFormat
	Temperature    float64
	MaxTokens      int
}

// Usage reports token consumption when the provider returns it.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// CompletionResponse carries the raw text returned by the provider.
type CompletionResponse struct {
	Content string
	Model   string
	Usage   Usage
}

// Completer is implemented by every text-completion provider.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	ModelID() string
}

// QuestionPrompt is the input for rephrasing and solving one rendered question.
// Variables is encoded as JSON inside the prompt.
type QuestionPrompt struct {
	Subject      string
	QuestionText string
	Variables    any
}

// QuestionSolution is what the gateway hands back for one question.
type QuestionSolution struct {
	QuestionText   string `json:"question_text"`
	ExpectedAnswer string `json:"expected_answer"`
	Rephrased      bool   `json:"rephrased"`
}

// DifficultyEvaluation rates a set of questions on a 1-10 scale.
type DifficultyEvaluation struct {
	AvgDifficulty float64   `json:"avg_difficulty"`
	Difficulties  []float64 `json:"difficulties"`
	IsConsistent  bool      `json:"is_consistent"`
	Reasoning     string    `json:"reasoning"`
	Fallback      bool      `json:"fallback"`
}
