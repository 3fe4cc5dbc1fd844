package dto

import (
	"time"

	"github.com/noah-isme/labgen-api/internal/generation"
	"github.com/noah-isme/labgen-api/internal/models"
)

// GenerateQuestionsRequest describes a question generation run.
type GenerateQuestionsRequest struct {
	Subject          string   `json:"subject" validate:"required,max=128"`
	Topic            string   `json:"topic" validate:"required,max=255"`
	DifficultyLevel  string   `json:"difficulty_level" validate:"required,oneof=easy medium hard"`
	QuestionCount    int      `json:"question_count" validate:"required,min=1,max=50"`
	QuestionType     string   `json:"question_type" validate:"required,max=64"`
	TemplateText     string   `json:"template_text" validate:"required,min=10"`
	VariableRanges   string   `json:"variable_ranges" validate:"omitempty,max=4000"`
	TemplateIDs      []string `json:"template_ids" validate:"omitempty,dive,required"`
	SelectedStudents []string `json:"selected_students" validate:"omitempty,dive,required"`
}

// GenerateQuestionsResponse reports the outcome of a generation run.
type GenerateQuestionsResponse struct {
	Batch         BatchResponse                `json:"batch"`
	Questions     []QuestionResponse           `json:"questions"`
	Assignments   []AssignmentResponse         `json:"assignments"`
	Skipped       int                          `json:"skipped"`
	RangeWarnings []generation.RangeParseError `json:"range_warnings,omitempty"`
	Message       string                       `json:"message"`
}

// QuestionListRequest filters question listings.
type QuestionListRequest struct {
	Subject    string
	Topic      string
	TemplateID string
	BatchID    string
}

// QuestionResponse is the serialized representation of a generated question.
type QuestionResponse struct {
	ID             string                    `json:"id"`
	TemplateID     *string                   `json:"template_id"`
	BatchID        *string                   `json:"batch_id"`
	QuestionText   string                    `json:"question_text"`
	ExpectedAnswer string                    `json:"expected_answer"`
	Difficulty     float64                   `json:"difficulty"`
	Subject        string                    `json:"subject"`
	Topic          string                    `json:"topic"`
	QuestionType   string                    `json:"question_type"`
	Variables      models.GeneratedVariables `json:"variables"`
	CreatedAt      time.Time                 `json:"created_at"`
}

// NewQuestionResponse converts a model into a DTO.
func NewQuestionResponse(model models.Question) QuestionResponse {
	variables := model.GeneratedVariables()
	if variables == nil {
		variables = models.GeneratedVariables{}
	}
	return QuestionResponse{
		ID:             model.ID,
		TemplateID:     model.TemplateID,
		BatchID:        model.BatchID,
		QuestionText:   model.QuestionText,
		ExpectedAnswer: model.ExpectedAnswer,
		Difficulty:     model.Difficulty,
		Subject:        model.Subject,
		Topic:          model.Topic,
		QuestionType:   model.QuestionType,
		Variables:      variables,
		CreatedAt:      model.CreatedAt,
	}
}

// NewQuestionResponseSlice converts a slice of models into DTOs.
func NewQuestionResponseSlice(questions []models.Question) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, NewQuestionResponse(question))
	}

	return responses
}

// EvaluateDifficultyRequest carries question texts to rate.
type EvaluateDifficultyRequest struct {
	QuestionTexts []string `json:"question_texts" validate:"required,min=1,max=50,dive,required"`
}

// EvaluateDifficultyResponse is the difficulty rating of a question set.
type EvaluateDifficultyResponse struct {
	AvgDifficulty float64   `json:"avg_difficulty"`
	Difficulties  []float64 `json:"difficulties"`
	IsConsistent  bool      `json:"is_consistent"`
	Reasoning     string    `json:"reasoning"`
	Fallback      bool      `json:"fallback"`
}
