package dto

import (
	"time"

	"github.com/noah-isme/labgen-api/internal/models"
)

// TemplateCreateRequest describes the payload for authoring a question template.
type TemplateCreateRequest struct {
	Subject         string                 `json:"subject" validate:"required,max=128"`
	Topic           string                 `json:"topic" validate:"required,max=255"`
	Template        string                 `json:"template" validate:"required,min=10"`
	Variables       models.VariableSet     `json:"variables" validate:"required,min=1"`
	DifficultyRange models.DifficultyRange `json:"difficulty_range"`
	QuestionType    string                 `json:"question_type" validate:"required,max=64"`
}

// TemplateResponse is the serialized representation of a template.
type TemplateResponse struct {
	ID              string                 `json:"id"`
	Subject         string                 `json:"subject"`
	Topic           string                 `json:"topic"`
	Template        string                 `json:"template"`
	Variables       models.VariableSet     `json:"variables"`
	DifficultyRange models.DifficultyRange `json:"difficulty_range"`
	QuestionType    string                 `json:"question_type"`
	CreatedAt       time.Time              `json:"created_at"`
	Warnings        []string               `json:"warnings,omitempty"`
}

// NewTemplateResponse converts a model into a DTO.
func NewTemplateResponse(model models.QuestionTemplate) TemplateResponse {
	return TemplateResponse{
		ID:              model.ID,
		Subject:         model.Subject,
		Topic:           model.Topic,
		Template:        model.Template,
		Variables:       model.VariableSet(),
		DifficultyRange: model.Difficulty(),
		QuestionType:    model.QuestionType,
		CreatedAt:       model.CreatedAt,
	}
}

// NewTemplateResponseSlice converts a slice of models into DTOs.
func NewTemplateResponseSlice(templates []models.QuestionTemplate) []TemplateResponse {
	responses := make([]TemplateResponse, 0, len(templates))
	for _, template := range templates {
		responses = append(responses, NewTemplateResponse(template))
	}

	return responses
}

// TemplateImportError reports one template that could not be imported.
type TemplateImportError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// TemplateImportResponse summarises a bulk template import.
type TemplateImportResponse struct {
	Imported []TemplateResponse   `json:"imported"`
	Errors   []TemplateImportError `json:"errors"`
}
