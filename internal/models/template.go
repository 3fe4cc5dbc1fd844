package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuestionTemplate is an instructor-authored question with {placeholders}. Templates are immutable once created.
type QuestionTemplate struct {
	ID              string                              `gorm:"type:varchar(36);primaryKey" json:"id"`
	Subject         string                              `gorm:"size:128;not null;index" json:"subject"`
	Topic           string                              `gorm:"size:255;not null" json:"topic"`
	Template        string                              `gorm:"type:text;not null" json:"template"`
	Variables       datatypes.JSONType[VariableSet]     `json:"variables"`
	DifficultyRange datatypes.JSONType[DifficultyRange] `json:"difficulty_range"`
	QuestionType    string                              `gorm:"size:64;not null" json:"question_type"`
	CreatedAt       time.Time                           `json:"created_at"`
}

// NewQuestionTemplate assembles a template, wrapping the JSON columns.
func NewQuestionTemplate(subject, topic, text string, variables VariableSet, difficulty DifficultyRange, questionType string) QuestionTemplate {
	return QuestionTemplate{
		Subject:         subject,
		Topic:           topic,
		Template:        text,
		Variables:       datatypes.NewJSONType(variables),
		DifficultyRange: datatypes.NewJSONType(difficulty),
		QuestionType:    questionType,
	}
}

// VariableSet returns the declared variables.
func (t QuestionTemplate) VariableSet() VariableSet {
	return t.Variables.Data()
}

// Difficulty returns the template's difficulty range.
func (t QuestionTemplate) Difficulty() DifficultyRange {
	return t.DifficultyRange.Data()
}
