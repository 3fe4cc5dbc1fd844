package models

import (
	"time"

	"gorm.io/datatypes"
)

// Question is a generated, immutable question instance.
type Question struct {
	ID             string                                 `gorm:"type:varchar(36);primaryKey" json:"id"`
	TemplateID     *string                                `gorm:"type:varchar(36);index" json:"template_id"`
	BatchID        *string                                `gorm:"type:varchar(36);index" json:"batch_id"`
	QuestionText   string                                 `gorm:"type:text;not null" json:"question_text"`
	ExpectedAnswer string                                 `gorm:"type:text" json:"expected_answer"`
	Difficulty     float64                                `gorm:"not null" json:"difficulty"`
	Subject        string                                 `gorm:"size:128;not null;index" json:"subject"`
	Topic          string                                 `gorm:"size:255;not null" json:"topic"`
	QuestionType   string                                 `gorm:"size:64;not null" json:"question_type"`
	Variables      datatypes.JSONType[GeneratedVariables] `json:"variables"`
	CreatedAt      time.Time                              `json:"created_at"`
}

// GeneratedVariables returns the concrete values embedded in the question.
func (q Question) GeneratedVariables() GeneratedVariables {
	return q.Variables.Data()
}
