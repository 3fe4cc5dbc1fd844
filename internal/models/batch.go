package models

import "time"

// BatchStatus tracks the lifecycle of one generation request.
type BatchStatus string

const (
	BatchGenerating BatchStatus = "generating"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

// IsTerminal reports whether the batch has finished.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchCompleted || s == BatchFailed
}

// QuestionBatch records one generation request and its outcome.
type QuestionBatch struct {
	ID              string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID          string      `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Subject         string      `gorm:"size:128;not null" json:"subject"`
	Topic           string      `gorm:"size:255;not null" json:"topic"`
	DifficultyLevel string      `gorm:"size:16;not null" json:"difficulty_level"`
	QuestionCount   int         `gorm:"not null" json:"question_count"`
	GeneratedCount  int         `gorm:"not null;default:0" json:"generated_count"`
	Status          BatchStatus `gorm:"size:16;not null;default:generating" json:"status"`
	FailureReason   *string     `gorm:"type:text" json:"failure_reason"`
	CreatedAt       time.Time   `json:"created_at"`
	CompletedAt     *time.Time  `json:"completed_at"`
}

// BatchUpdate moves a generating batch to a terminal status.
type BatchUpdate struct {
	Status         BatchStatus
	GeneratedCount int
	FailureReason  string
	CompletedAt    time.Time
}
