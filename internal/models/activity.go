package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog captures auditable events triggered by instructors. Entries are append-only.
type ActivityLog struct {
	ID          string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID      string            `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Action      string            `gorm:"size:64;not null" json:"action"`
	Description string            `gorm:"type:text;not null" json:"description"`
	Metadata    datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`
}

// Stats summarises the record store for the dashboard.
type Stats struct {
	TotalQuestions       int     `json:"total_questions"`
	ActiveStudents       int     `json:"active_students"`
	AvgDifficulty        float64 `json:"avg_difficulty"`
	CompletedAssignments int     `json:"completed_assignments"`
}

// AllModels lists every persisted model for migrations.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Student{},
		&QuestionTemplate{},
		&Question{},
		&Assignment{},
		&QuestionBatch{},
		&ActivityLog{},
	}
}
