package dto

import (
	"time"

	"github.com/noah-isme/labgen-api/internal/models"
)

// ActivityResponse is the serialized representation of an activity log entry.
type ActivityResponse struct {
	ID          string                 `json:"id"`
	UserID      string                 `json:"user_id"`
	Action      string                 `json:"action"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata"`
	CreatedAt   time.Time              `json:"created_at"`
}

// NewActivityResponse converts a model into a DTO.
func NewActivityResponse(model models.ActivityLog) ActivityResponse {
	metadata := map[string]interface{}{}
	for key, value := range model.Metadata {
		metadata[key] = value
	}

	return ActivityResponse{
		ID:          model.ID,
		UserID:      model.UserID,
		Action:      model.Action,
		Description: model.Description,
		Metadata:    metadata,
		CreatedAt:   model.CreatedAt,
	}
}

// StatsResponse is the dashboard summary.
type StatsResponse struct {
	TotalQuestions       int     `json:"total_questions"`
	ActiveStudents       int     `json:"active_students"`
	AvgDifficulty        float64 `json:"avg_difficulty"`
	CompletedAssignments int     `json:"completed_assignments"`
	CacheHit             bool    `json:"cache_hit"`
}

// NewStatsResponse converts aggregated counters into a DTO.
func NewStatsResponse(stats models.Stats) StatsResponse {
	return StatsResponse{
		TotalQuestions:       stats.TotalQuestions,
		ActiveStudents:       stats.ActiveStudents,
		AvgDifficulty:        stats.AvgDifficulty,
		CompletedAssignments: stats.CompletedAssignments,
	}
}
