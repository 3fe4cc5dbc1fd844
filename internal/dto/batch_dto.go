package dto

import (
	"time"

	"github.com/noah-isme/labgen-api/internal/models"
)

// BatchResponse is the serialized representation of a generation batch.
type BatchResponse struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Subject         string     `json:"subject"`
	Topic           string     `json:"topic"`
	DifficultyLevel string     `json:"difficulty_level"`
	QuestionCount   int        `json:"question_count"`
	GeneratedCount  int        `json:"generated_count"`
	Status          string     `json:"status"`
	FailureReason   *string    `json:"failure_reason"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at"`
}

// BatchDetailResponse adds the questions produced by a batch.
type BatchDetailResponse struct {
	BatchResponse
	Questions []QuestionResponse `json:"questions"`
}

// NewBatchResponse converts a model into a DTO.
func NewBatchResponse(model models.QuestionBatch) BatchResponse {
	return BatchResponse{
		ID:              model.ID,
		UserID:          model.UserID,
		Subject:         model.Subject,
		Topic:           model.Topic,
		DifficultyLevel: model.DifficultyLevel,
		QuestionCount:   model.QuestionCount,
		GeneratedCount:  model.GeneratedCount,
		Status:          string(model.Status),
		FailureReason:   model.FailureReason,
		CreatedAt:       model.CreatedAt,
		CompletedAt:     model.CompletedAt,
	}
}

// NewBatchResponseSlice converts a slice of models into DTOs.
func NewBatchResponseSlice(batches []models.QuestionBatch) []BatchResponse {
	responses := make([]BatchResponse, 0, len(batches))
	for _, batch := range batches {
		responses = append(responses, NewBatchResponse(batch))
	}

	return responses
}

// BatchEvent is published to the event brokers when a batch finishes.
type BatchEvent struct {
	Source         string    `json:"source"`
	BatchID        string    `json:"batch_id"`
	UserID         string    `json:"user_id"`
	Status         string    `json:"status"`
	Subject        string    `json:"subject"`
	Topic          string    `json:"topic"`
	QuestionCount  int       `json:"question_count"`
	GeneratedCount int       `json:"generated_count"`
	SentAt         time.Time `json:"sent_at"`
}
