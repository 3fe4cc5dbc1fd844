package dto

import (
	"time"

	"github.com/noah-isme/labgen-api/internal/models"
)

// AssignmentCreateRequest assigns one question to one student.
type AssignmentCreateRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	QuestionID string `json:"question_id" validate:"required"`
}

// BulkAssignRequest cycles the questions over the students.
type BulkAssignRequest struct {
	StudentIDs  []string `json:"student_ids" validate:"required,min=1,dive,required"`
	QuestionIDs []string `json:"question_ids" validate:"required,min=1,dive,required"`
}

// AssignmentUpdateRequest records progress on an assignment.
type AssignmentUpdateRequest struct {
	Status        string   `json:"status" validate:"required,oneof=pending in_progress completed"`
	StudentAnswer *string  `json:"student_answer" validate:"omitempty,max=10000"`
	Score         *float64 `json:"score" validate:"omitempty,min=0,max=100"`
}

// AssignmentResponse is the serialized representation of an assignment. Student and
// Question are populated on enriched listings.
type AssignmentResponse struct {
	ID            string            `json:"id"`
	StudentID     string            `json:"student_id"`
	QuestionID    string            `json:"question_id"`
	Status        string            `json:"status"`
	AssignedAt    time.Time         `json:"assigned_at"`
	CompletedAt   *time.Time        `json:"completed_at"`
	StudentAnswer *string           `json:"student_answer"`
	Score         *float64          `json:"score"`
	Student       *StudentResponse  `json:"student,omitempty"`
	Question      *QuestionResponse `json:"question,omitempty"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:            model.ID,
		StudentID:     model.StudentID,
		QuestionID:    model.QuestionID,
		Status:        string(model.Status),
		AssignedAt:    model.AssignedAt,
		CompletedAt:   model.CompletedAt,
		StudentAnswer: model.StudentAnswer,
		Score:         model.Score,
	}
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
