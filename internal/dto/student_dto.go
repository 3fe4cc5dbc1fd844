package dto

import (
	"time"

	"github.com/noah-isme/labgen-api/internal/models"
)

// StudentCreateRequest describes the payload for registering a student.
type StudentCreateRequest struct {
	StudentID string  `json:"student_id" validate:"required,max=64"`
	Name      string  `json:"name" validate:"required,max=255"`
	Email     *string `json:"email" validate:"omitempty,email"`
}

// StudentUpdateRequest captures partial updates for a student.
type StudentUpdateRequest struct {
	StudentID *string `json:"student_id" validate:"omitempty,min=1,max=64"`
	Name      *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email     *string `json:"email" validate:"omitempty,email"`
}

// StudentResponse is the serialized representation of a student.
type StudentResponse struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// NewStudentResponse converts a model into a DTO.
func NewStudentResponse(model models.Student) StudentResponse {
	return StudentResponse{
		ID:        model.ID,
		StudentID: model.StudentID,
		Name:      model.Name,
		Email:     model.Email,
		CreatedAt: model.CreatedAt,
	}
}

// NewStudentResponseSlice converts a slice of models into DTOs.
func NewStudentResponseSlice(students []models.Student) []StudentResponse {
	responses := make([]StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, NewStudentResponse(student))
	}

	return responses
}

// UserResponse is the serialized representation of the signed-in instructor.
type UserResponse struct {
	ID              string    `json:"id"`
	Email           *string   `json:"email"`
	FirstName       *string   `json:"first_name"`
	LastName        *string   `json:"last_name"`
	ProfileImageURL *string   `json:"profile_image_url"`
	Role            string    `json:"role"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewUserResponse converts a model into a DTO.
func NewUserResponse(model models.User) UserResponse {
	return UserResponse{
		ID:              model.ID,
		Email:           model.Email,
		FirstName:       model.FirstName,
		LastName:        model.LastName,
		ProfileImageURL: model.ProfileImageURL,
		Role:            model.Role,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}
