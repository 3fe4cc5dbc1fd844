package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/models"
	"github.com/noah-isme/labgen-api/internal/repository"
)

var (
	// ErrStudentNotFound indicates the requested student does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrStudentExists indicates the student ID or email is already registered.
	ErrStudentExists = errors.New("student with this student id or email already exists")
)

// StudentService exposes student roster use cases.
type StudentService interface {
	List(ctx context.Context) ([]dto.StudentResponse, error)
	Get(ctx context.Context, id string) (dto.StudentResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.StudentCreateRequest) (dto.StudentResponse, error)
	Update(ctx context.Context, actor Actor, id string, payload dto.StudentUpdateRequest) (dto.StudentResponse, error)
}

type studentService struct {
	repo      repository.StudentRepository
	activity  ActivityRecorder
	stats     StatsInvalidator
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo repository.StudentRepository, activity ActivityRecorder, stats StatsInvalidator, validate *validator.Validate, logger zerolog.Logger) StudentService {
	return &studentService{
		repo:      repo,
		activity:  activity,
		stats:     stats,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "student_service").Logger(),
	}
}

func (s *studentService) List(ctx context.Context) ([]dto.StudentResponse, error) {
	students, err := s.repo.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewStudentResponseSlice(students), nil
}

func (s *studentService) Get(ctx context.Context, id string) (dto.StudentResponse, error) {
	student, err := s.repo.GetStudent(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return dto.StudentResponse{}, ErrStudentNotFound
		}
		return dto.StudentResponse{}, err
	}
	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Create(ctx context.Context, actor Actor, payload dto.StudentCreateRequest) (dto.StudentResponse, error) {
	payload.StudentID = strings.TrimSpace(payload.StudentID)
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Email = normalizeEmail(payload.Email)
	if err := s.validator.Struct(payload); err != nil {
		return dto.StudentResponse{}, err
	}

	student := models.Student{
		StudentID: payload.StudentID,
		Name:      strings.TrimSpace(s.sanitizer.Sanitize(payload.Name)),
		Email:     payload.Email,
	}
	if student.Name == "" {
		return dto.StudentResponse{}, fmt.Errorf("student name empty after sanitization")
	}

	if err := s.repo.CreateStudent(ctx, &student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.StudentResponse{}, ErrStudentExists
		}
		return dto.StudentResponse{}, err
	}

	s.logger.Info().Str("student_id", student.ID).Msg("student created")
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		UserID:      actor.ID,
		Action:      ActionCreateStudent,
		Description: fmt.Sprintf("Added student: %s", student.Name),
		Metadata:    map[string]interface{}{"studentId": student.ID},
	})
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}

	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Update(ctx context.Context, actor Actor, id string, payload dto.StudentUpdateRequest) (dto.StudentResponse, error) {
	payload.StudentID = trimPointer(payload.StudentID)
	payload.Name = trimPointer(payload.Name)
	// An explicit blank email clears it, so it stays a non-nil empty string here.
	payload.Email = trimPointer(payload.Email)
	if err := s.validator.Struct(payload); err != nil {
		return dto.StudentResponse{}, err
	}

	student, err := s.repo.GetStudent(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return dto.StudentResponse{}, ErrStudentNotFound
		}
		return dto.StudentResponse{}, err
	}

	if payload.StudentID != nil {
		student.StudentID = *payload.StudentID
	}
	if payload.Name != nil {
		student.Name = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Name))
	}
	if payload.Email != nil {
		student.Email = normalizeEmail(payload.Email)
	}

	if err := s.repo.UpdateStudent(ctx, &student); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return dto.StudentResponse{}, ErrStudentNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return dto.StudentResponse{}, ErrStudentExists
		}
		return dto.StudentResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		UserID:      actor.ID,
		Action:      ActionUpdateStudent,
		Description: fmt.Sprintf("Updated student: %s", student.Name),
		Metadata:    map[string]interface{}{"studentId": student.ID},
	})

	return dto.NewStudentResponse(student), nil
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	trimmed := strings.ToLower(strings.TrimSpace(*email))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func trimPointer(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
