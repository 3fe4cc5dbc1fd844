package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/models"
	"github.com/noah-isme/labgen-api/internal/repository"
)

var (
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrInvalidStatusTransition indicates an attempt to move an assignment backwards.
	ErrInvalidStatusTransition = errors.New("assignment status can only move forward")
)

// AssignmentService exposes assignment use cases.
type AssignmentService interface {
	List(ctx context.Context) ([]dto.AssignmentResponse, error)
	ListByStudent(ctx context.Context, studentID string) ([]dto.AssignmentResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Bulk(ctx context.Context, actor Actor, payload dto.BulkAssignRequest) ([]dto.AssignmentResponse, error)
	Update(ctx context.Context, actor Actor, id string, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	students    repository.StudentRepository
	questions   repository.QuestionRepository
	activity    ActivityRecorder
	stats       StatsInvalidator
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(assignments repository.AssignmentRepository, students repository.StudentRepository, questions repository.QuestionRepository, activity ActivityRecorder, stats StatsInvalidator, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		assignments: assignments,
		students:    students,
		questions:   questions,
		activity:    activity,
		stats:       stats,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "assignment_service").Logger(),
		now:         time.Now,
	}
}

func (s *assignmentService) List(ctx context.Context) ([]dto.AssignmentResponse, error) {
	assignments, err := s.assignments.ListAssignments(ctx, repository.AssignmentFilter{})
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, assignments), nil
}

func (s *assignmentService) ListByStudent(ctx context.Context, studentID string) ([]dto.AssignmentResponse, error) {
	if _, err := s.students.GetStudent(ctx, studentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}

	assignments, err := s.assignments.ListAssignments(ctx, repository.AssignmentFilter{StudentID: studentID})
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, assignments), nil
}

// enrich attaches the student and question to each assignment. Missing references are left empty.
func (s *assignmentService) enrich(ctx context.Context, assignments []models.Assignment) []dto.AssignmentResponse {
	students := map[string]*dto.StudentResponse{}
	questions := map[string]*dto.QuestionResponse{}

	responses := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		response := dto.NewAssignmentResponse(assignment)

		student, seen := students[assignment.StudentID]
		if !seen {
			if model, err := s.students.GetStudent(ctx, assignment.StudentID); err == nil {
				converted := dto.NewStudentResponse(model)
				student = &converted
			} else if !errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn().Err(err).Str("student_id", assignment.StudentID).Msg("failed to load assignment student")
			}
			students[assignment.StudentID] = student
		}
		response.Student = student

		question, seen := questions[assignment.QuestionID]
		if !seen {
			if model, err := s.questions.GetQuestion(ctx, assignment.QuestionID); err == nil {
				converted := dto.NewQuestionResponse(model)
				question = &converted
			} else if !errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn().Err(err).Str("question_id", assignment.QuestionID).Msg("failed to load assignment question")
			}
			questions[assignment.QuestionID] = question
		}
		response.Question = question

		responses = append(responses, response)
	}
	return responses
}

func (s *assignmentService) Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	student, err := s.students.GetStudent(ctx, payload.StudentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return dto.AssignmentResponse{}, ErrStudentNotFound
		}
		return dto.AssignmentResponse{}, err
	}
	if _, err := s.questions.GetQuestion(ctx, payload.QuestionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return dto.AssignmentResponse{}, ErrQuestionNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	assignment := models.Assignment{
		StudentID:  student.ID,
		QuestionID: payload.QuestionID,
		Status:     models.AssignmentPending,
		AssignedAt: s.now(),
	}
	if err := s.assignments.CreateAssignment(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Str("assignment_id", assignment.ID).Msg("assignment created")
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		UserID:      actor.ID,
		Action:      ActionCreateAssignment,
		Description: fmt.Sprintf("Assigned question to %s", student.Name),
		Metadata:    map[string]interface{}{"assignmentId": assignment.ID, "studentId": student.ID, "questionId": assignment.QuestionID},
	})

	return dto.NewAssignmentResponse(assignment), nil
}

// Bulk creates one assignment per student, cycling through the question IDs.
func (s *assignmentService) Bulk(ctx context.Context, actor Actor, payload dto.BulkAssignRequest) ([]dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}

	for _, id := range payload.StudentIDs {
		if _, err := s.students.GetStudent(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrStudentNotFound, id)
			}
			return nil, err
		}
	}
	for _, id := range payload.QuestionIDs {
		if _, err := s.questions.GetQuestion(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
			}
			return nil, err
		}
	}

	now := s.now()
	assignments := make([]*models.Assignment, 0, len(payload.StudentIDs))
	for i, studentID := range payload.StudentIDs {
		assignments = append(assignments, &models.Assignment{
			StudentID:  studentID,
			QuestionID: payload.QuestionIDs[i%len(payload.QuestionIDs)],
			Status:     models.AssignmentPending,
			AssignedAt: now,
		})
	}
	if err := s.assignments.CreateAssignments(ctx, assignments); err != nil {
		return nil, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		UserID:      actor.ID,
		Action:      ActionBulkAssign,
		Description: fmt.Sprintf("Assigned questions to %d students", len(payload.StudentIDs)),
		Metadata:    map[string]interface{}{"studentCount": len(payload.StudentIDs), "questionCount": len(payload.QuestionIDs)},
	})

	responses := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, dto.NewAssignmentResponse(*assignment))
	}
	return responses, nil
}

func (s *assignmentService) Update(ctx context.Context, actor Actor, id string, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.assignments.GetAssignment(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	next := models.AssignmentStatus(payload.Status)
	if !assignment.Status.CanTransitionTo(next) {
		return dto.AssignmentResponse{}, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, assignment.Status, next)
	}

	previous := assignment.Status
	assignment.Status = next
	if next == models.AssignmentCompleted && assignment.CompletedAt == nil {
		completedAt := s.now()
		assignment.CompletedAt = &completedAt
	}
	if payload.StudentAnswer != nil {
		answer := s.sanitizer.Sanitize(*payload.StudentAnswer)
		assignment.StudentAnswer = &answer
	}
	if payload.Score != nil {
		score := *payload.Score
		assignment.Score = &score
	}

	if err := s.assignments.UpdateAssignment(ctx, &assignment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		UserID:      actor.ID,
		Action:      ActionUpdateAssignment,
		Description: fmt.Sprintf("Assignment moved from %s to %s", previous, next),
		Metadata:    map[string]interface{}{"assignmentId": assignment.ID, "status": string(next)},
	})
	if previous != next && s.stats != nil {
		s.stats.Invalidate(ctx)
	}

	return dto.NewAssignmentResponse(assignment), nil
}
