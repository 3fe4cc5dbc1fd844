package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/labgen-api/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist. It is gorm's sentinel so
	// callers can match either store implementation the same way.
	ErrNotFound = gorm.ErrRecordNotFound
	// ErrDuplicate is returned when a unique field is already taken.
	ErrDuplicate = gorm.ErrDuplicatedKey
	// ErrBatchFinalized is returned when a batch that already reached a terminal status is updated again.
	ErrBatchFinalized = errors.New("question batch already finalized")
	// ErrInvalidBatchStatus is returned when a batch update does not target a terminal status.
	ErrInvalidBatchStatus = errors.New("batch update must target a terminal status")
)

// QuestionFilter narrows question queries. Empty fields match everything.
type QuestionFilter struct {
	Subject    string
	Topic      string
	TemplateID string
	BatchID    string
}

// AssignmentFilter narrows assignment queries. Empty fields match everything.
type AssignmentFilter struct {
	StudentID  string
	QuestionID string
	Status     models.AssignmentStatus
}

// UserRepository persists instructor accounts.
type UserRepository interface {
	UpsertUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (models.User, error)
}

// StudentRepository persists students.
type StudentRepository interface {
	ListStudents(ctx context.Context) ([]models.Student, error)
	GetStudent(ctx context.Context, id string) (models.Student, error)
	CreateStudent(ctx context.Context, student *models.Student) error
	UpdateStudent(ctx context.Context, student *models.Student) error
}

// TemplateRepository persists question templates. Templates are never updated.
type TemplateRepository interface {
	ListTemplates(ctx context.Context) ([]models.QuestionTemplate, error)
	GetTemplate(ctx context.Context, id string) (models.QuestionTemplate, error)
	CreateTemplate(ctx context.Context, template *models.QuestionTemplate) error
}

// QuestionRepository persists generated questions.
type QuestionRepository interface {
	ListQuestions(ctx context.Context, filter QuestionFilter) ([]models.Question, error)
	GetQuestion(ctx context.Context, id string) (models.Question, error)
	CreateQuestion(ctx context.Context, question *models.Question) error
	CreateQuestions(ctx context.Context, questions []*models.Question) error
}

// AssignmentRepository persists assignments.
type AssignmentRepository interface {
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, error)
	GetAssignment(ctx context.Context, id string) (models.Assignment, error)
	CreateAssignment(ctx context.Context, assignment *models.Assignment) error
	CreateAssignments(ctx context.Context, assignments []*models.Assignment) error
	UpdateAssignment(ctx context.Context, assignment *models.Assignment) error
}

// BatchRepository persists generation batches.
type BatchRepository interface {
	CreateBatch(ctx context.Context, batch *models.QuestionBatch) error
	GetBatch(ctx context.Context, id string) (models.QuestionBatch, error)
	ListBatches(ctx context.Context) ([]models.QuestionBatch, error)
	// UpdateBatch moves a generating batch to a terminal status exactly once.
	UpdateBatch(ctx context.Context, id string, update models.BatchUpdate) (models.QuestionBatch, error)
}

// ActivityLogRepository persists the append-only activity log.
type ActivityLogRepository interface {
	AppendActivity(ctx context.Context, entry *models.ActivityLog) error
	// ListActivity returns at most limit entries, newest first.
	ListActivity(ctx context.Context, limit int) ([]models.ActivityLog, error)
}

// StatsRepository aggregates dashboard counters.
type StatsRepository interface {
	Stats(ctx context.Context) (models.Stats, error)
}

// Store is the full record store contract used by the application.
type Store interface {
	UserRepository
	StudentRepository
	TemplateRepository
	QuestionRepository
	AssignmentRepository
	BatchRepository
	ActivityLogRepository
	StatsRepository
}

func validateBatchUpdate(update models.BatchUpdate) error {
	if !update.Status.IsTerminal() {
		return ErrInvalidBatchStatus
	}
	return nil
}
