package repository

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/labgen-api/internal/models"
)

// GormStore persists records through gorm. Open the connection with
// TranslateError enabled so unique violations surface as ErrDuplicate.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the schema for every model.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(models.AllModels()...)
}

func (s *GormStore) UpsertUser(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.DefaultUserRole
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "first_name", "last_name", "profile_image_url", "updated_at"}),
		}).
		Create(user).Error
}

func (s *GormStore) GetUser(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	return user, err
}

func (s *GormStore) ListStudents(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&students).Error
	return students, err
}

func (s *GormStore) GetStudent(ctx context.Context, id string) (models.Student, error) {
	var student models.Student
	err := s.db.WithContext(ctx).First(&student, "id = ?", id).Error
	return student, err
}

func (s *GormStore) CreateStudent(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(student).Error
}

func (s *GormStore) UpdateStudent(ctx context.Context, student *models.Student) error {
	result := s.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("id = ?", student.ID).
		Select("student_id", "name", "email").
		Updates(student)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListTemplates(ctx context.Context) ([]models.QuestionTemplate, error) {
	var templates []models.QuestionTemplate
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&templates).Error
	return templates, err
}

func (s *GormStore) GetTemplate(ctx context.Context, id string) (models.QuestionTemplate, error) {
	var template models.QuestionTemplate
	err := s.db.WithContext(ctx).First(&template, "id = ?", id).Error
	return template, err
}

func (s *GormStore) CreateTemplate(ctx context.Context, template *models.QuestionTemplate) error {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(template).Error
}

func (s *GormStore) ListQuestions(ctx context.Context, filter QuestionFilter) ([]models.Question, error) {
	query := s.db.WithContext(ctx).Model(&models.Question{})
	if filter.Subject != "" {
		query = query.Where("LOWER(subject) = LOWER(?)", filter.Subject)
	}
	if filter.Topic != "" {
		query = query.Where("LOWER(topic) LIKE LOWER(?)", "%"+filter.Topic+"%")
	}
	if filter.TemplateID != "" {
		query = query.Where("template_id = ?", filter.TemplateID)
	}
	if filter.BatchID != "" {
		query = query.Where("batch_id = ?", filter.BatchID)
	}

	var questions []models.Question
	err := query.Order("created_at DESC").Find(&questions).Error
	return questions, err
}

func (s *GormStore) GetQuestion(ctx context.Context, id string) (models.Question, error) {
	var question models.Question
	err := s.db.WithContext(ctx).First(&question, "id = ?", id).Error
	return question, err
}

func (s *GormStore) CreateQuestion(ctx context.Context, question *models.Question) error {
	return s.CreateQuestions(ctx, []*models.Question{question})
}

// CreateQuestions inserts all questions in one transaction.
func (s *GormStore) CreateQuestions(ctx context.Context, questions []*models.Question) error {
	if len(questions) == 0 {
		return nil
	}
	for _, question := range questions {
		if question.ID == "" {
			question.ID = uuid.NewString()
		}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&questions).Error
	})
}

func (s *GormStore) ListAssignments(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, error) {
	query := s.db.WithContext(ctx).Model(&models.Assignment{})
	if filter.StudentID != "" {
		query = query.Where("student_id = ?", filter.StudentID)
	}
	if filter.QuestionID != "" {
		query = query.Where("question_id = ?", filter.QuestionID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var assignments []models.Assignment
	err := query.Order("assigned_at DESC").Find(&assignments).Error
	return assignments, err
}

func (s *GormStore) GetAssignment(ctx context.Context, id string) (models.Assignment, error) {
	var assignment models.Assignment
	err := s.db.WithContext(ctx).First(&assignment, "id = ?", id).Error
	return assignment, err
}

func (s *GormStore) CreateAssignment(ctx context.Context, assignment *models.Assignment) error {
	return s.CreateAssignments(ctx, []*models.Assignment{assignment})
}

func (s *GormStore) CreateAssignments(ctx context.Context, assignments []*models.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	for _, assignment := range assignments {
		if assignment.ID == "" {
			assignment.ID = uuid.NewString()
		}
		if assignment.Status == "" {
			assignment.Status = models.AssignmentPending
		}
		if assignment.AssignedAt.IsZero() {
			assignment.AssignedAt = s.db.NowFunc()
		}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&assignments).Error
	})
}

func (s *GormStore) UpdateAssignment(ctx context.Context, assignment *models.Assignment) error {
	result := s.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ?", assignment.ID).
		Select("status", "completed_at", "student_answer", "score").
		Updates(assignment)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateBatch(ctx context.Context, batch *models.QuestionBatch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.Status == "" {
		batch.Status = models.BatchGenerating
	}
	return s.db.WithContext(ctx).Create(batch).Error
}

func (s *GormStore) GetBatch(ctx context.Context, id string) (models.QuestionBatch, error) {
	var batch models.QuestionBatch
	err := s.db.WithContext(ctx).First(&batch, "id = ?", id).Error
	return batch, err
}

func (s *GormStore) ListBatches(ctx context.Context) ([]models.QuestionBatch, error) {
	var batches []models.QuestionBatch
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&batches).Error
	return batches, err
}

// UpdateBatch only touches rows still generating, so concurrent finalizers cannot both win.
func (s *GormStore) UpdateBatch(ctx context.Context, id string, update models.BatchUpdate) (models.QuestionBatch, error) {
	if err := validateBatchUpdate(update); err != nil {
		return models.QuestionBatch{}, err
	}

	completedAt := update.CompletedAt
	if completedAt.IsZero() {
		completedAt = s.db.NowFunc()
	}
	values := map[string]interface{}{
		"status":          update.Status,
		"generated_count": update.GeneratedCount,
		"completed_at":    completedAt,
	}
	if update.FailureReason != "" {
		values["failure_reason"] = update.FailureReason
	}

	result := s.db.WithContext(ctx).
		Model(&models.QuestionBatch{}).
		Where("id = ? AND status = ?", id, models.BatchGenerating).
		Updates(values)
	if result.Error != nil {
		return models.QuestionBatch{}, result.Error
	}

	batch, err := s.GetBatch(ctx, id)
	if err != nil {
		return models.QuestionBatch{}, err
	}
	if result.RowsAffected == 0 {
		return batch, ErrBatchFinalized
	}
	return batch, nil
}

func (s *GormStore) AppendActivity(ctx context.Context, entry *models.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) ListActivity(ctx context.Context, limit int) ([]models.ActivityLog, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var entries []models.ActivityLog
	err := query.Find(&entries).Error
	return entries, err
}

func (s *GormStore) Stats(ctx context.Context) (models.Stats, error) {
	db := s.db.WithContext(ctx)

	var questions struct {
		Total int64
		Avg   float64
	}
	if err := db.Model(&models.Question{}).
		Select("COUNT(*) AS total, COALESCE(AVG(difficulty), 0) AS avg").
		Scan(&questions).Error; err != nil {
		return models.Stats{}, err
	}

	var students int64
	if err := db.Model(&models.Student{}).Count(&students).Error; err != nil {
		return models.Stats{}, err
	}

	var completed int64
	if err := db.Model(&models.Assignment{}).
		Where("status = ?", models.AssignmentCompleted).
		Count(&completed).Error; err != nil {
		return models.Stats{}, err
	}

	return models.Stats{
		TotalQuestions:       int(questions.Total),
		ActiveStudents:       int(students),
		AvgDifficulty:        math.Round(questions.Avg*10) / 10,
		CompletedAssignments: int(completed),
	}, nil
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

var _ Store = (*GormStore)(nil)
