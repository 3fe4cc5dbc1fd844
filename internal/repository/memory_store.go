package repository

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/labgen-api/internal/models"
)

// collection keeps records in insertion order behind its own lock.
type collection[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{items: make(map[string]T)}
}

func (c *collection[T]) get(id string) (T, bool) {
	item, ok := c.items[id]
	return item, ok
}

func (c *collection[T]) put(id string, item T) {
	if _, exists := c.items[id]; !exists {
		c.order = append(c.order, id)
	}
	c.items[id] = item
}

// newestFirst returns items in reverse insertion order.
func (c *collection[T]) newestFirst() []T {
	out := make([]T, 0, len(c.order))
	for i := len(c.order) - 1; i >= 0; i-- {
		out = append(out, c.items[c.order[i]])
	}
	return out
}

func (c *collection[T]) oldestFirst() []T {
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

// MemoryStore is an in-process Store. Each collection has its own RWMutex, so
// readers of one collection never wait on writers of another.
type MemoryStore struct {
	users       *collection[models.User]
	students    *collection[models.Student]
	templates   *collection[models.QuestionTemplate]
	questions   *collection[models.Question]
	assignments *collection[models.Assignment]
	batches     *collection[models.QuestionBatch]
	activity    *collection[models.ActivityLog]
	now         func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       newCollection[models.User](),
		students:    newCollection[models.Student](),
		templates:   newCollection[models.QuestionTemplate](),
		questions:   newCollection[models.Question](),
		assignments: newCollection[models.Assignment](),
		batches:     newCollection[models.QuestionBatch](),
		activity:    newCollection[models.ActivityLog](),
		now:         time.Now,
	}
}

// WithClock overrides the timestamp source, mainly for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *MemoryStore) UpsertUser(_ context.Context, user *models.User) error {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()

	now := s.now()
	if user.Role == "" {
		user.Role = models.DefaultUserRole
	}
	if existing, ok := s.users.get(user.ID); ok {
		user.CreatedAt = existing.CreatedAt
	} else {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	s.users.put(user.ID, *user)
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (models.User, error) {
	s.users.mu.RLock()
	defer s.users.mu.RUnlock()

	user, ok := s.users.get(id)
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) ListStudents(_ context.Context) ([]models.Student, error) {
	s.students.mu.RLock()
	defer s.students.mu.RUnlock()
	return s.students.newestFirst(), nil
}

func (s *MemoryStore) GetStudent(_ context.Context, id string) (models.Student, error) {
	s.students.mu.RLock()
	defer s.students.mu.RUnlock()

	student, ok := s.students.get(id)
	if !ok {
		return models.Student{}, ErrNotFound
	}
	return student, nil
}

func (s *MemoryStore) CreateStudent(_ context.Context, student *models.Student) error {
	s.students.mu.Lock()
	defer s.students.mu.Unlock()

	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if s.studentConflicts(*student) {
		return ErrDuplicate
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = s.now()
	}
	s.students.put(student.ID, *student)
	return nil
}

func (s *MemoryStore) UpdateStudent(_ context.Context, student *models.Student) error {
	s.students.mu.Lock()
	defer s.students.mu.Unlock()

	existing, ok := s.students.get(student.ID)
	if !ok {
		return ErrNotFound
	}
	if s.studentConflicts(*student) {
		return ErrDuplicate
	}
	student.CreatedAt = existing.CreatedAt
	s.students.put(student.ID, *student)
	return nil
}

// studentConflicts reports whether another student already uses the student ID or email.
// Callers hold the students lock.
func (s *MemoryStore) studentConflicts(candidate models.Student) bool {
	for _, other := range s.students.items {
		if other.ID == candidate.ID {
			continue
		}
		if strings.EqualFold(other.StudentID, candidate.StudentID) {
			return true
		}
		if other.Email != nil && candidate.Email != nil && strings.EqualFold(*other.Email, *candidate.Email) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) ListTemplates(_ context.Context) ([]models.QuestionTemplate, error) {
	s.templates.mu.RLock()
	defer s.templates.mu.RUnlock()
	return s.templates.oldestFirst(), nil
}

func (s *MemoryStore) GetTemplate(_ context.Context, id string) (models.QuestionTemplate, error) {
	s.templates.mu.RLock()
	defer s.templates.mu.RUnlock()

	template, ok := s.templates.get(id)
	if !ok {
		return models.QuestionTemplate{}, ErrNotFound
	}
	return template, nil
}

func (s *MemoryStore) CreateTemplate(_ context.Context, template *models.QuestionTemplate) error {
	s.templates.mu.Lock()
	defer s.templates.mu.Unlock()

	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	if _, exists := s.templates.get(template.ID); exists {
		return ErrDuplicate
	}
	if template.CreatedAt.IsZero() {
		template.CreatedAt = s.now()
	}
	s.templates.put(template.ID, *template)
	return nil
}

func (s *MemoryStore) ListQuestions(_ context.Context, filter QuestionFilter) ([]models.Question, error) {
	s.questions.mu.RLock()
	defer s.questions.mu.RUnlock()

	var out []models.Question
	for _, question := range s.questions.newestFirst() {
		if matchesQuestion(question, filter) {
			out = append(out, question)
		}
	}
	return out, nil
}

func matchesQuestion(question models.Question, filter QuestionFilter) bool {
	if filter.Subject != "" && !strings.EqualFold(question.Subject, filter.Subject) {
		return false
	}
	if filter.Topic != "" && !strings.Contains(strings.ToLower(question.Topic), strings.ToLower(filter.Topic)) {
		return false
	}
	if filter.TemplateID != "" && (question.TemplateID == nil || *question.TemplateID != filter.TemplateID) {
		return false
	}
	if filter.BatchID != "" && (question.BatchID == nil || *question.BatchID != filter.BatchID) {
		return false
	}
	return true
}

func (s *MemoryStore) GetQuestion(_ context.Context, id string) (models.Question, error) {
	s.questions.mu.RLock()
	defer s.questions.mu.RUnlock()

	question, ok := s.questions.get(id)
	if !ok {
		return models.Question{}, ErrNotFound
	}
	return question, nil
}

func (s *MemoryStore) CreateQuestion(ctx context.Context, question *models.Question) error {
	return s.CreateQuestions(ctx, []*models.Question{question})
}

func (s *MemoryStore) CreateQuestions(_ context.Context, questions []*models.Question) error {
	s.questions.mu.Lock()
	defer s.questions.mu.Unlock()

	now := s.now()
	for _, question := range questions {
		if question.ID == "" {
			question.ID = uuid.NewString()
		}
		if _, exists := s.questions.get(question.ID); exists {
			return ErrDuplicate
		}
	}
	for _, question := range questions {
		if question.CreatedAt.IsZero() {
			question.CreatedAt = now
		}
		s.questions.put(question.ID, *question)
	}
	return nil
}

func (s *MemoryStore) ListAssignments(_ context.Context, filter AssignmentFilter) ([]models.Assignment, error) {
	s.assignments.mu.RLock()
	defer s.assignments.mu.RUnlock()

	var out []models.Assignment
	for _, assignment := range s.assignments.newestFirst() {
		if filter.StudentID != "" && assignment.StudentID != filter.StudentID {
			continue
		}
		if filter.QuestionID != "" && assignment.QuestionID != filter.QuestionID {
			continue
		}
		if filter.Status != "" && assignment.Status != filter.Status {
			continue
		}
		out = append(out, assignment)
	}
	return out, nil
}

func (s *MemoryStore) GetAssignment(_ context.Context, id string) (models.Assignment, error) {
	s.assignments.mu.RLock()
	defer s.assignments.mu.RUnlock()

	assignment, ok := s.assignments.get(id)
	if !ok {
		return models.Assignment{}, ErrNotFound
	}
	return assignment, nil
}

func (s *MemoryStore) CreateAssignment(ctx context.Context, assignment *models.Assignment) error {
	return s.CreateAssignments(ctx, []*models.Assignment{assignment})
}

func (s *MemoryStore) CreateAssignments(_ context.Context, assignments []*models.Assignment) error {
	s.assignments.mu.Lock()
	defer s.assignments.mu.Unlock()

	now := s.now()
	for _, assignment := range assignments {
		if assignment.ID == "" {
			assignment.ID = uuid.NewString()
		}
		if _, exists := s.assignments.get(assignment.ID); exists {
			return ErrDuplicate
		}
	}
	for _, assignment := range assignments {
		if assignment.Status == "" {
			assignment.Status = models.AssignmentPending
		}
		if assignment.AssignedAt.IsZero() {
			assignment.AssignedAt = now
		}
		s.assignments.put(assignment.ID, *assignment)
	}
	return nil
}

func (s *MemoryStore) UpdateAssignment(_ context.Context, assignment *models.Assignment) error {
	s.assignments.mu.Lock()
	defer s.assignments.mu.Unlock()

	existing, ok := s.assignments.get(assignment.ID)
	if !ok {
		return ErrNotFound
	}
	assignment.StudentID = existing.StudentID
	assignment.QuestionID = existing.QuestionID
	assignment.AssignedAt = existing.AssignedAt
	s.assignments.put(assignment.ID, *assignment)
	return nil
}

func (s *MemoryStore) CreateBatch(_ context.Context, batch *models.QuestionBatch) error {
	s.batches.mu.Lock()
	defer s.batches.mu.Unlock()

	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if _, exists := s.batches.get(batch.ID); exists {
		return ErrDuplicate
	}
	if batch.Status == "" {
		batch.Status = models.BatchGenerating
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = s.now()
	}
	s.batches.put(batch.ID, *batch)
	return nil
}

func (s *MemoryStore) GetBatch(_ context.Context, id string) (models.QuestionBatch, error) {
	s.batches.mu.RLock()
	defer s.batches.mu.RUnlock()

	batch, ok := s.batches.get(id)
	if !ok {
		return models.QuestionBatch{}, ErrNotFound
	}
	return batch, nil
}

func (s *MemoryStore) ListBatches(_ context.Context) ([]models.QuestionBatch, error) {
	s.batches.mu.RLock()
	defer s.batches.mu.RUnlock()
	return s.batches.newestFirst(), nil
}

func (s *MemoryStore) UpdateBatch(_ context.Context, id string, update models.BatchUpdate) (models.QuestionBatch, error) {
	if err := validateBatchUpdate(update); err != nil {
		return models.QuestionBatch{}, err
	}

	s.batches.mu.Lock()
	defer s.batches.mu.Unlock()

	batch, ok := s.batches.get(id)
	if !ok {
		return models.QuestionBatch{}, ErrNotFound
	}
	if batch.Status.IsTerminal() {
		return batch, ErrBatchFinalized
	}

	completedAt := update.CompletedAt
	if completedAt.IsZero() {
		completedAt = s.now()
	}
	batch.Status = update.Status
	batch.GeneratedCount = update.GeneratedCount
	batch.CompletedAt = &completedAt
	if update.FailureReason != "" {
		reason := update.FailureReason
		batch.FailureReason = &reason
	}
	s.batches.put(id, batch)
	return batch, nil
}

func (s *MemoryStore) AppendActivity(_ context.Context, entry *models.ActivityLog) error {
	s.activity.mu.Lock()
	defer s.activity.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	s.activity.put(entry.ID, *entry)
	return nil
}

func (s *MemoryStore) ListActivity(_ context.Context, limit int) ([]models.ActivityLog, error) {
	s.activity.mu.RLock()
	entries := s.activity.newestFirst()
	s.activity.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *MemoryStore) Stats(_ context.Context) (models.Stats, error) {
	var stats models.Stats

	s.questions.mu.RLock()
	var total float64
	for _, question := range s.questions.items {
		total += question.Difficulty
	}
	stats.TotalQuestions = len(s.questions.items)
	s.questions.mu.RUnlock()

	if stats.TotalQuestions > 0 {
		stats.AvgDifficulty = math.Round(total/float64(stats.TotalQuestions)*10) / 10
	}

	s.students.mu.RLock()
	stats.ActiveStudents = len(s.students.items)
	s.students.mu.RUnlock()

	s.assignments.mu.RLock()
	for _, assignment := range s.assignments.items {
		if assignment.Status == models.AssignmentCompleted {
			stats.CompletedAssignments++
		}
	}
	s.assignments.mu.RUnlock()

	return stats, nil
}

var _ Store = (*MemoryStore)(nil)
