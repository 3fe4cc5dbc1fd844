package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/labgen-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true, Logger: logger.Discard})
	require.NoError(t, err)
	store := NewGormStore(db)
	require.NoError(t, store.Migrate(context.Background()))
	return db
}

func storeImplementations(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemoryStore() },
		"gorm":   func(t *testing.T) Store { return NewGormStore(setupTestDB(t)) },
	}
}

func stringPtr(value string) *string {
	return &value
}

func TestStoreStudents(t *testing.T) {
	for name, open := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)

			first := models.Student{StudentID: "S-001", Name: "Ada", Email: stringPtr("ada@example.com"), CreatedAt: time.Now().Add(-time.Hour)}
			require.NoError(t, store.CreateStudent(ctx, &first))
			require.NotEmpty(t, first.ID)

			second := models.Student{StudentID: "S-002", Name: "Grace", CreatedAt: time.Now()}
			require.NoError(t, store.CreateStudent(ctx, &second))

			duplicate := models.Student{StudentID: "S-001", Name: "Copy"}
			require.ErrorIs(t, store.CreateStudent(ctx, &duplicate), ErrDuplicate)

			students, err := store.ListStudents(ctx)
			require.NoError(t, err)
			require.Len(t, students, 2)
			require.Equal(t, "Grace", students[0].Name, "expected newest record first")

			second.Name = "Grace Hopper"
			require.NoError(t, store.UpdateStudent(ctx, &second))
			loaded, err := store.GetStudent(ctx, second.ID)
			require.NoError(t, err)
			require.Equal(t, "Grace Hopper", loaded.Name)

			_, err = store.GetStudent(ctx, "missing")
			require.ErrorIs(t, err, ErrNotFound)
			require.ErrorIs(t, store.UpdateStudent(ctx, &models.Student{ID: "missing", StudentID: "S-404", Name: "x"}), ErrNotFound)
		})
	}
}

func TestStoreTemplatesAndSeed(t *testing.T) {
	for name, open := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)

			seeded, err := SeedTemplates(ctx, store, DefaultTemplates())
			require.NoError(t, err)
			require.Equal(t, 2, seeded)

			seeded, err = SeedTemplates(ctx, store, DefaultTemplates())
			require.NoError(t, err)
			require.Zero(t, seeded)

			templates, err := store.ListTemplates(ctx)
			require.NoError(t, err)
			require.Len(t, templates, 2)

			loaded, err := store.GetTemplate(ctx, templates[0].ID)
			require.NoError(t, err)
			require.NoError(t, loaded.VariableSet().Validate())
			require.NoError(t, loaded.Difficulty().Validate())
			require.Contains(t, []string{"Chemistry", "Physics"}, loaded.Subject)
		})
	}
}

func TestStoreQuestionsFilterAndStats(t *testing.T) {
	for name, open := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)

			batchID := "batch-1"
			questions := []*models.Question{
				{QuestionText: "q1", Difficulty: 6.2, Subject: "Chemistry", Topic: "Acid-Base Titration", QuestionType: "calculation", BatchID: &batchID},
				{QuestionText: "q2", Difficulty: 7.5, Subject: "chemistry", Topic: "Redox", QuestionType: "calculation"},
				{QuestionText: "q3", Difficulty: 8.0, Subject: "Physics", Topic: "Heat Conduction", QuestionType: "calculation"},
			}
			require.NoError(t, store.CreateQuestions(ctx, questions))
			for _, question := range questions {
				require.NotEmpty(t, question.ID)
			}

			chemistry, err := store.ListQuestions(ctx, QuestionFilter{Subject: "CHEMISTRY"})
			require.NoError(t, err)
			require.Len(t, chemistry, 2)

			titration, err := store.ListQuestions(ctx, QuestionFilter{Topic: "titration"})
			require.NoError(t, err)
			require.Len(t, titration, 1)

			inBatch, err := store.ListQuestions(ctx, QuestionFilter{BatchID: batchID})
			require.NoError(t, err)
			require.Len(t, inBatch, 1)

			student := models.Student{StudentID: "S-1", Name: "Ada"}
			require.NoError(t, store.CreateStudent(ctx, &student))
			assignments := []*models.Assignment{
				{StudentID: student.ID, QuestionID: questions[0].ID},
				{StudentID: student.ID, QuestionID: questions[1].ID, Status: models.AssignmentCompleted},
			}
			require.NoError(t, store.CreateAssignments(ctx, assignments))
			require.Equal(t, models.AssignmentPending, assignments[0].Status)

			stats, err := store.Stats(ctx)
			require.NoError(t, err)
			require.Equal(t, models.Stats{TotalQuestions: 3, ActiveStudents: 1, AvgDifficulty: 7.2, CompletedAssignments: 1}, stats)
		})
	}
}

func TestStoreEmptyStats(t *testing.T) {
	for name, open := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			stats, err := open(t).Stats(context.Background())
			require.NoError(t, err)
			require.Equal(t, models.Stats{}, stats)
		})
	}
}

func TestStoreAssignmentUpdate(t *testing.T) {
	for name, open := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)

			assignment := models.Assignment{StudentID: "s", QuestionID: "q"}
			require.NoError(t, store.CreateAssignment(ctx, &assignment))

			now := time.Now().UTC().Truncate(time.Second)
			assignment.Status = models.AssignmentCompleted
			assignment.CompletedAt = &now
			assignment.StudentAnswer = stringPtr("12.5 mL")
			require.NoError(t, store.UpdateAssignment(ctx, &assignment))

			loaded, err := store.GetAssignment(ctx, assignment.ID)
			require.NoError(t, err)
			require.Equal(t, models.AssignmentCompleted, loaded.Status)
			require.NotNil(t, loaded.CompletedAt)
			require.Equal(t, "12.5 mL", *loaded.StudentAnswer)

			pending, err := store.ListAssignments(ctx, AssignmentFilter{Status: models.AssignmentPending})
			require.NoError(t, err)
			require.Empty(t, pending)

			require.ErrorIs(t, store.UpdateAssignment(ctx, &models.Assignment{ID: "missing"}), ErrNotFound)
		})
	}
}

func TestStoreBatchFinalizesOnce(t *testing.T) {
	for name, open := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)

			batch := models.QuestionBatch{UserID: "u1", Subject: "Physics", Topic: "Heat", DifficultyLevel: "medium", QuestionCount: 3}
			require.NoError(t, store.CreateBatch(ctx, &batch))
			require.Equal(t, models.BatchGenerating, batch.Status)

			_, err := store.UpdateBatch(ctx, batch.ID, models.BatchUpdate{Status: models.BatchGenerating})
			require.ErrorIs(t, err, ErrInvalidBatchStatus)

			updated, err := store.UpdateBatch(ctx, batch.ID, models.BatchUpdate{Status: models.BatchCompleted, GeneratedCount: 3})
			require.NoError(t, err)
			require.Equal(t, models.BatchCompleted, updated.Status)
			require.Equal(t, 3, updated.GeneratedCount)
			require.NotNil(t, updated.CompletedAt)

			again, err := store.UpdateBatch(ctx, batch.ID, models.BatchUpdate{Status: models.BatchFailed, FailureReason: "late"})
			require.ErrorIs(t, err, ErrBatchFinalized)
			require.Equal(t, models.BatchCompleted, again.Status)

			_, err = store.UpdateBatch(ctx, "missing", models.BatchUpdate{Status: models.BatchFailed})
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreActivityNewestFirst(t *testing.T) {
	for name, open := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)
			base := time.Now().Add(-time.Hour)

			for i := 0; i < 5; i++ {
				entry := models.ActivityLog{UserID: "u1", Action: "create_student", Description: fmt.Sprintf("entry %d", i), CreatedAt: base.Add(time.Duration(i) * time.Minute)}
				require.NoError(t, store.AppendActivity(ctx, &entry))
			}

			entries, err := store.ListActivity(ctx, 3)
			require.NoError(t, err)
			require.Len(t, entries, 3)
			require.Equal(t, "entry 4", entries[0].Description)
			require.Equal(t, "entry 2", entries[2].Description)
		})
	}
}

func TestStoreUpsertUser(t *testing.T) {
	for name, open := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)

			user := models.User{ID: "auth0|1", Email: stringPtr("a@example.com")}
			require.NoError(t, store.UpsertUser(ctx, &user))

			user.FirstName = stringPtr("Ada")
			require.NoError(t, store.UpsertUser(ctx, &user))

			loaded, err := store.GetUser(ctx, "auth0|1")
			require.NoError(t, err)
			require.Equal(t, models.DefaultUserRole, loaded.Role)
			require.Equal(t, "Ada", *loaded.FirstName)
		})
	}
}

func TestMemoryStoreConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			student := models.Student{StudentID: fmt.Sprintf("S-%03d", i), Name: "student"}
			assert.NoError(t, store.CreateStudent(ctx, &student))
			assert.NoError(t, store.AppendActivity(ctx, &models.ActivityLog{UserID: "u", Action: "create_student"}))
			_, err := store.Stats(ctx)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	students, err := store.ListStudents(ctx)
	require.NoError(t, err)
	require.Len(t, students, 50)
	entries, err := store.ListActivity(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 50)
}

func TestMemoryStoreConcurrentBatchFinalize(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	batch := models.QuestionBatch{UserID: "u", QuestionCount: 1}
	require.NoError(t, store.CreateBatch(ctx, &batch))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.UpdateBatch(ctx, batch.ID, models.BatchUpdate{Status: models.BatchCompleted}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}
