package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/models"
	"github.com/noah-isme/labgen-api/internal/repository"
)

func newAssignmentFixture(t *testing.T) (*repository.MemoryStore, AssignmentService, *recordingInvalidator) {
	t.Helper()
	store := repository.NewMemoryStore()
	stats := &recordingInvalidator{}
	svc := NewAssignmentService(store, store, store, NewActivityService(store, testLogger()), stats, testValidator(), testLogger())
	return store, svc, stats
}

func TestAssignmentServiceBulkCyclesQuestions(t *testing.T) {
	store, svc, _ := newAssignmentFixture(t)

	students := []models.Student{
		seedStudent(t, store, "S-1", "Ada"),
		seedStudent(t, store, "S-2", "Grace"),
		seedStudent(t, store, "S-3", "Linus"),
	}
	q1 := seedQuestion(t, store, "Question one", 5)
	q2 := seedQuestion(t, store, "Question two", 6)

	created, err := svc.Bulk(context.Background(), Actor{ID: "instructor-1"}, dto.BulkAssignRequest{
		StudentIDs:  []string{students[0].ID, students[1].ID, students[2].ID},
		QuestionIDs: []string{q1.ID, q2.ID},
	})
	require.NoError(t, err)
	require.Len(t, created, 3)
	require.Equal(t, q1.ID, created[0].QuestionID)
	require.Equal(t, q2.ID, created[1].QuestionID)
	require.Equal(t, q1.ID, created[2].QuestionID)
	for _, assignment := range created {
		require.Equal(t, string(models.AssignmentPending), assignment.Status)
	}

	entries, err := store.ListActivity(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, ActionBulkAssign, entries[0].Action)
	require.Equal(t, "Assigned questions to 3 students", entries[0].Description)
}

func TestAssignmentServiceBulkRejectsUnknownReferences(t *testing.T) {
	store, svc, _ := newAssignmentFixture(t)
	student := seedStudent(t, store, "S-1", "Ada")
	question := seedQuestion(t, store, "Question one", 5)

	_, err := svc.Bulk(context.Background(), Actor{}, dto.BulkAssignRequest{StudentIDs: []string{student.ID, "ghost"}, QuestionIDs: []string{question.ID}})
	require.ErrorIs(t, err, ErrStudentNotFound)

	_, err = svc.Bulk(context.Background(), Actor{}, dto.BulkAssignRequest{StudentIDs: []string{student.ID}, QuestionIDs: []string{"ghost"}})
	require.ErrorIs(t, err, ErrQuestionNotFound)

	assignments, err := store.ListAssignments(context.Background(), repository.AssignmentFilter{})
	require.NoError(t, err)
	require.Empty(t, assignments)
}

func TestAssignmentServiceUpdateMovesForwardOnly(t *testing.T) {
	store, svc, stats := newAssignmentFixture(t)
	student := seedStudent(t, store, "S-1", "Ada")
	question := seedQuestion(t, store, "Question one", 5)

	created, err := svc.Create(context.Background(), Actor{ID: "instructor-1"}, dto.AssignmentCreateRequest{StudentID: student.ID, QuestionID: question.ID})
	require.NoError(t, err)
	require.Nil(t, created.CompletedAt)

	answer := "<script>x</script>42 mL"
	score := 90.0
	completed, err := svc.Update(context.Background(), Actor{ID: "instructor-1"}, created.ID, dto.AssignmentUpdateRequest{
		Status:        string(models.AssignmentCompleted),
		StudentAnswer: &answer,
		Score:         &score,
	})
	require.NoError(t, err)
	require.Equal(t, string(models.AssignmentCompleted), completed.Status)
	require.NotNil(t, completed.CompletedAt)
	require.Equal(t, "42 mL", *completed.StudentAnswer)
	require.Equal(t, 1, stats.calls)

	_, err = svc.Update(context.Background(), Actor{}, created.ID, dto.AssignmentUpdateRequest{Status: string(models.AssignmentPending)})
	require.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = svc.Update(context.Background(), Actor{}, "missing", dto.AssignmentUpdateRequest{Status: string(models.AssignmentInProgress)})
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestAssignmentServiceListByStudentEnriches(t *testing.T) {
	store, svc, _ := newAssignmentFixture(t)
	ada := seedStudent(t, store, "S-1", "Ada")
	grace := seedStudent(t, store, "S-2", "Grace")
	question := seedQuestion(t, store, "Question one", 5)

	_, err := svc.Bulk(context.Background(), Actor{}, dto.BulkAssignRequest{StudentIDs: []string{ada.ID, grace.ID}, QuestionIDs: []string{question.ID}})
	require.NoError(t, err)

	listed, err := svc.ListByStudent(context.Background(), ada.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].Student)
	require.Equal(t, "Ada", listed[0].Student.Name)
	require.NotNil(t, listed[0].Question)
	require.Equal(t, "Question one", listed[0].Question.QuestionText)

	_, err = svc.ListByStudent(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrStudentNotFound)

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
}
