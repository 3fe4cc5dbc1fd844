package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labgen-api/internal/models"
	"github.com/noah-isme/labgen-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func seedStudent(t *testing.T, store *repository.MemoryStore, studentID, name string) models.Student {
	t.Helper()
	student := models.Student{StudentID: studentID, Name: name}
	require.NoError(t, store.CreateStudent(context.Background(), &student))
	return student
}

func seedQuestion(t *testing.T, store *repository.MemoryStore, text string, difficulty float64) models.Question {
	t.Helper()
	question := models.Question{
		QuestionText: text,
		Difficulty:   difficulty,
		Subject:      "Chemistry",
		Topic:        "Titration",
		QuestionType: "calculation",
	}
	require.NoError(t, store.CreateQuestion(context.Background(), &question))
	return question
}

type recordingInvalidator struct {
	calls int
}

func (r *recordingInvalidator) Invalidate(context.Context) {
	r.calls++
}
