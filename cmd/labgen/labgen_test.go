package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/pkg/ai"
)

func runCLI(t *testing.T, args ...string) []byte {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.Bytes()
}

func TestParseRangesCommand(t *testing.T) {
	var result parseRangesOutput
	require.NoError(t, json.Unmarshal(runCLI(t, "parse-ranges", "volume: 20-30 mL, acid: HCl|H2SO4, broken"), &result))

	require.Contains(t, result.Variables, "volume")
	require.Contains(t, result.Variables, "acid")
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "broken", result.Errors[0].Entry)
}

func TestTemplatesCommand(t *testing.T) {
	var templates []dto.TemplateResponse
	require.NoError(t, json.Unmarshal(runCLI(t, "templates"), &templates))
	require.Len(t, templates, 2)
}

func TestGenerateCommandUsesStoredTemplateOffline(t *testing.T) {
	var result dto.GenerateQuestionsResponse
	output := runCLI(t, "generate", "--subject", "chemistry", "--topic", "titration", "--level", "medium", "--count", "3", "--seed", "7", "--students", "S-1,S-2")
	require.NoError(t, json.Unmarshal(output, &result))

	require.Len(t, result.Questions, 3)
	require.Len(t, result.Assignments, 3)
	assert.Equal(t, "completed", result.Batch.Status)
	for _, question := range result.Questions {
		assert.Equal(t, ai.FallbackAnswer, question.ExpectedAnswer)
		assert.NotNil(t, question.TemplateID)
	}
}

func TestGenerateCommandLoadsTemplatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.json")
	payload := `[{"subject":"Biology","topic":"Osmosis","template":"A {size} cm potato cube rests in {solution}.","variables":{"size":{"type":"number","range":[1,3],"unit":"cm"},"solution":{"type":"string","options":["saline","water"]}},"difficulty_range":{"min":2,"max":4},"question_type":"conceptual"}]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	var result dto.GenerateQuestionsResponse
	output := runCLI(t, "generate", "--subject", "Biology", "--topic", "Osmosis", "--level", "easy", "--count", "2", "--seed", "3", "--templates-file", path)
	require.NoError(t, json.Unmarshal(output, &result))

	require.Len(t, result.Questions, 2)
	for _, question := range result.Questions {
		assert.Equal(t, "Biology", question.Subject)
		assert.NotContains(t, question.QuestionText, "{size}")
	}
}
