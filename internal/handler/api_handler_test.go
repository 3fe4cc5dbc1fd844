package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labgen-api/internal/config"
	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/generation"
	"github.com/noah-isme/labgen-api/internal/handler"
	"github.com/noah-isme/labgen-api/internal/middleware"
	"github.com/noah-isme/labgen-api/internal/repository"
	"github.com/noah-isme/labgen-api/internal/router"
	"github.com/noah-isme/labgen-api/internal/service"
	"github.com/noah-isme/labgen-api/internal/utils"
	"github.com/noah-isme/labgen-api/pkg/ai"
)

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Details map[string]string `json:"details"`
}

func setupAPI(t *testing.T) (*fiber.App, *repository.MemoryStore) {
	t.Helper()

	store := repository.NewMemoryStore()
	_, err := repository.SeedTemplates(t.Context(), store, repository.DefaultTemplates())
	require.NoError(t, err)

	validate := utils.NewValidator()
	logger := zerolog.New(io.Discard)

	activity := service.NewActivityService(store, logger)
	stats := service.NewStatsService(store, nil, 0, logger)
	gateway := ai.NewGateway(nil, ai.GatewayConfig{Logger: logger})
	orchestrator := generation.NewOrchestrator(nil, nil, gateway, generation.Options{Logger: logger})

	students := service.NewStudentService(store, activity, stats, validate, logger)
	assignments := service.NewAssignmentService(store, store, store, activity, stats, validate, logger)

	app := fiber.New()
	app.Use(middleware.Observability(logger))
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret", GenerationRateLimit: 100}, router.Dependencies{
		AuthHandler:       handler.NewAuthHandler(service.NewAuthService(store, logger), logger),
		DashboardHandler:  handler.NewDashboardHandler(stats, activity, logger),
		StudentHandler:    handler.NewStudentHandler(students, assignments, logger),
		TemplateHandler:   handler.NewTemplateHandler(service.NewTemplateService(store, activity, validate, logger), logger),
		QuestionHandler:   handler.NewQuestionHandler(service.NewQuestionService(store, gateway, validate, logger), service.NewGenerationService(store, orchestrator, activity, stats, nil, validate, logger), logger),
		AssignmentHandler: handler.NewAssignmentHandler(assignments, logger),
		BatchHandler:      handler.NewBatchHandler(service.NewBatchService(store, store, logger), logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_id", "instructor-1")
			return c.Next()
		},
	})

	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, int((5 * time.Second).Milliseconds()))
	require.NoError(t, err)

	var out envelope
	decodeResponse(t, resp, &out)
	return resp, out
}

func TestHealthIsPublic(t *testing.T) {
	app, _ := setupAPI(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, body.Success)
	require.Equal(t, "Test", resp.Header.Get("X-Application"))
}

func TestStudentLifecycle(t *testing.T) {
	app, _ := setupAPI(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/students", map[string]string{"student_id": "S-1", "name": "Ada"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var student dto.StudentResponse
	require.NoError(t, json.Unmarshal(body.Data, &student))

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/students", map[string]string{"student_id": "S-1", "name": "Copy"})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	require.False(t, body.Success)

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/students", map[string]string{"name": "No ID"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "failed required", body.Details["student_id"])

	resp, body = doJSON(t, app, http.MethodPatch, "/api/v1/students/"+student.ID, map[string]string{"name": "Ada King"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body.Data, &student))
	require.Equal(t, "Ada King", student.Name)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/students/missing", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGenerateAssignAndReport(t *testing.T) {
	app, _ := setupAPI(t)

	_, body := doJSON(t, app, http.MethodPost, "/api/v1/students", map[string]string{"student_id": "S-1", "name": "Ada"})
	var student dto.StudentResponse
	require.NoError(t, json.Unmarshal(body.Data, &student))

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/questions/generate", map[string]interface{}{
		"subject":          "Physics",
		"topic":            "Heat",
		"difficulty_level": "hard",
		"question_count":   2,
		"question_type":    "calculation",
		"template_text":    "A {material} rod conducts {heatRate} W.",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "Successfully generated 2 questions", body.Message)

	var generated dto.GenerateQuestionsResponse
	require.NoError(t, json.Unmarshal(body.Data, &generated))
	require.Len(t, generated.Questions, 2)
	require.Equal(t, "completed", generated.Batch.Status)

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/assignments/bulk", map[string]interface{}{
		"student_ids":  []string{student.ID},
		"question_ids": []string{generated.Questions[0].ID},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "Successfully assigned questions to 1 students", body.Message)

	var assignments []dto.AssignmentResponse
	require.NoError(t, json.Unmarshal(body.Data, &assignments))
	require.Len(t, assignments, 1)

	resp, _ = doJSON(t, app, http.MethodPatch, "/api/v1/assignments/"+assignments[0].ID, map[string]interface{}{"status": "completed", "score": 80})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPatch, "/api/v1/assignments/"+assignments[0].ID, map[string]interface{}{"status": "pending"})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var stats dto.StatsResponse
	require.NoError(t, json.Unmarshal(body.Data, &stats))
	require.Equal(t, 2, stats.TotalQuestions)
	require.Equal(t, 1, stats.ActiveStudents)
	require.Equal(t, 1, stats.CompletedAssignments)

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/activity?limit=2", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var activity []dto.ActivityResponse
	require.NoError(t, json.Unmarshal(body.Data, &activity))
	require.Len(t, activity, 2)
	require.Equal(t, service.ActionUpdateAssignment, activity[0].Action)

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/question-batches/"+generated.Batch.ID, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var detail dto.BatchDetailResponse
	require.NoError(t, json.Unmarshal(body.Data, &detail))
	require.Len(t, detail.Questions, 2)

	resp, body = doJSON(t, app, http.MethodGet, "/api/v1/questions?subject=physics", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var questions []dto.QuestionResponse
	require.NoError(t, json.Unmarshal(body.Data, &questions))
	require.Len(t, questions, 2)
}

func TestGenerateRejectsUnknownTemplateIDs(t *testing.T) {
	app, _ := setupAPI(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/questions/generate", map[string]interface{}{
		"subject":          "Physics",
		"topic":            "Heat",
		"difficulty_level": "hard",
		"question_count":   2,
		"question_type":    "calculation",
		"template_text":    "A {material} rod conducts {heatRate} W.",
		"template_ids":     []string{"nope"},
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body.Message, "no templates found")

	resp, body = doJSON(t, app, http.MethodPost, "/api/v1/questions/generate", map[string]interface{}{
		"subject":          "Physics",
		"topic":            "Heat",
		"difficulty_level": "extreme",
		"question_count":   0,
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body.Details, "difficulty_level")
	require.Contains(t, body.Details, "question_count")
}

func TestEvaluateDifficultyFallsBackWithoutProvider(t *testing.T) {
	app, _ := setupAPI(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/questions/evaluate-difficulty", map[string]interface{}{
		"question_texts": []string{"What is 2+2?", "Derive Fourier's law."},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var evaluation dto.EvaluateDifficultyResponse
	require.NoError(t, json.Unmarshal(body.Data, &evaluation))
	require.True(t, evaluation.Fallback)
	require.Equal(t, ai.FallbackDifficulty, evaluation.AvgDifficulty)
}

func TestTemplateImportEndpoint(t *testing.T) {
	app, _ := setupAPI(t)

	payload := []byte(`[{"subject":"Biology","topic":"Osmosis","template":"A {size} cm cube sits in water.","variables":{"size":{"type":"number","range":[1,3],"unit":"cm"}},"difficulty_range":{"min":2,"max":4},"question_type":"conceptual"}]`)
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "templates.json")
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/question-templates/import", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var out envelope
	decodeResponse(t, resp, &out)
	var result dto.TemplateImportResponse
	require.NoError(t, json.Unmarshal(out.Data, &result))
	require.Len(t, result.Imported, 1)

	listResp, listBody := doJSON(t, app, http.MethodGet, "/api/v1/question-templates", nil)
	require.Equal(t, fiber.StatusOK, listResp.StatusCode)
	var templates []dto.TemplateResponse
	require.NoError(t, json.Unmarshal(listBody.Data, &templates))
	require.Len(t, templates, 3)

	missing := httptest.NewRequest(http.MethodPost, "/api/v1/question-templates/import", nil)
	resp, err = app.Test(missing)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCurrentUserEndpoint(t *testing.T) {
	app, store := setupAPI(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/auth/user", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var user dto.UserResponse
	require.NoError(t, json.Unmarshal(body.Data, &user))
	require.Equal(t, "instructor-1", user.ID)

	stored, err := store.GetUser(t.Context(), "instructor-1")
	require.NoError(t, err)
	require.Equal(t, "instructor", stored.Role)
}

func TestMetricsEndpointExposesRequestCounters(t *testing.T) {
	app, _ := setupAPI(t)
	_, _ = doJSON(t, app, http.MethodGet, "/api/v1/health", nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(payload), "labgen_api_latency_seconds")
}

func TestMetricsStayScrapableAfterMixedTraffic(t *testing.T) {
	app, _ := setupAPI(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/students", map[string]string{
		"student_id": "M-" + uuid.NewString()[:8],
		"name":       "Metric Student",
		"email":      uuid.NewString()[:8] + "@example.com",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/question-templates/missing", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/students", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		payload, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Contains(t, string(payload), `method="POST",route="/api/v1/students",status="201"`)
		require.Contains(t, string(payload), `method="GET",route="/api/v1/question-templates/:id",status="404"`)
	}
}
