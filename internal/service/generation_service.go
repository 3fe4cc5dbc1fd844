package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/generation"
	"github.com/noah-isme/labgen-api/internal/models"
	"github.com/noah-isme/labgen-api/internal/observability"
	"github.com/noah-isme/labgen-api/internal/repository"
)

// ErrUnknownStudents indicates selected students that are not registered.
var ErrUnknownStudents = errors.New("selected students not found")

// nothingGeneratedReason marks a batch whose every iteration failed.
const nothingGeneratedReason = "no questions could be generated"

// Difficulty ranges used for ad hoc templates, keyed by difficulty level.
var difficultyLevelRanges = map[string]models.DifficultyRange{
	"easy":   {Min: 1, Max: 4},
	"medium": {Min: 4, Max: 7},
	"hard":   {Min: 7, Max: 10},
}

// GenerationRunner produces questions from templates. *generation.Orchestrator implements it.
type GenerationRunner interface {
	RunWithReport(ctx context.Context, in generation.RunInput) ([]generation.Result, generation.RunReport, error)
}

// BatchStore is the slice of the record store a generation run writes to.
type BatchStore interface {
	repository.TemplateRepository
	repository.StudentRepository
	repository.QuestionRepository
	repository.AssignmentRepository
	repository.BatchRepository
}

// GenerationService turns a generation request into a persisted batch of questions.
type GenerationService interface {
	Generate(ctx context.Context, actor Actor, payload dto.GenerateQuestionsRequest) (dto.GenerateQuestionsResponse, error)
}

type generationService struct {
	store     BatchStore
	runner    GenerationRunner
	activity  ActivityRecorder
	stats     StatsInvalidator
	events    BatchEventPublisher
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewGenerationService constructs the generation service. activity, stats and events may be nil.
func NewGenerationService(store BatchStore, runner GenerationRunner, activity ActivityRecorder, stats StatsInvalidator, events BatchEventPublisher, validate *validator.Validate, logger zerolog.Logger) GenerationService {
	return &generationService{
		store:     store,
		runner:    runner,
		activity:  activity,
		stats:     stats,
		events:    events,
		validator: validate,
		logger:    logger.With().Str("component", "generation_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/labgen-api/internal/service/generation"),
		now:       time.Now,
	}
}

func (s *generationService) Generate(ctx context.Context, actor Actor, payload dto.GenerateQuestionsRequest) (dto.GenerateQuestionsResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GenerateQuestionsResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "questions.generate", trace.WithAttributes(
		attribute.String("generation.subject", payload.Subject),
		attribute.String("generation.topic", payload.Topic),
		attribute.Int("generation.count", payload.QuestionCount),
	))
	defer span.End()

	if err := s.checkStudents(ctx, payload.SelectedStudents); err != nil {
		span.RecordError(err)
		return dto.GenerateQuestionsResponse{}, err
	}

	templates, warnings, err := s.resolveTemplates(ctx, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve_templates_failed")
		return dto.GenerateQuestionsResponse{}, err
	}

	batch := models.QuestionBatch{
		UserID:          actor.ID,
		Subject:         strings.TrimSpace(payload.Subject),
		Topic:           strings.TrimSpace(payload.Topic),
		DifficultyLevel: payload.DifficultyLevel,
		QuestionCount:   payload.QuestionCount,
		Status:          models.BatchGenerating,
	}
	if err := s.store.CreateBatch(ctx, &batch); err != nil {
		span.RecordError(err)
		return dto.GenerateQuestionsResponse{}, err
	}
	span.SetAttributes(attribute.String("generation.batch_id", batch.ID))
	started := s.now()

	results, report, runErr := s.runner.RunWithReport(ctx, generation.RunInput{
		Templates:  templates,
		Count:      payload.QuestionCount,
		StudentIDs: payload.SelectedStudents,
	})

	// The batch must reach a terminal status even when the caller has gone away.
	persistCtx := context.WithoutCancel(ctx)

	questions, err := s.persistQuestions(persistCtx, batch.ID, results)
	if err != nil {
		s.finish(persistCtx, actor, &batch, 0, fmt.Sprintf("store questions: %v", err), started)
		span.RecordError(err)
		return dto.GenerateQuestionsResponse{}, err
	}

	assignments, err := s.persistAssignments(persistCtx, results, questions)
	if err != nil {
		s.finish(persistCtx, actor, &batch, len(questions), fmt.Sprintf("store assignments: %v", err), started)
		span.RecordError(err)
		return dto.GenerateQuestionsResponse{}, err
	}

	if runErr != nil {
		s.finish(persistCtx, actor, &batch, len(questions), runErr.Error(), started)
		span.RecordError(runErr)
		return dto.GenerateQuestionsResponse{}, runErr
	}

	// An empty run is still answered; only the batch records the failure.
	if len(questions) == 0 {
		s.finish(persistCtx, actor, &batch, 0, nothingGeneratedReason, started)
		span.SetStatus(codes.Error, "nothing_generated")
		return s.response(batch, questions, assignments, report, warnings), nil
	}

	s.finish(persistCtx, actor, &batch, len(questions), "", started)
	recordActivity(persistCtx, s.activity, s.logger, ActivityEntry{
		UserID:      actor.ID,
		Action:      ActionGenerateQuestions,
		Description: fmt.Sprintf("Generated %d questions for %s - %s", len(questions), batch.Subject, batch.Topic),
		Metadata: map[string]interface{}{
			"batchId":       batch.ID,
			"questionCount": len(questions),
			"subject":       batch.Subject,
			"topic":         batch.Topic,
		},
	})

	span.SetAttributes(attribute.Int("generation.produced", len(questions)), attribute.Int("generation.skipped", len(report.Failures)))

	return s.response(batch, questions, assignments, report, warnings), nil
}

func (s *generationService) response(batch models.QuestionBatch, questions []models.Question, assignments []models.Assignment, report generation.RunReport, warnings []generation.RangeParseError) dto.GenerateQuestionsResponse {
	return dto.GenerateQuestionsResponse{
		Batch:         dto.NewBatchResponse(batch),
		Questions:     dto.NewQuestionResponseSlice(questions),
		Assignments:   dto.NewAssignmentResponseSlice(assignments),
		Skipped:       len(report.Failures),
		RangeWarnings: warnings,
		Message:       fmt.Sprintf("Successfully generated %d questions", len(questions)),
	}
}

func (s *generationService) checkStudents(ctx context.Context, ids []string) error {
	var missing []string
	for _, id := range ids {
		if _, err := s.store.GetStudent(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				missing = append(missing, id)
				continue
			}
			return err
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownStudents, strings.Join(missing, ", "))
	}
	return nil
}

// resolveTemplates picks the templates for a run: explicit IDs first, then stored
// templates matching subject and topic, then an ad hoc template built from the request.
func (s *generationService) resolveTemplates(ctx context.Context, payload dto.GenerateQuestionsRequest) ([]models.QuestionTemplate, []generation.RangeParseError, error) {
	if len(payload.TemplateIDs) > 0 {
		templates := make([]models.QuestionTemplate, 0, len(payload.TemplateIDs))
		for _, id := range payload.TemplateIDs {
			template, err := s.store.GetTemplate(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, nil, fmt.Errorf("%w: template %s does not exist", generation.ErrNoEligibleTemplates, id)
				}
				return nil, nil, err
			}
			templates = append(templates, template)
		}
		return templates, nil, nil
	}

	stored, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, nil, err
	}

	subject := strings.ToLower(strings.TrimSpace(payload.Subject))
	topic := strings.ToLower(strings.TrimSpace(payload.Topic))
	var matching []models.QuestionTemplate
	for _, template := range stored {
		if strings.ToLower(template.Subject) == subject && strings.Contains(strings.ToLower(template.Topic), topic) {
			matching = append(matching, template)
		}
	}
	if len(matching) > 0 {
		return matching, nil, nil
	}

	variables, warnings := generation.ParseVariableRanges(payload.VariableRanges)
	difficulty, ok := difficultyLevelRanges[payload.DifficultyLevel]
	if !ok {
		difficulty = difficultyLevelRanges["medium"]
	}
	adHoc := models.NewQuestionTemplate(
		strings.TrimSpace(payload.Subject),
		strings.TrimSpace(payload.Topic),
		strings.TrimSpace(payload.TemplateText),
		variables,
		difficulty,
		strings.TrimSpace(payload.QuestionType),
	)

	s.logger.Info().
		Str("subject", payload.Subject).
		Str("topic", payload.Topic).
		Int("variables", len(variables)).
		Int("range_warnings", len(warnings)).
		Msg("no stored template matched, using request template")

	return []models.QuestionTemplate{adHoc}, warnings, nil
}

func (s *generationService) persistQuestions(ctx context.Context, batchID string, results []generation.Result) ([]models.Question, error) {
	if len(results) == 0 {
		return nil, nil
	}

	pointers := make([]*models.Question, 0, len(results))
	for _, result := range results {
		id := batchID
		pointers = append(pointers, &models.Question{
			TemplateID:     result.TemplateID,
			BatchID:        &id,
			QuestionText:   result.QuestionText,
			ExpectedAnswer: result.ExpectedAnswer,
			Difficulty:     result.Difficulty,
			Subject:        result.Subject,
			Topic:          result.Topic,
			QuestionType:   result.QuestionType,
			Variables:      datatypes.NewJSONType(result.Variables),
		})
	}
	if err := s.store.CreateQuestions(ctx, pointers); err != nil {
		return nil, err
	}

	questions := make([]models.Question, 0, len(pointers))
	for _, question := range pointers {
		questions = append(questions, *question)
	}
	return questions, nil
}

func (s *generationService) persistAssignments(ctx context.Context, results []generation.Result, questions []models.Question) ([]models.Assignment, error) {
	var pointers []*models.Assignment
	for i, result := range results {
		if result.StudentID == nil || i >= len(questions) {
			continue
		}
		pointers = append(pointers, &models.Assignment{
			StudentID:  *result.StudentID,
			QuestionID: questions[i].ID,
			Status:     models.AssignmentPending,
			AssignedAt: s.now(),
		})
	}
	if len(pointers) == 0 {
		return nil, nil
	}
	if err := s.store.CreateAssignments(ctx, pointers); err != nil {
		return nil, err
	}

	assignments := make([]models.Assignment, 0, len(pointers))
	for _, assignment := range pointers {
		assignments = append(assignments, *assignment)
	}
	return assignments, nil
}

// finish moves the batch to its terminal status, then invalidates stats and publishes the event.
// An empty reason marks the batch completed.
func (s *generationService) finish(ctx context.Context, actor Actor, batch *models.QuestionBatch, generated int, reason string, started time.Time) {
	update := models.BatchUpdate{
		Status:         models.BatchCompleted,
		GeneratedCount: generated,
		CompletedAt:    s.now(),
	}
	if reason != "" {
		update.Status = models.BatchFailed
		update.FailureReason = reason
	}

	updated, err := s.store.UpdateBatch(ctx, batch.ID, update)
	if err != nil {
		s.logger.Error().Err(err).Str("batch_id", batch.ID).Str("user_id", actor.ID).Msg("failed to finalize batch")
	} else {
		*batch = updated
	}

	observability.BatchDuration().WithLabelValues(string(update.Status)).Observe(s.now().Sub(started).Seconds())
	if reason != "" {
		s.logger.Warn().Str("batch_id", batch.ID).Str("reason", reason).Int("generated", generated).Msg("question batch failed")
	}

	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
	if s.events != nil {
		s.events.Publish(ctx, *batch)
	}
}
