package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/labgen-api/internal/models"
	"github.com/noah-isme/labgen-api/internal/observability"
	"github.com/noah-isme/labgen-api/pkg/ai"
)

// MaxQuestionsPerRun bounds a single generation request.
const MaxQuestionsPerRun = 50

// DefaultDelay spaces consecutive gateway calls.
const DefaultDelay = 100 * time.Millisecond

var (
	// ErrNoEligibleTemplates is returned when a run is requested without templates.
	ErrNoEligibleTemplates = errors.New("no templates found for the specified subject and topic")
	// ErrInvalidCount is returned for counts outside [1, MaxQuestionsPerRun].
	ErrInvalidCount = fmt.Errorf("question count must be between 1 and %d", MaxQuestionsPerRun)
	// ErrIterationPanicked wraps a panic recovered while producing one question.
	ErrIterationPanicked = errors.New("question generation panicked")
)

// Solver rephrases and solves a rendered question. *ai.Gateway implements it.
type Solver interface {
	SolveQuestion(ctx context.Context, prompt ai.QuestionPrompt) (ai.QuestionSolution, error)
}

// RunInput describes one generation run. Templates with an empty ID are ad hoc.
type RunInput struct {
	Templates  []models.QuestionTemplate
	Count      int
	StudentIDs []string
}

// Result is one generated question before it is persisted.
type Result struct {
	Index          int
	TemplateID     *string
	StudentID      *string
	Subject        string
	Topic          string
	QuestionType   string
	QuestionText   string
	ExpectedAnswer string
	Variables      models.GeneratedVariables
	Difficulty     float64
	Rephrased      bool
}

// Failure records an iteration that produced no question.
type Failure struct {
	Index      int    `json:"index"`
	TemplateID string `json:"template_id,omitempty"`
	Reason     string `json:"reason"`
	Err        error  `json:"-"`
}

// RunReport summarises a run.
type RunReport struct {
	Requested int       `json:"requested"`
	Produced  int       `json:"produced"`
	Failures  []Failure `json:"failures,omitempty"`
}

// Options tunes the orchestrator.
type Options struct {
	Delay  time.Duration
	Logger zerolog.Logger
}

// Orchestrator drives sampler, renderer, gateway and scorer to produce questions.
type Orchestrator struct {
	sampler *Sampler
	scorer  *Scorer
	solver  Solver
	delay   time.Duration
	logger  zerolog.Logger
	tracer  trace.Tracer
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(sampler *Sampler, scorer *Scorer, solver Solver, opts Options) *Orchestrator {
	if sampler == nil {
		sampler = NewSampler(nil)
	}
	if scorer == nil {
		scorer = NewScorer(nil)
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}

	return &Orchestrator{
		sampler: sampler,
		scorer:  scorer,
		solver:  solver,
		delay:   opts.Delay,
		logger:  opts.Logger.With().Str("component", "generation_orchestrator").Logger(),
		tracer:  otel.Tracer("github.com/noah-isme/labgen-api/internal/generation"),
		sleep:   sleepContext,
	}
}

// Run generates questions and returns only the successful results.
func (o *Orchestrator) Run(ctx context.Context, in RunInput) ([]Result, error) {
	results, _, err := o.RunWithReport(ctx, in)
	return results, err
}

// RunWithReport generates in.Count questions, cycling through templates and student IDs
// in order. Iterations run sequentially with a fixed delay between gateway calls. A
// failing iteration is logged and skipped, so fewer than in.Count results may be returned.
// When ctx ends the run stops and the results produced so far are returned with ctx's error.
func (o *Orchestrator) RunWithReport(ctx context.Context, in RunInput) ([]Result, RunReport, error) {
	report := RunReport{Requested: in.Count}

	if len(in.Templates) == 0 {
		return nil, report, ErrNoEligibleTemplates
	}
	if in.Count < 1 || in.Count > MaxQuestionsPerRun {
		return nil, report, ErrInvalidCount
	}

	ctx, span := o.tracer.Start(ctx, "generation.run", trace.WithAttributes(
		attribute.Int("count", in.Count),
		attribute.Int("templates", len(in.Templates)),
		attribute.Int("students", len(in.StudentIDs)),
	))
	defer span.End()

	templates := NewCursor(in.Templates)
	students := NewCursor(in.StudentIDs)
	results := make([]Result, 0, in.Count)

	for i := 0; i < in.Count; i++ {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return results, report, err
		}

		template, _ := templates.Next()
		studentID, hasStudent := students.Next()

		result, err := o.produce(ctx, i, template)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				span.RecordError(ctxErr)
				return results, report, ctxErr
			}

			o.logger.Error().Err(err).Int("index", i).Str("template_id", template.ID).Msg("question generation failed, skipping")
			observability.QuestionOutcomes().WithLabelValues("skipped").Inc()
			report.Failures = append(report.Failures, Failure{Index: i, TemplateID: template.ID, Reason: err.Error(), Err: err})
		} else {
			if hasStudent {
				id := studentID
				result.StudentID = &id
			}
			outcome := "fallback"
			if result.Rephrased {
				outcome = "rephrased"
			}
			observability.QuestionOutcomes().WithLabelValues(outcome).Inc()
			results = append(results, result)
			report.Produced++
		}

		if i < in.Count-1 && o.delay > 0 {
			if err := o.sleep(ctx, o.delay); err != nil {
				span.RecordError(err)
				return results, report, err
			}
		}
	}

	span.SetAttributes(attribute.Int("produced", report.Produced))
	return results, report, nil
}

func (o *Orchestrator) produce(ctx context.Context, index int, template models.QuestionTemplate) (result Result, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %v", ErrIterationPanicked, recovered)
		}
	}()

	vars, err := o.sampler.Sample(template.VariableSet())
	if err != nil {
		return Result{}, fmt.Errorf("sample variables: %w", err)
	}

	text := Render(template.Template, vars)

	solution, err := o.solver.SolveQuestion(ctx, ai.QuestionPrompt{
		Subject:      template.Subject,
		QuestionText: text,
		Variables:    vars,
	})
	if err != nil {
		return Result{}, fmt.Errorf("solve question: %w", err)
	}

	var templateID *string
	if template.ID != "" {
		id := template.ID
		templateID = &id
	}

	return Result{
		Index:          index,
		TemplateID:     templateID,
		Subject:        template.Subject,
		Topic:          template.Topic,
		QuestionType:   template.QuestionType,
		QuestionText:   solution.QuestionText,
		ExpectedAnswer: solution.ExpectedAnswer,
		Variables:      vars,
		Difficulty:     o.scorer.Score(template.Difficulty(), vars),
		Rephrased:      solution.Rephrased,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
