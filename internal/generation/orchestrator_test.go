package generation

import (
	"context"
	"errors"
	"math/rand/v2"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/labgen-api/internal/models"
	"github.com/noah-isme/labgen-api/pkg/ai"
)

type scriptedSolver struct {
	mu      sync.Mutex
	calls   []ai.QuestionPrompt
	failOn  map[int]error
	panicOn map[int]bool
}

func (s *scriptedSolver) SolveQuestion(_ context.Context, prompt ai.QuestionPrompt) (ai.QuestionSolution, error) {
	s.mu.Lock()
	call := len(s.calls)
	s.calls = append(s.calls, prompt)
	s.mu.Unlock()

	if s.panicOn[call] {
		panic("solver exploded")
	}
	if err := s.failOn[call]; err != nil {
		return ai.QuestionSolution{}, err
	}
	return ai.QuestionSolution{QuestionText: "Rephrased: " + prompt.QuestionText, ExpectedAnswer: "42", Rephrased: true}, nil
}

func (s *scriptedSolver) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func testTemplate(id, text string, vars models.VariableSet, difficulty models.DifficultyRange) models.QuestionTemplate {
	template := models.NewQuestionTemplate("Physics", "Circuits", text, vars, difficulty, "calculation")
	template.ID = id
	return template
}

func twoTemplates() []models.QuestionTemplate {
	return []models.QuestionTemplate{
		testTemplate("t0", "Current {I} A", models.VariableSet{"I": models.NumericVariable(1, 2, "A")}, models.DifficultyRange{Min: 2, Max: 4}),
		testTemplate("t1", "Voltage {V} V", models.VariableSet{"V": models.NumericVariable(5, 9, "V")}, models.DifficultyRange{Min: 6, Max: 8}),
	}
}

func newTestOrchestrator(solver Solver) (*Orchestrator, *int) {
	orchestrator := NewOrchestrator(
		NewSampler(rand.New(rand.NewPCG(1, 2))),
		NewScorer(rand.New(rand.NewPCG(3, 4))),
		solver,
		Options{Delay: DefaultDelay, Logger: zerolog.Nop()},
	)
	sleeps := 0
	orchestrator.sleep = func(ctx context.Context, _ time.Duration) error {
		sleeps++
		return ctx.Err()
	}
	return orchestrator, &sleeps
}

func templateIDs(results []Result) []string {
	ids := make([]string, 0, len(results))
	for _, result := range results {
		if result.TemplateID == nil {
			ids = append(ids, "")
			continue
		}
		ids = append(ids, *result.TemplateID)
	}
	return ids
}

func TestRunProducesRequestedCountRoundRobin(t *testing.T) {
	solver := &scriptedSolver{}
	orchestrator, sleeps := newTestOrchestrator(solver)

	results, report, err := orchestrator.RunWithReport(context.Background(), RunInput{Templates: twoTemplates(), Count: 5})
	require.NoError(t, err)
	require.Len(t, results, 5)
	require.Equal(t, []string{"t0", "t1", "t0", "t1", "t0"}, templateIDs(results))
	require.Equal(t, RunReport{Requested: 5, Produced: 5}, report)
	require.Equal(t, 5, solver.callCount())
	require.Equal(t, 4, *sleeps)

	for i, result := range results {
		require.Equal(t, i, result.Index)
		require.True(t, result.Rephrased)
		require.Equal(t, "42", result.ExpectedAnswer)
		require.Equal(t, "Physics", result.Subject)
		require.Equal(t, "calculation", result.QuestionType)
		require.Nil(t, result.StudentID)
	}
	require.GreaterOrEqual(t, results[1].Difficulty, 6.0)
	require.LessOrEqual(t, results[1].Difficulty, 8.0)
	require.Contains(t, results[0].Variables, "I")
	require.Contains(t, results[1].Variables, "V")
}

func TestRunAssignsStudentsRoundRobin(t *testing.T) {
	orchestrator, _ := newTestOrchestrator(&scriptedSolver{})

	results, err := orchestrator.Run(context.Background(), RunInput{Templates: twoTemplates(), Count: 5, StudentIDs: []string{"s1", "s2", "s3"}})
	require.NoError(t, err)

	var students []string
	for _, result := range results {
		require.NotNil(t, result.StudentID)
		students = append(students, *result.StudentID)
	}
	require.Equal(t, []string{"s1", "s2", "s3", "s1", "s2"}, students)
}

func TestRunSkipsFailingIteration(t *testing.T) {
	solver := &scriptedSolver{failOn: map[int]error{2: errors.New("unexpected gateway failure")}}
	orchestrator, _ := newTestOrchestrator(solver)

	results, report, err := orchestrator.RunWithReport(context.Background(), RunInput{Templates: twoTemplates(), Count: 5})
	require.NoError(t, err)
	require.Len(t, results, 4)
	require.Equal(t, []string{"t0", "t1", "t1", "t0"}, templateIDs(results))
	require.Equal(t, []int{0, 1, 3, 4}, []int{results[0].Index, results[1].Index, results[2].Index, results[3].Index})
	require.Equal(t, 4, report.Produced)
	require.Len(t, report.Failures, 1)
	require.Equal(t, 2, report.Failures[0].Index)
	require.Equal(t, "t0", report.Failures[0].TemplateID)
	require.Equal(t, 5, solver.callCount())
}

func TestRunRecoversFromPanic(t *testing.T) {
	solver := &scriptedSolver{panicOn: map[int]bool{1: true}}
	orchestrator, _ := newTestOrchestrator(solver)

	results, report, err := orchestrator.RunWithReport(context.Background(), RunInput{Templates: twoTemplates(), Count: 3})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Len(t, report.Failures, 1)
	require.ErrorIs(t, report.Failures[0].Err, ErrIterationPanicked)
}

func TestRunSkipsSamplerFailures(t *testing.T) {
	broken := testTemplate("broken", "Use {acid}", models.VariableSet{"acid": {Type: models.VariableString}}, models.DifficultyRange{Min: 1, Max: 2})
	templates := append(twoTemplates()[:1], broken)
	solver := &scriptedSolver{}
	orchestrator, _ := newTestOrchestrator(solver)

	results, report, err := orchestrator.RunWithReport(context.Background(), RunInput{Templates: templates, Count: 4})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Len(t, report.Failures, 2)
	require.ErrorIs(t, report.Failures[0].Err, ErrEmptyOptionSet)
	require.Equal(t, 2, solver.callCount())
}

func TestRunRejectsEmptyTemplates(t *testing.T) {
	solver := &scriptedSolver{}
	orchestrator, _ := newTestOrchestrator(solver)

	results, err := orchestrator.Run(context.Background(), RunInput{Count: 3})
	require.ErrorIs(t, err, ErrNoEligibleTemplates)
	require.Empty(t, results)
	require.Zero(t, solver.callCount())
}

func TestRunRejectsInvalidCount(t *testing.T) {
	orchestrator, _ := newTestOrchestrator(&scriptedSolver{})

	_, err := orchestrator.Run(context.Background(), RunInput{Templates: twoTemplates(), Count: 0})
	require.ErrorIs(t, err, ErrInvalidCount)
	_, err = orchestrator.Run(context.Background(), RunInput{Templates: twoTemplates(), Count: MaxQuestionsPerRun + 1})
	require.ErrorIs(t, err, ErrInvalidCount)
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	solver := &scriptedSolver{}
	orchestrator, _ := newTestOrchestrator(solver)

	ctx, cancel := context.WithCancel(context.Background())
	orchestrator.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	results, err := orchestrator.Run(ctx, RunInput{Templates: twoTemplates(), Count: 5})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	require.Equal(t, 1, solver.callCount())
}

func TestRunResistanceScenarioWithUnavailableService(t *testing.T) {
	template := testTemplate("res", "A resistor of {R} ohms carries {I} amps. Find voltage.", models.VariableSet{
		"R": models.NumericVariable(10, 100, ""),
		"I": models.NumericVariable(0.5, 2.0, ""),
	}, models.DifficultyRange{Min: 3, Max: 5})
	gateway := ai.NewGateway(nil, ai.GatewayConfig{Logger: zerolog.Nop()})
	orchestrator, _ := newTestOrchestrator(gateway)

	results, err := orchestrator.Run(context.Background(), RunInput{Templates: []models.QuestionTemplate{template}, Count: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)

	pattern := regexp.MustCompile(`^A resistor of \d+(\.\d{1,2})? ohms carries \d+(\.\d{1,2})? amps\. Find voltage\.$`)
	for _, result := range results {
		require.Regexp(t, pattern, result.QuestionText)
		require.Equal(t, "Solution not available - please solve manually", result.ExpectedAnswer)
		require.False(t, result.Rephrased)
		require.GreaterOrEqual(t, result.Difficulty, 3.0)
		require.LessOrEqual(t, result.Difficulty, 5.0)

		resistance := result.Variables["R"].Number
		current := result.Variables["I"].Number
		require.GreaterOrEqual(t, resistance, 10.0)
		require.LessOrEqual(t, resistance, 100.0)
		require.GreaterOrEqual(t, current, 0.5)
		require.LessOrEqual(t, current, 2.0)
	}
}

func TestRunWireResistanceWithFallbackGateway(t *testing.T) {
	template := testTemplate("wire", "Find resistance of {material} wire of length {length} cm", models.VariableSet{
		"material": models.CategoricalVariable("copper", "aluminum"),
		"length":   models.NumericVariable(10, 20, ""),
	}, models.DifficultyRange{Min: 6, Max: 8})
	gateway := ai.NewGateway(nil, ai.GatewayConfig{Logger: zerolog.Nop()})
	pattern := regexp.MustCompile(`Find resistance of (copper|aluminum) wire of length \d+(\.\d{1,2})? cm`)

	for seed := uint64(0); seed < 50; seed++ {
		orchestrator := NewOrchestrator(
			NewSampler(NewSeededRandom(seed)),
			NewScorer(NewSeededRandom(seed+1000)),
			gateway,
			Options{Logger: zerolog.Nop()},
		)

		results, err := orchestrator.Run(context.Background(), RunInput{Templates: []models.QuestionTemplate{template}, Count: 1})
		require.NoError(t, err)
		require.Len(t, results, 1)

		result := results[0]
		require.Regexp(t, pattern, result.QuestionText)
		require.GreaterOrEqual(t, result.Difficulty, 6.0)
		require.LessOrEqual(t, result.Difficulty, 8.0)
		require.Equal(t, "Solution not available - please solve manually", result.ExpectedAnswer)
		require.Contains(t, []string{"copper", "aluminum"}, result.Variables["material"].Text)
		require.NotNil(t, result.TemplateID)
		require.Equal(t, "wire", *result.TemplateID)
	}
}

func TestRunAdHocTemplateHasNoTemplateID(t *testing.T) {
	adHoc := testTemplate("", "Mass {m} kg", models.VariableSet{"m": models.NumericVariable(1, 3, "kg")}, models.DifficultyRange{Min: 4, Max: 7})
	orchestrator, _ := newTestOrchestrator(&scriptedSolver{})

	results, err := orchestrator.Run(context.Background(), RunInput{Templates: []models.QuestionTemplate{adHoc}, Count: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Nil(t, results[0].TemplateID)
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
