package main

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/generation"
	"github.com/noah-isme/labgen-api/internal/models"
	"github.com/noah-isme/labgen-api/internal/repository"
	"github.com/noah-isme/labgen-api/internal/service"
	"github.com/noah-isme/labgen-api/internal/utils"
	"github.com/noah-isme/labgen-api/pkg/ai"
)

const cliUserID = "labgen-cli"

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a batch of questions in memory and print it as JSON",
	Long: `Generate runs the same pipeline as POST /questions/generate against an in-memory
store seeded with the starter templates. Without a provider every question uses
fallback answers, which keeps the command usable offline.`,
	Example: `  labgen generate --subject Chemistry --topic Titration --level medium --count 3
  labgen generate --subject Physics --topic Optics --template "A lens has focal length {f} cm." --ranges "f: 5-20 cm"`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	flags := generateCmd.Flags()
	flags.String("subject", "", "Subject to generate for")
	flags.String("topic", "", "Topic to generate for")
	flags.String("level", "medium", "Difficulty level: easy, medium or hard")
	flags.Int("count", 5, "Number of questions")
	flags.String("type", "calculation", "Question type")
	flags.String("template", "", "Template text used when no stored template matches")
	flags.String("ranges", "", "Variable ranges for --template, e.g. \"volume: 20-30 mL\"")
	flags.String("templates-file", "", "JSON file with extra templates to load first")
	flags.StringSlice("students", nil, "Student numbers to assign questions to, round-robin")
	flags.Uint64("seed", 0, "Seed for reproducible sampling (0 uses a random seed)")
	flags.String("provider", "none", "Completion provider: none, openai, anthropic or gemini")
	flags.String("model", "", "Provider model name")
	_ = generateCmd.MarkFlagRequired("subject")
	_ = generateCmd.MarkFlagRequired("topic")

	_ = viper.BindPFlag("ai.provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("ai.model", flags.Lookup("model"))
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := commandLogger()
	flags := cmd.Flags()

	store := repository.NewMemoryStore()
	if _, err := repository.SeedTemplates(ctx, store, repository.DefaultTemplates()); err != nil {
		return err
	}

	validate := utils.NewValidator()
	templates := service.NewTemplateService(store, nil, validate, logger)
	students := service.NewStudentService(store, nil, nil, validate, logger)
	actor := service.Actor{ID: cliUserID, Role: models.DefaultUserRole}

	if path, _ := flags.GetString("templates-file"); path != "" {
		if err := loadTemplates(cmd, templates, actor, path); err != nil {
			return err
		}
	}

	numbers, _ := flags.GetStringSlice("students")
	studentIDs := make([]string, 0, len(numbers))
	for _, number := range numbers {
		created, err := students.Create(ctx, actor, dto.StudentCreateRequest{StudentID: number, Name: number})
		if err != nil {
			return fmt.Errorf("student %s: %w", number, err)
		}
		studentIDs = append(studentIDs, created.ID)
	}

	completer, err := ai.NewCompleter(ctx, ai.ProviderConfig{
		Provider:        viper.GetString("ai.provider"),
		Model:           viper.GetString("ai.model"),
		OpenAIAPIKey:    viper.GetString("openai_api_key"),
		OpenAIBaseURL:   viper.GetString("openai_base_url"),
		AnthropicAPIKey: viper.GetString("anthropic_api_key"),
		GeminiAPIKey:    viper.GetString("gemini_api_key"),
		Retry:           ai.DefaultRetryConfig(),
	})
	if err != nil {
		return err
	}
	gateway := ai.NewGateway(completer, ai.GatewayConfig{Model: viper.GetString("ai.model"), Logger: logger})

	rng := generation.NewSeededRandom(seedFromFlags(cmd))
	orchestrator := generation.NewOrchestrator(generation.NewSampler(rng), generation.NewScorer(rng), gateway, generation.Options{Logger: logger})
	generator := service.NewGenerationService(store, orchestrator, nil, nil, nil, validate, logger)

	subject, _ := flags.GetString("subject")
	topic, _ := flags.GetString("topic")
	level, _ := flags.GetString("level")
	count, _ := flags.GetInt("count")
	questionType, _ := flags.GetString("type")
	text, _ := flags.GetString("template")
	ranges, _ := flags.GetString("ranges")
	if text == "" {
		text = fmt.Sprintf("Describe one %s experiment on %s.", subject, topic)
	}

	result, err := generator.Generate(ctx, actor, dto.GenerateQuestionsRequest{
		Subject:          subject,
		Topic:            topic,
		DifficultyLevel:  level,
		QuestionCount:    count,
		QuestionType:     questionType,
		TemplateText:     text,
		VariableRanges:   ranges,
		SelectedStudents: studentIDs,
	})
	if err != nil {
		if details := utils.ValidationDetails(err); details != nil {
			_ = writeJSON(cmd.ErrOrStderr(), details)
		}
		return err
	}

	return writeJSON(cmd.OutOrStdout(), result)
}

func loadTemplates(cmd *cobra.Command, templates service.TemplateService, actor service.Actor, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var payloads []dto.TemplateCreateRequest
	if err := json.Unmarshal(data, &payloads); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	for i, payload := range payloads {
		created, err := templates.Create(cmd.Context(), actor, payload)
		if err != nil {
			return fmt.Errorf("%s: template %d: %w", path, i, err)
		}
		for _, warning := range created.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "template %d: %s\n", i, warning)
		}
	}
	return nil
}

func seedFromFlags(cmd *cobra.Command) uint64 {
	seed, _ := cmd.Flags().GetUint64("seed")
	if seed == 0 {
		seed = rand.Uint64()
	}
	return seed
}
