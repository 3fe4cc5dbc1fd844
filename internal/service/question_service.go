package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/repository"
	"github.com/noah-isme/labgen-api/pkg/ai"
)

// ErrQuestionNotFound indicates the requested question does not exist.
var ErrQuestionNotFound = errors.New("question not found")

// DifficultyEvaluator rates a set of questions. *ai.Gateway implements it.
type DifficultyEvaluator interface {
	EvaluateDifficulty(ctx context.Context, questions []string) ai.DifficultyEvaluation
}

// QuestionService exposes generated question use cases.
type QuestionService interface {
	List(ctx context.Context, req dto.QuestionListRequest) ([]dto.QuestionResponse, error)
	Get(ctx context.Context, id string) (dto.QuestionResponse, error)
	EvaluateDifficulty(ctx context.Context, payload dto.EvaluateDifficultyRequest) (dto.EvaluateDifficultyResponse, error)
}

type questionService struct {
	repo      repository.QuestionRepository
	evaluator DifficultyEvaluator
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewQuestionService constructs the question service.
func NewQuestionService(repo repository.QuestionRepository, evaluator DifficultyEvaluator, validate *validator.Validate, logger zerolog.Logger) QuestionService {
	return &questionService{
		repo:      repo,
		evaluator: evaluator,
		validator: validate,
		logger:    logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) List(ctx context.Context, req dto.QuestionListRequest) ([]dto.QuestionResponse, error) {
	questions, err := s.repo.ListQuestions(ctx, repository.QuestionFilter{
		Subject:    strings.TrimSpace(req.Subject),
		Topic:      strings.TrimSpace(req.Topic),
		TemplateID: strings.TrimSpace(req.TemplateID),
		BatchID:    strings.TrimSpace(req.BatchID),
	})
	if err != nil {
		return nil, err
	}
	return dto.NewQuestionResponseSlice(questions), nil
}

func (s *questionService) Get(ctx context.Context, id string) (dto.QuestionResponse, error) {
	question, err := s.repo.GetQuestion(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return dto.QuestionResponse{}, ErrQuestionNotFound
		}
		return dto.QuestionResponse{}, err
	}
	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) EvaluateDifficulty(ctx context.Context, payload dto.EvaluateDifficultyRequest) (dto.EvaluateDifficultyResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EvaluateDifficultyResponse{}, err
	}

	var evaluation ai.DifficultyEvaluation
	if s.evaluator == nil {
		evaluation = ai.FallbackEvaluation(len(payload.QuestionTexts))
	} else {
		evaluation = s.evaluator.EvaluateDifficulty(ctx, payload.QuestionTexts)
	}

	if evaluation.Fallback {
		s.logger.Warn().Int("questions", len(payload.QuestionTexts)).Msg("difficulty evaluation used fallback values")
	}

	return dto.EvaluateDifficultyResponse{
		AvgDifficulty: evaluation.AvgDifficulty,
		Difficulties:  evaluation.Difficulties,
		IsConsistent:  evaluation.IsConsistent,
		Reasoning:     evaluation.Reasoning,
		Fallback:      evaluation.Fallback,
	}, nil
}
