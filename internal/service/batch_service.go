package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/repository"
)

// ErrBatchNotFound indicates the requested question batch does not exist.
var ErrBatchNotFound = errors.New("question batch not found")

// BatchService exposes generation batch history.
type BatchService interface {
	List(ctx context.Context) ([]dto.BatchResponse, error)
	Get(ctx context.Context, id string) (dto.BatchDetailResponse, error)
}

type batchService struct {
	batches   repository.BatchRepository
	questions repository.QuestionRepository
	logger    zerolog.Logger
}

// NewBatchService constructs the batch service.
func NewBatchService(batches repository.BatchRepository, questions repository.QuestionRepository, logger zerolog.Logger) BatchService {
	return &batchService{
		batches:   batches,
		questions: questions,
		logger:    logger.With().Str("component", "batch_service").Logger(),
	}
}

func (s *batchService) List(ctx context.Context) ([]dto.BatchResponse, error) {
	batches, err := s.batches.ListBatches(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewBatchResponseSlice(batches), nil
}

func (s *batchService) Get(ctx context.Context, id string) (dto.BatchDetailResponse, error) {
	batch, err := s.batches.GetBatch(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return dto.BatchDetailResponse{}, ErrBatchNotFound
		}
		return dto.BatchDetailResponse{}, err
	}

	questions, err := s.questions.ListQuestions(ctx, repository.QuestionFilter{BatchID: batch.ID})
	if err != nil {
		return dto.BatchDetailResponse{}, err
	}

	return dto.BatchDetailResponse{
		BatchResponse: dto.NewBatchResponse(batch),
		Questions:     dto.NewQuestionResponseSlice(questions),
	}, nil
}
