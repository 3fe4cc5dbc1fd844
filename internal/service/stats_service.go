package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/observability"
	"github.com/noah-isme/labgen-api/internal/repository"
)

const statsCacheKey = "stats:summary"

// StatsInvalidator drops cached dashboard counters after writes.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

// StatsService aggregates dashboard counters.
type StatsService interface {
	StatsInvalidator
	Summary(ctx context.Context) (dto.StatsResponse, error)
}

type statsService struct {
	repo     repository.StatsRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewStatsService constructs the stats service. cache may be nil.
func NewStatsService(repo repository.StatsRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StatsService {
	return &statsService{
		repo:     repo,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "stats_service").Logger(),
	}
}

func (s *statsService) Summary(ctx context.Context) (dto.StatsResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/labgen-api/internal/service/stats")
	ctx, span := tracer.Start(ctx, "stats.aggregate")
	span.SetAttributes(attribute.String("stats.cache_key", statsCacheKey))
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, statsCacheKey).Result()
		if err == nil {
			var response dto.StatsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("stats.cache_hit", true))
				observability.StatsCache().WithLabelValues("hit").Inc()
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read stats cache")
			span.RecordError(err)
		}
		observability.StatsCache().WithLabelValues("miss").Inc()
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stats_failed")
		return dto.StatsResponse{}, err
	}

	summary := dto.NewStatsResponse(stats)
	span.SetAttributes(
		attribute.Int("stats.total_questions", summary.TotalQuestions),
		attribute.Int("stats.active_students", summary.ActiveStudents),
	)

	if s.cache != nil && s.cacheTTL > 0 {
		payload, err := json.Marshal(summary)
		if err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store stats cache")
				span.RecordError(err)
			}
		}
	}

	return summary, nil
}

func (s *statsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate stats cache")
	}
}
