package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/models"
	"github.com/noah-isme/labgen-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedService installs starter question templates.
type SeedService interface {
	// SeedDefaults installs the bundled templates into an empty store.
	SeedDefaults(ctx context.Context) (int, error)
	// SeedTemplates creates the given templates after checking the seed token.
	SeedTemplates(ctx context.Context, token string, items []dto.TemplateCreateRequest) (int, error)
}

type seedService struct {
	repo    repository.TemplateRepository
	enabled bool
	token   string
	logger  zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(repo repository.TemplateRepository, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		repo:    repo,
		enabled: enabled,
		token:   token,
		logger:  logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) SeedDefaults(ctx context.Context) (int, error) {
	if !s.enabled {
		return 0, ErrSeedDisabled
	}
	seeded, err := repository.SeedTemplates(ctx, s.repo, repository.DefaultTemplates())
	if err != nil {
		return seeded, err
	}
	if seeded > 0 {
		s.logger.Info().Int("templates", seeded).Msg("default templates seeded")
	}
	return seeded, nil
}

func (s *seedService) SeedTemplates(ctx context.Context, token string, items []dto.TemplateCreateRequest) (int, error) {
	if !s.enabled {
		return 0, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return 0, ErrSeedUnauthorized
	}

	created := 0
	for _, item := range items {
		if err := item.Variables.Validate(); err != nil {
			return created, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
		if err := item.DifficultyRange.Validate(); err != nil {
			return created, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
		template := models.NewQuestionTemplate(item.Subject, item.Topic, item.Template, item.Variables, item.DifficultyRange, item.QuestionType)
		if err := s.repo.CreateTemplate(ctx, &template); err != nil {
			return created, err
		}
		created++
	}

	s.logger.Info().Int("templates", created).Msg("templates seeded")
	return created, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}
