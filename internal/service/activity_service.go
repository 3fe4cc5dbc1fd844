package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/models"
	"github.com/noah-isme/labgen-api/internal/repository"
)

const (
	// DefaultActivityLimit is used when the caller does not ask for a limit.
	DefaultActivityLimit = 10
	// MaxActivityLimit caps a single activity listing.
	MaxActivityLimit = 100
)

// Activity actions written by the services.
const (
	ActionCreateStudent     = "create_student"
	ActionUpdateStudent     = "update_student"
	ActionCreateTemplate    = "create_template"
	ActionImportTemplates   = "import_templates"
	ActionGenerateQuestions = "generate_questions"
	ActionCreateAssignment  = "create_assignment"
	ActionBulkAssign        = "bulk_assign"
	ActionUpdateAssignment  = "update_assignment"
)

// Actor is the authenticated instructor performing an action.
type Actor struct {
	ID   string
	Role string
}

// ActivityEntry captures the details required to persist an audit entry.
type ActivityEntry struct {
	UserID      string
	Action      string
	Description string
	Metadata    map[string]interface{}
}

// ActivityRecorder defines behaviour for recording activity logs.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error)
}

// ActivityService exposes methods to query and persist activity logs.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, limit int) ([]dto.ActivityResponse, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	if strings.TrimSpace(entry.Action) == "" {
		return dto.ActivityResponse{}, fmt.Errorf("action is required")
	}

	userID := strings.TrimSpace(entry.UserID)
	if userID == "" {
		userID = "system"
	}

	model := models.ActivityLog{
		UserID:      userID,
		Action:      strings.ToLower(strings.TrimSpace(entry.Action)),
		Description: strings.TrimSpace(entry.Description),
		Metadata:    sanitizeMetadata(entry.Metadata),
	}

	if err := s.repo.AppendActivity(ctx, &model); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist activity log")
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(model), nil
}

func (s *activityService) List(ctx context.Context, limit int) ([]dto.ActivityResponse, error) {
	entries, err := s.repo.ListActivity(ctx, clampActivityLimit(limit))
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewActivityResponse(entry))
	}
	return responses, nil
}

func clampActivityLimit(limit int) int {
	if limit <= 0 {
		return DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		return MaxActivityLimit
	}
	return limit
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

// recordActivity writes an audit entry without failing the calling operation.
func recordActivity(ctx context.Context, recorder ActivityRecorder, logger zerolog.Logger, entry ActivityEntry) {
	if recorder == nil {
		return
	}
	if _, err := recorder.Record(ctx, entry); err != nil {
		logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to record activity")
	}
}
