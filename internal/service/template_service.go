package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/generation"
	"github.com/noah-isme/labgen-api/internal/models"
	"github.com/noah-isme/labgen-api/internal/repository"
)

// MaxTemplateImportBytes bounds an uploaded template file.
const MaxTemplateImportBytes = 1 << 20

var (
	// ErrTemplateNotFound indicates the requested template does not exist.
	ErrTemplateNotFound = errors.New("question template not found")
	// ErrInvalidTemplate wraps variable or difficulty range problems in a template.
	ErrInvalidTemplate = errors.New("invalid question template")
	// ErrTemplateImportTooLarge indicates the uploaded file exceeds MaxTemplateImportBytes.
	ErrTemplateImportTooLarge = errors.New("template file too large")
	// ErrTemplateImportType indicates the uploaded file is not JSON.
	ErrTemplateImportType = errors.New("template file must be JSON")
)

// TemplateService exposes question template use cases.
type TemplateService interface {
	List(ctx context.Context) ([]dto.TemplateResponse, error)
	Get(ctx context.Context, id string) (dto.TemplateResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.TemplateCreateRequest) (dto.TemplateResponse, error)
	Import(ctx context.Context, actor Actor, file *multipart.FileHeader) (dto.TemplateImportResponse, error)
}

type templateService struct {
	repo      repository.TemplateRepository
	activity  ActivityRecorder
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewTemplateService constructs the template service.
func NewTemplateService(repo repository.TemplateRepository, activity ActivityRecorder, validate *validator.Validate, logger zerolog.Logger) TemplateService {
	return &templateService{
		repo:      repo,
		activity:  activity,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "template_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/labgen-api/internal/service/template"),
	}
}

func (s *templateService) List(ctx context.Context) ([]dto.TemplateResponse, error) {
	templates, err := s.repo.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewTemplateResponseSlice(templates), nil
}

func (s *templateService) Get(ctx context.Context, id string) (dto.TemplateResponse, error) {
	template, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return dto.TemplateResponse{}, ErrTemplateNotFound
		}
		return dto.TemplateResponse{}, err
	}
	return dto.NewTemplateResponse(template), nil
}

func (s *templateService) Create(ctx context.Context, actor Actor, payload dto.TemplateCreateRequest) (dto.TemplateResponse, error) {
	response, err := s.create(ctx, payload)
	if err != nil {
		return dto.TemplateResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		UserID:      actor.ID,
		Action:      ActionCreateTemplate,
		Description: fmt.Sprintf("Created template for %s - %s", response.Subject, response.Topic),
		Metadata:    map[string]interface{}{"templateId": response.ID},
	})

	return response, nil
}

func (s *templateService) create(ctx context.Context, payload dto.TemplateCreateRequest) (dto.TemplateResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TemplateResponse{}, err
	}
	if err := payload.Variables.Validate(); err != nil {
		return dto.TemplateResponse{}, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if err := payload.DifficultyRange.Validate(); err != nil {
		return dto.TemplateResponse{}, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	template := models.NewQuestionTemplate(
		strings.TrimSpace(s.sanitizer.Sanitize(payload.Subject)),
		strings.TrimSpace(s.sanitizer.Sanitize(payload.Topic)),
		strings.TrimSpace(payload.Template),
		payload.Variables,
		payload.DifficultyRange,
		strings.TrimSpace(payload.QuestionType),
	)

	if err := s.repo.CreateTemplate(ctx, &template); err != nil {
		return dto.TemplateResponse{}, err
	}

	response := dto.NewTemplateResponse(template)
	for _, name := range generation.UndeclaredPlaceholders(template.Template, payload.Variables) {
		response.Warnings = append(response.Warnings, fmt.Sprintf("placeholder {%s} has no declared variable and will be left as is", name))
	}

	s.logger.Info().Str("template_id", template.ID).Msg("question template created")
	return response, nil
}

// Import reads a JSON file holding an array of templates (or {"templates": [...]})
// and creates each valid entry. Invalid entries are reported, not fatal.
func (s *templateService) Import(ctx context.Context, actor Actor, file *multipart.FileHeader) (dto.TemplateImportResponse, error) {
	ctx, span := s.tracer.Start(ctx, "templates.import")
	defer span.End()

	if file == nil {
		err := errors.New("file is required")
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.TemplateImportResponse{}, err
	}
	span.SetAttributes(
		attribute.String("import.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("import.request_size", file.Size),
	)

	if file.Size > MaxTemplateImportBytes {
		span.RecordError(ErrTemplateImportTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.TemplateImportResponse{}, ErrTemplateImportTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		return dto.TemplateImportResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, MaxTemplateImportBytes+1)); err != nil {
		span.RecordError(err)
		return dto.TemplateImportResponse{}, err
	}
	if buf.Len() > MaxTemplateImportBytes {
		span.RecordError(ErrTemplateImportTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.TemplateImportResponse{}, ErrTemplateImportTooLarge
	}

	return s.importBytes(ctx, actor, buf.Bytes())
}

func (s *templateService) importBytes(ctx context.Context, actor Actor, data []byte) (dto.TemplateImportResponse, error) {
	detected := mimetype.Detect(data)
	if !detected.Is("application/json") && !detected.Is("text/plain") {
		return dto.TemplateImportResponse{}, ErrTemplateImportType
	}

	payloads, err := decodeTemplatePayloads(data)
	if err != nil {
		return dto.TemplateImportResponse{}, fmt.Errorf("%w: %v", ErrTemplateImportType, err)
	}

	result := dto.TemplateImportResponse{
		Imported: make([]dto.TemplateResponse, 0, len(payloads)),
		Errors:   make([]dto.TemplateImportError, 0),
	}
	for i, payload := range payloads {
		created, err := s.create(ctx, payload)
		if err != nil {
			result.Errors = append(result.Errors, dto.TemplateImportError{Index: i, Reason: err.Error()})
			continue
		}
		result.Imported = append(result.Imported, created)
	}

	if len(result.Imported) > 0 {
		recordActivity(ctx, s.activity, s.logger, ActivityEntry{
			UserID:      actor.ID,
			Action:      ActionImportTemplates,
			Description: fmt.Sprintf("Imported %d question templates", len(result.Imported)),
			Metadata:    map[string]interface{}{"imported": len(result.Imported), "rejected": len(result.Errors)},
		})
	}

	return result, nil
}

func decodeTemplatePayloads(data []byte) ([]dto.TemplateCreateRequest, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("file is empty")
	}

	if trimmed[0] == '[' {
		var payloads []dto.TemplateCreateRequest
		if err := json.Unmarshal(trimmed, &payloads); err != nil {
			return nil, err
		}
		return payloads, nil
	}

	var wrapper struct {
		Templates []dto.TemplateCreateRequest `json:"templates"`
	}
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Templates, nil
}
