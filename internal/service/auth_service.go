package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/models"
	"github.com/noah-isme/labgen-api/internal/repository"
)

// ErrMissingSubject indicates the token carried no subject claim.
var ErrMissingSubject = errors.New("token subject is required")

// UserClaims are the identity claims taken from an access token.
type UserClaims struct {
	Subject         string
	Email           string
	FirstName       string
	LastName        string
	ProfileImageURL string
	Role            string
}

// AuthService resolves the signed-in instructor.
type AuthService interface {
	CurrentUser(ctx context.Context, claims UserClaims) (dto.UserResponse, error)
}

type authService struct {
	repo   repository.UserRepository
	logger zerolog.Logger
}

// NewAuthService constructs the auth service.
func NewAuthService(repo repository.UserRepository, logger zerolog.Logger) AuthService {
	return &authService{
		repo:   repo,
		logger: logger.With().Str("component", "auth_service").Logger(),
	}
}

// CurrentUser upserts the user described by claims and returns the stored record.
func (s *authService) CurrentUser(ctx context.Context, claims UserClaims) (dto.UserResponse, error) {
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return dto.UserResponse{}, ErrMissingSubject
	}

	user := models.User{
		ID:              subject,
		Email:           optionalString(claims.Email),
		FirstName:       optionalString(claims.FirstName),
		LastName:        optionalString(claims.LastName),
		ProfileImageURL: optionalString(claims.ProfileImageURL),
		Role:            strings.ToLower(strings.TrimSpace(claims.Role)),
	}

	if err := s.repo.UpsertUser(ctx, &user); err != nil {
		s.logger.Error().Err(err).Str("user_id", subject).Msg("failed to upsert user")
		return dto.UserResponse{}, err
	}

	stored, err := s.repo.GetUser(ctx, subject)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(stored), nil
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
