package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"github.com/stuga-cloud/console/internal/domain"
	"github.com/stuga-cloud/console/internal/repository"
	"github.com/stuga-cloud/console/pkg/config"
	jwtpkg "github.com/stuga-cloud/console/pkg/jwt"
)

// Service verifies session tokens issued by the identity provider.
type Service struct {
	users  repository.UserRepository
	logger *slog.Logger
	cfg    config.ConsoleConfig
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.ConsoleConfig) Service {
	return Service{users: users, logger: logger, cfg: cfg}
}

// Authorize validates a session token and returns the principal behind it.
// Display attributes come from the user record and fall back to the claims.
func (s Service) Authorize(ctx context.Context, token string) (domain.Principal, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return domain.Principal{}, &domain.UnauthenticatedError{Op: "authorize"}
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("session token rejected", "error", err)
		}
		return domain.Principal{}, &domain.UnauthenticatedError{Op: "authorize"}
	}
	userID := strings.TrimSpace(claims.UserID)
	if userID == "" {
		userID = strings.TrimSpace(claims.Subject)
	}
	if userID == "" {
		return domain.Principal{}, &domain.UnauthenticatedError{Op: "authorize"}
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Principal{}, &domain.UnauthenticatedError{Op: "authorize"}
		}
		return domain.Principal{}, fmt.Errorf("load session user: %w", err)
	}

	principal := domain.Principal{
		UserID: user.ID,
		Name:   firstNonEmpty(user.Name, claims.Name),
		Email:  firstNonEmpty(user.Email, claims.Email),
		Image:  claims.Image,
	}
	if user.Image != nil && *user.Image != "" {
		principal.Image = *user.Image
	}
	return principal, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
