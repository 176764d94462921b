package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stuga-cloud/console/internal/domain"
	"github.com/stuga-cloud/console/internal/repository"
	"github.com/stuga-cloud/console/pkg/config"
	jwtpkg "github.com/stuga-cloud/console/pkg/jwt"
)

type stubUsers struct {
	users map[string]domain.User
	err   error
}

func (s stubUsers) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (s stubUsers) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

const secret = "test-secret"

func newService(users stubUsers) Service {
	return New(users, slog.New(slog.NewTextHandler(io.Discard, nil)), config.ConsoleConfig{JWTSecret: secret})
}

func TestAuthorizeUsesStoredAttributes(t *testing.T) {
	image := "https://img/ada.png"
	svc := newService(stubUsers{users: map[string]domain.User{
		"user-1": {ID: "user-1", Name: "Ada", Email: "ada@example.com", Image: &image},
	}})
	token, err := jwtpkg.GenerateToken(jwtpkg.Identity{UserID: "user-1", Name: "stale", Email: "stale@example.com"}, secret, time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	principal, err := svc.Authorize(context.Background(), token)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	want := domain.Principal{UserID: "user-1", Name: "Ada", Email: "ada@example.com", Image: image}
	if principal != want {
		t.Fatalf("expected %+v, got %+v", want, principal)
	}
}

func TestAuthorizeFallsBackToClaims(t *testing.T) {
	svc := newService(stubUsers{users: map[string]domain.User{"user-1": {ID: "user-1"}}})
	token, _ := jwtpkg.GenerateToken(jwtpkg.Identity{UserID: "user-1", Name: "Ada", Email: "ada@example.com", Image: "pic"}, secret, time.Minute)

	principal, err := svc.Authorize(context.Background(), token)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if principal.Name != "Ada" || principal.Email != "ada@example.com" || principal.Image != "pic" {
		t.Fatalf("unexpected principal %+v", principal)
	}
}

func TestAuthorizeRejectsInvalidSessions(t *testing.T) {
	svc := newService(stubUsers{users: map[string]domain.User{}})
	unknown, _ := jwtpkg.GenerateToken(jwtpkg.Identity{UserID: "ghost"}, secret, time.Minute)
	forged, _ := jwtpkg.GenerateToken(jwtpkg.Identity{UserID: "user-1"}, "other-secret", time.Minute)

	for name, token := range map[string]string{"empty": "  ", "unknown user": unknown, "forged": forged, "garbage": "abc.def"} {
		_, err := svc.Authorize(context.Background(), token)
		var unauthenticated *domain.UnauthenticatedError
		if !errors.As(err, &unauthenticated) {
			t.Fatalf("%s: expected UnauthenticatedError, got %v", name, err)
		}
	}
}

func TestAuthorizeSurfacesStoreFailures(t *testing.T) {
	storeErr := errors.New("db down")
	svc := newService(stubUsers{err: storeErr})
	token, _ := jwtpkg.GenerateToken(jwtpkg.Identity{UserID: "user-1"}, secret, time.Minute)

	if _, err := svc.Authorize(context.Background(), token); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}
