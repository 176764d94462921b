package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stuga-cloud/console/internal/domain"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{&domain.ValidationError{Field: "port", Message: "bad"}, http.StatusBadRequest},
		{&domain.UnauthenticatedError{Op: "authorize"}, http.StatusUnauthorized},
		{&domain.UnauthenticatedError{Op: "get application", Remote: true}, http.StatusInternalServerError},
		{&domain.UnauthorizedError{UserID: "u", ProjectID: "p"}, http.StatusUnauthorized},
		{&domain.UnauthorizedError{UserID: "u", Remote: true}, http.StatusForbidden},
		{&domain.UnauthorizedError{UserID: "u", Reason: "admins only"}, http.StatusForbidden},
		{domain.NotFound(domain.KindNamespace, "ns"), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", domain.NotFound(domain.KindProject, "p")), http.StatusNotFound},
		{&domain.ConflictError{Message: "exists"}, http.StatusConflict},
		{&domain.RemoteInternalError{Op: "x", Message: "boom"}, http.StatusInternalServerError},
		{&domain.RemoteUnknownError{Op: "x", Err: errors.New("eof")}, http.StatusInternalServerError},
		{errors.New("anything"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, msg := statusFor(tc.err)
		if status != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, status)
		}
		if status == http.StatusInternalServerError && msg != internalMessage {
			t.Fatalf("%v: 5xx must not leak details, got %q", tc.err, msg)
		}
	}
}

func TestMemoryRateLimiterWindow(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()

	for i := 1; i <= 2; i++ {
		if d := rl.Allow("user:a", 2, time.Minute); !d.allowed || d.count != i {
			t.Fatalf("request %d should pass, got %+v", i, d)
		}
	}
	if d := rl.Allow("user:a", 2, time.Minute); d.allowed {
		t.Fatalf("third request must be limited")
	}
	if d := rl.Allow("user:b", 2, time.Minute); !d.allowed {
		t.Fatalf("keys must be independent")
	}
	if d := rl.Allow("user:a", 0, time.Minute); !d.allowed {
		t.Fatalf("zero limit disables limiting")
	}
}

func TestBearerToken(t *testing.T) {
	if token, err := bearerToken("Bearer abc"); err != nil || token != "abc" {
		t.Fatalf("unexpected result %q %v", token, err)
	}
	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer a b"} {
		if _, err := bearerToken(header); err == nil {
			t.Fatalf("%q: expected error", header)
		}
	}
}
