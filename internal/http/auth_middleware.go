package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/stuga-cloud/console/internal/domain"
)

type authContextKey string

type authInfo struct {
	domain.Principal
}

const contextKeyAuth authContextKey = "stuga-console-auth"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth ensures the request carries a valid session before invoking the handler.
func (r *Router) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// ensureAuth validates the session token and enriches the context.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, bool) {
	token, err := r.sessionToken(req)
	if err != nil {
		r.logger.Debug("session missing", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication required")
		return req.Context(), false
	}
	principal, err := r.auth.Authorize(req.Context(), token)
	if err != nil {
		var unauthenticated *domain.UnauthenticatedError
		if errors.As(err, &unauthenticated) {
			r.logger.Warn("session validation failed", "error", err, "path", req.URL.Path)
			writeError(w, http.StatusUnauthorized, "authentication required")
			return req.Context(), false
		}
		r.fail(w, req, err)
		return req.Context(), false
	}
	ctx := context.WithValue(req.Context(), contextKeyAuth, authInfo{Principal: principal})
	return ctx, true
}

// sessionToken reads the bearer header first, then the session cookie.
func (r *Router) sessionToken(req *http.Request) (string, error) {
	if header := req.Header.Get("Authorization"); strings.TrimSpace(header) != "" {
		return bearerToken(header)
	}
	if r.cookieName != "" {
		if cookie, err := req.Cookie(r.cookieName); err == nil && strings.TrimSpace(cookie.Value) != "" {
			return strings.TrimSpace(cookie.Value), nil
		}
	}
	return "", errors.New("no session token")
}

// authInfoFromContext extracts auth metadata from context.
func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	value := ctx.Value(contextKeyAuth)
	if value == nil {
		return authInfo{}, false
	}
	info, ok := value.(authInfo)
	return info, ok
}

func principalFrom(req *http.Request) domain.Principal {
	info, _ := authInfoFromContext(req.Context())
	return info.Principal
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
