package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stuga-cloud/console/internal/domain"
)

const maxBodyBytes = 1 << 20

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends the error envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func decodeJSON(req *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &domain.ValidationError{Message: fmt.Sprintf("invalid JSON body: %v", err)}
	}
	return nil
}

// statusFor maps a domain error to its transport status and the message the
// caller may see.
func statusFor(err error) (int, string) {
	var (
		validation      *domain.ValidationError
		unauthenticated *domain.UnauthenticatedError
		unauthorized    *domain.UnauthorizedError
		notFound        *domain.NotFoundError
		conflict        *domain.ConflictError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Error()
	case errors.As(err, &unauthenticated):
		if unauthenticated.Remote {
			return http.StatusInternalServerError, internalMessage
		}
		return http.StatusUnauthorized, unauthenticated.Error()
	case errors.As(err, &unauthorized):
		if unauthorized.Remote || unauthorized.Reason != "" {
			return http.StatusForbidden, unauthorized.Error()
		}
		return http.StatusUnauthorized, unauthorized.Error()
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	case errors.As(err, &conflict):
		return http.StatusConflict, conflict.Error()
	default:
		return http.StatusInternalServerError, internalMessage
	}
}

const internalMessage = "internal server error"

// fail converts err into the error envelope. Server-side failures are logged
// with the identifiers of the request path.
func (r *Router) fail(w http.ResponseWriter, req *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		vars := mux.Vars(req)
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"error", err,
		}
		for _, key := range []string{"project", "namespaceId", "applicationId", "memberId"} {
			if v := vars[key]; v != "" {
				fields = append(fields, pathLogKeys[key], v)
			}
		}
		if info, ok := authInfoFromContext(req.Context()); ok {
			fields = append(fields, "user_id", info.UserID)
		}
		r.logger.Error("request failed", fields...)
	}
	writeError(w, status, msg)
}

var pathLogKeys = map[string]string{
	"project":       "project_id",
	"namespaceId":   "namespace_id",
	"applicationId": "application_id",
	"memberId":      "member_id",
}
