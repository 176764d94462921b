package httpx

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/stuga-cloud/console/internal/service/auth"
	"github.com/stuga-cloud/console/internal/service/container"
	"github.com/stuga-cloud/console/internal/service/logs"
	"github.com/stuga-cloud/console/internal/service/member"
	"github.com/stuga-cloud/console/internal/service/namespace"
	"github.com/stuga-cloud/console/internal/service/project"
	"github.com/stuga-cloud/console/internal/wizard"
)

// Services groups the application services served over HTTP.
type Services struct {
	Auth       auth.Service
	Projects   project.Service
	Namespaces namespace.Service
	Containers container.Service
	Members    member.Service
	Logs       logs.Service
	Settings   Settings
}

// Settings are the display values clients need to render the creation form.
type Settings struct {
	BaseContainerDomain string            `json:"baseContainerDomain"`
	Registries          []wizard.Registry `json:"registries"`
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux        *mux.Router
	handler    http.Handler
	logger     *slog.Logger
	auth       auth.Service
	projects   project.Service
	namespaces namespace.Service
	containers container.Service
	members    member.Service
	logs       logs.Service
	settings   Settings
	upgrader   websocket.Upgrader
	limiter    RateLimiter
	metrics    *metrics
	cookieName string
	dbHealth   func(context.Context) error
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second

	routeLogsStream = "logs.stream"
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, services Services, limiter RateLimiter, cookieName string, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:        mux.NewRouter(),
		logger:     logger,
		auth:       services.Auth,
		projects:   services.Projects,
		namespaces: services.Namespaces,
		containers: services.Containers,
		members:    services.Members,
		logs:       services.Logs,
		settings:   services.Settings,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:    limiter,
		metrics:    newMetrics(),
		cookieName: strings.TrimSpace(cookieName),
		dbHealth:   dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.register()
	r.handler = r.audit(r.mux)
	return r
}

// ServeHTTP audits every request, matched or not, then delegates to the mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.Use(r.tagRoute)
	r.mux.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.mux.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.mux.HandleFunc("/healthz", r.handleHealthz).Methods(http.MethodGet)
	r.mux.Handle("/metrics", r.metrics.handler()).Methods(http.MethodGet)

	api := r.mux.PathPrefix("/api").Subrouter()
	api.Use(r.requireAuth, r.rateLimit)

	api.HandleFunc("/config", r.handleSettings).Methods(http.MethodGet)
	api.HandleFunc("/projects", r.handleListProjects).Methods(http.MethodGet)
	api.HandleFunc("/projects/{project}", r.handleGetProject).Methods(http.MethodGet)
	api.HandleFunc("/projects/{project}/users", r.handleListMembers).Methods(http.MethodGet)
	api.HandleFunc("/projects/{project}/users", r.handleAddMember).Methods(http.MethodPost)
	api.HandleFunc("/projects/{project}/users/{memberId}", r.handleRemoveMember).Methods(http.MethodDelete)

	const containers = "/projects/{project}/services/containers"
	api.HandleFunc(containers, r.handleCreateContainer).Methods(http.MethodPost)
	api.HandleFunc(containers+"/namespace", r.handleDefaultNamespace).Methods(http.MethodGet)
	api.HandleFunc(containers+"/namespaces", r.handleListNamespaces).Methods(http.MethodGet)
	api.HandleFunc(containers+"/namespaces", r.handleCreateNamespace).Methods(http.MethodPost)
	api.HandleFunc(containers+"/namespaces/{namespaceId}", r.handleGetNamespace).Methods(http.MethodGet)

	const application = containers + "/namespaces/{namespaceId}/applications/{applicationId}"
	api.HandleFunc(application, r.handleGetContainer).Methods(http.MethodGet)
	api.HandleFunc(application, r.handleDeleteContainer).Methods(http.MethodDelete)
	api.HandleFunc(application+"/logs", r.handleContainerLogs).Methods(http.MethodGet)
	api.HandleFunc(application+"/logs/stream", r.handleLogsStream).Methods(http.MethodGet).Name(routeLogsStream)
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

// tagRoute reports the matched route template to the audit recorder.
func (r *Router) tagRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if sr, ok := w.(*statusRecorder); ok {
			sr.route = routeLabel(req)
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Router) audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		route := recorder.route
		if route == "" {
			route = "unmatched"
		}
		r.recordRequestMetrics(req.Method, route, status, duration)

		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"route", route,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			fields = append(fields, "user_id", info.UserID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	route  string
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		sr.status = http.StatusSwitchingProtocols
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}
