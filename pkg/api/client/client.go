package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stuga-cloud/console/internal/domain"
	"github.com/stuga-cloud/console/internal/wizard"
)

const defaultBaseURL = "http://localhost:4000"

// Client provides typed access to the console API for interactive tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided console base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api"+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Message)
}

// Project is a project visible to the caller.
type Project struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	CreatedBy           string      `json:"createdBy"`
	CreatedAt           time.Time   `json:"createdAt"`
	Role                string      `json:"role,omitempty"`
	Members             []Member    `json:"members,omitempty"`
	ContainerNamespaces []Namespace `json:"containerNamespaces,omitempty"`
}

// Member is a project member as listed by the API.
type Member struct {
	ID       string     `json:"id"`
	Role     string     `json:"role"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	JoinedAt *time.Time `json:"joinedAt,omitempty"`
}

// Container is the local record of an application.
type Container struct {
	ID          string    `json:"id"`
	IDInAPI     string    `json:"idInAPI"`
	NamespaceID string    `json:"namespaceId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Namespace groups a project's applications.
type Namespace struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	IDInAPI    string      `json:"idInAPI,omitempty"`
	Containers []Container `json:"containers,omitempty"`
}

// NamespaceApplication is an entry of a namespace detail.
type NamespaceApplication struct {
	Container
	Missing     bool            `json:"missing,omitempty"`
	Application json.RawMessage `json:"application,omitempty"`
}

// NamespaceDetail is a namespace with its applications resolved.
type NamespaceDetail struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	IDInAPI      string                 `json:"idInAPI,omitempty"`
	Applications []NamespaceApplication `json:"applications"`
}

// Application is an application with its platform record kept raw.
type Application struct {
	ID          string          `json:"id"`
	IDInAPI     string          `json:"idInAPI"`
	NamespaceID string          `json:"namespaceId"`
	CreatedAt   time.Time       `json:"createdAt,omitempty"`
	Application json.RawMessage `json:"application,omitempty"`
}

// ListProjects returns the projects the caller created or belongs to.
func (c *Client) ListProjects(ctx context.Context, token string) ([]Project, error) {
	var resp struct {
		Projects []Project `json:"projects"`
	}
	if err := c.do(ctx, http.MethodGet, "/projects", nil, token, &resp); err != nil {
		return nil, err
	}
	return resp.Projects, nil
}

// Settings are the server's values for rendering the container creation form.
type Settings struct {
	BaseContainerDomain string            `json:"baseContainerDomain"`
	Registries          []wizard.Registry `json:"registries"`
}

// Settings returns the container domain and image registries the server is
// configured with.
func (c *Client) Settings(ctx context.Context, token string) (Settings, error) {
	var s Settings
	if err := c.do(ctx, http.MethodGet, "/config", nil, token, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// GetProject returns a project with its members and namespaces.
func (c *Client) GetProject(ctx context.Context, token, projectID string) (Project, error) {
	var p Project
	if err := c.do(ctx, http.MethodGet, projectPath(projectID), nil, token, &p); err != nil {
		return Project{}, err
	}
	return p, nil
}

// ListMembers returns a project's members, creator first.
func (c *Client) ListMembers(ctx context.Context, token, projectID string) ([]Member, error) {
	var resp struct {
		Members []Member `json:"members"`
	}
	if err := c.do(ctx, http.MethodGet, projectPath(projectID)+"/users", nil, token, &resp); err != nil {
		return nil, err
	}
	return resp.Members, nil
}

// AddMember adds a user, by id or email, to a project.
func (c *Client) AddMember(ctx context.Context, token, projectID, userOrEmail, role string) (Member, error) {
	body := map[string]string{"role": role}
	if strings.Contains(userOrEmail, "@") {
		body["email"] = userOrEmail
	} else {
		body["userId"] = userOrEmail
	}
	var m Member
	if err := c.do(ctx, http.MethodPost, projectPath(projectID)+"/users", body, token, &m); err != nil {
		return Member{}, err
	}
	return m, nil
}

// RemoveMember removes a member from a project.
func (c *Client) RemoveMember(ctx context.Context, token, projectID, memberID string) error {
	path := fmt.Sprintf("%s/users/%s", projectPath(projectID), url.PathEscape(memberID))
	return c.do(ctx, http.MethodDelete, path, nil, token, nil)
}

// ListNamespaces returns a project's namespaces.
func (c *Client) ListNamespaces(ctx context.Context, token, projectID string) ([]Namespace, error) {
	var resp struct {
		Namespaces []Namespace `json:"namespaces"`
	}
	if err := c.do(ctx, http.MethodGet, containersPath(projectID)+"/namespaces", nil, token, &resp); err != nil {
		return nil, err
	}
	return resp.Namespaces, nil
}

// CreateNamespace provisions a namespace. An empty name lets the server
// derive one from the project name.
func (c *Client) CreateNamespace(ctx context.Context, token, projectID, name string) (Namespace, error) {
	var ns Namespace
	body := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodPost, containersPath(projectID)+"/namespaces", body, token, &ns); err != nil {
		return Namespace{}, err
	}
	return ns, nil
}

// GetNamespace returns a namespace with its applications.
func (c *Client) GetNamespace(ctx context.Context, token, projectID, namespaceID string) (NamespaceDetail, error) {
	var detail NamespaceDetail
	path := fmt.Sprintf("%s/namespaces/%s", containersPath(projectID), url.PathEscape(namespaceID))
	if err := c.do(ctx, http.MethodGet, path, nil, token, &detail); err != nil {
		return NamespaceDetail{}, err
	}
	return detail, nil
}

// CreateContainer creates an application and returns its local record.
func (c *Client) CreateContainer(ctx context.Context, token, projectID string, body domain.CreateContainerApplicationBody) (Application, error) {
	var app Application
	if err := c.do(ctx, http.MethodPost, containersPath(projectID), body, token, &app); err != nil {
		return Application{}, err
	}
	return app, nil
}

// GetContainer returns an application with its platform record.
func (c *Client) GetContainer(ctx context.Context, token string, ref Ref) (Application, error) {
	var app Application
	if err := c.do(ctx, http.MethodGet, ref.path(), nil, token, &app); err != nil {
		return Application{}, err
	}
	return app, nil
}

// DeleteContainer deletes an application.
func (c *Client) DeleteContainer(ctx context.Context, token string, ref Ref) error {
	return c.do(ctx, http.MethodDelete, ref.path(), nil, token, nil)
}

// ContainerLogs returns the current logs of an application.
func (c *Client) ContainerLogs(ctx context.Context, token string, ref Ref) (json.RawMessage, error) {
	var resp struct {
		Logs json.RawMessage `json:"logs"`
	}
	if err := c.do(ctx, http.MethodGet, ref.path()+"/logs", nil, token, &resp); err != nil {
		return nil, err
	}
	return resp.Logs, nil
}

// Ref addresses one application.
type Ref struct {
	ProjectID     string
	NamespaceID   string
	ApplicationID string
}

func (r Ref) path() string {
	return fmt.Sprintf("%s/namespaces/%s/applications/%s",
		containersPath(r.ProjectID), url.PathEscape(r.NamespaceID), url.PathEscape(r.ApplicationID))
}

func projectPath(projectID string) string {
	return "/projects/" + url.PathEscape(projectID)
}

func containersPath(projectID string) string {
	return projectPath(projectID) + "/services/containers"
}
