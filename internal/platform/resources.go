package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/stuga-cloud/console/internal/domain"
)

// Namespace is the platform's view of a container namespace.
type Namespace struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"userId,omitempty"`
}

// CreateNamespaceBody requests a new namespace for a user.
type CreateNamespaceBody struct {
	Name   string `json:"name"`
	UserID string `json:"userId"`
}

// Application is the platform record of a container application.
type Application struct {
	ID                        string                           `json:"id"`
	Name                      string                           `json:"name"`
	Image                     string                           `json:"image"`
	Port                      int                              `json:"port"`
	ApplicationType           domain.ApplicationType           `json:"applicationType"`
	Status                    string                           `json:"status,omitempty"`
	URL                       string                           `json:"url,omitempty"`
	NamespaceID               string                           `json:"namespaceId,omitempty"`
	AdministratorEmail        string                           `json:"administratorEmail,omitempty"`
	ContainerSpecifications   domain.ContainerSpecifications   `json:"containerSpecifications"`
	ScalabilitySpecifications domain.ScalabilitySpecifications `json:"scalabilitySpecifications"`
	EnvironmentVariables      []domain.NameValue               `json:"environmentVariables,omitempty"`
}

// FindNamespaceByName returns the first namespace with the given name.
func (c *Client) FindNamespaceByName(ctx context.Context, name, userID string) (*Namespace, error) {
	path := fmt.Sprintf("/namespaces?name=%s&userId=%s", url.QueryEscape(name), url.QueryEscape(userID))
	var resp struct {
		Namespaces []Namespace `json:"namespaces"`
	}
	meta := call{op: "find namespace", kind: domain.KindRemoteNamespace, id: name, userID: userID}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, meta); err != nil {
		return nil, err
	}
	if len(resp.Namespaces) == 0 {
		return nil, domain.NotFound(domain.KindRemoteNamespace, name)
	}
	ns := resp.Namespaces[0]
	return &ns, nil
}

// CreateNamespace provisions a namespace on the platform.
func (c *Client) CreateNamespace(ctx context.Context, body CreateNamespaceBody) (*Namespace, error) {
	var ns Namespace
	meta := call{op: "create namespace", kind: domain.KindRemoteNamespace, id: body.Name, userID: body.UserID}
	if err := c.do(ctx, http.MethodPost, "/namespaces", body, &ns, meta); err != nil {
		return nil, err
	}
	return &ns, nil
}

// GetApplication fetches an application record as seen by userID.
func (c *Client) GetApplication(ctx context.Context, id, userID string) (*Application, error) {
	path := withUser("/applications/"+url.PathEscape(id), userID)
	var app Application
	meta := call{op: "get application", kind: domain.KindRemoteApplication, id: id, userID: userID}
	if err := c.do(ctx, http.MethodGet, path, nil, &app, meta); err != nil {
		return nil, err
	}
	if app.ID == "" {
		app.ID = id
	}
	return &app, nil
}

// GetApplicationLogs returns the raw log payload stored by the platform.
func (c *Client) GetApplicationLogs(ctx context.Context, id, userID string) (json.RawMessage, error) {
	path := withUser("/applications/"+url.PathEscape(id)+"/logs", userID)
	var raw json.RawMessage
	meta := call{op: "get application logs", kind: domain.KindLogs, id: id, userID: userID}
	if err := c.do(ctx, http.MethodGet, path, nil, &raw, meta); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, domain.NotFound(domain.KindLogs, id)
	}
	return unwrapLogs(raw), nil
}

// unwrapLogs accepts both {"logs": ...} and a bare payload.
func unwrapLogs(raw json.RawMessage) json.RawMessage {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return raw
	}
	if inner, ok := envelope["logs"]; ok && len(envelope) == 1 {
		return inner
	}
	return raw
}

// CreateApplication submits a creation request.
func (c *Client) CreateApplication(ctx context.Context, body domain.CreateContainerApplicationBody) (*Application, error) {
	var app Application
	meta := call{op: "create application", kind: domain.KindRemoteNamespace, id: body.NamespaceID, userID: body.UserID}
	if err := c.do(ctx, http.MethodPost, "/applications", body, &app, meta); err != nil {
		return nil, err
	}
	if app.ID == "" {
		return nil, &domain.RemoteUnknownError{Op: meta.op, Err: fmt.Errorf("platform returned no application id")}
	}
	return &app, nil
}

// DeleteApplication removes an application from the platform.
func (c *Client) DeleteApplication(ctx context.Context, id, userID string) error {
	path := withUser("/applications/"+url.PathEscape(id), userID)
	meta := call{op: "delete application", kind: domain.KindRemoteApplication, id: id, userID: userID}
	return c.do(ctx, http.MethodDelete, path, nil, nil, meta)
}
