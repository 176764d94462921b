package container

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/stuga-cloud/console/internal/domain"
	"github.com/stuga-cloud/console/internal/platform"
	"github.com/stuga-cloud/console/internal/repository"
	"github.com/stuga-cloud/console/internal/resolver"
)

// Platform is the subset of the platform client used for applications.
type Platform interface {
	FindNamespaceByName(ctx context.Context, name, userID string) (*platform.Namespace, error)
	CreateNamespace(ctx context.Context, body platform.CreateNamespaceBody) (*platform.Namespace, error)
	CreateApplication(ctx context.Context, body domain.CreateContainerApplicationBody) (*platform.Application, error)
	GetApplicationLogs(ctx context.Context, id, userID string) (json.RawMessage, error)
	DeleteApplication(ctx context.Context, id, userID string) error
}

// Created is returned after a successful creation.
type Created struct {
	ID          string                `json:"id"`
	IDInAPI     string                `json:"idInAPI"`
	NamespaceID string                `json:"namespaceId"`
	Application *platform.Application `json:"application"`
}

// Detail is an application with its platform record.
type Detail struct {
	ID          string                `json:"id"`
	IDInAPI     string                `json:"idInAPI"`
	NamespaceID string                `json:"namespaceId"`
	CreatedAt   time.Time             `json:"createdAt"`
	Application *platform.Application `json:"application"`
}

// Service creates and operates container applications.
type Service struct {
	resolver   resolver.Resolver
	namespaces repository.NamespaceRepository
	containers repository.ContainerRepository
	remote     Platform
	logger     *slog.Logger
}

// New constructs a container service.
func New(res resolver.Resolver, namespaces repository.NamespaceRepository, containers repository.ContainerRepository, remote Platform, logger *slog.Logger) Service {
	return Service{resolver: res, namespaces: namespaces, containers: containers, remote: remote, logger: logger}
}

// Create validates the body, picks or provisions a namespace, creates the
// application on the platform and records the local pointer.
func (s Service) Create(ctx context.Context, principal domain.Principal, projectID string, body domain.CreateContainerApplicationBody) (*Created, error) {
	project, err := s.resolver.Project(ctx, projectID, principal.UserID)
	if err != nil {
		return nil, err
	}
	body.Name = strings.TrimSpace(body.Name)
	body.Image = strings.TrimSpace(body.Image)
	body.AdministratorEmail = strings.TrimSpace(body.AdministratorEmail)
	if err := body.Validate(); err != nil {
		return nil, err
	}

	namespace, err := s.pickNamespace(ctx, principal, project, strings.TrimSpace(body.NamespaceID))
	if err != nil {
		return nil, err
	}
	body.NamespaceID = namespace.IDInAPI
	body.UserID = principal.UserID

	app, err := s.remote.CreateApplication(ctx, body)
	if err != nil {
		return nil, err
	}
	record := &domain.ContainerApplication{
		ID:          uuid.NewString(),
		IDInAPI:     app.ID,
		NamespaceID: namespace.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.containers.CreateContainerApplication(ctx, record); err != nil {
		s.logger.Error("application created remotely but not recorded",
			"project_id", project.ID, "namespace_id", namespace.ID, "remote_id", app.ID, "error", err)
		return nil, fmt.Errorf("record container application: %w", err)
	}
	s.logger.Info("container application created",
		"project_id", project.ID, "namespace_id", namespace.ID, "application_id", record.ID, "user_id", principal.UserID)
	return &Created{ID: record.ID, IDInAPI: record.IDInAPI, NamespaceID: record.NamespaceID, Application: app}, nil
}

// pickNamespace returns the requested namespace, the project's first one, or
// a freshly provisioned namespace named after the project.
func (s Service) pickNamespace(ctx context.Context, principal domain.Principal, project *domain.Project, requested string) (*domain.ContainerNamespace, error) {
	if requested != "" {
		ns, ok := project.Namespace(requested)
		if !ok {
			return nil, domain.NotFound(domain.KindNamespace, requested)
		}
		return ns, nil
	}
	if len(project.ContainerNamespaces) > 0 {
		return &project.ContainerNamespaces[0], nil
	}
	return ProvisionNamespace(ctx, s.remote, s.namespaces, principal, project, NamespaceName(project.Name))
}

// Get returns the application and its platform record.
func (s Service) Get(ctx context.Context, principal domain.Principal, projectID, namespaceID, applicationID string) (*Detail, error) {
	handle, err := s.resolver.Application(ctx, projectID, namespaceID, applicationID, principal.UserID)
	if err != nil {
		return nil, err
	}
	return &Detail{
		ID:          handle.Container.ID,
		IDInAPI:     handle.Container.IDInAPI,
		NamespaceID: handle.Namespace.ID,
		CreatedAt:   handle.Container.CreatedAt,
		Application: handle.Remote,
	}, nil
}

// Logs returns the raw log payload kept by the platform.
func (s Service) Logs(ctx context.Context, principal domain.Principal, projectID, namespaceID, applicationID string) (json.RawMessage, error) {
	handle, err := s.resolver.Application(ctx, projectID, namespaceID, applicationID, principal.UserID)
	if err != nil {
		return nil, err
	}
	logs, err := s.remote.GetApplicationLogs(ctx, handle.Remote.ID, principal.UserID)
	if err != nil {
		if domain.IsNotFound(err, "") {
			return nil, domain.NotFound(domain.KindLogs, applicationID)
		}
		return nil, err
	}
	return logs, nil
}

// Delete removes the application from the platform and drops the local pointer.
// The platform record is not required: a pointer whose record is already gone
// is still removed.
func (s Service) Delete(ctx context.Context, principal domain.Principal, projectID, namespaceID, applicationID string) error {
	handle, err := s.resolver.Namespace(ctx, projectID, namespaceID, principal.UserID)
	if err != nil {
		return err
	}
	app, ok := handle.Namespace.Container(applicationID)
	if !ok {
		return domain.NotFound(domain.KindContainer, applicationID)
	}
	err = s.remote.DeleteApplication(ctx, app.IDInAPI, principal.UserID)
	switch {
	case domain.IsNotFound(err, ""):
		s.logger.Warn("platform record already gone", "project_id", handle.Project.ID, "application_id", app.ID, "id_in_api", app.IDInAPI)
	case err != nil:
		return err
	}
	if err := s.containers.DeleteContainerApplication(ctx, app.ID); err != nil {
		return fmt.Errorf("delete container record: %w", err)
	}
	s.logger.Info("container application deleted",
		"project_id", handle.Project.ID, "namespace_id", handle.Namespace.ID, "application_id", app.ID, "user_id", principal.UserID)
	return nil
}

// NamespaceCreator provisions namespaces on the platform.
type NamespaceCreator interface {
	FindNamespaceByName(ctx context.Context, name, userID string) (*platform.Namespace, error)
	CreateNamespace(ctx context.Context, body platform.CreateNamespaceBody) (*platform.Namespace, error)
}

// ProvisionNamespace records a namespace locally, reusing the user's platform
// namespace of the same name when one exists and creating it otherwise.
func ProvisionNamespace(ctx context.Context, remote NamespaceCreator, store repository.NamespaceRepository, principal domain.Principal, project *domain.Project, name string) (*domain.ContainerNamespace, error) {
	created, err := remote.FindNamespaceByName(ctx, name, principal.UserID)
	if domain.IsNotFound(err, domain.KindRemoteNamespace) {
		created, err = remote.CreateNamespace(ctx, platform.CreateNamespaceBody{Name: name, UserID: principal.UserID})
	}
	if err != nil {
		return nil, err
	}
	ns := &domain.ContainerNamespace{
		ID:        uuid.NewString(),
		ProjectID: project.ID,
		IDInAPI:   created.ID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.CreateNamespace(ctx, ns); err != nil {
		return nil, fmt.Errorf("record namespace: %w", err)
	}
	return ns, nil
}

// NamespaceName derives a DNS-safe namespace name from a project name.
func NamespaceName(projectName string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(projectName) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	name := strings.Trim(b.String(), "-")
	if len(name) > 63 {
		name = strings.TrimRight(name[:63], "-")
	}
	if name == "" {
		return "default"
	}
	return name
}
