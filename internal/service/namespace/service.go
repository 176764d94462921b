package namespace

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/stuga-cloud/console/internal/domain"
	"github.com/stuga-cloud/console/internal/platform"
	"github.com/stuga-cloud/console/internal/repository"
	"github.com/stuga-cloud/console/internal/resolver"
	"github.com/stuga-cloud/console/internal/service/container"
	"github.com/stuga-cloud/console/internal/service/project"
)

// Platform is the subset of the platform client used for namespaces.
type Platform interface {
	GetApplication(ctx context.Context, id, userID string) (*platform.Application, error)
	FindNamespaceByName(ctx context.Context, name, userID string) (*platform.Namespace, error)
	CreateNamespace(ctx context.Context, body platform.CreateNamespaceBody) (*platform.Namespace, error)
}

// maxConcurrentLookups bounds the platform fan-out of a single Get.
const maxConcurrentLookups = 8

// Application pairs a local pointer with its platform record. Missing is set
// when the platform no longer knows the application.
type Application struct {
	project.Container
	Missing     bool                  `json:"missing"`
	Application *platform.Application `json:"application,omitempty"`
}

// Detail is a namespace with live platform records.
type Detail struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	IDInAPI      string        `json:"idInAPI,omitempty"`
	Applications []Application `json:"applications"`
}

// Service exposes namespace operations to project members.
type Service struct {
	resolver   resolver.Resolver
	namespaces repository.NamespaceRepository
	remote     Platform
	logger     *slog.Logger
}

// New constructs a namespace service.
func New(res resolver.Resolver, namespaces repository.NamespaceRepository, remote Platform, logger *slog.Logger) Service {
	return Service{resolver: res, namespaces: namespaces, remote: remote, logger: logger}
}

// List returns the namespaces of the project in stored order.
func (s Service) List(ctx context.Context, principal domain.Principal, projectID string) ([]project.Namespace, error) {
	p, err := s.resolver.Project(ctx, projectID, principal.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]project.Namespace, 0, len(p.ContainerNamespaces))
	for _, ns := range p.ContainerNamespaces {
		out = append(out, project.NamespaceView(ns))
	}
	return out, nil
}

// Default returns the first namespace of the project.
func (s Service) Default(ctx context.Context, principal domain.Principal, projectID string) (*project.Namespace, error) {
	p, err := s.resolver.Project(ctx, projectID, principal.UserID)
	if err != nil {
		return nil, err
	}
	if len(p.ContainerNamespaces) == 0 {
		return nil, domain.NotFound(domain.KindNamespace, "")
	}
	view := project.NamespaceView(p.ContainerNamespaces[0])
	return &view, nil
}

// Get returns the namespace with platform records fetched concurrently.
// Applications the platform no longer knows are flagged instead of failing
// the whole request.
func (s Service) Get(ctx context.Context, principal domain.Principal, projectID, namespaceID string) (*Detail, error) {
	handle, err := s.resolver.Namespace(ctx, projectID, namespaceID, principal.UserID)
	if err != nil {
		return nil, err
	}
	ns := handle.Namespace
	detail := &Detail{ID: ns.ID, Name: ns.Name, IDInAPI: ns.IDInAPI, Applications: make([]Application, len(ns.Containers))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i, c := range ns.Containers {
		detail.Applications[i].Container = project.Container{ID: c.ID, IDInAPI: c.IDInAPI, NamespaceID: c.NamespaceID, CreatedAt: c.CreatedAt}
		g.Go(func() error {
			app, err := s.remote.GetApplication(gctx, c.IDInAPI, principal.UserID)
			if err != nil {
				if domain.IsNotFound(err, "") {
					s.logger.Warn("application missing on platform",
						"project_id", handle.Project.ID, "namespace_id", ns.ID, "application_id", c.ID, "remote_id", c.IDInAPI)
					detail.Applications[i].Missing = true
					return nil
				}
				return err
			}
			detail.Applications[i].Application = app
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return detail, nil
}

// Create provisions a namespace on the platform and records it in the project.
func (s Service) Create(ctx context.Context, principal domain.Principal, projectID, name string) (*project.Namespace, error) {
	p, err := s.resolver.Project(ctx, projectID, principal.UserID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = container.NamespaceName(p.Name)
	}
	if !domain.ValidApplicationName(name) {
		return nil, &domain.ValidationError{Field: "name", Message: "must be a lowercase DNS label of at most 63 characters"}
	}
	for _, existing := range p.ContainerNamespaces {
		if existing.Name == name {
			return nil, &domain.ConflictError{Message: fmt.Sprintf("namespace %s already exists", name)}
		}
	}
	ns, err := container.ProvisionNamespace(ctx, s.remote, s.namespaces, principal, p, name)
	if err != nil {
		return nil, err
	}
	s.logger.Info("namespace created", "project_id", p.ID, "namespace_id", ns.ID, "user_id", principal.UserID)
	view := project.NamespaceView(*ns)
	return &view, nil
}
