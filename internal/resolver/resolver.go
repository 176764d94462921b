// Package resolver turns request identifiers into verified resource handles.
//
// Every lookup runs the same sequence: project existence, membership,
// namespace, container, then the platform record. Membership is proven
// before anything below the project is inspected so that non-members
// cannot learn whether a namespace or container exists.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stuga-cloud/console/internal/domain"
	"github.com/stuga-cloud/console/internal/platform"
	"github.com/stuga-cloud/console/internal/repository"
)

// ProjectLoader reads project aggregates.
type ProjectLoader interface {
	GetProjectAggregate(ctx context.Context, projectID string) (*domain.Project, error)
}

// ApplicationFinder looks up platform application records.
type ApplicationFinder interface {
	GetApplication(ctx context.Context, id, userID string) (*platform.Application, error)
}

// Request names what to resolve. NamespaceID and ApplicationID are optional;
// the deepest identifier given decides how far the chain is walked.
type Request struct {
	ProjectID     string
	UserID        string
	NamespaceID   string
	ApplicationID string

	stop depth
}

type depth int

const (
	depthInferred depth = iota
	depthProject
	depthNamespace
	depthApplication
)

func (req Request) target() depth {
	if req.stop != depthInferred {
		return req.stop
	}
	switch {
	case req.ApplicationID != "":
		return depthApplication
	case req.NamespaceID != "":
		return depthNamespace
	default:
		return depthProject
	}
}

// Handle is the verified result of a resolution.
type Handle struct {
	Project   *domain.Project
	Namespace *domain.ContainerNamespace
	Container *domain.ContainerApplication
	Remote    *platform.Application
}

// Resolver is a read-only authorization and lookup pipeline.
type Resolver struct {
	projects ProjectLoader
	remote   ApplicationFinder
}

// New constructs a Resolver.
func New(projects ProjectLoader, remote ApplicationFinder) Resolver {
	return Resolver{projects: projects, remote: remote}
}

// Resolve walks project, membership, namespace, container and platform record.
func (r Resolver) Resolve(ctx context.Context, req Request) (Handle, error) {
	projectID := strings.TrimSpace(req.ProjectID)
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return Handle{}, &domain.UnauthenticatedError{Op: "resolve"}
	}

	project, err := r.projects.GetProjectAggregate(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Handle{}, domain.NotFound(domain.KindProject, projectID)
		}
		return Handle{}, fmt.Errorf("load project %s: %w", projectID, err)
	}
	if !project.HasMember(userID) {
		return Handle{}, &domain.UnauthorizedError{UserID: userID, ProjectID: projectID}
	}
	handle := Handle{Project: project}

	want := req.target()
	if want == depthProject {
		return handle, nil
	}
	namespace, ok := project.Namespace(req.NamespaceID)
	if !ok {
		return Handle{}, domain.NotFound(domain.KindNamespace, req.NamespaceID)
	}
	handle.Namespace = namespace

	if want == depthNamespace {
		return handle, nil
	}
	container, ok := namespace.Container(req.ApplicationID)
	if !ok {
		return Handle{}, domain.NotFound(domain.KindContainer, req.ApplicationID)
	}
	handle.Container = container

	remote, err := r.remote.GetApplication(ctx, container.IDInAPI, userID)
	if err != nil {
		if domain.IsNotFound(err, "") {
			return Handle{}, domain.NotFound(domain.KindRemoteApplication, req.ApplicationID)
		}
		return Handle{}, err
	}
	handle.Remote = remote
	return handle, nil
}

// Project resolves only the project level.
func (r Resolver) Project(ctx context.Context, projectID, userID string) (*domain.Project, error) {
	handle, err := r.Resolve(ctx, Request{ProjectID: projectID, UserID: userID, stop: depthProject})
	if err != nil {
		return nil, err
	}
	return handle.Project, nil
}

// Namespace resolves down to a namespace without touching the platform.
func (r Resolver) Namespace(ctx context.Context, projectID, namespaceID, userID string) (Handle, error) {
	return r.Resolve(ctx, Request{ProjectID: projectID, UserID: userID, NamespaceID: namespaceID, stop: depthNamespace})
}

// Application resolves the full chain including the platform record.
func (r Resolver) Application(ctx context.Context, projectID, namespaceID, applicationID, userID string) (Handle, error) {
	return r.Resolve(ctx, Request{
		ProjectID:     projectID,
		UserID:        userID,
		NamespaceID:   namespaceID,
		ApplicationID: applicationID,
		stop:          depthApplication,
	})
}
