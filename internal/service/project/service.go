package project

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"log/slog"

	"github.com/stuga-cloud/console/internal/domain"
	"github.com/stuga-cloud/console/internal/repository"
	"github.com/stuga-cloud/console/internal/resolver"
)

// Member is a project member as shown to other members.
type Member struct {
	ID       string      `json:"id"`
	Role     domain.Role `json:"role"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Image    *string     `json:"image,omitempty"`
	JoinedAt *time.Time  `json:"joinedAt,omitempty"`
}

// Container is the local pointer to a platform application.
type Container struct {
	ID          string    `json:"id"`
	IDInAPI     string    `json:"idInAPI"`
	NamespaceID string    `json:"namespaceId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Namespace lists the containers of one namespace.
type Namespace struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	IDInAPI    string      `json:"idInAPI,omitempty"`
	Containers []Container `json:"containers"`
}

// View is the project as returned to a member.
type View struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	CreatedBy           string      `json:"createdBy"`
	CreatedAt           time.Time   `json:"createdAt"`
	Role                domain.Role `json:"role"`
	Members             []Member    `json:"members"`
	ContainerNamespaces []Namespace `json:"containerNamespaces"`
}

// Summary is a row of the project list.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service exposes project reads to members.
type Service struct {
	resolver resolver.Resolver
	projects repository.ProjectRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

// New returns a project service.
func New(res resolver.Resolver, projects repository.ProjectRepository, users repository.UserRepository, logger *slog.Logger) Service {
	return Service{resolver: res, projects: projects, users: users, logger: logger}
}

var errMissingProjectID = &domain.ValidationError{Field: "project", Message: "project id required"}

// Get returns the project with members and namespaces after proving membership.
func (s Service) Get(ctx context.Context, principal domain.Principal, projectID string) (*View, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errMissingProjectID
	}
	project, err := s.resolver.Project(ctx, projectID, principal.UserID)
	if err != nil {
		return nil, err
	}
	members, err := s.Members(ctx, project)
	if err != nil {
		return nil, err
	}
	view := &View{
		ID:                  project.ID,
		Name:                project.Name,
		CreatedBy:           project.CreatedBy,
		CreatedAt:           project.CreatedAt,
		Role:                project.RoleOf(principal.UserID),
		Members:             members,
		ContainerNamespaces: make([]Namespace, 0, len(project.ContainerNamespaces)),
	}
	for _, ns := range project.ContainerNamespaces {
		view.ContainerNamespaces = append(view.ContainerNamespaces, NamespaceView(ns))
	}
	return view, nil
}

// Members lists the effective members of a resolved project. The creator is
// reported with the derived CREATOR role whether or not a membership row exists.
func (s Service) Members(ctx context.Context, project *domain.Project) ([]Member, error) {
	members := make([]Member, 0, len(project.Members)+1)
	creatorListed := false
	for _, m := range project.Members {
		joined := m.JoinedAt
		member := Member{ID: m.ID, Role: m.Role, Name: m.Name, Email: m.Email, Image: m.Image, JoinedAt: &joined}
		if m.ID == project.CreatedBy {
			member.Role = domain.RoleCreator
			creatorListed = true
		}
		members = append(members, member)
	}
	if !creatorListed && project.CreatedBy != "" {
		creator := Member{ID: project.CreatedBy, Role: domain.RoleCreator}
		user, err := s.users.GetUserByID(ctx, project.CreatedBy)
		switch {
		case err == nil:
			creator.Name, creator.Email, creator.Image = user.Name, user.Email, user.Image
		case errors.Is(err, repository.ErrNotFound):
			if s.logger != nil {
				s.logger.Warn("project creator missing", "project_id", project.ID, "user_id", project.CreatedBy)
			}
		default:
			return nil, fmt.Errorf("load project creator: %w", err)
		}
		members = append([]Member{creator}, members...)
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Role == domain.RoleCreator && members[j].Role != domain.RoleCreator
	})
	return members, nil
}

// ListForUser returns the projects the user created or belongs to.
func (s Service) ListForUser(ctx context.Context, principal domain.Principal) ([]Summary, error) {
	if strings.TrimSpace(principal.UserID) == "" {
		return nil, &domain.UnauthenticatedError{Op: "list projects"}
	}
	projects, err := s.projects.ListProjectsByMember(ctx, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	out := make([]Summary, 0, len(projects))
	for _, p := range projects {
		out = append(out, Summary{ID: p.ID, Name: p.Name, CreatedBy: p.CreatedBy, CreatedAt: p.CreatedAt})
	}
	return out, nil
}

// NamespaceView converts a namespace record for responses.
func NamespaceView(ns domain.ContainerNamespace) Namespace {
	view := Namespace{ID: ns.ID, Name: ns.Name, IDInAPI: ns.IDInAPI, Containers: make([]Container, 0, len(ns.Containers))}
	for _, c := range ns.Containers {
		view.Containers = append(view.Containers, Container{ID: c.ID, IDInAPI: c.IDInAPI, NamespaceID: c.NamespaceID, CreatedAt: c.CreatedAt})
	}
	return view
}
