package repository

import (
	"context"

	"github.com/stuga-cloud/console/internal/domain"
)

// UserRepository reads console accounts.
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// ProjectRepository loads project aggregates.
type ProjectRepository interface {
	// GetProjectAggregate returns the project with members and namespaces
	// (each with its containers) in a single logical read.
	GetProjectAggregate(ctx context.Context, projectID string) (*domain.Project, error)
	ListProjectsByMember(ctx context.Context, userID string) ([]domain.Project, error)
}

// MemberRepository manages project memberships.
type MemberRepository interface {
	AddMember(ctx context.Context, projectID string, userID string, role domain.Role) error
	RemoveMember(ctx context.Context, projectID, userID string) error
}

// NamespaceRepository persists container namespaces.
type NamespaceRepository interface {
	CreateNamespace(ctx context.Context, namespace *domain.ContainerNamespace) error
}

// ContainerRepository persists local pointers to remote applications.
type ContainerRepository interface {
	CreateContainerApplication(ctx context.Context, app *domain.ContainerApplication) error
	DeleteContainerApplication(ctx context.Context, applicationID string) error
}
