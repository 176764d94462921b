package member

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"github.com/stuga-cloud/console/internal/domain"
	"github.com/stuga-cloud/console/internal/repository"
	"github.com/stuga-cloud/console/internal/resolver"
	"github.com/stuga-cloud/console/internal/service/project"
)

// AddInput identifies the user to add by id or email.
type AddInput struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Service manages project membership.
type Service struct {
	resolver resolver.Resolver
	members  repository.MemberRepository
	users    repository.UserRepository
	projects project.Service
	logger   *slog.Logger
}

// New constructs a member service.
func New(res resolver.Resolver, members repository.MemberRepository, users repository.UserRepository, projects project.Service, logger *slog.Logger) Service {
	return Service{resolver: res, members: members, users: users, projects: projects, logger: logger}
}

const errManageMembers = "only the project creator or an admin can manage members"

// List returns the effective members, creator first.
func (s Service) List(ctx context.Context, principal domain.Principal, projectID string) ([]project.Member, error) {
	p, err := s.resolver.Project(ctx, projectID, principal.UserID)
	if err != nil {
		return nil, err
	}
	return s.projects.Members(ctx, p)
}

// Add grants a user a role in the project, updating the role of an
// existing member.
func (s Service) Add(ctx context.Context, principal domain.Principal, projectID string, input AddInput) (*project.Member, error) {
	p, err := s.resolver.Project(ctx, projectID, principal.UserID)
	if err != nil {
		return nil, err
	}
	if !p.RoleOf(principal.UserID).CanManageMembers() {
		return nil, &domain.UnauthorizedError{UserID: principal.UserID, ProjectID: p.ID, Reason: errManageMembers}
	}
	role, ok := domain.ParseRole(input.Role)
	if !ok {
		if strings.TrimSpace(input.Role) != "" {
			return nil, &domain.ValidationError{Field: "role", Message: "role must be ADMIN or COLLABORATOR"}
		}
		role = domain.RoleCollaborator
	}

	user, err := s.lookupUser(ctx, input)
	if err != nil {
		return nil, err
	}
	if user.ID == p.CreatedBy {
		return nil, &domain.ConflictError{Message: "the project creator is already a member"}
	}
	if err := s.members.AddMember(ctx, p.ID, user.ID, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound(domain.KindUser, user.ID)
		}
		return nil, fmt.Errorf("add member: %w", err)
	}
	s.logger.Info("project member added", "project_id", p.ID, "member_id", user.ID, "role", role, "user_id", principal.UserID)
	return &project.Member{ID: user.ID, Role: role, Name: user.Name, Email: user.Email, Image: user.Image}, nil
}

func (s Service) lookupUser(ctx context.Context, input AddInput) (*domain.User, error) {
	userID := strings.TrimSpace(input.UserID)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	var (
		user *domain.User
		err  error
		key  string
	)
	switch {
	case userID != "":
		key = userID
		user, err = s.users.GetUserByID(ctx, userID)
	case email != "":
		if !domain.ValidEmail(email) {
			return nil, &domain.ValidationError{Field: "email", Message: "invalid email address"}
		}
		key = email
		user, err = s.users.GetUserByEmail(ctx, email)
	default:
		return nil, &domain.ValidationError{Field: "userId", Message: "user id or email required"}
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound(domain.KindUser, key)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// Remove drops a member. Members may always leave; removing someone else
// requires the creator or an admin. The creator cannot be removed.
func (s Service) Remove(ctx context.Context, principal domain.Principal, projectID, memberID string) error {
	p, err := s.resolver.Project(ctx, projectID, principal.UserID)
	if err != nil {
		return err
	}
	memberID = strings.TrimSpace(memberID)
	if memberID == p.CreatedBy {
		return &domain.ConflictError{Message: "the project creator cannot be removed"}
	}
	if memberID != principal.UserID && !p.RoleOf(principal.UserID).CanManageMembers() {
		return &domain.UnauthorizedError{UserID: principal.UserID, ProjectID: p.ID, Reason: errManageMembers}
	}
	if !p.HasMember(memberID) {
		return domain.NotFound(domain.KindMember, memberID)
	}
	if err := s.members.RemoveMember(ctx, p.ID, memberID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFound(domain.KindMember, memberID)
		}
		return fmt.Errorf("remove member: %w", err)
	}
	s.logger.Info("project member removed", "project_id", p.ID, "member_id", memberID, "user_id", principal.UserID)
	return nil
}
