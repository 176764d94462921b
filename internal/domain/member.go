package domain

import (
	"strings"
	"time"
)

// Role is a member's permission level inside a project.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleCollaborator Role = "COLLABORATOR"
	// RoleCreator is never stored; it is derived from Project.CreatedBy.
	RoleCreator Role = "CREATOR"
)

// ParseRole normalizes a stored or user-supplied role.
func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(value))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleCollaborator:
		return RoleCollaborator, true
	default:
		return "", false
	}
}

// CanManageMembers reports whether the role may add or remove other members.
func (r Role) CanManageMembers() bool {
	return r == RoleAdmin || r == RoleCreator
}

// Member links a user to a project.
type Member struct {
	ID       string
	Role     Role
	Name     string
	Email    string
	Image    *string
	JoinedAt time.Time
}
