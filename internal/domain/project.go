package domain

import "time"

// Project groups members and the container namespaces they share.
type Project struct {
	ID                  string
	Name                string
	CreatedBy           string
	CreatedAt           time.Time
	Members             []Member
	ContainerNamespaces []ContainerNamespace
}

// HasMember reports whether userID may act inside the project. The creator
// counts as a member even when no membership row exists.
func (p *Project) HasMember(userID string) bool {
	if p == nil || userID == "" {
		return false
	}
	if p.CreatedBy == userID {
		return true
	}
	for _, member := range p.Members {
		if member.ID == userID {
			return true
		}
	}
	return false
}

// RoleOf returns the effective role of userID, or "" when not a member.
func (p *Project) RoleOf(userID string) Role {
	if p == nil || userID == "" {
		return ""
	}
	if p.CreatedBy == userID {
		return RoleCreator
	}
	for _, member := range p.Members {
		if member.ID == userID {
			return member.Role
		}
	}
	return ""
}

// Namespace finds a namespace owned by the project.
func (p *Project) Namespace(namespaceID string) (*ContainerNamespace, bool) {
	if p == nil {
		return nil, false
	}
	for i := range p.ContainerNamespaces {
		if p.ContainerNamespaces[i].ID == namespaceID {
			return &p.ContainerNamespaces[i], true
		}
	}
	return nil, false
}
