package domain

import (
	"errors"
	"fmt"
)

// ResourceKind names the resource an error refers to.
type ResourceKind string

const (
	KindProject           ResourceKind = "project"
	KindNamespace         ResourceKind = "namespace"
	KindContainer         ResourceKind = "container"
	KindRemoteApplication ResourceKind = "remoteApplication"
	KindRemoteNamespace   ResourceKind = "remoteNamespace"
	KindLogs              ResourceKind = "logs"
	KindMember            ResourceKind = "member"
	KindUser              ResourceKind = "user"
)

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Kind ResourceKind
	ID   string
}

func (e *NotFoundError) Error() string {
	switch e.Kind {
	case KindRemoteApplication:
		return fmt.Sprintf("container %s not found in API", e.ID)
	case KindRemoteNamespace:
		return fmt.Sprintf("namespace %s not found in API", e.ID)
	case KindLogs:
		return fmt.Sprintf("logs not found for container %s in API", e.ID)
	}
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Kind)
	}
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// UnauthorizedError reports an authenticated caller lacking access. Remote is
// set when the platform, not project membership, denied the call. Reason is
// set when the caller is a member whose role does not permit the operation.
type UnauthorizedError struct {
	UserID    string
	ProjectID string
	Remote    bool
	Reason    string
}

func (e *UnauthorizedError) Error() string {
	switch {
	case e.Reason != "":
		return e.Reason
	case e.Remote:
		return fmt.Sprintf("user %s is not authorized by the platform", e.UserID)
	default:
		return fmt.Sprintf("user %s is not a member of project %s", e.UserID, e.ProjectID)
	}
}

// UnauthenticatedError reports a missing session, or for Remote=true a
// platform rejection of the console's own credentials.
type UnauthenticatedError struct {
	Op     string
	Remote bool
}

func (e *UnauthenticatedError) Error() string {
	if e.Remote {
		return fmt.Sprintf("%s: platform rejected console credentials", e.Op)
	}
	return "authentication required"
}

// RemoteInternalError carries a 500 reported by the platform.
type RemoteInternalError struct {
	Op      string
	Message string
}

func (e *RemoteInternalError) Error() string {
	return fmt.Sprintf("%s: platform error: %s", e.Op, e.Message)
}

// RemoteUnknownError wraps any other platform or transport failure.
type RemoteUnknownError struct {
	Op  string
	Err error
}

func (e *RemoteUnknownError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteUnknownError) Unwrap() error { return e.Err }

// ValidationError reports invalid caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConflictError reports a request that contradicts current state.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// NotFound builds a NotFoundError.
func NotFound(kind ResourceKind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsNotFound reports whether err is a NotFoundError of the given kind. An
// empty kind matches any.
func IsNotFound(err error, kind ResourceKind) bool {
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		return false
	}
	return kind == "" || nf.Kind == kind
}
