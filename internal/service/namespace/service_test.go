package namespace

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stuga-cloud/console/internal/domain"
	"github.com/stuga-cloud/console/internal/platform"
	"github.com/stuga-cloud/console/internal/repository"
	"github.com/stuga-cloud/console/internal/resolver"
)

type stubProjects map[string]domain.Project

func (s stubProjects) GetProjectAggregate(ctx context.Context, projectID string) (*domain.Project, error) {
	if p, ok := s[projectID]; ok {
		return &p, nil
	}
	return nil, repository.ErrNotFound
}

type stubNamespaces struct {
	created []domain.ContainerNamespace
}

func (s *stubNamespaces) CreateNamespace(ctx context.Context, ns *domain.ContainerNamespace) error {
	s.created = append(s.created, *ns)
	return nil
}

type stubPlatform struct {
	mu   sync.Mutex
	apps map[string]platform.Application
	err  error
	seen []string
}

func (s *stubPlatform) GetApplication(ctx context.Context, id, userID string) (*platform.Application, error) {
	s.mu.Lock()
	s.seen = append(s.seen, id)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	app, ok := s.apps[id]
	if !ok {
		return nil, domain.NotFound(domain.KindRemoteApplication, id)
	}
	return &app, nil
}

func (s *stubPlatform) FindNamespaceByName(ctx context.Context, name, userID string) (*platform.Namespace, error) {
	return nil, domain.NotFound(domain.KindRemoteNamespace, name)
}

func (s *stubPlatform) CreateNamespace(ctx context.Context, body platform.CreateNamespaceBody) (*platform.Namespace, error) {
	return &platform.Namespace{ID: "remote-" + body.Name, Name: body.Name}, nil
}

func fixture() (Service, *stubNamespaces, *stubPlatform) {
	projects := stubProjects{"proj-1": {
		ID:        "proj-1",
		Name:      "acme",
		CreatedBy: "owner",
		ContainerNamespaces: []domain.ContainerNamespace{
			{ID: "ns-1", Name: "acme", IDInAPI: "remote-ns-1", Containers: []domain.ContainerApplication{
				{ID: "app-1", IDInAPI: "r-1", NamespaceID: "ns-1"},
				{ID: "app-2", IDInAPI: "r-gone", NamespaceID: "ns-1"},
				{ID: "app-3", IDInAPI: "r-3", NamespaceID: "ns-1"},
			}},
			{ID: "ns-2", Name: "staging"},
		},
	}}
	remote := &stubPlatform{apps: map[string]platform.Application{
		"r-1": {ID: "r-1", Name: "web"},
		"r-3": {ID: "r-3", Name: "worker"},
	}}
	store := &stubNamespaces{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(resolver.New(projects, remote), store, remote, log), store, remote
}

func TestGetMarksDriftedApplications(t *testing.T) {
	svc, _, _ := fixture()

	detail, err := svc.Get(context.Background(), domain.Principal{UserID: "owner"}, "proj-1", "ns-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if len(detail.Applications) != 3 {
		t.Fatalf("expected 3 applications, got %d", len(detail.Applications))
	}
	if detail.Applications[0].Application.Name != "web" || detail.Applications[2].Application.Name != "worker" {
		t.Fatalf("order or records wrong: %+v", detail.Applications)
	}
	if !detail.Applications[1].Missing || detail.Applications[1].Application != nil {
		t.Fatalf("expected app-2 to be flagged missing: %+v", detail.Applications[1])
	}
}

func TestGetFailsOnPlatformErrors(t *testing.T) {
	svc, _, remote := fixture()
	remote.err = &domain.RemoteInternalError{Op: "get application", Message: "down"}

	_, err := svc.Get(context.Background(), domain.Principal{UserID: "owner"}, "proj-1", "ns-1")
	var internal *domain.RemoteInternalError
	if !errors.As(err, &internal) {
		t.Fatalf("expected RemoteInternalError, got %v", err)
	}
}

func TestGetRejectsNonMembersWithoutPlatformCalls(t *testing.T) {
	svc, _, remote := fixture()

	_, err := svc.Get(context.Background(), domain.Principal{UserID: "stranger"}, "proj-1", "ns-1")
	var unauthorized *domain.UnauthorizedError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected UnauthorizedError, got %v", err)
	}
	if len(remote.seen) != 0 {
		t.Fatalf("platform queried for non-member: %v", remote.seen)
	}
}

func TestListAndDefault(t *testing.T) {
	svc, _, _ := fixture()
	principal := domain.Principal{UserID: "owner"}

	list, err := svc.List(context.Background(), principal, "proj-1")
	if err != nil || len(list) != 2 || list[1].Name != "staging" {
		t.Fatalf("unexpected list %+v (%v)", list, err)
	}
	def, err := svc.Default(context.Background(), principal, "proj-1")
	if err != nil || def.ID != "ns-1" {
		t.Fatalf("unexpected default %+v (%v)", def, err)
	}
}

func TestCreate(t *testing.T) {
	svc, store, _ := fixture()
	principal := domain.Principal{UserID: "owner"}

	ns, err := svc.Create(context.Background(), principal, "proj-1", "prod")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if ns.Name != "prod" || ns.IDInAPI != "remote-prod" || len(store.created) != 1 {
		t.Fatalf("unexpected namespace %+v", ns)
	}

	var conflict *domain.ConflictError
	if _, err := svc.Create(context.Background(), principal, "proj-1", "staging"); !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	var validation *domain.ValidationError
	if _, err := svc.Create(context.Background(), principal, "proj-1", "Bad Name"); !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
