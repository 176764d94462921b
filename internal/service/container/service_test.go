package container

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
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

type stubStore struct {
	namespaces []domain.ContainerNamespace
	containers []domain.ContainerApplication
	deleted    []string
}

func (s *stubStore) CreateNamespace(ctx context.Context, ns *domain.ContainerNamespace) error {
	s.namespaces = append(s.namespaces, *ns)
	return nil
}

func (s *stubStore) CreateContainerApplication(ctx context.Context, app *domain.ContainerApplication) error {
	s.containers = append(s.containers, *app)
	return nil
}

func (s *stubStore) DeleteContainerApplication(ctx context.Context, applicationID string) error {
	s.deleted = append(s.deleted, applicationID)
	return nil
}

type stubPlatform struct {
	apps            map[string]platform.Application
	logs            map[string]json.RawMessage
	createdBodies   []domain.CreateContainerApplicationBody
	namespaceBodies []platform.CreateNamespaceBody
	existing        map[string]platform.Namespace
	deleted         []string
	createErr       error
}

func (s *stubPlatform) GetApplication(ctx context.Context, id, userID string) (*platform.Application, error) {
	app, ok := s.apps[id]
	if !ok {
		return nil, domain.NotFound(domain.KindRemoteApplication, id)
	}
	return &app, nil
}

func (s *stubPlatform) FindNamespaceByName(ctx context.Context, name, userID string) (*platform.Namespace, error) {
	ns, ok := s.existing[name]
	if !ok {
		return nil, domain.NotFound(domain.KindRemoteNamespace, name)
	}
	return &ns, nil
}

func (s *stubPlatform) CreateNamespace(ctx context.Context, body platform.CreateNamespaceBody) (*platform.Namespace, error) {
	s.namespaceBodies = append(s.namespaceBodies, body)
	return &platform.Namespace{ID: "remote-ns-new", Name: body.Name}, nil
}

func (s *stubPlatform) CreateApplication(ctx context.Context, body domain.CreateContainerApplicationBody) (*platform.Application, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.createdBodies = append(s.createdBodies, body)
	return &platform.Application{ID: "remote-app-new", Name: body.Name}, nil
}

func (s *stubPlatform) GetApplicationLogs(ctx context.Context, id, userID string) (json.RawMessage, error) {
	logs, ok := s.logs[id]
	if !ok {
		return nil, domain.NotFound(domain.KindLogs, id)
	}
	return logs, nil
}

func (s *stubPlatform) DeleteApplication(ctx context.Context, id, userID string) error {
	s.deleted = append(s.deleted, id)
	if _, ok := s.apps[id]; !ok {
		return domain.NotFound(domain.KindRemoteApplication, id)
	}
	return nil
}

func fixture(namespaces ...domain.ContainerNamespace) (Service, *stubStore, *stubPlatform) {
	projects := stubProjects{"proj-1": {
		ID:                  "proj-1",
		Name:                "Acme Corp",
		CreatedBy:           "owner",
		Members:             []domain.Member{{ID: "dev", Role: domain.RoleCollaborator}},
		ContainerNamespaces: namespaces,
	}}
	store := &stubStore{}
	remote := &stubPlatform{
		apps: map[string]platform.Application{"remote-1": {ID: "remote-1", Name: "web"}},
		logs: map[string]json.RawMessage{"remote-1": json.RawMessage(`["line 1","line 2"]`)},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(resolver.New(projects, remote), store, store, remote, log)
	return svc, store, remote
}

func body() domain.CreateContainerApplicationBody {
	return domain.CreateContainerApplicationBody{
		Name:            "web",
		Image:           "nginx:1.27",
		Port:            80,
		ApplicationType: domain.SingleInstance,
		ContainerSpecifications: domain.ContainerSpecifications{
			CPULimit:    domain.ResourceLimit{Value: 140, Unit: domain.UnitMilliCPU},
			MemoryLimit: domain.ResourceLimit{Value: 256, Unit: domain.UnitMB},
		},
		UserID: "spoofed",
	}
}

func TestCreateProvisionsNamespaceWhenProjectHasNone(t *testing.T) {
	svc, store, remote := fixture()

	created, err := svc.Create(context.Background(), domain.Principal{UserID: "dev"}, "proj-1", body())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(remote.namespaceBodies) != 1 || remote.namespaceBodies[0].Name != "acme-corp" {
		t.Fatalf("expected namespace acme-corp to be provisioned, got %+v", remote.namespaceBodies)
	}
	if len(store.namespaces) != 1 || store.namespaces[0].IDInAPI != "remote-ns-new" {
		t.Fatalf("expected namespace to be recorded, got %+v", store.namespaces)
	}
	sent := remote.createdBodies[0]
	if sent.NamespaceID != "remote-ns-new" || sent.UserID != "dev" {
		t.Fatalf("body not stamped with namespace and caller: %+v", sent)
	}
	if len(store.containers) != 1 || store.containers[0].IDInAPI != "remote-app-new" || store.containers[0].NamespaceID != store.namespaces[0].ID {
		t.Fatalf("unexpected container record %+v", store.containers)
	}
	if created.ID != store.containers[0].ID {
		t.Fatalf("expected created id %s, got %s", store.containers[0].ID, created.ID)
	}
}

func TestCreateAdoptsExistingPlatformNamespace(t *testing.T) {
	svc, store, remote := fixture()
	remote.existing = map[string]platform.Namespace{"acme-corp": {ID: "remote-ns-old", Name: "acme-corp"}}

	if _, err := svc.Create(context.Background(), domain.Principal{UserID: "dev"}, "proj-1", body()); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(remote.namespaceBodies) != 0 {
		t.Fatalf("expected no namespace creation, got %+v", remote.namespaceBodies)
	}
	if len(store.namespaces) != 1 || store.namespaces[0].IDInAPI != "remote-ns-old" {
		t.Fatalf("expected existing namespace to be recorded, got %+v", store.namespaces)
	}
	if remote.createdBodies[0].NamespaceID != "remote-ns-old" {
		t.Fatalf("expected body to target remote-ns-old, got %s", remote.createdBodies[0].NamespaceID)
	}
}

func TestCreateTrimsEnteredValues(t *testing.T) {
	svc, _, remote := fixture(domain.ContainerNamespace{ID: "ns-1", IDInAPI: "remote-ns-1"})
	b := body()
	b.Name, b.Image, b.AdministratorEmail = " web ", "nginx:1.27 ", " ops@acme.io"

	if _, err := svc.Create(context.Background(), domain.Principal{UserID: "dev"}, "proj-1", b); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	sent := remote.createdBodies[0]
	if sent.Name != "web" || sent.Image != "nginx:1.27" || sent.AdministratorEmail != "ops@acme.io" {
		t.Fatalf("expected trimmed values, got %+v", sent)
	}
}

func TestCreateUsesRequestedNamespace(t *testing.T) {
	svc, store, remote := fixture(
		domain.ContainerNamespace{ID: "ns-1", IDInAPI: "remote-ns-1"},
		domain.ContainerNamespace{ID: "ns-2", IDInAPI: "remote-ns-2"},
	)
	b := body()
	b.NamespaceID = "ns-2"

	if _, err := svc.Create(context.Background(), domain.Principal{UserID: "owner"}, "proj-1", b); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(remote.namespaceBodies) != 0 {
		t.Fatalf("no namespace should be provisioned")
	}
	if remote.createdBodies[0].NamespaceID != "remote-ns-2" || store.containers[0].NamespaceID != "ns-2" {
		t.Fatalf("requested namespace not used: %+v %+v", remote.createdBodies[0], store.containers[0])
	}

	b.NamespaceID = "ns-x"
	if _, err := svc.Create(context.Background(), domain.Principal{UserID: "owner"}, "proj-1", b); !domain.IsNotFound(err, domain.KindNamespace) {
		t.Fatalf("expected namespace not found, got %v", err)
	}
}

func TestCreateChecksMembershipBeforeValidation(t *testing.T) {
	svc, _, remote := fixture()
	b := body()
	b.Port = 0

	_, err := svc.Create(context.Background(), domain.Principal{UserID: "stranger"}, "proj-1", b)
	var unauthorized *domain.UnauthorizedError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected UnauthorizedError, got %v", err)
	}
	_, err = svc.Create(context.Background(), domain.Principal{UserID: "dev"}, "proj-1", b)
	var validation *domain.ValidationError
	if !errors.As(err, &validation) || validation.Field != "port" {
		t.Fatalf("expected port validation error, got %v", err)
	}
	if len(remote.createdBodies) != 0 {
		t.Fatalf("platform must not be called")
	}
}

func TestCreateDoesNotRecordOnRemoteFailure(t *testing.T) {
	svc, store, remote := fixture(domain.ContainerNamespace{ID: "ns-1", IDInAPI: "remote-ns-1"})
	remote.createErr = &domain.RemoteInternalError{Op: "create application", Message: "quota"}

	if _, err := svc.Create(context.Background(), domain.Principal{UserID: "dev"}, "proj-1", body()); err == nil {
		t.Fatalf("expected error")
	}
	if len(store.containers) != 0 {
		t.Fatalf("nothing may be recorded after a failed remote call")
	}
}

func TestLogsAndDelete(t *testing.T) {
	svc, store, remote := fixture(domain.ContainerNamespace{
		ID:         "ns-1",
		IDInAPI:    "remote-ns-1",
		Containers: []domain.ContainerApplication{{ID: "app-1", IDInAPI: "remote-1", NamespaceID: "ns-1"}},
	})
	principal := domain.Principal{UserID: "dev"}

	logs, err := svc.Logs(context.Background(), principal, "proj-1", "ns-1", "app-1")
	if err != nil {
		t.Fatalf("Logs returned error: %v", err)
	}
	if string(logs) != `["line 1","line 2"]` {
		t.Fatalf("unexpected logs %s", logs)
	}

	detail, err := svc.Get(context.Background(), principal, "proj-1", "ns-1", "app-1")
	if err != nil || detail.Application.Name != "web" {
		t.Fatalf("unexpected detail %+v (%v)", detail, err)
	}

	if err := svc.Delete(context.Background(), principal, "proj-1", "ns-1", "app-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(remote.deleted) != 1 || remote.deleted[0] != "remote-1" || len(store.deleted) != 1 || store.deleted[0] != "app-1" {
		t.Fatalf("unexpected deletions remote=%v local=%v", remote.deleted, store.deleted)
	}
}

func TestDeleteRemovesDriftedPointer(t *testing.T) {
	svc, store, remote := fixture(domain.ContainerNamespace{
		ID:         "ns-1",
		IDInAPI:    "remote-ns-1",
		Containers: []domain.ContainerApplication{{ID: "app-2", IDInAPI: "remote-gone", NamespaceID: "ns-1"}},
	})

	if err := svc.Delete(context.Background(), domain.Principal{UserID: "dev"}, "proj-1", "ns-1", "app-2"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if len(remote.deleted) != 1 || remote.deleted[0] != "remote-gone" {
		t.Fatalf("expected platform delete attempt, got %v", remote.deleted)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "app-2" {
		t.Fatalf("expected local pointer removed, got %v", store.deleted)
	}
}

func TestDeleteChecksMembershipAndContainer(t *testing.T) {
	svc, store, remote := fixture(domain.ContainerNamespace{
		ID:         "ns-1",
		Containers: []domain.ContainerApplication{{ID: "app-1", IDInAPI: "remote-1", NamespaceID: "ns-1"}},
	})

	err := svc.Delete(context.Background(), domain.Principal{UserID: "eve"}, "proj-1", "ns-1", "app-1")
	var unauthorized *domain.UnauthorizedError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected unauthorized for non-member, got %v", err)
	}
	err = svc.Delete(context.Background(), domain.Principal{UserID: "dev"}, "proj-1", "ns-1", "app-9")
	if !domain.IsNotFound(err, domain.KindContainer) {
		t.Fatalf("expected container not found, got %v", err)
	}
	if len(remote.deleted) != 0 || len(store.deleted) != 0 {
		t.Fatalf("nothing may be deleted, remote=%v local=%v", remote.deleted, store.deleted)
	}
}

func TestNamespaceName(t *testing.T) {
	cases := map[string]string{
		"Acme Corp":   "acme-corp",
		"--My__App--": "my-app",
		"!!!":         "default",
	}
	for in, want := range cases {
		if got := NamespaceName(in); got != want {
			t.Fatalf("NamespaceName(%q) = %q, want %q", in, got, want)
		}
	}
}
