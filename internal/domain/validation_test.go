package domain

import (
	"errors"
	"testing"
)

func validBody() CreateContainerApplicationBody {
	return CreateContainerApplicationBody{
		Name:            "my-app",
		Image:           "nginx",
		Port:            8080,
		ApplicationType: LoadBalanced,
		ContainerSpecifications: ContainerSpecifications{
			CPULimit:    ResourceLimit{Value: 70, Unit: UnitMilliCPU},
			MemoryLimit: ResourceLimit{Value: 1, Unit: UnitGB},
		},
		AdministratorEmail: "ops@acme.io",
	}
}

func TestValidateAcceptsWellFormedBody(t *testing.T) {
	if err := validBody().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsFields(t *testing.T) {
	cases := map[string]func(*CreateContainerApplicationBody){
		"name":                                func(b *CreateContainerApplicationBody) { b.Name = "My_App" },
		"image":                               func(b *CreateContainerApplicationBody) { b.Image = "NGINX::" },
		"port":                                func(b *CreateContainerApplicationBody) { b.Port = 65536 },
		"applicationType":                     func(b *CreateContainerApplicationBody) { b.ApplicationType = "CLUSTER" },
		"containerSpecifications.cpuLimit":    func(b *CreateContainerApplicationBody) { b.ContainerSpecifications.CPULimit.Value = 100 },
		"containerSpecifications.memoryLimit": func(b *CreateContainerApplicationBody) { b.ContainerSpecifications.MemoryLimit.Unit = "TB" },
		"administratorEmail":                  func(b *CreateContainerApplicationBody) { b.AdministratorEmail = "not-an-email" },
		"secrets":                             func(b *CreateContainerApplicationBody) { b.Secrets = []NameValue{{Value: "x"}} },
	}
	for field, mutate := range cases {
		body := validBody()
		mutate(&body)
		var validation *ValidationError
		if err := body.Validate(); !errors.As(err, &validation) || validation.Field != field {
			t.Fatalf("%s: expected validation error on field, got %v", field, err)
		}
	}
}

func TestNormalizeImage(t *testing.T) {
	got, err := NormalizeImage("nginx")
	if err != nil || got != "nginx:latest" {
		t.Fatalf("expected nginx:latest, got %q (%v)", got, err)
	}
	got, err = NormalizeImage("ghcr.io/acme/api:1.2")
	if err != nil || got != "ghcr.io/acme/api:1.2" {
		t.Fatalf("unexpected normalization %q (%v)", got, err)
	}
}

func TestProjectMembership(t *testing.T) {
	p := &Project{CreatedBy: "owner", Members: []Member{{ID: "a", Role: RoleAdmin}}}
	if !p.HasMember("owner") || p.RoleOf("owner") != RoleCreator {
		t.Fatalf("creator must be an implicit member")
	}
	if !p.HasMember("a") || !p.RoleOf("a").CanManageMembers() {
		t.Fatalf("admin must manage members")
	}
	if p.HasMember("b") || p.RoleOf("b") != "" {
		t.Fatalf("stranger must not be a member")
	}
}
