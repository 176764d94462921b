package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stuga-cloud/console/internal/domain"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestValidatePortBoundaries(t *testing.T) {
	cases := []struct {
		port  *int
		valid bool
	}{
		{nil, true},
		{intPtr(0), false},
		{intPtr(1), true},
		{intPtr(65535), true},
		{intPtr(65536), false},
	}
	for _, tc := range cases {
		err := ValidatePort(tc.port)
		if (err == nil) != tc.valid {
			t.Fatalf("ValidatePort(%v) err=%v, want valid=%v", tc.port, err, tc.valid)
		}
	}
}

func TestValidatorsTreatNilAsValid(t *testing.T) {
	if ValidateName(nil) != nil || ValidateImage(nil) != nil || ValidateReplicas(nil) != nil ||
		ValidateThreshold(nil) != nil || ValidateEmail(nil) != nil {
		t.Fatal("expected untouched fields to be valid")
	}
	if ValidateName(strPtr("My App")) == nil {
		t.Fatal("expected uppercase name with space to be rejected")
	}
	if ValidateReplicas(intPtr(11)) == nil {
		t.Fatal("expected 11 replicas to be rejected")
	}
	if ValidateEmail(strPtr("ops@example")) == nil {
		t.Fatal("expected address without domain suffix to be rejected")
	}
	if ValidateImage(strPtr("  ")) == nil {
		t.Fatal("expected blank image to be rejected")
	}
}

func TestParseNumberStripsLeadingZeros(t *testing.T) {
	cases := map[string]int{"8080": 8080, "0080": 80, " 42 ": 42}
	for in, want := range cases {
		got, err := ParseNumber(in)
		if err != nil {
			t.Fatalf("ParseNumber(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseNumber(%q) = %d, want %d", in, got, want)
		}
	}
	for _, in := range []string{"", "000", "0", "8o", "-"} {
		if _, err := ParseNumber(in); err == nil {
			t.Fatalf("ParseNumber(%q): expected error", in)
		}
	}
}

func TestUnparsableInputMarksFieldInvalid(t *testing.T) {
	w := New("p1", "acme", nil)
	w.SetPort("abc")
	if _, ok := w.Errors()[FieldPort]; !ok {
		t.Fatal("expected port error after unparsable input")
	}
	w.SetPort("0080")
	if msg, ok := w.Errors()[FieldPort]; ok {
		t.Fatalf("unexpected port error %q", msg)
	}
	if got := w.Body().Port; got != 80 {
		t.Fatalf("expected port 80, got %d", got)
	}
}

func TestBodyCarriesEnteredValues(t *testing.T) {
	w := New("p1", "acme", Registries("https://hub.docker.com", ""))
	w.SetName("my-app")
	w.SetImage("nginx:1.27")
	w.SetPort("8080")
	if err := w.SetCPULimit(280); err != nil {
		t.Fatal(err)
	}
	if err := w.SetMemoryLimit(512); err != nil {
		t.Fatal(err)
	}
	w.SetReplicas("3")
	if w.ThresholdsVisible() {
		t.Fatal("thresholds should be hidden until autoscaling is enabled")
	}
	w.SetAutoscaling(true)
	w.SetCPUThreshold("75")
	i := w.AddEnv()
	if err := w.SetEnv(i, "LOG_LEVEL", "debug"); err != nil {
		t.Fatal(err)
	}
	j := w.AddSecret()
	if err := w.SetSecret(j, "DB_PASSWORD", "hunter2"); err != nil {
		t.Fatal(err)
	}
	w.SetAdministratorEmail("ops@acme.io")

	want := domain.CreateContainerApplicationBody{
		Name:            "my-app",
		Image:           "nginx:1.27",
		Port:            8080,
		ApplicationType: domain.LoadBalanced,
		ContainerSpecifications: domain.ContainerSpecifications{
			CPULimit:    domain.ResourceLimit{Value: 280, Unit: domain.UnitMilliCPU},
			MemoryLimit: domain.ResourceLimit{Value: 512, Unit: domain.UnitMB},
		},
		ScalabilitySpecifications: domain.ScalabilitySpecifications{
			Replicas:                       3,
			CPUUsagePercentageThreshold:    75,
			MemoryUsagePercentageThreshold: 80,
			IsAutoScaled:                   true,
		},
		EnvironmentVariables: []domain.NameValue{{Name: "LOG_LEVEL", Value: "debug"}},
		Secrets:              []domain.NameValue{{Name: "DB_PASSWORD", Value: "hunter2"}},
		AdministratorEmail:   "ops@acme.io",
	}
	if diff := cmp.Diff(want, w.Body()); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	if err := w.Body().Validate(); err != nil {
		t.Fatalf("expected assembled body to validate: %v", err)
	}
	if len(w.Errors()) != 0 {
		t.Fatalf("unexpected field errors: %v", w.Errors())
	}
}

func TestBodyKeepsValuesAsEntered(t *testing.T) {
	w := New("p1", "acme", nil)
	w.SetName(" my-app ")
	w.SetImage("nginx ")
	w.SetAdministratorEmail(" ops@acme.io")

	got := w.Body()
	if got.Name != " my-app " || got.Image != "nginx " || got.AdministratorEmail != " ops@acme.io" {
		t.Fatalf("body values were altered: %+v", got)
	}
}

func TestThresholdOfOnlyZerosIsInvalid(t *testing.T) {
	w := New("p1", "acme", nil)
	w.SetAutoscaling(true)
	w.SetCPUThreshold("000")
	if _, ok := w.Errors()[FieldCPUThreshold]; !ok {
		t.Fatal("expected threshold error for input of only zeros")
	}
}

func TestRemovePairs(t *testing.T) {
	w := New("p1", "acme", nil)
	for _, name := range []string{"A", "B", "C"} {
		if err := w.SetEnv(w.AddEnv(), name, "x"); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.RemoveEnv(1); err != nil {
		t.Fatal(err)
	}
	want := []domain.NameValue{{Name: "A", Value: "x"}, {Name: "C", Value: "x"}}
	if diff := cmp.Diff(want, w.Env()); diff != "" {
		t.Fatalf("env mismatch (-want +got):\n%s", diff)
	}
	if err := w.RemoveSecret(0); err == nil {
		t.Fatal("expected error removing from empty secrets")
	}
	if err := w.SetSecret(w.AddSecret(), "TOKEN", "s3cret"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]domain.NameValue{{Name: "TOKEN", Value: "s3cret"}}, w.Secrets()); diff != "" {
		t.Fatalf("secrets mismatch (-want +got):\n%s", diff)
	}
}

func TestPreviewURL(t *testing.T) {
	w := New("p1", "acme", nil)
	w.SetName("my-app")
	if got := w.PreviewURL("stuga.cloud"); got != "https://my-app.acme.stuga.cloud" {
		t.Fatalf("unexpected preview url %q", got)
	}
}

func TestTransitionClamps(t *testing.T) {
	steps := Steps(domain.LoadBalanced)
	if got := Transition(steps, 0, Previous()); got != 0 {
		t.Fatalf("previous from first: got %d", got)
	}
	last := len(steps) - 1
	if got := Transition(steps, last, Next()); got != last {
		t.Fatalf("next from last: got %d", got)
	}
	if got := Transition(steps, 2, JumpTo(99)); got != last {
		t.Fatalf("jump past end: got %d", got)
	}
	if got := Transition(steps, 2, JumpTo(-3)); got != 0 {
		t.Fatalf("jump before start: got %d", got)
	}
}

func TestSingleInstanceHidesScaling(t *testing.T) {
	want := []Step{StepName, StepImage, StepPort, StepType, StepLimits, StepEnvironmentVariables, StepSecrets, StepAdministrator}
	if diff := cmp.Diff(want, Steps(domain.SingleInstance)); diff != "" {
		t.Fatalf("steps mismatch (-want +got):\n%s", diff)
	}

	w := New("p1", "acme", nil)
	for w.Current() != StepScaling {
		w.Apply(Next())
	}
	w.Apply(Next())
	if w.Current() != StepEnvironmentVariables {
		t.Fatalf("expected environment variables step, got %s", w.Current())
	}
	if err := w.SetType(domain.SingleInstance); err != nil {
		t.Fatal(err)
	}
	if w.Current() != StepEnvironmentVariables {
		t.Fatalf("switching type moved the active step to %s", w.Current())
	}
	if w.Apply(Previous()) != StepLimits {
		t.Fatal("expected limits to precede environment variables for single instance")
	}
}

func TestRegistrySelection(t *testing.T) {
	w := New("p1", "acme", Registries("https://hub.docker.com", ""))
	if w.Registry().Name != RegistryDockerHub {
		t.Fatalf("expected docker hub by default, got %q", w.Registry().Name)
	}
	if notice := w.SelectRegistry(RegistryPrivate); notice != "" {
		t.Fatalf("unexpected notice %q", notice)
	}
	if w.Registry().URL != "missing private registry url!" {
		t.Fatalf("unexpected private url %q", w.Registry().URL)
	}
	if notice := w.SelectRegistry("quay"); notice != "Registry quay not found" {
		t.Fatalf("unexpected notice %q", notice)
	}
	if w.Registry().Name != RegistryDockerHub {
		t.Fatal("expected fallback to the first registry")
	}
}

func TestLimitLabels(t *testing.T) {
	cpu := CPUOptions()
	if cpu[0].Label != "70 mCPU (0.07 vCPU)" {
		t.Fatalf("unexpected cpu label %q", cpu[0].Label)
	}
	mem := MemoryOptions()
	if mem[0].Label != "128MiB" || mem[3].Label != "1GiB" {
		t.Fatalf("unexpected memory labels %q %q", mem[0].Label, mem[3].Label)
	}
}

type blockingCreator struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
	err     error
}

func (c *blockingCreator) CreateContainer(ctx context.Context, projectID string, body domain.CreateContainerApplicationBody) (string, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	close(c.started)
	<-c.release
	if c.err != nil {
		return "", c.err
	}
	return "app-1", nil
}

func TestSubmitGuardsAgainstDoubleSubmit(t *testing.T) {
	w := New("p1", "acme", nil)
	creator := &blockingCreator{started: make(chan struct{}), release: make(chan struct{})}

	type result struct {
		path string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		path, err := w.Submit(context.Background(), creator)
		done <- result{path, err}
	}()

	<-creator.started
	if !w.Submitting() {
		t.Fatal("expected submitting while the first call is in flight")
	}
	if _, err := w.Submit(context.Background(), creator); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}
	close(creator.release)

	res := <-done
	if res.err != nil {
		t.Fatalf("submit: %v", res.err)
	}
	if res.path != "/projects/p1/services/containers/app-1" {
		t.Fatalf("unexpected path %q", res.path)
	}
	if creator.calls != 1 {
		t.Fatalf("expected one create call, got %d", creator.calls)
	}
	if w.Submitting() {
		t.Fatal("expected submitting cleared")
	}
}

func TestSubmitFailureKeepsStep(t *testing.T) {
	w := New("p1", "acme", nil)
	w.Apply(JumpTo(len(w.Steps()) - 1))
	creator := &blockingCreator{started: make(chan struct{}), release: make(chan struct{}), err: errors.New("boom")}
	close(creator.release)

	if _, err := w.Submit(context.Background(), creator); err == nil {
		t.Fatal("expected error")
	}
	if !w.IsLast() {
		t.Fatal("expected to remain on the last step")
	}
	if w.Notice() != "Couldn't create application and namespace, try again or contact support" {
		t.Fatalf("unexpected notice %q", w.Notice())
	}
}
