package wizard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/stuga-cloud/console/internal/domain"
)

// Field names used in validation reports.
const (
	FieldName            = "name"
	FieldImage           = "image"
	FieldPort            = "port"
	FieldReplicas        = "replicas"
	FieldCPUThreshold    = "cpuUsagePercentageThreshold"
	FieldMemoryThreshold = "memoryUsagePercentageThreshold"
	FieldEmail           = "administratorEmail"
)

const (
	defaultReplicas  = 1
	defaultThreshold = 80
)

// ErrSubmitInFlight is returned when a submission is already running.
var ErrSubmitInFlight = errors.New("a submission is already in progress")

// Creator sends the assembled body and returns the new application id.
type Creator interface {
	CreateContainer(ctx context.Context, projectID string, body domain.CreateContainerApplicationBody) (string, error)
}

// Wizard holds the accumulated form state. It is safe for concurrent use so
// that a repeated submit cannot race the one in flight.
type Wizard struct {
	mu sync.Mutex

	projectID   string
	projectName string

	current    int
	submitting bool
	notice     string

	name            *string
	registry        Registry
	registries      []Registry
	image           *string
	port            *int
	appType         domain.ApplicationType
	cpuLimit        int
	memoryLimit     int
	replicas        *int
	cpuThreshold    *int
	memoryThreshold *int
	autoscaling     bool
	env             []domain.NameValue
	secrets         []domain.NameValue
	adminEmail      *string

	parseErrors map[string]error
}

// New starts a wizard for a project with form defaults applied.
func New(projectID, projectName string, registries []Registry) *Wizard {
	replicas, cpu, mem := defaultReplicas, defaultThreshold, defaultThreshold
	w := &Wizard{
		projectID:       projectID,
		projectName:     projectName,
		registries:      registries,
		appType:         domain.LoadBalanced,
		cpuLimit:        domain.CPULimitOptions[0],
		memoryLimit:     domain.MemoryLimitOptions[0],
		replicas:        &replicas,
		cpuThreshold:    &cpu,
		memoryThreshold: &mem,
		parseErrors:     make(map[string]error),
	}
	if len(registries) > 0 {
		w.registry = registries[0]
	}
	return w
}

// Steps returns the currently visible steps.
func (w *Wizard) Steps() []Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Steps(w.appType)
}

// Current returns the active step.
func (w *Wizard) Current() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Steps(w.appType)[w.current]
}

// Index returns the position of the active step.
func (w *Wizard) Index() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Apply performs a navigation action.
func (w *Wizard) Apply(action Action) Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	steps := Steps(w.appType)
	w.current = Transition(steps, w.current, action)
	return steps[w.current]
}

// IsLast reports whether the active step is the submission step.
func (w *Wizard) IsLast() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current == len(Steps(w.appType))-1
}

// SetName sets the application name.
func (w *Wizard) SetName(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.name = &name
}

// PreviewURL composes the address shown next to the name field.
func (w *Wizard) PreviewURL(baseDomain string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	name := ""
	if w.name != nil {
		name = *w.name
	}
	return PreviewURL(name, w.projectName, baseDomain)
}

// SelectRegistry picks a registry by name and returns a notice when the name
// was unknown.
func (w *Wizard) SelectRegistry(name string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	registry, notice := FindRegistry(w.registries, name)
	w.registry = registry
	return notice
}

// Registry returns the selected registry.
func (w *Wizard) Registry() Registry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.registry
}

// SetImage sets the image reference.
func (w *Wizard) SetImage(image string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.image = &image
}

// SetPort parses and stores the port.
func (w *Wizard) SetPort(input string) {
	w.setNumber(FieldPort, input, &w.port)
}

// SetType changes the application type. The active step is clamped to the
// new step list.
func (w *Wizard) SetType(appType domain.ApplicationType) error {
	if !appType.Valid() {
		return fmt.Errorf("unknown application type %q", appType)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	before := Steps(w.appType)[w.current]
	w.appType = appType
	steps := Steps(appType)
	w.current = clamp(w.current, 0, len(steps)-1)
	for i, s := range steps {
		if s == before {
			w.current = i
			break
		}
	}
	return nil
}

// SetCPULimit selects a CPU option in mCPU.
func (w *Wizard) SetCPULimit(value int) error {
	if !slices.Contains(domain.CPULimitOptions, value) {
		return fmt.Errorf("unsupported cpu limit %d", value)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cpuLimit = value
	return nil
}

// SetMemoryLimit selects a memory option in MB.
func (w *Wizard) SetMemoryLimit(value int) error {
	if !slices.Contains(domain.MemoryLimitOptions, value) {
		return fmt.Errorf("unsupported memory limit %d", value)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.memoryLimit = value
	return nil
}

// SetReplicas parses and stores the replica count.
func (w *Wizard) SetReplicas(input string) {
	w.setNumber(FieldReplicas, input, &w.replicas)
}

// SetAutoscaling toggles autoscaling; thresholds only matter when enabled.
func (w *Wizard) SetAutoscaling(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.autoscaling = enabled
}

// ThresholdsVisible reports whether threshold fields are shown.
func (w *Wizard) ThresholdsVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.autoscaling
}

// SetCPUThreshold parses and stores the CPU usage threshold.
func (w *Wizard) SetCPUThreshold(input string) {
	w.setNumber(FieldCPUThreshold, input, &w.cpuThreshold)
}

// SetMemoryThreshold parses and stores the memory usage threshold.
func (w *Wizard) SetMemoryThreshold(input string) {
	w.setNumber(FieldMemoryThreshold, input, &w.memoryThreshold)
}

// SetAdministratorEmail sets the contact address.
func (w *Wizard) SetAdministratorEmail(email string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.adminEmail = &email
}

func (w *Wizard) setNumber(field, input string, target **int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := ParseNumber(input)
	if err != nil {
		w.parseErrors[field] = err
		*target = nil
		return
	}
	delete(w.parseErrors, field)
	*target = &n
}

// Errors returns the current validation message per field. Only touched
// fields can be invalid.
func (w *Wizard) Errors() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]string)
	for field, err := range w.parseErrors {
		out[field] = err.Error()
	}
	check := func(field string, err error) {
		if err != nil {
			if _, parsed := out[field]; !parsed {
				out[field] = err.Error()
			}
		}
	}
	check(FieldName, ValidateName(w.name))
	check(FieldImage, ValidateImage(w.image))
	check(FieldPort, ValidatePort(w.port))
	check(FieldReplicas, ValidateReplicas(w.replicas))
	if w.autoscaling {
		check(FieldCPUThreshold, ValidateThreshold(w.cpuThreshold))
		check(FieldMemoryThreshold, ValidateThreshold(w.memoryThreshold))
	}
	check(FieldEmail, ValidateEmail(w.adminEmail))
	return out
}

// Notice returns the last transient notification, if any.
func (w *Wizard) Notice() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.notice
}

// Submitting reports whether a submission is in flight.
func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// Body assembles the creation request from the accumulated state. Values are
// copied as entered; nothing is clamped. userId and namespaceId are left for
// the server to fill.
func (w *Wizard) Body() domain.CreateContainerApplicationBody {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.body()
}

func (w *Wizard) body() domain.CreateContainerApplicationBody {
	return domain.CreateContainerApplicationBody{
		Name:            deref(w.name),
		Image:           deref(w.image),
		Port:            derefInt(w.port),
		ApplicationType: w.appType,
		ContainerSpecifications: domain.ContainerSpecifications{
			CPULimit:    domain.ResourceLimit{Value: w.cpuLimit, Unit: domain.UnitMilliCPU},
			MemoryLimit: domain.ResourceLimit{Value: w.memoryLimit, Unit: domain.UnitMB},
		},
		ScalabilitySpecifications: domain.ScalabilitySpecifications{
			Replicas:                       derefInt(w.replicas),
			CPUUsagePercentageThreshold:    derefInt(w.cpuThreshold),
			MemoryUsagePercentageThreshold: derefInt(w.memoryThreshold),
			IsAutoScaled:                   w.autoscaling,
		},
		EnvironmentVariables: append([]domain.NameValue{}, w.env...),
		Secrets:              append([]domain.NameValue{}, w.secrets...),
		AdministratorEmail:   deref(w.adminEmail),
	}
}

// Submit sends the body through creator. A second call while one is running
// returns ErrSubmitInFlight without calling creator. On success it returns
// the detail path of the new application; on failure it records a notice
// and stays on the current step.
func (w *Wizard) Submit(ctx context.Context, creator Creator) (string, error) {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return "", ErrSubmitInFlight
	}
	w.submitting = true
	w.notice = ""
	body := w.body()
	projectID := w.projectID
	w.mu.Unlock()

	id, err := creator.CreateContainer(ctx, projectID, body)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if err != nil {
		w.notice = "Couldn't create application and namespace, try again or contact support"
		var validation *domain.ValidationError
		if errors.As(err, &validation) {
			w.notice = validation.Error()
		}
		return "", err
	}
	w.notice = "Application created"
	return fmt.Sprintf("/projects/%s/services/containers/%s", projectID, id), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
