package domain

import (
	"fmt"
	"net/mail"
	"regexp"
	"slices"
	"strings"

	"github.com/distribution/reference"
)

// Fixed limit choices offered to users. Values are mCPU and MB.
var (
	CPULimitOptions    = []int{70, 140, 280, 560, 1120, 1680, 2240}
	MemoryLimitOptions = []int{128, 256, 512, 1024, 2048, 4096, 8192}
)

const (
	MinPort     = 1
	MaxPort     = 65535
	MinReplicas = 1
	MaxReplicas = 10
	maxNameLen  = 63
)

var (
	applicationNamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)
	emailPattern           = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidApplicationName reports whether name is a DNS label.
func ValidApplicationName(name string) bool {
	return len(name) <= maxNameLen && applicationNamePattern.MatchString(name)
}

// ValidPort reports whether port is a usable TCP port.
func ValidPort(port int) bool {
	return port >= MinPort && port <= MaxPort
}

// ValidReplicas reports whether n is an accepted replica count.
func ValidReplicas(n int) bool {
	return n >= MinReplicas && n <= MaxReplicas
}

// ValidEmail applies the loose address check used by the creation form.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// NormalizeImage parses an image reference and returns its familiar form,
// e.g. "nginx" becomes "nginx:latest".
func NormalizeImage(image string) (string, error) {
	named, err := reference.ParseNormalizedNamed(strings.TrimSpace(image))
	if err != nil {
		return "", err
	}
	return reference.FamiliarString(reference.TagNameOnly(named)), nil
}

// MilliCPU converts a CPU limit to mCPU.
func (l ResourceLimit) MilliCPU() (int, bool) {
	switch l.Unit {
	case UnitMilliCPU, "":
		return l.Value, true
	case UnitCPU:
		return l.Value * 1000, true
	default:
		return 0, false
	}
}

// Megabytes converts a memory limit to MB.
func (l ResourceLimit) Megabytes() (int, bool) {
	switch l.Unit {
	case UnitMB, "":
		return l.Value, true
	case UnitGB:
		return l.Value * 1024, true
	default:
		return 0, false
	}
}

// Validate checks a creation body before it is sent to the platform.
func (b CreateContainerApplicationBody) Validate() error {
	if !ValidApplicationName(b.Name) {
		return &ValidationError{Field: "name", Message: "must be a lowercase DNS label of at most 63 characters"}
	}
	if strings.TrimSpace(b.Image) == "" {
		return &ValidationError{Field: "image", Message: "image is required"}
	}
	if _, err := NormalizeImage(b.Image); err != nil {
		return &ValidationError{Field: "image", Message: fmt.Sprintf("invalid image reference: %v", err)}
	}
	if !ValidPort(b.Port) {
		return &ValidationError{Field: "port", Message: fmt.Sprintf("must be between %d and %d", MinPort, MaxPort)}
	}
	if !b.ApplicationType.Valid() {
		return &ValidationError{Field: "applicationType", Message: "must be SINGLE_INSTANCE or LOAD_BALANCED"}
	}
	if cpu, ok := b.ContainerSpecifications.CPULimit.MilliCPU(); !ok || !slices.Contains(CPULimitOptions, cpu) {
		return &ValidationError{Field: "containerSpecifications.cpuLimit", Message: "unsupported cpu limit"}
	}
	if mem, ok := b.ContainerSpecifications.MemoryLimit.Megabytes(); !ok || !slices.Contains(MemoryLimitOptions, mem) {
		return &ValidationError{Field: "containerSpecifications.memoryLimit", Message: "unsupported memory limit"}
	}
	for _, env := range b.EnvironmentVariables {
		if strings.TrimSpace(env.Name) == "" {
			return &ValidationError{Field: "environmentVariables", Message: "variable name is required"}
		}
	}
	for _, secret := range b.Secrets {
		if strings.TrimSpace(secret.Name) == "" {
			return &ValidationError{Field: "secrets", Message: "secret name is required"}
		}
	}
	if b.AdministratorEmail != "" {
		if _, err := mail.ParseAddress(b.AdministratorEmail); err != nil || !ValidEmail(b.AdministratorEmail) {
			return &ValidationError{Field: "administratorEmail", Message: "invalid email address"}
		}
	}
	return nil
}
