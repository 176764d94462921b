package wizard

import (
	"fmt"

	units "github.com/docker/go-units"

	"github.com/stuga-cloud/console/internal/domain"
)

// Option is a selectable limit value with its display label.
type Option struct {
	Value int
	Label string
}

// CPUOptions lists the selectable CPU limits in mCPU.
func CPUOptions() []Option {
	out := make([]Option, 0, len(domain.CPULimitOptions))
	for _, v := range domain.CPULimitOptions {
		out = append(out, Option{Value: v, Label: fmt.Sprintf("%d mCPU (%.2f vCPU)", v, float64(v)/1000)})
	}
	return out
}

// MemoryOptions lists the selectable memory limits in MB.
func MemoryOptions() []Option {
	out := make([]Option, 0, len(domain.MemoryLimitOptions))
	for _, v := range domain.MemoryLimitOptions {
		out = append(out, Option{Value: v, Label: units.BytesSize(float64(int64(v) * units.MiB))})
	}
	return out
}

// Registry is an image source shown to the user. URLs are display only.
type Registry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

const (
	RegistryDockerHub = "Docker hub"
	RegistryPrivate   = "Our private registry"
)

// Registries returns the available registries in display order.
func Registries(dockerHubURL, privateURL string) []Registry {
	if privateURL == "" {
		privateURL = "missing private registry url!"
	}
	return []Registry{
		{Name: RegistryDockerHub, URL: dockerHubURL},
		{Name: RegistryPrivate, URL: privateURL},
	}
}

// FindRegistry returns the registry called name. Unknown names fall back to
// the first registry with a notice for the user.
func FindRegistry(registries []Registry, name string) (Registry, string) {
	for _, r := range registries {
		if r.Name == name {
			return r, ""
		}
	}
	if len(registries) == 0 {
		return Registry{}, fmt.Sprintf("Registry %s not found", name)
	}
	return registries[0], fmt.Sprintf("Registry %s not found", name)
}

// PreviewURL is the address an application will be served on.
func PreviewURL(applicationName, projectName, baseDomain string) string {
	return fmt.Sprintf("https://%s.%s.%s", applicationName, projectName, baseDomain)
}
