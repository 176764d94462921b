package domain

// ApplicationType selects how the platform runs an application.
type ApplicationType string

const (
	SingleInstance ApplicationType = "SINGLE_INSTANCE"
	LoadBalanced   ApplicationType = "LOAD_BALANCED"
)

// Valid reports whether t is a known application type.
func (t ApplicationType) Valid() bool {
	return t == SingleInstance || t == LoadBalanced
}

// Limit units understood by the platform.
const (
	UnitMilliCPU = "mCPU"
	UnitCPU      = "CPU"
	UnitMB       = "MB"
	UnitGB       = "GB"
)

// ResourceLimit is a quantity with its unit.
type ResourceLimit struct {
	Value int    `json:"value"`
	Unit  string `json:"unit"`
}

// ContainerSpecifications bounds a single container.
type ContainerSpecifications struct {
	CPULimit    ResourceLimit `json:"cpuLimit"`
	MemoryLimit ResourceLimit `json:"memoryLimit"`
}

// ScalabilitySpecifications configures replicas and autoscaling.
type ScalabilitySpecifications struct {
	Replicas                       int  `json:"replicas"`
	CPUUsagePercentageThreshold    int  `json:"cpuUsagePercentageThreshold"`
	MemoryUsagePercentageThreshold int  `json:"memoryUsagePercentageThreshold"`
	IsAutoScaled                   bool `json:"isAutoScaled"`
}

// NameValue is an environment variable or secret entry.
type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CreateContainerApplicationBody is the transient creation request sent to
// the platform. It is never persisted.
type CreateContainerApplicationBody struct {
	Name                      string                    `json:"name"`
	Description               string                    `json:"description"`
	Zone                      string                    `json:"zone"`
	Image                     string                    `json:"image"`
	Port                      int                       `json:"port"`
	ApplicationType           ApplicationType           `json:"applicationType"`
	ContainerSpecifications   ContainerSpecifications   `json:"containerSpecifications"`
	ScalabilitySpecifications ScalabilitySpecifications `json:"scalabilitySpecifications"`
	EnvironmentVariables      []NameValue               `json:"environmentVariables"`
	Secrets                   []NameValue               `json:"secrets"`
	AdministratorEmail        string                    `json:"administratorEmail"`
	NamespaceID               string                    `json:"namespaceId"`
	UserID                    string                    `json:"userId"`
}
