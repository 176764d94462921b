package domain

import "time"

// ContainerNamespace groups the container applications of one project.
type ContainerNamespace struct {
	ID         string
	ProjectID  string
	IDInAPI    string
	Name       string
	Containers []ContainerApplication
	CreatedAt  time.Time
}

// Container finds an application inside the namespace.
func (n *ContainerNamespace) Container(applicationID string) (*ContainerApplication, bool) {
	if n == nil {
		return nil, false
	}
	for i := range n.Containers {
		if n.Containers[i].ID == applicationID {
			return &n.Containers[i], true
		}
	}
	return nil, false
}

// ContainerApplication is the local pointer to an application living in the
// remote platform. Operational state is never stored here.
type ContainerApplication struct {
	ID          string
	IDInAPI     string
	NamespaceID string
	CreatedAt   time.Time
}
