package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stuga-cloud/console/internal/domain"
	"github.com/stuga-cloud/console/internal/repository"
)

const pgForeignKeyViolation = "23503"

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository      = (*Repository)(nil)
	_ repository.ProjectRepository   = (*Repository)(nil)
	_ repository.MemberRepository    = (*Repository)(nil)
	_ repository.NamespaceRepository = (*Repository)(nil)
	_ repository.ContainerRepository = (*Repository)(nil)
)

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, name, email, image, created_at FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetUserByEmail fetches a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT id, name, email, image, created_at FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Image, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetProjectAggregate loads a project, its members and its namespaces with
// their containers in one round trip.
func (r *Repository) GetProjectAggregate(ctx context.Context, projectID string) (*domain.Project, error) {
	const projectQuery = `SELECT id, name, created_by, created_at FROM projects WHERE id = $1`
	const membersQuery = `SELECT pm.user_id, pm.role, u.name, u.email, u.image, pm.created_at
		FROM project_members pm
		INNER JOIN users u ON u.id = pm.user_id
		WHERE pm.project_id = $1
		ORDER BY pm.created_at, pm.user_id`
	const namespacesQuery = `SELECT id, project_id, id_in_api, name, created_at
		FROM container_namespaces WHERE project_id = $1 ORDER BY created_at, id`
	const containersQuery = `SELECT ca.id, ca.id_in_api, ca.namespace_id, ca.created_at
		FROM container_applications ca
		INNER JOIN container_namespaces cn ON cn.id = ca.namespace_id
		WHERE cn.project_id = $1
		ORDER BY ca.created_at, ca.id`

	batch := &pgx.Batch{}
	batch.Queue(projectQuery, projectID)
	batch.Queue(membersQuery, projectID)
	batch.Queue(namespacesQuery, projectID)
	batch.Queue(containersQuery, projectID)

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	var project domain.Project
	if err := results.QueryRow().Scan(&project.ID, &project.Name, &project.CreatedBy, &project.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("load project: %w", err)
	}

	members, err := scanMembers(results)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	project.Members = members

	namespaces, err := scanNamespaces(results)
	if err != nil {
		return nil, fmt.Errorf("load namespaces: %w", err)
	}

	containers, err := scanContainers(results)
	if err != nil {
		return nil, fmt.Errorf("load containers: %w", err)
	}
	index := make(map[string]int, len(namespaces))
	for i := range namespaces {
		index[namespaces[i].ID] = i
	}
	for _, container := range containers {
		if i, ok := index[container.NamespaceID]; ok {
			namespaces[i].Containers = append(namespaces[i].Containers, container)
		}
	}
	project.ContainerNamespaces = namespaces
	return &project, nil
}

func scanMembers(results pgx.BatchResults) ([]domain.Member, error) {
	rows, err := results.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]domain.Member, 0)
	for rows.Next() {
		var (
			m    domain.Member
			role string
		)
		if err := rows.Scan(&m.ID, &role, &m.Name, &m.Email, &m.Image, &m.JoinedAt); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		members = append(members, m)
	}
	return members, rows.Err()
}

func scanNamespaces(results pgx.BatchResults) ([]domain.ContainerNamespace, error) {
	rows, err := results.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	namespaces := make([]domain.ContainerNamespace, 0)
	for rows.Next() {
		var ns domain.ContainerNamespace
		if err := rows.Scan(&ns.ID, &ns.ProjectID, &ns.IDInAPI, &ns.Name, &ns.CreatedAt); err != nil {
			return nil, err
		}
		namespaces = append(namespaces, ns)
	}
	return namespaces, rows.Err()
}

func scanContainers(results pgx.BatchResults) ([]domain.ContainerApplication, error) {
	rows, err := results.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	containers := make([]domain.ContainerApplication, 0)
	for rows.Next() {
		var c domain.ContainerApplication
		if err := rows.Scan(&c.ID, &c.IDInAPI, &c.NamespaceID, &c.CreatedAt); err != nil {
			return nil, err
		}
		containers = append(containers, c)
	}
	return containers, rows.Err()
}

// ListProjectsByMember returns projects the user created or belongs to.
func (r *Repository) ListProjectsByMember(ctx context.Context, userID string) ([]domain.Project, error) {
	const query = `SELECT DISTINCT p.id, p.name, p.created_by, p.created_at
		FROM projects p
		LEFT JOIN project_members pm ON pm.project_id = p.id
		WHERE p.created_by = $1 OR pm.user_id = $1
		ORDER BY p.created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]domain.Project, 0)
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// AddMember adds a user to a project or updates their role.
func (r *Repository) AddMember(ctx context.Context, projectID, userID string, role domain.Role) error {
	const query = `INSERT INTO project_members (project_id, user_id, role, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (project_id, user_id) DO UPDATE SET role = EXCLUDED.role`
	_, err := r.pool.Exec(ctx, query, projectID, userID, string(role))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return repository.ErrNotFound
		}
		return err
	}
	return nil
}

// RemoveMember deletes a membership row.
func (r *Repository) RemoveMember(ctx context.Context, projectID, userID string) error {
	const query = `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, projectID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CreateNamespace inserts a container namespace.
func (r *Repository) CreateNamespace(ctx context.Context, namespace *domain.ContainerNamespace) error {
	const query = `INSERT INTO container_namespaces (id, project_id, id_in_api, name, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, namespace.ID, namespace.ProjectID, namespace.IDInAPI, namespace.Name, namespace.CreatedAt)
	return err
}

// CreateContainerApplication stores the local pointer to a remote application.
func (r *Repository) CreateContainerApplication(ctx context.Context, app *domain.ContainerApplication) error {
	const query = `INSERT INTO container_applications (id, namespace_id, id_in_api, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, app.ID, app.NamespaceID, app.IDInAPI, app.CreatedAt)
	return err
}

// DeleteContainerApplication removes a local application pointer.
func (r *Repository) DeleteContainerApplication(ctx context.Context, applicationID string) error {
	const query = `DELETE FROM container_applications WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, applicationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
