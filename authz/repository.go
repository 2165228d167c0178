package authz

import (
	"context"
	"time"
)

// Organization is the tenant at the top of the containment chain
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project belongs to exactly one organization
type Project struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Column is an ordered lane of a project's board
type Column struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
}

// Task lives in a column of a project and is assigned to a project member
type Task struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	DueDate        time.Time `json:"due_date"`
	ColumnID       string    `json:"column_id"`
	ProjectID      string    `json:"project_id"`
	AssigneeUserID string    `json:"assignee_user_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TaskFilter narrows ListTasks. Empty fields are ignored; set fields combine with AND.
type TaskFilter struct {
	ProjectID      string
	ColumnID       string
	AssigneeUserID string
}

// OrgRepository handles persistence for organizations.
// This is purely a data access layer - no authorization logic.
type OrgRepository interface {
	// CreateOrg stores the organization and its owner membership atomically
	CreateOrg(ctx context.Context, org *Organization, owner *Membership) error

	GetOrg(ctx context.Context, id string) (*Organization, error)

	// ListOrgsByUser returns organizations where the user holds any membership, ordered by id
	ListOrgsByUser(ctx context.Context, userID string) ([]Organization, error)

	UpdateOrg(ctx context.Context, org *Organization) error

	// DeleteOrg deletes an organization (cascades to memberships and projects)
	DeleteOrg(ctx context.Context, id string) error

	DomainExists(ctx context.Context, domain string) (bool, error)
}

// ProjectRepository handles persistence for projects.
type ProjectRepository interface {
	// CreateProject stores the project and its manager membership atomically
	CreateProject(ctx context.Context, project *Project, manager *ProjectMembership) error

	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjectsByOrg(ctx context.Context, orgID string) ([]Project, error)

	// ListProjectsByUser returns projects where the user holds a project membership
	ListProjectsByUser(ctx context.Context, userID string) ([]Project, error)

	UpdateProject(ctx context.Context, project *Project) error

	// DeleteProject cascades to project memberships, columns and tasks
	DeleteProject(ctx context.Context, id string) error
}

// BoardRepository handles persistence for columns and tasks.
type BoardRepository interface {
	CreateColumn(ctx context.Context, column *Column) error
	GetColumn(ctx context.Context, id string) (*Column, error)

	// ListColumns returns the project's columns ordered by position ascending
	ListColumns(ctx context.Context, projectID string) ([]Column, error)

	UpdateColumn(ctx context.Context, column *Column) error

	// DeleteColumn cascades to the column's tasks
	DeleteColumn(ctx context.Context, id string) error

	// ColumnNameExists reports whether another column of the project uses name
	ColumnNameExists(ctx context.Context, projectID, name, excludeID string) (bool, error)

	CreateTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error)
	UpdateTask(ctx context.Context, task *Task) error
	DeleteTask(ctx context.Context, id string) error
}

// Store bundles every persistence concern. SimpleStore (PostgreSQL),
// MemoryStore and CachedStore implement it.
type Store interface {
	OrgRepository
	ProjectRepository
	BoardRepository
	MembershipManager
	RoleReader
}
