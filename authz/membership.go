package authz

import (
	"context"
	"time"
)

// Membership links a user to an organization with a role
type Membership struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	Role           OrgRole   `json:"role"`
	JoinedAt       time.Time `json:"joined_at"`
}

// ProjectMembership links a user to a project with a role
type ProjectMembership struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	ProjectID string      `json:"project_id"`
	Role      ProjectRole `json:"role"`
	JoinedAt  time.Time   `json:"joined_at"`
}

// MembershipManager manages user-resource relationships (the "write" side).
// RoleReader is the matching "read/check" side consumed by the Resolver.
type MembershipManager interface {
	// AddOrgMember inserts a membership; ErrAlreadyExists if the pair exists
	AddOrgMember(ctx context.Context, m *Membership) error

	// RemoveOrgMember deletes a membership together with the user's project
	// memberships in that organization; ErrNotFound if absent
	RemoveOrgMember(ctx context.Context, userID, orgID string) error

	GetOrgMembership(ctx context.Context, userID, orgID string) (*Membership, error)
	ListOrgMembers(ctx context.Context, orgID string) ([]Membership, error)

	AddProjectMember(ctx context.Context, m *ProjectMembership) error
	RemoveProjectMember(ctx context.Context, userID, projectID string) error
	GetProjectMembership(ctx context.Context, userID, projectID string) (*ProjectMembership, error)
	ListProjectMembers(ctx context.Context, projectID string) ([]ProjectMembership, error)
	CountProjectMembers(ctx context.Context, projectID string) (int, error)
}

// RoleReader is the read side the Resolver walks. A missing membership is an
// empty role with a nil error; only storage failures return errors.
type RoleReader interface {
	OrgExists(ctx context.Context, orgID string) (bool, error)

	// ProjectOrgID returns the parent organization; ErrNotFound if the project does not exist
	ProjectOrgID(ctx context.Context, projectID string) (string, error)

	OrgRole(ctx context.Context, userID, orgID string) (OrgRole, error)
	ProjectRole(ctx context.Context, userID, projectID string) (ProjectRole, error)
}
