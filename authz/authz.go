// Package authz implements the organization → project → board containment model
// and the permission checks that guard it.
// The package keeps concerns separated:
// - Authorizer: answers "is this allowed?" by walking the containment chain
// - Store: data access for organizations, projects, memberships, columns and tasks
// - OrgService / ProjectService / BoardService: the directories, each operation
//   gated by the Authorizer before touching the Store
package authz

import (
	"context"
	"fmt"
)

// OrgRole is a user's role inside an organization
type OrgRole string

const (
	OrgRoleOwner   OrgRole = "owner"   // Full control, exactly one per organization
	OrgRoleManager OrgRole = "manager" // May create projects
	OrgRoleMember  OrgRole = "member"  // Read access
)

// ProjectRole is a user's role inside a project
type ProjectRole string

const (
	ProjectRoleManager ProjectRole = "manager" // Controls membership and board structure
	ProjectRoleMember  ProjectRole = "member"  // Works on tasks
)

// Action represents an operation that can be performed on a resource
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage" // Membership administration
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceOrg     ResourceType = "org"
	ResourceProject ResourceType = "project"
	ResourceColumn  ResourceType = "column"
	ResourceTask    ResourceType = "task"
)

// Authorizer answers permission questions. Every method reports a missing
// resource as ErrNotFound before it evaluates any role, and reports a denial
// as ErrForbidden.
type Authorizer interface {
	// Check is the generic entry point. For column and task resources the
	// resourceID is the owning project's ID.
	Check(ctx context.Context, userID string, action Action, resourceType ResourceType, resourceID string) error

	AuthorizeOrg(ctx context.Context, userID, orgID string, action Action) (OrgRole, error)
	AuthorizeProject(ctx context.Context, userID, projectID string, resource ResourceType, action Action) (ProjectRole, error)

	// Role lookups for display; empty role means no membership
	GetOrgRole(ctx context.Context, userID, orgID string) (OrgRole, error)
	GetProjectRole(ctx context.Context, userID, projectID string) (ProjectRole, error)
}

// OrgPermissions defines what each organization role can do on the organization
var OrgPermissions = map[OrgRole]map[Action]bool{
	OrgRoleOwner: {
		ActionView:   true,
		ActionCreate: true,
		ActionUpdate: true,
		ActionDelete: true,
		ActionManage: true,
	},
	OrgRoleManager: {
		ActionView:   true,
		ActionCreate: true,
	},
	OrgRoleMember: {
		ActionView: true,
	},
}

// ProjectPermissions defines what each project role can do on the project itself
var ProjectPermissions = map[ProjectRole]map[Action]bool{
	ProjectRoleManager: {
		ActionView:   true,
		ActionUpdate: true,
		ActionDelete: true,
		ActionManage: true,
	},
	ProjectRoleMember: {
		ActionView: true,
	},
}

// ColumnPermissions defines what each project role can do on the project's columns
var ColumnPermissions = map[ProjectRole]map[Action]bool{
	ProjectRoleManager: {
		ActionView:   true,
		ActionCreate: true,
		ActionUpdate: true,
		ActionDelete: true,
	},
	ProjectRoleMember: {
		ActionView: true,
	},
}

// TaskPermissions defines what each project role can do on the project's tasks.
// Deleting a task needs the same strength as mutating a column.
var TaskPermissions = map[ProjectRole]map[Action]bool{
	ProjectRoleManager: {
		ActionView:   true,
		ActionCreate: true,
		ActionUpdate: true,
		ActionDelete: true,
	},
	ProjectRoleMember: {
		ActionView:   true,
		ActionCreate: true,
		ActionUpdate: true,
	},
}

// HasPermission checks if a role has permission to perform an action
func HasPermission[R ~string](permissions map[R]map[Action]bool, role R, action Action) bool {
	if rolePerms, ok := permissions[role]; ok {
		if allowed, ok := rolePerms[action]; ok {
			return allowed
		}
	}
	return false
}

// projectScopedPermissions returns the matrix for a resource living inside a project
func projectScopedPermissions(resource ResourceType) (map[ProjectRole]map[Action]bool, bool) {
	switch resource {
	case ResourceProject:
		return ProjectPermissions, true
	case ResourceColumn:
		return ColumnPermissions, true
	case ResourceTask:
		return TaskPermissions, true
	default:
		return nil, false
	}
}

// ParseOrgRole validates an organization role. Empty input means member.
func ParseOrgRole(s string) (OrgRole, error) {
	switch OrgRole(s) {
	case "":
		return OrgRoleMember, nil
	case OrgRoleOwner, OrgRoleManager, OrgRoleMember:
		return OrgRole(s), nil
	default:
		return "", fmt.Errorf("%w: unknown organization role %q", ErrInvalidInput, s)
	}
}

// ParseProjectRole validates a project role. Empty input means member.
func ParseProjectRole(s string) (ProjectRole, error) {
	switch ProjectRole(s) {
	case "":
		return ProjectRoleMember, nil
	case ProjectRoleManager, ProjectRoleMember:
		return ProjectRole(s), nil
	default:
		return "", fmt.Errorf("%w: unknown project role %q", ErrInvalidInput, s)
	}
}
