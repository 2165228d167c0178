package authz

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/phonginreallife/taskboard/internal/metrics"
)

// Resolver implements Authorizer on top of a RoleReader.
// It holds no state of its own: every decision re-reads the memberships along
// the containment chain and fails closed when one is missing.
type Resolver struct {
	roles   RoleReader
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewResolver creates a Resolver. logger and m may be nil.
func NewResolver(roles RoleReader, logger *zap.Logger, m *metrics.Metrics) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{roles: roles, logger: logger, metrics: m}
}

// Ensure Resolver implements Authorizer interface
var _ Authorizer = (*Resolver)(nil)

// Check performs a generic authorization check
func (r *Resolver) Check(ctx context.Context, userID string, action Action, resourceType ResourceType, resourceID string) error {
	switch resourceType {
	case ResourceOrg:
		_, err := r.AuthorizeOrg(ctx, userID, resourceID, action)
		return err
	case ResourceProject, ResourceColumn, ResourceTask:
		_, err := r.AuthorizeProject(ctx, userID, resourceID, resourceType, action)
		return err
	default:
		return fmt.Errorf("%w: unknown resource type %q", ErrForbidden, resourceType)
	}
}

// ============================================================================
// Organization level
// ============================================================================

// AuthorizeOrg checks that the organization exists, then that the user's role allows action
func (r *Resolver) AuthorizeOrg(ctx context.Context, userID, orgID string, action Action) (OrgRole, error) {
	exists, err := r.roles.OrgExists(ctx, orgID)
	if err != nil {
		return "", fmt.Errorf("failed to check organization: %w", err)
	}
	if !exists {
		r.record(ResourceOrg, action, "not_found")
		return "", fmt.Errorf("%w: organization %s", ErrNotFound, orgID)
	}

	role, err := r.roles.OrgRole(ctx, userID, orgID)
	if err != nil {
		return "", fmt.Errorf("failed to get org role: %w", err)
	}

	if role == "" || !HasPermission(OrgPermissions, role, action) {
		r.deny(userID, ResourceOrg, orgID, action, string(role))
		return role, ErrForbidden
	}

	r.allow(userID, ResourceOrg, orgID, action, string(role))
	return role, nil
}

// GetOrgRole returns the user's role in an organization, empty if none
func (r *Resolver) GetOrgRole(ctx context.Context, userID, orgID string) (OrgRole, error) {
	return r.roles.OrgRole(ctx, userID, orgID)
}

// ============================================================================
// Project level (project, columns, tasks)
// ============================================================================

// AuthorizeProject walks organization → project. The project must exist, the
// user must still belong to the parent organization, and the user's project
// role must allow action on the given resource kind.
func (r *Resolver) AuthorizeProject(ctx context.Context, userID, projectID string, resource ResourceType, action Action) (ProjectRole, error) {
	permissions, ok := projectScopedPermissions(resource)
	if !ok {
		return "", fmt.Errorf("%w: unknown resource type %q", ErrForbidden, resource)
	}

	orgID, err := r.roles.ProjectOrgID(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			r.record(resource, action, "not_found")
			return "", fmt.Errorf("%w: project %s", ErrNotFound, projectID)
		}
		return "", fmt.Errorf("failed to get project organization: %w", err)
	}

	orgRole, err := r.roles.OrgRole(ctx, userID, orgID)
	if err != nil {
		return "", fmt.Errorf("failed to get org role: %w", err)
	}
	if orgRole == "" {
		r.deny(userID, resource, projectID, action, "")
		return "", ErrForbidden
	}

	role, err := r.roles.ProjectRole(ctx, userID, projectID)
	if err != nil {
		return "", fmt.Errorf("failed to get project role: %w", err)
	}

	if role == "" || !HasPermission(permissions, role, action) {
		r.deny(userID, resource, projectID, action, string(role))
		return role, ErrForbidden
	}

	r.allow(userID, resource, projectID, action, string(role))
	return role, nil
}

// GetProjectRole returns the user's role in a project, empty if none
func (r *Resolver) GetProjectRole(ctx context.Context, userID, projectID string) (ProjectRole, error) {
	return r.roles.ProjectRole(ctx, userID, projectID)
}

func (r *Resolver) allow(userID string, resource ResourceType, resourceID string, action Action, role string) {
	r.record(resource, action, "allow")
	r.logger.Debug("authz allowed",
		zap.String("user_id", userID),
		zap.String("resource", string(resource)),
		zap.String("resource_id", resourceID),
		zap.String("action", string(action)),
		zap.String("role", role),
	)
}

func (r *Resolver) deny(userID string, resource ResourceType, resourceID string, action Action, role string) {
	r.record(resource, action, "deny")
	r.logger.Info("authz denied",
		zap.String("user_id", userID),
		zap.String("resource", string(resource)),
		zap.String("resource_id", resourceID),
		zap.String("action", string(action)),
		zap.String("role", role),
	)
}

func (r *Resolver) record(resource ResourceType, action Action, outcome string) {
	r.metrics.RecordDecision(string(resource), string(action), outcome)
}
