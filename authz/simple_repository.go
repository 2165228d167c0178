package authz

import (
	"context"
	"database/sql"
	"fmt"
)

// ============================================================================
// Organizations
// ============================================================================

// CreateOrg inserts the organization and its owner membership in one transaction
func (s *SimpleStore) CreateOrg(ctx context.Context, org *Organization, owner *Membership) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO organizations (id, name, domain, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, org.ID, org.Name, org.Domain, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", translateError(err))
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO memberships (id, user_id, organization_id, role, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`, owner.ID, owner.UserID, owner.OrganizationID, owner.Role, owner.JoinedAt)
	if err != nil {
		return fmt.Errorf("failed to add owner membership: %w", translateError(err))
	}

	return tx.Commit()
}

// GetOrg retrieves an organization by ID
func (s *SimpleStore) GetOrg(ctx context.Context, id string) (*Organization, error) {
	var org Organization
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, domain, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`, id).Scan(&org.ID, &org.Name, &org.Domain, &org.CreatedAt, &org.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

// ListOrgsByUser returns organizations where the user holds a membership
func (s *SimpleStore) ListOrgsByUser(ctx context.Context, userID string) ([]Organization, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.name, o.domain, o.created_at, o.updated_at
		FROM organizations o
		JOIN memberships m ON m.organization_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user organizations: %w", err)
	}
	defer rows.Close()

	orgs := make([]Organization, 0) // JSON: [] not null
	for rows.Next() {
		var org Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Domain, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// UpdateOrg updates an organization
func (s *SimpleStore) UpdateOrg(ctx context.Context, org *Organization) error {
	return s.execAffectingOne(ctx, `
		UPDATE organizations
		SET name = $2, domain = $3, updated_at = $4
		WHERE id = $1
	`, org.ID, org.Name, org.Domain, org.UpdatedAt)
}

// DeleteOrg deletes an organization; memberships and projects cascade
func (s *SimpleStore) DeleteOrg(ctx context.Context, id string) error {
	return s.execAffectingOne(ctx, `DELETE FROM organizations WHERE id = $1`, id)
}

// DomainExists checks if a domain is already taken
func (s *SimpleStore) DomainExists(ctx context.Context, domain string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM organizations WHERE domain = $1)`, domain).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check domain: %w", err)
	}
	return exists, nil
}

// ============================================================================
// Projects
// ============================================================================

// CreateProject inserts the project and its manager membership in one transaction
func (s *SimpleStore) CreateProject(ctx context.Context, project *Project, manager *ProjectMembership) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, organization_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, project.ID, project.OrganizationID, project.Name, project.Description, project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", translateError(err))
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO project_memberships (id, user_id, project_id, role, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`, manager.ID, manager.UserID, manager.ProjectID, manager.Role, manager.JoinedAt)
	if err != nil {
		return fmt.Errorf("failed to add manager membership: %w", translateError(err))
	}

	return tx.Commit()
}

// GetProject retrieves a project by ID
func (s *SimpleStore) GetProject(ctx context.Context, id string) (*Project, error) {
	var project Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, organization_id, name, COALESCE(description, ''), created_at, updated_at
		FROM projects
		WHERE id = $1
	`, id).Scan(&project.ID, &project.OrganizationID, &project.Name, &project.Description, &project.CreatedAt, &project.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

// ListProjectsByOrg returns all projects in an organization
func (s *SimpleStore) ListProjectsByOrg(ctx context.Context, orgID string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, name, COALESCE(description, ''), created_at, updated_at
		FROM projects
		WHERE organization_id = $1
		ORDER BY id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	return scanProjects(rows)
}

// ListProjectsByUser returns projects the user is an explicit member of
func (s *SimpleStore) ListProjectsByUser(ctx context.Context, userID string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.organization_id, p.name, COALESCE(p.description, ''), p.created_at, p.updated_at
		FROM projects p
		JOIN project_memberships pm ON pm.project_id = p.id
		WHERE pm.user_id = $1
		ORDER BY p.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user projects: %w", err)
	}
	defer rows.Close()

	return scanProjects(rows)
}

// UpdateProject updates a project
func (s *SimpleStore) UpdateProject(ctx context.Context, project *Project) error {
	return s.execAffectingOne(ctx, `
		UPDATE projects
		SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
	`, project.ID, project.Name, project.Description, project.UpdatedAt)
}

// DeleteProject deletes a project; memberships, columns and tasks cascade
func (s *SimpleStore) DeleteProject(ctx context.Context, id string) error {
	return s.execAffectingOne(ctx, `DELETE FROM projects WHERE id = $1`, id)
}

// Helper function to scan project rows
func scanProjects(rows *sql.Rows) ([]Project, error) {
	projects := make([]Project, 0)
	for rows.Next() {
		var project Project
		if err := rows.Scan(&project.ID, &project.OrganizationID, &project.Name, &project.Description, &project.CreatedAt, &project.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}
