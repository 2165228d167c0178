package authz

import (
	"context"
	"database/sql"
	"fmt"
)

// Ensure SimpleStore implements MembershipManager
var _ MembershipManager = (*SimpleStore)(nil)

// ============================================================================
// Organization memberships
// ============================================================================

// AddOrgMember adds a user to an organization
func (s *SimpleStore) AddOrgMember(ctx context.Context, m *Membership) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memberships (id, user_id, organization_id, role, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.UserID, m.OrganizationID, m.Role, m.JoinedAt)

	if err != nil {
		return fmt.Errorf("failed to add membership: %w", translateError(err))
	}
	return nil
}

// RemoveOrgMember removes a user from an organization and from every project
// of that organization in one transaction
func (s *SimpleStore) RemoveOrgMember(ctx context.Context, userID, orgID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		DELETE FROM memberships
		WHERE user_id = $1 AND organization_id = $2
	`, userID, orgID)
	if err != nil {
		return fmt.Errorf("failed to remove membership: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotAMember
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM project_memberships
		WHERE user_id = $1
		  AND project_id IN (SELECT id FROM projects WHERE organization_id = $2)
	`, userID, orgID)
	if err != nil {
		return fmt.Errorf("failed to remove project memberships: %w", err)
	}

	return tx.Commit()
}

// GetOrgMembership returns a user's organization membership
func (s *SimpleStore) GetOrgMembership(ctx context.Context, userID, orgID string) (*Membership, error) {
	var m Membership
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, organization_id, role, joined_at
		FROM memberships
		WHERE user_id = $1 AND organization_id = $2
	`, userID, orgID).Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.Role, &m.JoinedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotAMember
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return &m, nil
}

// ListOrgMembers returns all members of an organization
func (s *SimpleStore) ListOrgMembers(ctx context.Context, orgID string) ([]Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, organization_id, role, joined_at
		FROM memberships
		WHERE organization_id = $1
		ORDER BY joined_at ASC, user_id ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := make([]Membership, 0)
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ============================================================================
// Project memberships
// ============================================================================

// AddProjectMember adds a user to a project
func (s *SimpleStore) AddProjectMember(ctx context.Context, m *ProjectMembership) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_memberships (id, user_id, project_id, role, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.UserID, m.ProjectID, m.Role, m.JoinedAt)

	if err != nil {
		return fmt.Errorf("failed to add project membership: %w", translateError(err))
	}
	return nil
}

// RemoveProjectMember removes a user from a project
func (s *SimpleStore) RemoveProjectMember(ctx context.Context, userID, projectID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM project_memberships
		WHERE user_id = $1 AND project_id = $2
	`, userID, projectID)

	if err != nil {
		return fmt.Errorf("failed to remove project membership: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotAMember
	}
	return nil
}

// GetProjectMembership returns a user's project membership
func (s *SimpleStore) GetProjectMembership(ctx context.Context, userID, projectID string) (*ProjectMembership, error) {
	var m ProjectMembership
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, project_id, role, joined_at
		FROM project_memberships
		WHERE user_id = $1 AND project_id = $2
	`, userID, projectID).Scan(&m.ID, &m.UserID, &m.ProjectID, &m.Role, &m.JoinedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotAMember
		}
		return nil, fmt.Errorf("failed to get project membership: %w", err)
	}
	return &m, nil
}

// ListProjectMembers returns all members of a project
func (s *SimpleStore) ListProjectMembers(ctx context.Context, projectID string) ([]ProjectMembership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, project_id, role, joined_at
		FROM project_memberships
		WHERE project_id = $1
		ORDER BY joined_at ASC, user_id ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	defer rows.Close()

	members := make([]ProjectMembership, 0)
	for rows.Next() {
		var m ProjectMembership
		if err := rows.Scan(&m.ID, &m.UserID, &m.ProjectID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project membership: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// CountProjectMembers returns how many memberships a project has
func (s *SimpleStore) CountProjectMembers(ctx context.Context, projectID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM project_memberships WHERE project_id = $1`, projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count project members: %w", err)
	}
	return count, nil
}
