package authz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// SimpleStore implements Store on PostgreSQL through database/sql and lib/pq.
// Uniqueness and cascade rules live in the schema (see package db); the store
// translates unique violations into ErrAlreadyExists.
type SimpleStore struct {
	db *sql.DB
}

// NewSimpleStore creates a new SimpleStore with the given database connection
func NewSimpleStore(db *sql.DB) *SimpleStore {
	return &SimpleStore{db: db}
}

// Ensure SimpleStore implements Store interface
var _ Store = (*SimpleStore)(nil)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation = "23505"

// translateError maps driver errors onto the package error kinds
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, pqErr.Constraint)
	}
	return err
}

// ============================================================================
// RoleReader
// ============================================================================

// OrgExists checks if an organization exists
func (s *SimpleStore) OrgExists(ctx context.Context, orgID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM organizations WHERE id = $1)`, orgID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check organization: %w", err)
	}
	return exists, nil
}

// ProjectOrgID returns the organization ID for a project
func (s *SimpleStore) ProjectOrgID(ctx context.Context, projectID string) (string, error) {
	var orgID string
	err := s.db.QueryRowContext(ctx, `SELECT organization_id FROM projects WHERE id = $1`, projectID).Scan(&orgID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get project org: %w", err)
	}
	return orgID, nil
}

// OrgRole returns the user's role in an organization, empty if not a member
func (s *SimpleStore) OrgRole(ctx context.Context, userID, orgID string) (OrgRole, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `
		SELECT role FROM memberships
		WHERE user_id = $1 AND organization_id = $2
	`, userID, orgID).Scan(&role)

	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to get org role: %w", err)
	}
	return OrgRole(role), nil
}

// ProjectRole returns the user's role in a project, empty if not a member
func (s *SimpleStore) ProjectRole(ctx context.Context, userID, projectID string) (ProjectRole, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `
		SELECT role FROM project_memberships
		WHERE user_id = $1 AND project_id = $2
	`, userID, projectID).Scan(&role)

	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to get project role: %w", err)
	}
	return ProjectRole(role), nil
}

// execAffectingOne runs a statement that must touch exactly one row
func (s *SimpleStore) execAffectingOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translateError(err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
