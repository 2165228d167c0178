package authz

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func newMockStore(t *testing.T) (*SimpleStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSimpleStore(db), mock
}

func uniqueViolationErr(constraint string) error {
	return &pq.Error{Code: uniqueViolation, Constraint: constraint}
}

// ============================================================================
// Organizations
// ============================================================================

func TestSimpleStore_CreateOrg(t *testing.T) {
	now := time.Now().UTC()
	org := &Organization{ID: "org-1", Name: "Acme", Domain: "acme.io", CreatedAt: now, UpdatedAt: now}
	owner := &Membership{ID: "mem-1", UserID: "alice", OrganizationID: "org-1", Role: OrgRoleOwner, JoinedAt: now}

	tests := []struct {
		name     string
		mockFunc func(mock sqlmock.Sqlmock)
		wantErr  error
	}{
		{
			name: "org and owner commit together",
			mockFunc: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO organizations").
					WithArgs("org-1", "Acme", "acme.io", now, now).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec("INSERT INTO memberships").
					WithArgs("mem-1", "alice", "org-1", "owner", now).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "duplicate domain rolls back",
			mockFunc: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO organizations").
					WillReturnError(uniqueViolationErr("organizations_domain_key"))
				mock.ExpectRollback()
			},
			wantErr: ErrAlreadyExists,
		},
		{
			name: "membership failure rolls back the org",
			mockFunc: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO organizations").
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec("INSERT INTO memberships").
					WillReturnError(errors.New("connection reset"))
				mock.ExpectRollback()
			},
			wantErr: errors.New("any"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.mockFunc(mock)

			err := store.CreateOrg(context.Background(), org, owner)
			switch {
			case tt.wantErr == nil && err != nil:
				t.Errorf("unexpected error: %v", err)
			case tt.wantErr != nil && err == nil:
				t.Error("expected error, got nil")
			case errors.Is(tt.wantErr, ErrAlreadyExists) && !errors.Is(err, ErrAlreadyExists):
				t.Errorf("expected ErrAlreadyExists, got %v", err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestSimpleStore_GetOrg(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery("SELECT id, name, domain, created_at, updated_at FROM organizations").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "domain", "created_at", "updated_at"}).
			AddRow("org-1", "Acme", "acme.io", now, now))

	org, err := store.GetOrg(ctx, "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if org.Domain != "acme.io" {
		t.Errorf("expected domain acme.io, got %s", org.Domain)
	}

	mock.ExpectQuery("SELECT id, name, domain").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := store.GetOrg(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSimpleStore_ListOrgsByUser(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("FROM organizations o\\s+JOIN memberships m").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "domain", "created_at", "updated_at"}).
			AddRow("org-1", "Acme", "acme.io", now, now).
			AddRow("org-2", "Beta", "beta.io", now, now))

	orgs, err := store.ListOrgsByUser(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orgs) != 2 {
		t.Errorf("expected 2 orgs, got %d", len(orgs))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSimpleStore_UpdateAndDeleteOrg(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	org := &Organization{ID: "org-1", Name: "Acme", Domain: "acme.io", UpdatedAt: time.Now()}

	mock.ExpectExec("UPDATE organizations").
		WithArgs("org-1", "Acme", "acme.io", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.UpdateOrg(ctx, org); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	mock.ExpectExec("UPDATE organizations").
		WillReturnError(uniqueViolationErr("organizations_domain_key"))
	if err := store.UpdateOrg(ctx, org); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	mock.ExpectExec("DELETE FROM organizations").
		WithArgs("org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.DeleteOrg(ctx, "org-1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	mock.ExpectExec("DELETE FROM organizations").
		WithArgs("org-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.DeleteOrg(ctx, "org-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSimpleStore_DomainExists(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("acme.io").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := store.DomainExists(context.Background(), "acme.io")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Error("expected domain to exist")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// ============================================================================
// Projects
// ============================================================================

func TestSimpleStore_CreateProject(t *testing.T) {
	now := time.Now().UTC()
	project := &Project{ID: "proj-1", OrganizationID: "org-1", Name: "Launch", CreatedAt: now, UpdatedAt: now}
	manager := &ProjectMembership{ID: "pm-1", UserID: "alice", ProjectID: "proj-1", Role: ProjectRoleManager, JoinedAt: now}

	t.Run("project and manager commit together", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO projects").
			WithArgs("proj-1", "org-1", "Launch", "", now, now).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO project_memberships").
			WithArgs("pm-1", "alice", "proj-1", "manager", now).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		if err := store.CreateProject(context.Background(), project, manager); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})

	t.Run("membership failure rolls back", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO projects").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO project_memberships").
			WillReturnError(uniqueViolationErr("project_memberships_user_project_key"))
		mock.ExpectRollback()

		err := store.CreateProject(context.Background(), project, manager)
		if !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})

	t.Run("begin failure", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

		if err := store.CreateProject(context.Background(), project, manager); err == nil {
			t.Error("expected error, got nil")
		}
	})
}

func TestSimpleStore_GetProject(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("FROM projects").
		WithArgs("proj-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "name", "description", "created_at", "updated_at"}).
			AddRow("proj-1", "org-1", "Launch", "", now, now))

	p, err := store.GetProject(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.OrganizationID != "org-1" {
		t.Errorf("expected org-1, got %s", p.OrganizationID)
	}

	mock.ExpectQuery("FROM projects").WithArgs("missing").WillReturnError(sql.ErrNoRows)
	if _, err := store.GetProject(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSimpleStore_ListProjects(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now()
	cols := []string{"id", "organization_id", "name", "description", "created_at", "updated_at"}

	mock.ExpectQuery("FROM projects\\s+WHERE organization_id").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("proj-1", "org-1", "A", "", now, now).
			AddRow("proj-2", "org-1", "B", "", now, now))

	byOrg, err := store.ListProjectsByOrg(ctx, "org-1")
	if err != nil || len(byOrg) != 2 {
		t.Errorf("ListProjectsByOrg = %d, %v", len(byOrg), err)
	}

	mock.ExpectQuery("JOIN project_memberships pm").
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows(cols))

	byUser, err := store.ListProjectsByUser(ctx, "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if byUser == nil || len(byUser) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", byUser)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// ============================================================================
// RoleReader
// ============================================================================

func TestSimpleStore_RoleReader(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT EXISTS").WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	if ok, err := store.OrgExists(ctx, "org-1"); err != nil || !ok {
		t.Errorf("OrgExists = %v, %v", ok, err)
	}

	mock.ExpectQuery("SELECT organization_id FROM projects").WithArgs("proj-1").
		WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow("org-1"))
	if orgID, err := store.ProjectOrgID(ctx, "proj-1"); err != nil || orgID != "org-1" {
		t.Errorf("ProjectOrgID = %q, %v", orgID, err)
	}

	mock.ExpectQuery("SELECT organization_id FROM projects").WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	if _, err := store.ProjectOrgID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	mock.ExpectQuery("SELECT role FROM memberships").WithArgs("alice", "org-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("owner"))
	if role, err := store.OrgRole(ctx, "alice", "org-1"); err != nil || role != OrgRoleOwner {
		t.Errorf("OrgRole = %q, %v", role, err)
	}

	// No membership is an empty role, not an error
	mock.ExpectQuery("SELECT role FROM memberships").WithArgs("eve", "org-1").
		WillReturnError(sql.ErrNoRows)
	if role, err := store.OrgRole(ctx, "eve", "org-1"); err != nil || role != "" {
		t.Errorf("OrgRole = %q, %v", role, err)
	}

	mock.ExpectQuery("SELECT role FROM project_memberships").WithArgs("bob", "proj-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("member"))
	if role, err := store.ProjectRole(ctx, "bob", "proj-1"); err != nil || role != ProjectRoleMember {
		t.Errorf("ProjectRole = %q, %v", role, err)
	}

	mock.ExpectQuery("SELECT role FROM project_memberships").WithArgs("bob", "proj-1").
		WillReturnError(errors.New("connection reset"))
	if _, err := store.ProjectRole(ctx, "bob", "proj-1"); err == nil {
		t.Error("expected storage error to propagate")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
