package authz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_UniqueRules(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedOrg(t, s, "org-1", "alice")
	now := time.Now()

	err := s.CreateOrg(ctx,
		&Organization{ID: "org-2", Domain: "org-1.io"},
		&Membership{ID: "m", UserID: "bob", OrganizationID: "org-2", Role: OrgRoleOwner},
	)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	err = s.AddOrgMember(ctx, &Membership{ID: "m2", UserID: "alice", OrganizationID: "org-1", Role: OrgRoleMember, JoinedAt: now})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	err = s.AddOrgMember(ctx, &Membership{ID: "m3", UserID: "bob", OrganizationID: "nope", Role: OrgRoleMember, JoinedAt: now})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.CreateProject(ctx,
		&Project{ID: "p1", OrganizationID: "org-1", Name: "P"},
		&ProjectMembership{ID: "pm1", UserID: "alice", ProjectID: "p1", Role: ProjectRoleManager},
	))
	require.NoError(t, s.CreateColumn(ctx, &Column{ID: "c1", ProjectID: "p1", Name: "todo"}))
	assert.ErrorIs(t, s.CreateColumn(ctx, &Column{ID: "c2", ProjectID: "p1", Name: "todo"}), ErrAlreadyExists)

	exists, err := s.ColumnNameExists(ctx, "p1", "todo", "c1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStore_DeleteOrgCascades(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedOrg(t, s, "org-1", "alice")
	seedOrg(t, s, "org-2", "zed")

	require.NoError(t, s.CreateProject(ctx,
		&Project{ID: "p1", OrganizationID: "org-1", Name: "P"},
		&ProjectMembership{ID: "pm1", UserID: "alice", ProjectID: "p1", Role: ProjectRoleManager},
	))
	require.NoError(t, s.CreateProject(ctx,
		&Project{ID: "p2", OrganizationID: "org-2", Name: "Q"},
		&ProjectMembership{ID: "pm2", UserID: "zed", ProjectID: "p2", Role: ProjectRoleManager},
	))
	require.NoError(t, s.CreateColumn(ctx, &Column{ID: "c1", ProjectID: "p1", Name: "todo"}))
	require.NoError(t, s.CreateTask(ctx, &Task{ID: "t1", Title: "x", ColumnID: "c1", ProjectID: "p1", AssigneeUserID: "alice"}))

	require.NoError(t, s.DeleteOrg(ctx, "org-1"))

	_, err := s.GetProject(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetColumn(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetTask(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)

	role, err := s.ProjectRole(ctx, "alice", "p1")
	require.NoError(t, err)
	assert.Empty(t, role)

	// Unrelated organizations are untouched
	_, err = s.GetProject(ctx, "p2")
	assert.NoError(t, err)
	assert.ErrorIs(t, s.DeleteOrg(ctx, "org-1"), ErrNotFound)
}

func TestMemoryStore_RemoveOrgMemberCascades(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedOrg(t, s, "org-1", "alice")
	seedOrg(t, s, "org-2", "zed")
	now := time.Now()

	require.NoError(t, s.AddOrgMember(ctx, &Membership{ID: "m-bob", UserID: "bob", OrganizationID: "org-1", Role: OrgRoleMember, JoinedAt: now}))
	require.NoError(t, s.AddOrgMember(ctx, &Membership{ID: "m-bob-2", UserID: "bob", OrganizationID: "org-2", Role: OrgRoleMember, JoinedAt: now}))
	require.NoError(t, s.CreateProject(ctx,
		&Project{ID: "p1", OrganizationID: "org-1", Name: "P"},
		&ProjectMembership{ID: "pm1", UserID: "alice", ProjectID: "p1", Role: ProjectRoleManager},
	))
	require.NoError(t, s.CreateProject(ctx,
		&Project{ID: "p2", OrganizationID: "org-2", Name: "Q"},
		&ProjectMembership{ID: "pm2", UserID: "zed", ProjectID: "p2", Role: ProjectRoleManager},
	))
	require.NoError(t, s.AddProjectMember(ctx, &ProjectMembership{ID: "pm3", UserID: "bob", ProjectID: "p1", Role: ProjectRoleMember}))
	require.NoError(t, s.AddProjectMember(ctx, &ProjectMembership{ID: "pm4", UserID: "bob", ProjectID: "p2", Role: ProjectRoleMember}))

	require.NoError(t, s.RemoveOrgMember(ctx, "bob", "org-1"))

	_, err := s.GetProjectMembership(ctx, "bob", "p1")
	assert.ErrorIs(t, err, ErrNotAMember)
	_, err = s.GetProjectMembership(ctx, "bob", "p2")
	assert.NoError(t, err)

	projects, err := s.ListProjectsByUser(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "p2", projects[0].ID)

	// Other members of the project stay
	role, err := s.ProjectRole(ctx, "alice", "p1")
	require.NoError(t, err)
	assert.Equal(t, ProjectRoleManager, role)
}

func TestMemoryStore_UpdateProjectKeepsOrganization(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedOrg(t, s, "org-1", "alice")
	require.NoError(t, s.CreateProject(ctx,
		&Project{ID: "p1", OrganizationID: "org-1", Name: "P"},
		&ProjectMembership{ID: "pm1", UserID: "alice", ProjectID: "p1", Role: ProjectRoleManager},
	))

	require.NoError(t, s.UpdateProject(ctx, &Project{ID: "p1", OrganizationID: "org-9", Name: "Renamed"}))

	p, err := s.GetProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "org-1", p.OrganizationID)
	assert.Equal(t, "Renamed", p.Name)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedOrg(t, s, "org-1", "alice")

	org, err := s.GetOrg(ctx, "org-1")
	require.NoError(t, err)
	org.Name = "mutated"

	again, err := s.GetOrg(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "org-1", again.Name)
}
