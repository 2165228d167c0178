package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/phonginreallife/taskboard/internal/metrics"
)

func TestResolver_AuthorizeOrg(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	org := env.createOrg(t, "alice", "acme.io")
	env.joinOrg(t, org.ID, "mia", OrgRoleManager)
	env.joinOrg(t, org.ID, "bob", OrgRoleMember)

	tests := []struct {
		name     string
		userID   string
		orgID    string
		action   Action
		wantErr  error
		wantRole OrgRole
	}{
		{"owner deletes", "alice", org.ID, ActionDelete, nil, OrgRoleOwner},
		{"owner manages", "alice", org.ID, ActionManage, nil, OrgRoleOwner},
		{"manager creates", "mia", org.ID, ActionCreate, nil, OrgRoleManager},
		{"manager cannot manage", "mia", org.ID, ActionManage, ErrForbidden, OrgRoleManager},
		{"member views", "bob", org.ID, ActionView, nil, OrgRoleMember},
		{"member cannot update", "bob", org.ID, ActionUpdate, ErrForbidden, OrgRoleMember},
		{"stranger cannot view", "eve", org.ID, ActionView, ErrForbidden, ""},
		{"missing org is not found", "eve", "nope", ActionView, ErrNotFound, ""},
		{"missing org is not found for members too", "alice", "nope", ActionDelete, ErrNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := env.resolver.AuthorizeOrg(ctx, tt.userID, tt.orgID, tt.action)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantRole, role)
		})
	}
}

func TestResolver_AuthorizeProject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	org := env.createOrg(t, "alice", "acme.io")
	env.joinOrg(t, org.ID, "bob", OrgRoleMember)
	env.joinOrg(t, org.ID, "carol", OrgRoleMember)
	project := env.createProject(t, "alice", org.ID)
	env.joinProject(t, project.ID, "bob", ProjectRoleMember)

	// dave left the organization; a project row written before the cascade existed survived
	env.joinOrg(t, org.ID, "dave", OrgRoleMember)
	require.NoError(t, env.store.RemoveOrgMember(ctx, "dave", org.ID))
	env.joinProject(t, project.ID, "dave", ProjectRoleManager)

	tests := []struct {
		name     string
		userID   string
		project  string
		resource ResourceType
		action   Action
		wantErr  error
	}{
		{"manager updates project", "alice", project.ID, ResourceProject, ActionUpdate, nil},
		{"manager creates column", "alice", project.ID, ResourceColumn, ActionCreate, nil},
		{"manager deletes task", "alice", project.ID, ResourceTask, ActionDelete, nil},
		{"member views project", "bob", project.ID, ResourceProject, ActionView, nil},
		{"member creates task", "bob", project.ID, ResourceTask, ActionCreate, nil},
		{"member updates task", "bob", project.ID, ResourceTask, ActionUpdate, nil},
		{"member cannot delete task", "bob", project.ID, ResourceTask, ActionDelete, ErrForbidden},
		{"member cannot create column", "bob", project.ID, ResourceColumn, ActionCreate, ErrForbidden},
		{"member cannot manage members", "bob", project.ID, ResourceProject, ActionManage, ErrForbidden},
		{"org member outside project", "carol", project.ID, ResourceProject, ActionView, ErrForbidden},
		{"stale project row without org membership", "dave", project.ID, ResourceProject, ActionView, ErrForbidden},
		{"stranger", "eve", project.ID, ResourceTask, ActionView, ErrForbidden},
		{"missing project beats permission", "eve", "nope", ResourceProject, ActionView, ErrNotFound},
		{"unknown resource fails closed", "alice", project.ID, ResourceOrg, ActionView, ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.resolver.AuthorizeProject(ctx, tt.userID, tt.project, tt.resource, tt.action)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolver_Check(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	org := env.createOrg(t, "alice", "acme.io")
	project := env.createProject(t, "alice", org.ID)

	assert.NoError(t, env.resolver.Check(ctx, "alice", ActionDelete, ResourceOrg, org.ID))
	assert.NoError(t, env.resolver.Check(ctx, "alice", ActionCreate, ResourceColumn, project.ID))
	assert.ErrorIs(t, env.resolver.Check(ctx, "bob", ActionView, ResourceTask, project.ID), ErrForbidden)
	assert.ErrorIs(t, env.resolver.Check(ctx, "alice", ActionView, "comment", project.ID), ErrForbidden)
}

func TestResolver_GetRoles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	org := env.createOrg(t, "alice", "acme.io")
	project := env.createProject(t, "alice", org.ID)

	role, err := env.resolver.GetOrgRole(ctx, "alice", org.ID)
	require.NoError(t, err)
	assert.Equal(t, OrgRoleOwner, role)

	prole, err := env.resolver.GetProjectRole(ctx, "alice", project.ID)
	require.NoError(t, err)
	assert.Equal(t, ProjectRoleManager, prole)

	role, err = env.resolver.GetOrgRole(ctx, "bob", org.ID)
	require.NoError(t, err)
	assert.Empty(t, role)
}

// failingRoles returns a storage error from every lookup
type failingRoles struct{ err error }

func (f failingRoles) OrgExists(context.Context, string) (bool, error) { return false, f.err }
func (f failingRoles) ProjectOrgID(context.Context, string) (string, error) {
	return "", f.err
}
func (f failingRoles) OrgRole(context.Context, string, string) (OrgRole, error) { return "", f.err }
func (f failingRoles) ProjectRole(context.Context, string, string) (ProjectRole, error) {
	return "", f.err
}

func TestResolver_StorageErrorsAreNotDecisions(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewResolver(failingRoles{err: boom}, nil, nil)
	ctx := context.Background()

	_, err := r.AuthorizeOrg(ctx, "alice", "org-1", ActionView)
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrNotFound))

	_, err = r.AuthorizeProject(ctx, "alice", "project-1", ResourceTask, ActionView)
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestResolver_RecordsDecisions(t *testing.T) {
	store := NewMemoryStore()
	core, logs := observer.New(zapcore.DebugLevel)
	m := metrics.NewMetrics(prometheus.NewRegistry())
	r := NewResolver(store, zap.New(core), m)
	orgs := NewOrgService(r, store, store)
	ctx := context.Background()

	org, err := orgs.CreateOrg(ctx, "alice", CreateOrgInput{Name: "Acme", Domain: "acme.io"})
	require.NoError(t, err)

	_, err = r.AuthorizeOrg(ctx, "alice", org.ID, ActionView)
	require.NoError(t, err)
	_, err = r.AuthorizeOrg(ctx, "eve", org.ID, ActionView)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = r.AuthorizeOrg(ctx, "eve", "missing", ActionView)
	require.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthzDecisionsTotal.WithLabelValues("org", "view", "allow")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthzDecisionsTotal.WithLabelValues("org", "view", "deny")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthzDecisionsTotal.WithLabelValues("org", "view", "not_found")))

	denied := logs.FilterMessage("authz denied").All()
	require.Len(t, denied, 1)
	assert.Equal(t, zapcore.InfoLevel, denied[0].Level)
	assert.Equal(t, "eve", denied[0].ContextMap()["user_id"])
	assert.Equal(t, 1, logs.FilterMessage("authz allowed").Len())
}
