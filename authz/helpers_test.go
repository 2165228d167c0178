package authz

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// testEnv wires the services over a MemoryStore the way the router does
type testEnv struct {
	store    *MemoryStore
	resolver *Resolver
	orgs     *OrgService
	projects *ProjectService
	board    *BoardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := NewMemoryStore()
	resolver := NewResolver(store, nil, nil)
	return &testEnv{
		store:    store,
		resolver: resolver,
		orgs:     NewOrgService(resolver, store, store),
		projects: NewProjectService(resolver, store, store),
		board:    NewBoardService(resolver, store, store),
	}
}

func (e *testEnv) createOrg(t *testing.T, owner, domain string) *Organization {
	t.Helper()
	org, err := e.orgs.CreateOrg(context.Background(), owner, CreateOrgInput{Name: domain, Domain: domain})
	require.NoError(t, err)
	return org
}

// joinOrg seeds an organization membership directly in the store
func (e *testEnv) joinOrg(t *testing.T, orgID, userID string, role OrgRole) {
	t.Helper()
	err := e.store.AddOrgMember(context.Background(), &Membership{
		ID:             uuid.New().String(),
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
		JoinedAt:       time.Now().UTC(),
	})
	require.NoError(t, err)
}

func (e *testEnv) createProject(t *testing.T, manager, orgID string) *Project {
	t.Helper()
	p, err := e.projects.CreateProject(context.Background(), manager, CreateProjectInput{
		OrganizationID: orgID,
		Name:           "Project " + manager,
	})
	require.NoError(t, err)
	return p
}

// joinProject seeds a project membership directly in the store
func (e *testEnv) joinProject(t *testing.T, projectID, userID string, role ProjectRole) {
	t.Helper()
	err := e.store.AddProjectMember(context.Background(), &ProjectMembership{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProjectID: projectID,
		Role:      role,
		JoinedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
}

// board seeds: org "acme" owned by alice, project P managed by alice with
// bob as member, columns "todo"(0) and "done"(1)
type boardFixture struct {
	org     *Organization
	project *Project
	todo    *Column
	done    *Column
}

func (e *testEnv) seedBoard(t *testing.T) boardFixture {
	t.Helper()
	ctx := context.Background()

	org := e.createOrg(t, "alice", "acme.io")
	e.joinOrg(t, org.ID, "bob", OrgRoleMember)
	project := e.createProject(t, "alice", org.ID)
	e.joinProject(t, project.ID, "bob", ProjectRoleMember)

	todo, err := e.board.CreateColumn(ctx, "alice", project.ID, CreateColumnInput{Name: "todo", Position: 0})
	require.NoError(t, err)
	done, err := e.board.CreateColumn(ctx, "alice", project.ID, CreateColumnInput{Name: "done", Position: 1})
	require.NoError(t, err)

	return boardFixture{org: org, project: project, todo: todo, done: done}
}
