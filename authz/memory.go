package authz

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store. It enforces the same unique and cascade
// rules as the PostgreSQL schema. Used for local runs (STORE_DRIVER=memory)
// and tests.
type MemoryStore struct {
	mu sync.RWMutex

	orgs           map[string]Organization
	projects       map[string]Project
	columns        map[string]Column
	tasks          map[string]Task
	orgMembers     map[string]map[string]Membership        // orgID -> userID -> membership
	projectMembers map[string]map[string]ProjectMembership // projectID -> userID -> membership
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orgs:           make(map[string]Organization),
		projects:       make(map[string]Project),
		columns:        make(map[string]Column),
		tasks:          make(map[string]Task),
		orgMembers:     make(map[string]map[string]Membership),
		projectMembers: make(map[string]map[string]ProjectMembership),
	}
}

var _ Store = (*MemoryStore)(nil)

// ============================================================================
// RoleReader
// ============================================================================

func (s *MemoryStore) OrgExists(ctx context.Context, orgID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.orgs[orgID]
	return ok, nil
}

func (s *MemoryStore) ProjectOrgID(ctx context.Context, projectID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[projectID]
	if !ok {
		return "", ErrNotFound
	}
	return p.OrganizationID, nil
}

func (s *MemoryStore) OrgRole(ctx context.Context, userID, orgID string) (OrgRole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orgMembers[orgID][userID].Role, nil
}

func (s *MemoryStore) ProjectRole(ctx context.Context, userID, projectID string) (ProjectRole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectMembers[projectID][userID].Role, nil
}

// ============================================================================
// Organizations
// ============================================================================

func (s *MemoryStore) CreateOrg(ctx context.Context, org *Organization, owner *Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[org.ID]; ok {
		return ErrAlreadyExists
	}
	if s.domainTaken(org.Domain, "") {
		return ErrAlreadyExists
	}
	s.orgs[org.ID] = *org
	s.orgMembers[org.ID] = map[string]Membership{owner.UserID: *owner}
	return nil
}

func (s *MemoryStore) GetOrg(ctx context.Context, id string) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &org, nil
}

func (s *MemoryStore) ListOrgsByUser(ctx context.Context, userID string) ([]Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orgs := make([]Organization, 0)
	for orgID, members := range s.orgMembers {
		if _, ok := members[userID]; ok {
			orgs = append(orgs, s.orgs[orgID])
		}
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].ID < orgs[j].ID })
	return orgs, nil
}

func (s *MemoryStore) UpdateOrg(ctx context.Context, org *Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[org.ID]; !ok {
		return ErrNotFound
	}
	if s.domainTaken(org.Domain, org.ID) {
		return ErrAlreadyExists
	}
	s.orgs[org.ID] = *org
	return nil
}

func (s *MemoryStore) DeleteOrg(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[id]; !ok {
		return ErrNotFound
	}
	for projectID, p := range s.projects {
		if p.OrganizationID == id {
			s.deleteProjectLocked(projectID)
		}
	}
	delete(s.orgMembers, id)
	delete(s.orgs, id)
	return nil
}

func (s *MemoryStore) DomainExists(ctx context.Context, domain string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.domainTaken(domain, ""), nil
}

func (s *MemoryStore) domainTaken(domain, excludeID string) bool {
	for id, org := range s.orgs {
		if id != excludeID && org.Domain == domain {
			return true
		}
	}
	return false
}

// ============================================================================
// Projects
// ============================================================================

func (s *MemoryStore) CreateProject(ctx context.Context, project *Project, manager *ProjectMembership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[project.OrganizationID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.projects[project.ID]; ok {
		return ErrAlreadyExists
	}
	s.projects[project.ID] = *project
	s.projectMembers[project.ID] = map[string]ProjectMembership{manager.UserID: *manager}
	return nil
}

func (s *MemoryStore) GetProject(ctx context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) ListProjectsByOrg(ctx context.Context, orgID string) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := make([]Project, 0)
	for _, p := range s.projects {
		if p.OrganizationID == orgID {
			projects = append(projects, p)
		}
	}
	sortProjects(projects)
	return projects, nil
}

func (s *MemoryStore) ListProjectsByUser(ctx context.Context, userID string) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := make([]Project, 0)
	for projectID, members := range s.projectMembers {
		if _, ok := members[userID]; ok {
			projects = append(projects, s.projects[projectID])
		}
	}
	sortProjects(projects)
	return projects, nil
}

func (s *MemoryStore) UpdateProject(ctx context.Context, project *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.projects[project.ID]
	if !ok {
		return ErrNotFound
	}
	// Projects never move between organizations
	project.OrganizationID = existing.OrganizationID
	s.projects[project.ID] = *project
	return nil
}

func (s *MemoryStore) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return ErrNotFound
	}
	s.deleteProjectLocked(id)
	return nil
}

// deleteProjectLocked removes a project with its memberships, columns and tasks.
// Caller holds s.mu.
func (s *MemoryStore) deleteProjectLocked(id string) {
	for taskID, t := range s.tasks {
		if t.ProjectID == id {
			delete(s.tasks, taskID)
		}
	}
	for columnID, c := range s.columns {
		if c.ProjectID == id {
			delete(s.columns, columnID)
		}
	}
	delete(s.projectMembers, id)
	delete(s.projects, id)
}

func sortProjects(projects []Project) {
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
}

// ============================================================================
// Columns
// ============================================================================

func (s *MemoryStore) CreateColumn(ctx context.Context, column *Column) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[column.ProjectID]; !ok {
		return ErrNotFound
	}
	if s.columnNameTaken(column.ProjectID, column.Name, "") {
		return ErrAlreadyExists
	}
	s.columns[column.ID] = *column
	return nil
}

func (s *MemoryStore) GetColumn(ctx context.Context, id string) (*Column, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.columns[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) ListColumns(ctx context.Context, projectID string) ([]Column, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	columns := make([]Column, 0)
	for _, c := range s.columns {
		if c.ProjectID == projectID {
			columns = append(columns, c)
		}
	}
	sort.Slice(columns, func(i, j int) bool {
		if columns[i].Position != columns[j].Position {
			return columns[i].Position < columns[j].Position
		}
		return columns[i].Name < columns[j].Name
	})
	return columns, nil
}

func (s *MemoryStore) UpdateColumn(ctx context.Context, column *Column) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.columns[column.ID]
	if !ok {
		return ErrNotFound
	}
	if s.columnNameTaken(existing.ProjectID, column.Name, column.ID) {
		return ErrAlreadyExists
	}
	column.ProjectID = existing.ProjectID
	s.columns[column.ID] = *column
	return nil
}

func (s *MemoryStore) DeleteColumn(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.columns[id]; !ok {
		return ErrNotFound
	}
	for taskID, t := range s.tasks {
		if t.ColumnID == id {
			delete(s.tasks, taskID)
		}
	}
	delete(s.columns, id)
	return nil
}

func (s *MemoryStore) ColumnNameExists(ctx context.Context, projectID, name, excludeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.columnNameTaken(projectID, name, excludeID), nil
}

func (s *MemoryStore) columnNameTaken(projectID, name, excludeID string) bool {
	for id, c := range s.columns {
		if id != excludeID && c.ProjectID == projectID && c.Name == name {
			return true
		}
	}
	return false
}

// ============================================================================
// Tasks
// ============================================================================

func (s *MemoryStore) CreateTask(ctx context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.columns[task.ColumnID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.tasks[task.ID]; ok {
		return ErrAlreadyExists
	}
	s.tasks[task.ID] = *task
	return nil
}

func (s *MemoryStore) GetTask(ctx context.Context, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]Task, 0)
	for _, t := range s.tasks {
		if filter.ProjectID != "" && t.ProjectID != filter.ProjectID {
			continue
		}
		if filter.ColumnID != "" && t.ColumnID != filter.ColumnID {
			continue
		}
		if filter.AssigneeUserID != "" && t.AssigneeUserID != filter.AssigneeUserID {
			continue
		}
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].DueDate.Equal(tasks[j].DueDate) {
			return tasks[i].DueDate.Before(tasks[j].DueDate)
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, nil
}

func (s *MemoryStore) UpdateTask(ctx context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tasks[task.ID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := s.columns[task.ColumnID]; !ok {
		return ErrNotFound
	}
	task.ProjectID = existing.ProjectID
	s.tasks[task.ID] = *task
	return nil
}

func (s *MemoryStore) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

// ============================================================================
// Memberships
// ============================================================================

func (s *MemoryStore) AddOrgMember(ctx context.Context, m *Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.orgMembers[m.OrganizationID]
	if !ok {
		if _, exists := s.orgs[m.OrganizationID]; !exists {
			return ErrNotFound
		}
		members = make(map[string]Membership)
		s.orgMembers[m.OrganizationID] = members
	}
	if _, ok := members[m.UserID]; ok {
		return ErrAlreadyExists
	}
	members[m.UserID] = *m
	return nil
}

func (s *MemoryStore) RemoveOrgMember(ctx context.Context, userID, orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgMembers[orgID][userID]; !ok {
		return ErrNotAMember
	}
	delete(s.orgMembers[orgID], userID)
	for projectID, p := range s.projects {
		if p.OrganizationID == orgID {
			delete(s.projectMembers[projectID], userID)
		}
	}
	return nil
}

func (s *MemoryStore) GetOrgMembership(ctx context.Context, userID, orgID string) (*Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.orgMembers[orgID][userID]
	if !ok {
		return nil, ErrNotAMember
	}
	return &m, nil
}

func (s *MemoryStore) ListOrgMembers(ctx context.Context, orgID string) ([]Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]Membership, 0, len(s.orgMembers[orgID]))
	for _, m := range s.orgMembers[orgID] {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.Before(members[j].JoinedAt)
		}
		return members[i].UserID < members[j].UserID
	})
	return members, nil
}

func (s *MemoryStore) AddProjectMember(ctx context.Context, m *ProjectMembership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.projectMembers[m.ProjectID]
	if !ok {
		if _, exists := s.projects[m.ProjectID]; !exists {
			return ErrNotFound
		}
		members = make(map[string]ProjectMembership)
		s.projectMembers[m.ProjectID] = members
	}
	if _, ok := members[m.UserID]; ok {
		return ErrAlreadyExists
	}
	members[m.UserID] = *m
	return nil
}

func (s *MemoryStore) RemoveProjectMember(ctx context.Context, userID, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projectMembers[projectID][userID]; !ok {
		return ErrNotAMember
	}
	delete(s.projectMembers[projectID], userID)
	return nil
}

func (s *MemoryStore) GetProjectMembership(ctx context.Context, userID, projectID string) (*ProjectMembership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.projectMembers[projectID][userID]
	if !ok {
		return nil, ErrNotAMember
	}
	return &m, nil
}

func (s *MemoryStore) ListProjectMembers(ctx context.Context, projectID string) ([]ProjectMembership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]ProjectMembership, 0, len(s.projectMembers[projectID]))
	for _, m := range s.projectMembers[projectID] {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.Before(members[j].JoinedAt)
		}
		return members[i].UserID < members[j].UserID
	})
	return members, nil
}

func (s *MemoryStore) CountProjectMembers(ctx context.Context, projectID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projectMembers[projectID]), nil
}
