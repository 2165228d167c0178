package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrgService handles organization business logic.
// It combines authorization, membership, and repository.
type OrgService struct {
	authz   Authorizer
	members MembershipManager
	repo    OrgRepository
}

// NewOrgService creates a new organization service
func NewOrgService(authz Authorizer, members MembershipManager, repo OrgRepository) *OrgService {
	return &OrgService{
		authz:   authz,
		members: members,
		repo:    repo,
	}
}

// CreateOrgInput represents input for creating an organization
type CreateOrgInput struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// CreateOrg creates a new organization and adds the creator as owner
func (s *OrgService) CreateOrg(ctx context.Context, userID string, input CreateOrgInput) (*Organization, error) {
	name := strings.TrimSpace(input.Name)
	domain := strings.TrimSpace(input.Domain)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if domain == "" {
		return nil, fmt.Errorf("%w: domain is required", ErrInvalidInput)
	}

	taken, err := s.repo.DomainExists(ctx, domain)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDomainTaken
	}

	now := time.Now().UTC()
	org := &Organization{
		ID:        uuid.New().String(),
		Name:      name,
		Domain:    domain,
		CreatedAt: now,
		UpdatedAt: now,
	}
	owner := &Membership{
		ID:             uuid.New().String(),
		UserID:         userID,
		OrganizationID: org.ID,
		Role:           OrgRoleOwner,
		JoinedAt:       now,
	}

	// Organization and owner membership commit together
	if err := s.repo.CreateOrg(ctx, org, owner); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, ErrDomainTaken
		}
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	return org, nil
}

// GetOrg retrieves an organization by ID (with authorization)
func (s *OrgService) GetOrg(ctx context.Context, userID, orgID string) (*Organization, error) {
	if _, err := s.authz.AuthorizeOrg(ctx, userID, orgID, ActionView); err != nil {
		return nil, err
	}
	return s.repo.GetOrg(ctx, orgID)
}

// ListUserOrgs returns all organizations the user belongs to
func (s *OrgService) ListUserOrgs(ctx context.Context, userID string) ([]Organization, error) {
	return s.repo.ListOrgsByUser(ctx, userID)
}

// UpdateOrgInput represents input for updating an organization
type UpdateOrgInput struct {
	Name   *string `json:"name,omitempty"`
	Domain *string `json:"domain,omitempty"`
}

// UpdateOrg updates an organization (requires owner role)
func (s *OrgService) UpdateOrg(ctx context.Context, userID, orgID string, input UpdateOrgInput) (*Organization, error) {
	if _, err := s.authz.AuthorizeOrg(ctx, userID, orgID, ActionUpdate); err != nil {
		return nil, err
	}

	org, err := s.repo.GetOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		org.Name = name
	}
	if input.Domain != nil {
		domain := strings.TrimSpace(*input.Domain)
		if domain == "" {
			return nil, fmt.Errorf("%w: domain is required", ErrInvalidInput)
		}
		if domain != org.Domain {
			taken, err := s.repo.DomainExists(ctx, domain)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrDomainTaken
			}
		}
		org.Domain = domain
	}
	org.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateOrg(ctx, org); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, ErrDomainTaken
		}
		return nil, err
	}

	return org, nil
}

// DeleteOrg deletes an organization with its memberships and projects (requires owner role)
func (s *OrgService) DeleteOrg(ctx context.Context, userID, orgID string) error {
	if _, err := s.authz.AuthorizeOrg(ctx, userID, orgID, ActionDelete); err != nil {
		return err
	}
	return s.repo.DeleteOrg(ctx, orgID)
}

// ListOrgMembers returns all members of an organization
func (s *OrgService) ListOrgMembers(ctx context.Context, userID, orgID string) ([]Membership, error) {
	if _, err := s.authz.AuthorizeOrg(ctx, userID, orgID, ActionView); err != nil {
		return nil, err
	}
	return s.members.ListOrgMembers(ctx, orgID)
}

// AddOrgMemberInput represents input for adding a member
type AddOrgMemberInput struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// AddOrgMember adds a member to an organization (requires owner role)
func (s *OrgService) AddOrgMember(ctx context.Context, actorID, orgID string, input AddOrgMemberInput) (*Membership, error) {
	if _, err := s.authz.AuthorizeOrg(ctx, actorID, orgID, ActionManage); err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.UserID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	role, err := ParseOrgRole(input.Role)
	if err != nil {
		return nil, err
	}
	// The owner is fixed at creation
	if role == OrgRoleOwner {
		return nil, ErrOwnerAssignment
	}

	if _, err := s.members.GetOrgMembership(ctx, input.UserID, orgID); err == nil {
		return nil, ErrAlreadyMember
	} else if !isNotFound(err) {
		return nil, err
	}

	membership := &Membership{
		ID:             uuid.New().String(),
		UserID:         input.UserID,
		OrganizationID: orgID,
		Role:           role,
		JoinedAt:       time.Now().UTC(),
	}
	if err := s.members.AddOrgMember(ctx, membership); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}
	return membership, nil
}

// RemoveOrgMember removes a member from an organization (requires owner role)
func (s *OrgService) RemoveOrgMember(ctx context.Context, actorID, orgID, targetUserID string) error {
	if _, err := s.authz.AuthorizeOrg(ctx, actorID, orgID, ActionManage); err != nil {
		return err
	}

	target, err := s.members.GetOrgMembership(ctx, targetUserID, orgID)
	if err != nil {
		return err
	}

	// Removing the owner would leave the organization without one
	if target.Role == OrgRoleOwner {
		return ErrOwnerRemoval
	}

	return s.members.RemoveOrgMember(ctx, targetUserID, orgID)
}

// ============================================================================
// ProjectService
// ============================================================================

// ProjectService handles project business logic.
type ProjectService struct {
	authz   Authorizer
	members MembershipManager
	repo    ProjectRepository
}

// NewProjectService creates a new project service
func NewProjectService(authz Authorizer, members MembershipManager, repo ProjectRepository) *ProjectService {
	return &ProjectService{
		authz:   authz,
		members: members,
		repo:    repo,
	}
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
}

// CreateProject creates a project within an organization and makes the creator its manager
func (s *ProjectService) CreateProject(ctx context.Context, userID string, input CreateProjectInput) (*Project, error) {
	// Owners and managers of the organization may create projects
	if _, err := s.authz.AuthorizeOrg(ctx, userID, input.OrganizationID, ActionCreate); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	project := &Project{
		ID:             uuid.New().String(),
		OrganizationID: input.OrganizationID,
		Name:           name,
		Description:    input.Description,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	manager := &ProjectMembership{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProjectID: project.ID,
		Role:      ProjectRoleManager,
		JoinedAt:  now,
	}

	if err := s.repo.CreateProject(ctx, project, manager); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// GetProject retrieves a project by ID (with authorization)
func (s *ProjectService) GetProject(ctx context.Context, userID, projectID string) (*Project, error) {
	if _, err := s.authz.AuthorizeProject(ctx, userID, projectID, ResourceProject, ActionView); err != nil {
		return nil, err
	}
	return s.repo.GetProject(ctx, projectID)
}

// ListProjects returns every project of orgID when it is set (the caller must
// belong to the organization), otherwise the projects the caller is a member of.
func (s *ProjectService) ListProjects(ctx context.Context, userID, orgID string) ([]Project, error) {
	if orgID == "" {
		return s.repo.ListProjectsByUser(ctx, userID)
	}
	if _, err := s.authz.AuthorizeOrg(ctx, userID, orgID, ActionView); err != nil {
		return nil, err
	}
	return s.repo.ListProjectsByOrg(ctx, orgID)
}

// UpdateProjectInput represents input for updating a project
type UpdateProjectInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// UpdateProject updates a project (requires manager role in project)
func (s *ProjectService) UpdateProject(ctx context.Context, userID, projectID string, input UpdateProjectInput) (*Project, error) {
	if _, err := s.authz.AuthorizeProject(ctx, userID, projectID, ResourceProject, ActionUpdate); err != nil {
		return nil, err
	}

	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		project.Name = name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	project.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return nil, err
	}

	return project, nil
}

// DeleteProject deletes a project with its memberships, columns and tasks (requires manager role)
func (s *ProjectService) DeleteProject(ctx context.Context, userID, projectID string) error {
	if _, err := s.authz.AuthorizeProject(ctx, userID, projectID, ResourceProject, ActionDelete); err != nil {
		return err
	}
	return s.repo.DeleteProject(ctx, projectID)
}

// ListProjectMembers returns all members of a project
func (s *ProjectService) ListProjectMembers(ctx context.Context, userID, projectID string) ([]ProjectMembership, error) {
	if _, err := s.authz.AuthorizeProject(ctx, userID, projectID, ResourceProject, ActionView); err != nil {
		return nil, err
	}
	return s.members.ListProjectMembers(ctx, projectID)
}

// AddProjectMemberInput represents input for adding a project member
type AddProjectMemberInput struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// AddProjectMember adds a member to a project (requires manager role).
// The target must already belong to the project's organization.
func (s *ProjectService) AddProjectMember(ctx context.Context, actorID, projectID string, input AddProjectMemberInput) (*ProjectMembership, error) {
	if _, err := s.authz.AuthorizeProject(ctx, actorID, projectID, ResourceProject, ActionManage); err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.UserID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	role, err := ParseProjectRole(input.Role)
	if err != nil {
		return nil, err
	}

	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if _, err := s.members.GetOrgMembership(ctx, input.UserID, project.OrganizationID); err != nil {
		if isNotFound(err) {
			return nil, ErrNotOrgMember
		}
		return nil, err
	}

	if _, err := s.members.GetProjectMembership(ctx, input.UserID, projectID); err == nil {
		return nil, ErrAlreadyMember
	} else if !isNotFound(err) {
		return nil, err
	}

	membership := &ProjectMembership{
		ID:        uuid.New().String(),
		UserID:    input.UserID,
		ProjectID: projectID,
		Role:      role,
		JoinedAt:  time.Now().UTC(),
	}
	if err := s.members.AddProjectMember(ctx, membership); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}
	return membership, nil
}

// RemoveProjectMember removes a member from a project (requires manager role).
// The last member cannot leave, and a manager can only be removed by themself.
func (s *ProjectService) RemoveProjectMember(ctx context.Context, actorID, projectID, targetUserID string) error {
	if _, err := s.authz.AuthorizeProject(ctx, actorID, projectID, ResourceProject, ActionManage); err != nil {
		return err
	}

	target, err := s.members.GetProjectMembership(ctx, targetUserID, projectID)
	if err != nil {
		return err
	}

	count, err := s.members.CountProjectMembers(ctx, projectID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return ErrLastProjectMember
	}

	if target.Role == ProjectRoleManager && actorID != targetUserID {
		return ErrManagerRemoval
	}

	return s.members.RemoveProjectMember(ctx, targetUserID, projectID)
}
