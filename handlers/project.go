package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phonginreallife/taskboard/authz"
)

// ProjectHandler handles project-related HTTP requests
type ProjectHandler struct {
	projectService *authz.ProjectService
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(projectService *authz.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// CreateProject handles POST /orgs/:id/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID := c.GetString("user_id")

	var input authz.CreateProjectInput
	if !bindJSON(c, &input) {
		return
	}
	// The organization in the path wins over the body
	input.OrganizationID = authz.GetOrgIDFromContext(c)

	project, err := h.projectService.CreateProject(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

// ListOrgProjects handles GET /orgs/:id/projects
func (h *ProjectHandler) ListOrgProjects(c *gin.Context) {
	h.listProjects(c, authz.GetOrgIDFromContext(c))
}

// ListProjects handles GET /projects?org_id=
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	h.listProjects(c, c.Query("org_id"))
}

func (h *ProjectHandler) listProjects(c *gin.Context, orgID string) {
	userID := c.GetString("user_id")

	projects, err := h.projectService.ListProjects(c.Request.Context(), userID, orgID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// GetProject handles GET /projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	userID := c.GetString("user_id")
	projectID := authz.GetProjectIDFromContext(c)

	project, err := h.projectService.GetProject(c.Request.Context(), userID, projectID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// UpdateProject handles PATCH /projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	userID := c.GetString("user_id")
	projectID := authz.GetProjectIDFromContext(c)

	var input authz.UpdateProjectInput
	if !bindJSON(c, &input) {
		return
	}

	project, err := h.projectService.UpdateProject(c.Request.Context(), userID, projectID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// DeleteProject handles DELETE /projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	userID := c.GetString("user_id")
	projectID := authz.GetProjectIDFromContext(c)

	if err := h.projectService.DeleteProject(c.Request.Context(), userID, projectID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListProjectMembers handles GET /projects/:id/members
func (h *ProjectHandler) ListProjectMembers(c *gin.Context) {
	userID := c.GetString("user_id")
	projectID := authz.GetProjectIDFromContext(c)

	members, err := h.projectService.ListProjectMembers(c.Request.Context(), userID, projectID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// AddProjectMember handles POST /projects/:id/members
func (h *ProjectHandler) AddProjectMember(c *gin.Context) {
	userID := c.GetString("user_id")
	projectID := authz.GetProjectIDFromContext(c)

	var input authz.AddProjectMemberInput
	if !bindJSON(c, &input) {
		return
	}

	membership, err := h.projectService.AddProjectMember(c.Request.Context(), userID, projectID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, membership)
}

// RemoveProjectMember handles DELETE /projects/:id/members/:user_id
func (h *ProjectHandler) RemoveProjectMember(c *gin.Context) {
	userID := c.GetString("user_id")
	projectID := authz.GetProjectIDFromContext(c)
	targetUserID := c.Param("user_id")

	if err := h.projectService.RemoveProjectMember(c.Request.Context(), userID, projectID, targetUserID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
