package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phonginreallife/taskboard/authz"
)

// OrgHandler handles organization-related HTTP requests
type OrgHandler struct {
	orgService *authz.OrgService
}

// NewOrgHandler creates a new OrgHandler
func NewOrgHandler(orgService *authz.OrgService) *OrgHandler {
	return &OrgHandler{orgService: orgService}
}

// CreateOrg handles POST /orgs
func (h *OrgHandler) CreateOrg(c *gin.Context) {
	userID := c.GetString("user_id")

	var input authz.CreateOrgInput
	if !bindJSON(c, &input) {
		return
	}

	org, err := h.orgService.CreateOrg(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, org)
}

// ListOrgs handles GET /orgs
func (h *OrgHandler) ListOrgs(c *gin.Context) {
	userID := c.GetString("user_id")

	orgs, err := h.orgService.ListUserOrgs(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"organizations": orgs})
}

// GetOrg handles GET /orgs/:id
func (h *OrgHandler) GetOrg(c *gin.Context) {
	userID := c.GetString("user_id")
	orgID := authz.GetOrgIDFromContext(c)

	org, err := h.orgService.GetOrg(c.Request.Context(), userID, orgID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}

// UpdateOrg handles PATCH /orgs/:id
func (h *OrgHandler) UpdateOrg(c *gin.Context) {
	userID := c.GetString("user_id")
	orgID := authz.GetOrgIDFromContext(c)

	var input authz.UpdateOrgInput
	if !bindJSON(c, &input) {
		return
	}

	org, err := h.orgService.UpdateOrg(c.Request.Context(), userID, orgID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}

// DeleteOrg handles DELETE /orgs/:id
func (h *OrgHandler) DeleteOrg(c *gin.Context) {
	userID := c.GetString("user_id")
	orgID := authz.GetOrgIDFromContext(c)

	if err := h.orgService.DeleteOrg(c.Request.Context(), userID, orgID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListOrgMembers handles GET /orgs/:id/members
func (h *OrgHandler) ListOrgMembers(c *gin.Context) {
	userID := c.GetString("user_id")
	orgID := authz.GetOrgIDFromContext(c)

	members, err := h.orgService.ListOrgMembers(c.Request.Context(), userID, orgID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// AddOrgMember handles POST /orgs/:id/members
func (h *OrgHandler) AddOrgMember(c *gin.Context) {
	userID := c.GetString("user_id")
	orgID := authz.GetOrgIDFromContext(c)

	var input authz.AddOrgMemberInput
	if !bindJSON(c, &input) {
		return
	}

	membership, err := h.orgService.AddOrgMember(c.Request.Context(), userID, orgID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, membership)
}

// RemoveOrgMember handles DELETE /orgs/:id/members/:user_id
func (h *OrgHandler) RemoveOrgMember(c *gin.Context) {
	userID := c.GetString("user_id")
	orgID := authz.GetOrgIDFromContext(c)
	targetUserID := c.Param("user_id")

	if err := h.orgService.RemoveOrgMember(c.Request.Context(), userID, orgID, targetUserID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
