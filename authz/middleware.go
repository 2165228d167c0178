package authz

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContextKey is the type for context keys to avoid collisions
type ContextKey string

const (
	// Context keys for storing authorization data
	ContextKeyOrgID     ContextKey = "org_id"
	ContextKeyProjectID ContextKey = "project_id"
)

// AuthzMiddleware gates route groups on the Authorizer before handlers run.
// Services check again; the middleware only rejects early.
type AuthzMiddleware struct {
	Authorizer Authorizer
	logger     *zap.Logger
}

// NewAuthzMiddleware creates a new authorization middleware
func NewAuthzMiddleware(az Authorizer, logger *zap.Logger) *AuthzMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthzMiddleware{Authorizer: az, logger: logger}
}

// RequireOrgAccess ensures the user belongs to the organization in the URL
// Usage: router.Group("/orgs/:id", authzMiddleware.RequireOrgAccess())
func (m *AuthzMiddleware) RequireOrgAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		orgID := paramOrID(c, "org_id")
		if orgID == "" {
			abortBadRequest(c, "Organization ID is required")
			return
		}

		if _, err := m.Authorizer.AuthorizeOrg(c.Request.Context(), userID, orgID, ActionView); err != nil {
			m.abort(c, err, userID, ResourceOrg, orgID, ActionView)
			return
		}

		c.Set(string(ContextKeyOrgID), orgID)
		c.Next()
	}
}

// RequireProjectAccess ensures the user can view the project in the URL
// Usage: router.Group("/projects/:id", authzMiddleware.RequireProjectAccess())
func (m *AuthzMiddleware) RequireProjectAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		projectID := paramOrID(c, "project_id")
		if projectID == "" {
			abortBadRequest(c, "Project ID is required")
			return
		}

		if _, err := m.Authorizer.AuthorizeProject(c.Request.Context(), userID, projectID, ResourceProject, ActionView); err != nil {
			m.abort(c, err, userID, ResourceProject, projectID, ActionView)
			return
		}

		c.Set(string(ContextKeyProjectID), projectID)
		c.Next()
	}
}

// RequirePermission checks action on resourceType, reading the ID from paramKey.
// For column and task resources the ID must be the owning project's ID.
//
// Usage:
//
//	router.POST("/projects/:id/columns",
//	    authzMiddleware.RequirePermission(authz.ActionCreate, authz.ResourceColumn, "id"), handler)
func (m *AuthzMiddleware) RequirePermission(action Action, resourceType ResourceType, paramKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		resourceID := c.Param(paramKey)
		if resourceID == "" {
			abortBadRequest(c, "Resource ID is required")
			return
		}

		if err := m.Authorizer.Check(c.Request.Context(), userID, action, resourceType, resourceID); err != nil {
			m.abort(c, err, userID, resourceType, resourceID, action)
			return
		}

		switch resourceType {
		case ResourceOrg:
			c.Set(string(ContextKeyOrgID), resourceID)
		default:
			c.Set(string(ContextKeyProjectID), resourceID)
		}
		c.Next()
	}
}

// AutoDetectAction checks the action derived from the HTTP method on resourceType
func (m *AuthzMiddleware) AutoDetectAction(resourceType ResourceType, paramKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		m.RequirePermission(MethodToAction(c.Request.Method), resourceType, paramKey)(c)
	}
}

// MethodToAction maps HTTP methods to authorization actions
func MethodToAction(method string) Action {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ActionView
	case http.MethodPost:
		return ActionCreate
	case http.MethodPut, http.MethodPatch:
		return ActionUpdate
	case http.MethodDelete:
		return ActionDelete
	default:
		return ActionView
	}
}

func (m *AuthzMiddleware) abort(c *gin.Context, err error, userID string, resourceType ResourceType, resourceID string, action Action) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Resource not found",
		})
	case errors.Is(err, ErrForbidden):
		m.logger.Info("AUTHZ DENIED",
			zap.String("user_id", userID),
			zap.String("resource", string(resourceType)),
			zap.String("resource_id", resourceID),
			zap.String("action", string(action)),
		)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "You don't have permission to perform this action",
		})
	default:
		m.logger.Error("authorization check failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Authorization check failed",
		})
	}
}

func requireUser(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return "", false
	}
	return userID, true
}

func abortBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "bad_request",
		"message": message,
	})
}

// paramOrID reads the named URL param, falling back to the generic :id
func paramOrID(c *gin.Context, key string) string {
	if v := c.Param(key); v != "" {
		return v
	}
	return c.Param("id")
}

// GetOrgIDFromContext retrieves the organization ID from Gin context
func GetOrgIDFromContext(c *gin.Context) string {
	return c.GetString(string(ContextKeyOrgID))
}

// GetProjectIDFromContext retrieves the project ID from Gin context
func GetProjectIDFromContext(c *gin.Context) string {
	return c.GetString(string(ContextKeyProjectID))
}
