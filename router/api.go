package router

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/phonginreallife/taskboard/authz"
	"github.com/phonginreallife/taskboard/handlers"
	"github.com/phonginreallife/taskboard/internal/logging"
	"github.com/phonginreallife/taskboard/internal/metrics"
)

// Deps are the collaborators the HTTP surface needs. DB and Redis are only
// used for health checks and may be nil.
type Deps struct {
	Store     authz.Store
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	JWTSecret string
	DB        *sql.DB
	Redis     *redis.Client
}

// NewGinRouter wires services, handlers and middleware onto a gin engine
func NewGinRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.Logger(logger))
	r.Use(requestMetrics(deps.Metrics))

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Initialize services
	resolver := authz.NewResolver(deps.Store, logger.Named("authz"), deps.Metrics)
	orgService := authz.NewOrgService(resolver, deps.Store, deps.Store)
	projectService := authz.NewProjectService(resolver, deps.Store, deps.Store)
	boardService := authz.NewBoardService(resolver, deps.Store, deps.Store)

	// Initialize handlers
	orgHandler := handlers.NewOrgHandler(orgService)
	projectHandler := handlers.NewProjectHandler(projectService)
	boardHandler := handlers.NewBoardHandler(boardService)

	authMiddleware := handlers.NewAuthMiddleware(deps.JWTSecret)
	authzMiddleware := authz.NewAuthzMiddleware(resolver, logger.Named("authz"))

	// Public routes
	r.GET("/healthz", healthHandler(deps.DB, deps.Redis))
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	protected := r.Group("/")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Organizations
		protected.POST("/orgs", orgHandler.CreateOrg)
		protected.GET("/orgs", orgHandler.ListOrgs)

		org := protected.Group("/orgs/:id")
		org.Use(authzMiddleware.RequireOrgAccess())
		{
			// Writes are rejected here before the body is bound
			org.GET("", orgHandler.GetOrg)
			org.PATCH("", authzMiddleware.AutoDetectAction(authz.ResourceOrg, "id"), orgHandler.UpdateOrg)
			org.DELETE("", authzMiddleware.AutoDetectAction(authz.ResourceOrg, "id"), orgHandler.DeleteOrg)

			org.GET("/members", orgHandler.ListOrgMembers)
			org.POST("/members", authzMiddleware.RequirePermission(authz.ActionManage, authz.ResourceOrg, "id"), orgHandler.AddOrgMember)
			org.DELETE("/members/:user_id", authzMiddleware.RequirePermission(authz.ActionManage, authz.ResourceOrg, "id"), orgHandler.RemoveOrgMember)

			org.GET("/projects", projectHandler.ListOrgProjects)
			org.POST("/projects", authzMiddleware.AutoDetectAction(authz.ResourceOrg, "id"), projectHandler.CreateProject)
		}

		// Projects
		protected.GET("/projects", projectHandler.ListProjects)

		project := protected.Group("/projects/:id")
		project.Use(authzMiddleware.RequireProjectAccess())
		{
			project.GET("", projectHandler.GetProject)
			project.PATCH("", authzMiddleware.AutoDetectAction(authz.ResourceProject, "id"), projectHandler.UpdateProject)
			project.DELETE("", authzMiddleware.AutoDetectAction(authz.ResourceProject, "id"), projectHandler.DeleteProject)

			project.GET("/members", projectHandler.ListProjectMembers)
			project.POST("/members", authzMiddleware.RequirePermission(authz.ActionManage, authz.ResourceProject, "id"), projectHandler.AddProjectMember)
			project.DELETE("/members/:user_id", authzMiddleware.RequirePermission(authz.ActionManage, authz.ResourceProject, "id"), projectHandler.RemoveProjectMember)

			project.GET("/columns", boardHandler.ListColumns)
			project.POST("/columns", authzMiddleware.AutoDetectAction(authz.ResourceColumn, "id"), boardHandler.CreateColumn)

			project.GET("/tasks", boardHandler.ListTasks)
			project.POST("/tasks", authzMiddleware.AutoDetectAction(authz.ResourceTask, "id"), boardHandler.CreateTask)
		}

		// Columns and tasks resolve their project inside the service
		protected.GET("/columns/:id", boardHandler.GetColumn)
		protected.PATCH("/columns/:id", boardHandler.UpdateColumn)
		protected.DELETE("/columns/:id", boardHandler.DeleteColumn)

		protected.GET("/tasks/:id", boardHandler.GetTask)
		protected.PATCH("/tasks/:id", boardHandler.UpdateTask)
		protected.DELETE("/tasks/:id", boardHandler.DeleteTask)
	}

	return r
}

// requestMetrics records request counts and latency by route template
func requestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

func healthHandler(db *sql.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{}
		healthy := true

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				checks["database"] = err.Error()
				healthy = false
			} else {
				checks["database"] = "ok"
			}
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}

		if !healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "checks": checks})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
	}
}
