// Package router assembles the platform HTTP API.
package router

import (
	"context"
	"net/http"
	"time"

	"ctfplatform/internal/auth"
	commonmw "ctfplatform/internal/common/http/middleware"
	"ctfplatform/internal/realtime"
	statController "ctfplatform/internal/stat/controller"
	submissionController "ctfplatform/internal/submission/controller"
	taskController "ctfplatform/internal/task/controller"
	teamController "ctfplatform/internal/team/controller"
	"ctfplatform/pkg/utils/logger"
	"ctfplatform/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Controllers groups the handlers mounted under /api/v1.
type Controllers struct {
	Tasks       *taskController.TaskController
	Teams       *teamController.TeamController
	Submissions *submissionController.SubmissionController
	Stats       *statController.StatController
}

// Options configures New. Hub may be nil to disable the stream endpoint.
type Options struct {
	Tokens      *auth.TokenService
	Hub         *realtime.Hub
	Controllers Controllers
	// Health reports readiness; nil always reports healthy.
	Health func(ctx context.Context) error
}

// New builds the gin engine with trace, scope detection and request logging.
func New(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		if opts.Health != nil {
			if err := opts.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.Use(auth.DetectScope(opts.Tokens))

	supervisors := auth.RequireSupervisor()
	teams := auth.RequireTeam()

	if h := opts.Controllers.Tasks; h != nil {
		api.GET("/tasks", h.List)
		api.GET("/tasks/:id", h.Get)
		api.GET("/categories/:id/tasks", h.ListByCategory)
		api.POST("/tasks", supervisors, h.Create)
		api.PUT("/tasks/:id", supervisors, h.Update)
		api.POST("/tasks/:id/open", supervisors, h.Open)
		api.POST("/tasks/:id/close", supervisors, h.Close)
	}
	if h := opts.Controllers.Submissions; h != nil {
		api.POST("/tasks/:id/submit", teams, h.Submit)
	}
	if h := opts.Controllers.Teams; h != nil {
		api.GET("/teams", h.List)
	}
	if h := opts.Controllers.Stats; h != nil {
		api.GET("/stats", supervisors, h.Get)
	}
	if opts.Hub != nil {
		api.GET("/stream", realtime.StreamHandler(opts.Hub, auth.ScopeFromContext))
	}

	router.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "Route not found")
	})
	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
