package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskboard/internal/auth"
	"taskboard/internal/models"
	"taskboard/internal/service"
)

// Server provides HTTP handlers for the task board backend.
type Server struct {
	engine    *gin.Engine
	svc       *service.Service
	tokens    *auth.Tokens
	logger    *slog.Logger
	staticDir string
}

// New constructs the HTTP server with routes and middleware configured.
func New(svc *service.Service, tokens *auth.Tokens, logger *slog.Logger, staticDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz"))

	srv := &Server{
		engine:    router,
		svc:       svc,
		tokens:    tokens,
		logger:    logger,
		staticDir: staticDir,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.POST("/registration/", s.handleRegister)
		api.POST("/login/", s.handleLogin)

		authed := api.Group("", s.requireAuth)
		authed.GET("/email-check/", s.handleEmailCheck)

		boards := authed.Group("/boards")
		{
			boards.GET("/", s.handleListBoards)
			boards.POST("/", s.handleCreateBoard)
			boards.GET("/:id/", s.handleGetBoard)
			boards.PATCH("/:id/", s.handleUpdateBoard)
			boards.DELETE("/:id/", s.handleDeleteBoard)
		}

		tasks := authed.Group("/tasks")
		{
			tasks.POST("/", s.handleCreateTask)
			tasks.GET("/assigned-to-me/", s.handleAssignedToMe)
			tasks.GET("/reviewing/", s.handleReviewing)
			tasks.GET("/:id/", s.handleGetTask)
			tasks.PATCH("/:id/", s.handleUpdateTask)
			tasks.DELETE("/:id/", s.handleDeleteTask)
			tasks.GET("/:id/comments/", s.handleListComments)
			tasks.POST("/:id/comments/", s.handleCreateComment)
			tasks.DELETE("/:id/comments/:comment_id/", s.handleDeleteComment)
		}
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parseID converts a path parameter to int64. Anything that is not a
// positive integer cannot name a resource and is reported as not found.
func parseID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return 0, false
	}
	return id, true
}

// bindJSON decodes the request body into dst and answers 400 on failure.
// When the body is unusable, probe (if given) runs first so that a missing
// resource or a forbidden actor still wins over the payload error.
func (s *Server) bindJSON(c *gin.Context, dst any, probe func(ctx context.Context) error) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	if probe != nil {
		if perr := probe(c.Request.Context()); perr != nil {
			s.respondError(c, perr)
			return false
		}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		c.JSON(http.StatusBadRequest, gin.H{typeErr.Field: typeMessage(typeErr.Type)})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": "Invalid JSON payload: " + err.Error()})
	return false
}

var dateType = reflect.TypeOf(models.Date{})

// typeMessage describes the value a field expects.
func typeMessage(t reflect.Type) string {
	if t == dateType {
		return "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
	}
	return "Expected a " + t.String() + " value."
}

// respondError maps service errors onto HTTP statuses. Unexpected errors are
// logged and reported without detail.
func (s *Server) respondError(c *gin.Context, err error) {
	var (
		notFound   *service.NotFoundError
		permission *service.PermissionError
		validation *service.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
	case errors.As(err, &permission):
		c.JSON(http.StatusForbidden, gin.H{"detail": permission.Detail})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, validation.Fields)
	default:
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
	}
}

// respondSuccess writes payload as JSON, or only the status when payload is nil.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
