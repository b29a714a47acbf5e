package server

import (
	"context"
	"ctchen222/accounts/internal/api/controller"
	"ctchen222/accounts/internal/api/middleware"
	"ctchen222/accounts/internal/api/response"
	"ctchen222/accounts/internal/api/service"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports whether a dependency of the server is usable.
type HealthCheck func(ctx context.Context) error

type Server struct {
	engine *gin.Engine
	checks map[string]HealthCheck
}

// NewServer wires the HTTP routes of the accounts API.
func NewServer(userController *controller.UserController, sessions service.SessionService, checks map[string]HealthCheck) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.Tracing())

	s := &Server{engine: engine, checks: checks}

	engine.GET("/healthz", s.handleHealth)

	authGroup := engine.Group("/api/auth")
	authGroup.POST("/login", userController.Login)
	authGroup.POST("/signup", userController.SignUp)
	authGroup.POST("/password/change", middleware.RequireAuth(sessions), userController.ChangePassword)

	users := engine.Group("/api/users", middleware.RequireAuth(sessions))
	users.GET("/me", userController.Profile)
	users.PATCH("/me", userController.UpdateProfile)

	return s
}

// Engine returns the HTTP handler serving every route.
func (s *Server) Engine() http.Handler {
	return s.engine
}

func (s *Server) handleHealth(c *gin.Context) {
	status := map[string]string{}
	healthy := true
	for name, check := range s.checks {
		if err := check(c.Request.Context()); err != nil {
			slog.WarnContext(c.Request.Context(), "Health check failed", "check", name, "error", err)
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, response.NewResponse(false, http.StatusServiceUnavailable, status))
		return
	}
	response.SuccessResponse(c, status)
}
