package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"taskhub/internal/auth"
	"taskhub/internal/config"
	"taskhub/internal/handler"
)

// Handlers groups the HTTP handlers the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Project  *handler.ProjectHandler
	Task     *handler.TaskHandler
	Realtime *handler.RealtimeHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, jwtService *auth.JWTService, h Handlers) {
	e.Validator = NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public auth routes, throttled per client IP.
	public := api.Group("/auth")
	if cfg.AuthRateLimit > 0 {
		public.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.AuthRateLimit))))
	}
	public.POST("/register", h.Auth.Register)
	public.POST("/login", h.Auth.Login)
	public.POST("/refresh", h.Auth.Refresh)
	public.POST("/logout", h.Auth.Logout)

	// Secured routes (require JWT authentication)
	secured := api.Group("", auth.Middleware(jwtService))

	secured.GET("/auth/me", h.Auth.Me)
	secured.PUT("/auth/profile", h.Auth.UpdateProfile)
	secured.PUT("/auth/password", h.Auth.ChangePassword)

	secured.GET("/projects", h.Project.List)
	secured.POST("/projects", h.Project.Create)
	secured.GET("/projects/:id", h.Project.Get)
	secured.PUT("/projects/:id", h.Project.Update)
	secured.DELETE("/projects/:id", h.Project.Delete)
	secured.GET("/projects/:id/tasks", h.Project.Tasks)
	secured.POST("/projects/:id/members", h.Project.AddMember)
	secured.DELETE("/projects/:id/members/:userId", h.Project.RemoveMember)

	secured.GET("/tasks", h.Task.List)
	secured.POST("/tasks", h.Task.Create)
	secured.GET("/tasks/:id", h.Task.Get)
	secured.PUT("/tasks/:id", h.Task.Update)
	secured.DELETE("/tasks/:id", h.Task.Delete)
	secured.POST("/tasks/:id/comments", h.Task.AddComment)

	if h.Realtime != nil {
		secured.GET("/realtime/events", h.Realtime.Stream)
	}
}
