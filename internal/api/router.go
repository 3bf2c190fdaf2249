package api

import (
	"database/sql"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/azisaba/azisaba-commander-api/internal/api/handler"
	"github.com/azisaba/azisaba-commander-api/internal/api/middleware"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
	"github.com/azisaba/azisaba-commander-api/internal/session"
)

// Dependencies carries everything the router wires into handlers and
// guards. Redis may be nil when the invalidation bus is disabled.
type Dependencies struct {
	DB    *sql.DB
	Redis *redis.Client

	Sessions    *session.Store
	Accounts    ports.AccountService
	TwoFA       ports.TwoFAService
	Permissions ports.PermissionService
	Containers  ports.ContainerService
	Audit       ports.AuditRepository

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("commander"))

	gate := middleware.NewGate(deps.Sessions, deps.Accounts, deps.TwoFA)

	authHandler := handler.NewAuthHandler(deps.Accounts)
	twoFAHandler := handler.NewTwoFAHandler(deps.TwoFA, deps.Accounts)
	userHandler := handler.NewUserHandler(deps.Accounts, deps.Permissions)
	permissionHandler := handler.NewPermissionHandler(deps.Permissions)
	containerHandler := handler.NewContainerHandler(deps.Containers)
	logHandler := handler.NewLogHandler(deps.Audit)

	v1 := e.Group("/v1", gate.Protect())

	// --- Account lifecycle ---
	v1.POST("/register", authHandler.Register)
	v1.GET("/register/:token", authHandler.Approve)
	v1.POST("/login", authHandler.Login)
	v1.POST("/login/2fa", authHandler.LoginTwoFA)
	v1.POST("/logout", authHandler.Logout, gate.Authorized())
	v1.GET("/me", authHandler.Me, gate.Authorized())
	v1.POST("/changepassword", authHandler.ChangePassword, gate.Authorized())

	// --- 2FA self-service ---
	v1.GET("/2fa", twoFAHandler.Status, gate.Authorized())
	v1.POST("/2fa", twoFAHandler.Register, gate.Authorized())
	v1.DELETE("/2fa", twoFAHandler.Disable, gate.Authorized())

	// --- User administration (admin + 2FA) ---
	adminTwoFA := gate.AuthorizedAdminWithTwoFA()
	v1.GET("/users", userHandler.List, adminTwoFA...)
	v1.GET("/users/:id", userHandler.Get, adminTwoFA...)
	v1.DELETE("/users/:id", userHandler.Delete, adminTwoFA...)
	v1.POST("/users/:id/group", userHandler.SetGroup, adminTwoFA...)
	v1.GET("/users/:id/permissions", userHandler.Permissions, adminTwoFA...)
	v1.POST("/users/:id/permissions/:permissionId", userHandler.Grant, adminTwoFA...)
	v1.DELETE("/users/:id/permissions/:permissionId", userHandler.Revoke, adminTwoFA...)

	// --- Permission definitions (admin + 2FA) ---
	v1.GET("/permissions", permissionHandler.List, adminTwoFA...)
	v1.GET("/permissions/:id", permissionHandler.Get, adminTwoFA...)
	v1.POST("/permissions", permissionHandler.Create, adminTwoFA...)
	v1.PATCH("/permissions", permissionHandler.Update, adminTwoFA...)
	v1.DELETE("/permissions/:id", permissionHandler.Delete, adminTwoFA...)

	// --- Container control plane (session + 2FA; per-container checks in
	// the service) ---
	withTwoFA := gate.AuthorizedWithTwoFA()
	v1.GET("/containers", containerHandler.List, withTwoFA...)
	v1.GET("/containers/:nodeId/:containerId", containerHandler.Get, withTwoFA...)
	v1.POST("/containers/:nodeId/:containerId/start", containerHandler.Start, withTwoFA...)
	v1.POST("/containers/:nodeId/:containerId/stop", containerHandler.Stop, withTwoFA...)
	v1.POST("/containers/:nodeId/:containerId/restart", containerHandler.Restart, withTwoFA...)
	v1.GET("/containers/:nodeId/:containerId/logs", containerHandler.Logs, withTwoFA...)

	// --- Audit trail (admin + 2FA) ---
	v1.GET("/logs", logHandler.List, adminTwoFA...)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.DB, deps.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
