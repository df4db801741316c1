package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/poll-service/internal/api/http/handlers"
	"github.com/spec-kit/poll-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Polls          *handlers.PollsHandler
	Auth           *handlers.AuthHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	Gate           *auth.Gate
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	mw := cfg.AuthMiddleware

	polls := app.Group("/polls")
	polls.Get("/", mw.Optional, cfg.Polls.ListPolls)
	polls.Post("/", mw.Optional, cfg.Polls.Action)
	polls.Get("/:id", mw.Optional, cfg.Polls.GetPoll)
	polls.Post("/:id/close", mw.Handle, cfg.Polls.ClosePoll)
	polls.Post("/:id/reopen", mw.Handle, cfg.Polls.ReopenPoll)
	polls.Post("/:id/reset", mw.Handle, cfg.Polls.ResetTallies)
	polls.Delete("/:id/votes", mw.Handle, cfg.Polls.PurgeVotes)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/demo", cfg.Auth.Demo)

	me := app.Group("/me", mw.Handle, auth.RequireAuthenticated())
	me.Get("/", cfg.Auth.Me)
	me.Get("/polls", cfg.Auth.MyPolls)
	me.Get("/stats", cfg.Auth.MyStats)
	me.Post("/password", cfg.Auth.ChangePassword)

	admin := app.Group("/admin", mw.Handle)
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Delete("/users/:id", cfg.Admin.RemoveUser)
	admin.Put("/users/:id/role", cfg.Admin.ChangeRole)
	admin.Get("/settings", cfg.Admin.GetSettings)
	admin.Put("/settings", cfg.Admin.UpdateSettings)
	admin.Get("/stats", cfg.Admin.PlatformStats)
	admin.Get("/metrics", auth.RequireCapability(cfg.Gate, auth.CapManageSettings), cfg.Admin.Metrics)
}
