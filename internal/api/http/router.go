package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/token-gateway/internal/api/http/handlers"
	"github.com/spec-kit/token-gateway/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Token     *handlers.TokenHandler
	Protected *handlers.ProtectedHandler
	Gate      *auth.Gate
}

// RegisterRoutes wires HTTP routes. Every route under /protected passes the gate.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/token", cfg.Token.Issue)

	protected := app.Group("/protected", cfg.Gate.Handle)
	protected.Get("/", cfg.Protected.Get)
}
