package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/api/http/handlers"
	"github.com/spec-kit/ticket-bot/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Catalog        *handlers.CatalogHandler
	Tickets        *handlers.TicketsHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/admin/login", cfg.Auth.Login)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/metrics", cfg.Metrics.Snapshot)

	admin.Get("/ranks", cfg.Catalog.ListRanks)
	admin.Post("/ranks", cfg.Catalog.AddRank)
	admin.Delete("/ranks/:name", cfg.Catalog.RemoveRank)
	admin.Get("/ranks/:name/prices", cfg.Catalog.ListPrices)
	admin.Put("/ranks/:name/prices", cfg.Catalog.SetPrice)

	admin.Get("/methods", cfg.Catalog.ListMethods)
	admin.Post("/methods", cfg.Catalog.AddMethod)
	admin.Put("/methods/:name", cfg.Catalog.SetMethodDetails)

	admin.Get("/tickets", cfg.Tickets.ListTickets)
	admin.Get("/tickets/:number", cfg.Tickets.GetTicket)
	admin.Get("/tickets/:number/history", cfg.Tickets.TicketHistory)
}
