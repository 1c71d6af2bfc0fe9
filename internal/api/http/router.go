package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spotdesk/spot-service/internal/api/http/handlers"
	"github.com/spotdesk/spot-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Mappings       *handlers.MappingsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/otp/request", cfg.Auth.RequestOTP)
	authGroup.Post("/otp/verify", cfg.Auth.VerifyOTP)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset", cfg.Auth.ResetPassword)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/dashboard", cfg.Tickets.Dashboard)
	tickets.Get("/:number", cfg.Tickets.GetTicket)
	tickets.Put("/:number", cfg.Tickets.UpdateTicket)
	tickets.Post("/:number/resolution", cfg.Tickets.RespondResolution)
	tickets.Post("/:number/ack", cfg.Tickets.Acknowledge)
	tickets.Get("/:number/history", cfg.Tickets.History)

	mappings := api.Group("/mappings")
	mappings.Get("", cfg.Mappings.List)
	mappings.Post("", cfg.Mappings.Create)
	mappings.Delete("/:id", cfg.Mappings.Delete)

	notifications := api.Group("/notifications")
	notifications.Get("", cfg.Notifications.List)
	notifications.Get("/counts", cfg.Notifications.Counts)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
}
