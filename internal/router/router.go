package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miraifest/ticket-booking/internal/handler"    // import the handlers that implement business logic
	"github.com/miraifest/ticket-booking/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers operational routes that do not require
// authentication: liveness, readiness and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// PublicHandlers groups the handlers mounted without authentication.
type PublicHandlers struct {
	Auth    *handler.AuthHandler
	Tickets *handler.TicketHandler
	Media   *handler.MediaHandler
}

// RegisterPublic registers /api/v1 routes open to guests.  ticketCache
// wraps the catalogue reads; limiter throttles by client IP and authLimit
// adds a stricter bucket in front of login and registration.
func RegisterPublic(e *echo.Echo, h PublicHandlers, ticketCache, limiter, authLimit echo.MiddlewareFunc) {
	g := e.Group("/api/v1", limiter)

	g.POST("/auth/register", h.Auth.Register, authLimit)
	g.POST("/auth/login", h.Auth.Login, authLimit)

	g.GET("/tickets", h.Tickets.List, ticketCache)
	g.GET("/tickets/:id", h.Tickets.Get, ticketCache)

	g.GET("/media/:kind/:file", h.Media.Serve)
}

// UserHandlers groups the handlers for authenticated callers.
type UserHandlers struct {
	Auth     *handler.AuthHandler
	Bookings *handler.BookingHandler
}

// RegisterUser registers endpoints available to any logged-in user.  auth
// must be the JWTAuth middleware; the limiter runs after it so buckets are
// keyed by user.
func RegisterUser(e *echo.Echo, h UserHandlers, auth, limiter, uploadLimit echo.MiddlewareFunc) {
	g := e.Group("/api/v1", auth, limiter,
		middleware.RequireMember(),
	)

	g.POST("/auth/logout", h.Auth.Logout)

	g.GET("/user/profile", h.Auth.Profile)
	g.PUT("/user/profile", h.Auth.UpdateProfile)
	g.POST("/user/profile", h.Auth.UpdateProfile)

	g.GET("/bookings", h.Bookings.List)
	g.POST("/bookings", h.Bookings.Create)
	g.GET("/bookings/:id", h.Bookings.Get)
	g.POST("/bookings/:id/upload-proof", h.Bookings.UploadProof, uploadLimit)
}
