package router

import (
	"github.com/labstack/echo/v4"

	"github.com/miraifest/ticket-booking/internal/handler"
	"github.com/miraifest/ticket-booking/internal/middleware"
)

// AdminHandlers groups the handlers behind the admin role.
type AdminHandlers struct {
	Bookings  *handler.AdminBookingHandler
	Tickets   *handler.TicketHandler
	Users     *handler.AdminUserHandler
	Dashboard *handler.DashboardHandler
}

// RegisterAdmin registers admin-only endpoints under /api/v1/admin.  All
// routes require a valid JWT and the admin role; the service layer checks
// the role again.
func RegisterAdmin(e *echo.Echo, h AdminHandlers, auth, limiter echo.MiddlewareFunc) {
	g := e.Group("/api/v1/admin", auth, limiter,
		middleware.RequireAdmin(),
	)

	g.GET("/dashboard/stats", h.Dashboard.Stats)

	// ---- Bookings ----
	g.GET("/bookings/pending", h.Bookings.Pending)
	g.GET("/bookings/history", h.Bookings.History)
	g.POST("/bookings/:id/approve", h.Bookings.Approve)
	g.POST("/bookings/:id/reject", h.Bookings.Reject)

	// ---- Tickets ----
	g.POST("/tickets", h.Tickets.Create)
	g.PUT("/tickets/:id", h.Tickets.Update)
	g.PATCH("/tickets/:id", h.Tickets.Update)
	g.DELETE("/tickets/:id", h.Tickets.Delete)

	// ---- Users ----
	g.GET("/users", h.Users.List)
	g.GET("/users/:id", h.Users.Get)
	g.PUT("/users/:id", h.Users.Update)
	g.DELETE("/users/:id", h.Users.Delete)
}
