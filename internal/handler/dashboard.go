package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/miraifest/ticket-booking/internal/service"
)

type DashboardHandler struct {
    Dashboard *service.DashboardService
    Media     MediaURLs
}

func NewDashboardHandler(d *service.DashboardService, media MediaURLs) *DashboardHandler {
    return &DashboardHandler{Dashboard: d, Media: media}
}

// Stats: GET /api/v1/admin/dashboard/stats
func (h *DashboardHandler) Stats(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return unauthorized(c)
    }
    s, err := h.Dashboard.Stats(c.Request().Context(), actor)
    if err != nil {
        return writeError(c, err)
    }
    h.Media.decorateAll(s.RecentBookings)
    return ok(c, http.StatusOK, "dashboard stats retrieved", s)
}
