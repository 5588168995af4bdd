package handler

import (
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/miraifest/ticket-booking/internal/model"
    "github.com/miraifest/ticket-booking/internal/repository"
    "github.com/miraifest/ticket-booking/internal/service"
)

// AdminBookingHandler serves the payment review endpoints.
type AdminBookingHandler struct {
    Bookings *service.BookingService
    Media    MediaURLs
}

func NewAdminBookingHandler(b *service.BookingService, media MediaURLs) *AdminBookingHandler {
    return &AdminBookingHandler{Bookings: b, Media: media}
}

type rejectReq struct {
    Reason string `json:"reason" form:"reason" validate:"max=1000"`
}

// Pending: GET /api/v1/admin/bookings/pending
func (h *AdminBookingHandler) Pending(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return unauthorized(c)
    }
    out, err := h.Bookings.ListPending(c.Request().Context(), actor)
    if err != nil {
        return writeError(c, err)
    }
    h.Media.decorateAll(out)
    return ok(c, http.StatusOK, "pending bookings retrieved", out)
}

// Approve: POST /api/v1/admin/bookings/:id/approve
func (h *AdminBookingHandler) Approve(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return unauthorized(c)
    }
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    d, err := h.Bookings.ApproveBooking(c.Request().Context(), actor, id)
    if err != nil {
        return writeError(c, err)
    }
    h.Media.decorate(d)
    return ok(c, http.StatusOK, "booking approved, QR code generated", d)
}

// Reject: POST /api/v1/admin/bookings/:id/reject
func (h *AdminBookingHandler) Reject(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return unauthorized(c)
    }
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    var req rejectReq
    // an empty body is allowed; the reason defaults server side
    if c.Request().ContentLength != 0 {
        if err := bind(c, &req); err != nil {
            return writeError(c, err)
        }
    }
    res, err := h.Bookings.RejectBooking(c.Request().Context(), actor, id, req.Reason)
    if err != nil {
        return writeError(c, err)
    }
    return ok(c, http.StatusOK, "booking rejected, quota restored", res)
}

// History: GET /api/v1/admin/bookings/history?search=&status=&ticket_type_id=&page=&per_page=
func (h *AdminBookingHandler) History(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return unauthorized(c)
    }
    f := repository.HistoryFilter{
        Search:  c.QueryParam("search"),
        Status:  model.PaymentStatus(strings.ToLower(strings.TrimSpace(c.QueryParam("status")))),
        Page:    queryInt(c, "page", 1),
        PerPage: queryInt(c, "per_page", 20),
    }
    if v := strings.TrimSpace(c.QueryParam("ticket_type_id")); v != "" {
        if n, err := strconv.ParseUint(v, 10, 64); err == nil {
            f.TicketTypeID = n
        }
    }
    out, total, err := h.Bookings.History(c.Request().Context(), actor, f)
    if err != nil {
        return writeError(c, err)
    }
    h.Media.decorateAll(out)
    perPage := f.PerPage
    if perPage > 100 {
        perPage = 100
    }
    return ok(c, http.StatusOK, "booking history retrieved", newPage(out, f.Page, perPage, total))
}
