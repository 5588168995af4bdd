package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/miraifest/ticket-booking/internal/service"
)

// TicketHandler serves the ticket catalogue, publicly for reads and to
// admins for writes.
type TicketHandler struct {
    Tickets *service.TicketService
}

func NewTicketHandler(t *service.TicketService) *TicketHandler {
    return &TicketHandler{Tickets: t}
}

// List: GET /api/v1/tickets
func (h *TicketHandler) List(c echo.Context) error {
    out, err := h.Tickets.ListTicketTypes(c.Request().Context())
    if err != nil {
        return writeError(c, err)
    }
    return ok(c, http.StatusOK, "tickets retrieved", out)
}

// Get: GET /api/v1/tickets/:id
func (h *TicketHandler) Get(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    t, err := h.Tickets.GetTicketType(c.Request().Context(), id)
    if err != nil {
        return writeError(c, err)
    }
    return ok(c, http.StatusOK, "ticket retrieved", t)
}

// Create: POST /api/v1/admin/tickets
func (h *TicketHandler) Create(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return unauthorized(c)
    }
    var req service.CreateTicketTypeInput
    if err := bind(c, &req); err != nil {
        return writeError(c, err)
    }
    t, err := h.Tickets.CreateTicketType(c.Request().Context(), actor, req)
    if err != nil {
        return writeError(c, err)
    }
    return ok(c, http.StatusCreated, "ticket type created", t)
}

// Update: PUT /api/v1/admin/tickets/:id
func (h *TicketHandler) Update(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return unauthorized(c)
    }
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    var req service.UpdateTicketTypeInput
    if err := bind(c, &req); err != nil {
        return writeError(c, err)
    }
    t, err := h.Tickets.UpdateTicketType(c.Request().Context(), actor, id, req)
    if err != nil {
        return writeError(c, err)
    }
    return ok(c, http.StatusOK, "ticket type updated", t)
}

// Delete: DELETE /api/v1/admin/tickets/:id
func (h *TicketHandler) Delete(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return unauthorized(c)
    }
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    if err := h.Tickets.DeleteTicketType(c.Request().Context(), actor, id); err != nil {
        return writeError(c, err)
    }
    return ok(c, http.StatusOK, "ticket type deleted", nil)
}
