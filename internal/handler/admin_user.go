package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/miraifest/ticket-booking/internal/service"
)

// AdminUserHandler serves user management for admins.
type AdminUserHandler struct {
    Users *service.UserService
}

func NewAdminUserHandler(u *service.UserService) *AdminUserHandler {
    return &AdminUserHandler{Users: u}
}

// List: GET /api/v1/admin/users?search=&role=&page=&per_page=
func (h *AdminUserHandler) List(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return unauthorized(c)
    }
    pg, perPage := queryInt(c, "page", 1), queryInt(c, "per_page", 20)
    if perPage > 100 {
        perPage = 100
    }
    out, total, err := h.Users.ListUsers(c.Request().Context(), actor,
        c.QueryParam("search"), strings.ToLower(strings.TrimSpace(c.QueryParam("role"))), pg, perPage)
    if err != nil {
        return writeError(c, err)
    }
    return ok(c, http.StatusOK, "users retrieved", newPage(out, pg, perPage, total))
}

// Get: GET /api/v1/admin/users/:id
func (h *AdminUserHandler) Get(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return unauthorized(c)
    }
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    u, err := h.Users.GetUser(c.Request().Context(), actor, id)
    if err != nil {
        return writeError(c, err)
    }
    return ok(c, http.StatusOK, "user retrieved", u)
}

// Update: PUT /api/v1/admin/users/:id
func (h *AdminUserHandler) Update(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return unauthorized(c)
    }
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    var req service.AdminUserInput
    if err := bind(c, &req); err != nil {
        return writeError(c, err)
    }
    u, err := h.Users.UpdateUser(c.Request().Context(), actor, id, req)
    if err != nil {
        return writeError(c, err)
    }
    return ok(c, http.StatusOK, "user updated", u)
}

// Delete: DELETE /api/v1/admin/users/:id
func (h *AdminUserHandler) Delete(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return unauthorized(c)
    }
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    if err := h.Users.DeleteUser(c.Request().Context(), actor, id); err != nil {
        return writeError(c, err)
    }
    return ok(c, http.StatusOK, "user deleted", nil)
}
