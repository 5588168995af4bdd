package handler

import (
    "context"  // provides context with cancellation for DB calls
    "net/http" // HTTP status codes and primitives
    "time"     // timeouts for DB calls

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/miraifest/ticket-booking/internal/service"
)

// AuthHandler bundles dependencies for auth and profile endpoints.
type AuthHandler struct {
    Users *service.UserService
}

func NewAuthHandler(u *service.UserService) *AuthHandler {
    return &AuthHandler{Users: u}
}

// Register: create a user account.  The client logs in afterwards.
func (h *AuthHandler) Register(c echo.Context) error {
    var req service.RegisterInput
    if err := bind(c, &req); err != nil {
        return writeError(c, err)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    u, err := h.Users.Register(ctx, req)
    if err != nil {
        return writeError(c, err)
    }
    return ok(c, http.StatusCreated, "registration successful", u)
}

// Login: verify credentials and return an access token.
func (h *AuthHandler) Login(c echo.Context) error {
    var req service.LoginInput
    if err := bind(c, &req); err != nil {
        return writeError(c, err)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    res, err := h.Users.Login(ctx, req)
    if err != nil {
        return writeError(c, err)
    }
    return ok(c, http.StatusOK, "login successful", res)
}

// Logout: invalidate the current session.
func (h *AuthHandler) Logout(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return unauthorized(c)
    }
    if err := h.Users.Logout(c.Request().Context(), uid); err != nil {
        return writeError(c, err)
    }
    return ok(c, http.StatusOK, "logout successful", nil)
}

// Profile: GET /api/v1/user/profile
func (h *AuthHandler) Profile(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return unauthorized(c)
    }
    u, err := h.Users.Profile(c.Request().Context(), uid)
    if err != nil {
        return writeError(c, err)
    }
    return ok(c, http.StatusOK, "profile retrieved", u)
}

// UpdateProfile: PUT|POST /api/v1/user/profile
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return unauthorized(c)
    }
    var req service.ProfileInput
    if err := bind(c, &req); err != nil {
        return writeError(c, err)
    }
    u, err := h.Users.UpdateProfile(c.Request().Context(), uid, req)
    if err != nil {
        return writeError(c, err)
    }
    return ok(c, http.StatusOK, "profile updated", u)
}
