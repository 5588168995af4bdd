package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "context"
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/miraifest/ticket-booking/internal/utils"
)

// Context keys set by JWTAuth.
const (
    CtxUserID = "user_id"
    CtxRole   = "role"
    CtxToken  = "access_token"
)

// SessionVerifier confirms that a token is still the user's live session.
// Logging out or logging in elsewhere makes older tokens fail.
type SessionVerifier interface {
    VerifySession(ctx context.Context, userID uint64, rawToken string) (bool, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject and role claims into the request context.  The
// provided secret must match the one used when issuing tokens.  When
// sessions is non-nil the token must also match the session recorded at
// login.  Handlers read the caller via `c.Get("user_id")` (uint64) and
// `c.Get("role")` (string).
func JWTAuth(secret string, sessions SessionVerifier) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header should start with "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return deny(c, http.StatusUnauthorized, "missing bearer token")
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return deny(c, http.StatusUnauthorized, "invalid token")
            }
            if sessions != nil {
                ok, err := sessions.VerifySession(c.Request().Context(), claims.UserID, raw)
                if err != nil {
                    return deny(c, http.StatusInternalServerError, "session lookup failed")
                }
                if !ok {
                    return deny(c, http.StatusUnauthorized, "session expired, please log in again")
                }
            }

            c.Set(CtxUserID, claims.UserID)
            c.Set(CtxRole, claims.Role)
            c.Set(CtxToken, raw)
            return next(c)
        }
    }
}

// deny writes the standard failure envelope.
func deny(c echo.Context, status int, msg string) error {
    return c.JSON(status, echo.Map{"success": false, "message": msg, "data": nil})
}
