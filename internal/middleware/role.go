package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/miraifest/ticket-booking/internal/model"
)

// RequireRole lets a request through only when JWTAuth stored one of
// roles in the context.  Anything else gets 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]struct{}, len(roles))
    for _, r := range roles {
        allowed[r] = struct{}{}
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, _ := c.Get(CtxRole).(string)
            if _, ok := allowed[role]; !ok {
                return deny(c, http.StatusForbidden, "forbidden")
            }
            return next(c)
        }
    }
}

// RequireAdmin is RequireRole for the admin area.
func RequireAdmin() echo.MiddlewareFunc { return RequireRole(model.RoleAdmin) }

// RequireMember admits both buyers and admins.
func RequireMember() echo.MiddlewareFunc { return RequireRole(model.RoleUser, model.RoleAdmin) }
