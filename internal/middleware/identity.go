package middleware

// identity.go holds helpers shared across middleware files for reading the
// caller set by JWTAuth.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// userID returns the authenticated user id as a string, or "guest" when the
// request is anonymous.
func userID(c echo.Context) string {
    if id, ok := c.Get(CtxUserID).(uint64); ok && id != 0 {
        return strconv.FormatUint(id, 10)
    }
    return "guest"
}
