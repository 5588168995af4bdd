package middleware

import (
    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
)

const (
    // RequestIDHeader is the header key for request ID
    RequestIDHeader = "X-Request-ID"
    // RequestIDKey is the context key for request ID
    RequestIDKey = "request_id"
)

// RequestID adds a unique request ID to each request, reusing the one sent
// by the client or a proxy when present.
func RequestID() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            requestID := c.Request().Header.Get(RequestIDHeader)
            if requestID == "" || len(requestID) > 128 {
                requestID = uuid.New().String()
            }
            c.Set(RequestIDKey, requestID)
            c.Response().Header().Set(RequestIDHeader, requestID)
            return next(c)
        }
    }
}

// GetRequestID returns the request ID from context
func GetRequestID(c echo.Context) string {
    if id, ok := c.Get(RequestIDKey).(string); ok {
        return id
    }
    return ""
}
