package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"

    "github.com/miraifest/ticket-booking/internal/config"
)

// CORS answers preflight requests and tags every response with the
// allowed origin.  Bearer tokens travel in headers, so credentials are
// not enabled.
func CORS(cfg config.CORSConfig) echo.MiddlewareFunc {
    return echomw.CORSWithConfig(echomw.CORSConfig{
        AllowOrigins: cfg.AllowOrigins,
        AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
        AllowHeaders: []string{
            echo.HeaderOrigin,
            echo.HeaderContentType,
            echo.HeaderAccept,
            echo.HeaderAuthorization,
            echo.HeaderXRequestedWith,
            RequestIDHeader,
        },
        ExposeHeaders: []string{RequestIDHeader, "Retry-After", "X-RateLimit-Remaining"},
        MaxAge:        int(cfg.MaxAge.Seconds()),
    })
}
