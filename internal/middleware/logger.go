package middleware

import (
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/miraifest/ticket-booking/internal/metrics"
)

// Logger logs one line per request and records the HTTP metrics.
func Logger(log *zap.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // let echo's error handler pick the status before we log it
                c.Error(err)
            }
            latency := time.Since(start)

            req := c.Request()
            res := c.Response()
            status := res.Status
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }

            fields := []zap.Field{
                zap.String("request_id", GetRequestID(c)),
                zap.Int("status", status),
                zap.String("method", req.Method),
                zap.String("path", req.URL.Path),
                zap.String("route", route),
                zap.String("query", req.URL.RawQuery),
                zap.String("ip", c.RealIP()),
                zap.String("user", userID(c)),
                zap.String("user_agent", req.UserAgent()),
                zap.Duration("latency", latency),
                zap.Int64("body_size", res.Size),
            }
            if err != nil {
                fields = append(fields, zap.Error(err))
            }

            switch {
            case status >= 500:
                log.Error("Server error", fields...)
            case status >= 400:
                log.Warn("Client error", fields...)
            default:
                log.Info("Request completed", fields...)
            }
            metrics.ObserveHTTP(req.Method, route, strconv.Itoa(status), latency)
            return nil
        }
    }
}
