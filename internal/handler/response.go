package handler // handler defines http handlers

import (
    "errors"   // errors.As for the domain taxonomy
    "net/http" // status codes
    "strconv"  // strconv converts strings to numeric types
    "strings"

    "github.com/labstack/echo/v4" // echo defines request context types

    "github.com/miraifest/ticket-booking/internal/domain"
    "github.com/miraifest/ticket-booking/internal/middleware"
    "github.com/miraifest/ticket-booking/internal/model"
)

// envelope is the body of every JSON response.
type envelope struct {
    Success bool   `json:"success"`
    Message string `json:"message"`
    Data    any    `json:"data"`
}

// page is the data payload of paginated listings.
type page struct {
    Items      any `json:"items"`
    Pagination struct {
        Page       int `json:"page"`
        PerPage    int `json:"per_page"`
        Total      int `json:"total"`
        TotalPages int `json:"total_pages"`
    } `json:"pagination"`
}

func newPage(items any, pg, perPage, total int) page {
    var p page
    p.Items = items
    p.Pagination.Page = pg
    p.Pagination.PerPage = perPage
    p.Pagination.Total = total
    if perPage > 0 {
        p.Pagination.TotalPages = (total + perPage - 1) / perPage
    }
    return p
}

func ok(c echo.Context, status int, msg string, data any) error {
    return c.JSON(status, envelope{Success: true, Message: msg, Data: data})
}

func fail(c echo.Context, status int, msg string, data any) error {
    return c.JSON(status, envelope{Success: false, Message: msg, Data: data})
}

// writeError maps the domain taxonomy onto HTTP.  Anything outside the
// taxonomy is treated as a server failure.
func writeError(c echo.Context, err error) error {
    var (
        verr  domain.ValidationError
        stock domain.InsufficientStockError
        nf    domain.NotFoundError
        tr    domain.InvalidTransitionError
        conf  domain.ConflictError
        forb  domain.ForbiddenError
        unau  domain.UnauthorizedError
        fe    domain.FailureError
    )
    switch {
    case errors.As(err, &verr):
        var data any
        if len(verr.Fields) > 0 {
            data = verr.Fields
        }
        msg := "validation failed"
        if verr.Msg != "" {
            msg = verr.Msg
        }
        return fail(c, http.StatusBadRequest, msg, data)
    case errors.As(err, &stock):
        return fail(c, http.StatusBadRequest,
            "insufficient ticket stock, remaining: "+strconv.Itoa(stock.Available),
            echo.Map{"available_quota": stock.Available})
    case errors.As(err, &nf):
        return fail(c, http.StatusNotFound, nf.Error(), nil)
    case errors.As(err, &tr):
        return fail(c, http.StatusConflict, "booking is already "+tr.From, echo.Map{"from": tr.From, "to": tr.To})
    case errors.As(err, &conf):
        return fail(c, http.StatusConflict, conf.Error(), nil)
    case errors.As(err, &forb):
        return fail(c, http.StatusForbidden, forb.Error(), nil)
    case errors.As(err, &unau):
        return fail(c, http.StatusUnauthorized, unau.Error(), nil)
    case errors.As(err, &fe):
        c.Logger().Errorf("%s: %v", fe.Op, fe.Err)
        if fe.Timeout() {
            return fail(c, http.StatusServiceUnavailable, "the system is busy, please retry", nil)
        }
    default:
        c.Logger().Errorf("unhandled error: %v", err)
    }
    return fail(c, http.StatusInternalServerError, "internal error, please retry", nil)
}

// getUserID extracts the user_id set by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
    if id, ok := c.Get(middleware.CtxUserID).(uint64); ok && id != 0 {
        return id, nil
    }
    return 0, errors.New("invalid user_id in context")
}

// actorFrom builds the service-layer caller from the JWT claims.
func actorFrom(c echo.Context) (model.Actor, error) {
    id, err := getUserID(c)
    if err != nil {
        return model.Actor{}, err
    }
    role, _ := c.Get(middleware.CtxRole).(string)
    return model.Actor{UserID: id, Role: role}, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
    if err != nil || id == 0 {
        return 0, domain.NewValidationError(name, "must be a positive integer")
    }
    return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(c echo.Context, name string, def int) int {
    v := strings.TrimSpace(c.QueryParam(name))
    if v == "" {
        return def
    }
    n, err := strconv.Atoi(v)
    if err != nil || n < 1 {
        return def
    }
    return n
}

func unauthorized(c echo.Context) error {
    return fail(c, http.StatusUnauthorized, "unauthorized", nil)
}

// bind decodes the request body into dst and runs the echo validator.
func bind(c echo.Context, dst any) error {
    if err := c.Bind(dst); err != nil {
        return domain.ValidationError{Msg: "invalid request body"}
    }
    if c.Echo().Validator != nil {
        if err := c.Validate(dst); err != nil {
            return err
        }
    }
    return nil
}
