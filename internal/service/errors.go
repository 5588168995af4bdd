package service

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "github.com/go-sql-driver/mysql"

    "github.com/miraifest/ticket-booking/internal/domain"
    "github.com/miraifest/ticket-booking/internal/model"
    "github.com/miraifest/ticket-booking/internal/repository"
)

// fromRepo translates repository sentinels into the domain taxonomy.  Any
// other error is wrapped as a retryable Failure tagged with op.
func fromRepo(op string, err error) error {
    switch {
    case err == nil:
        return nil
    case errors.Is(err, repository.ErrTicketTypeNotFound):
        return domain.NotFoundError{Resource: "ticket type", Err: err}
    case errors.Is(err, repository.ErrBookingNotFound):
        return domain.NotFoundError{Resource: "booking", Err: err}
    case errors.Is(err, repository.ErrUserNotFound):
        return domain.NotFoundError{Resource: "user", Err: err}
    case errors.Is(err, repository.ErrEmailExists):
        return domain.ConflictError{Resource: "user", Msg: "email already registered"}
    case isLockTimeout(err):
        return domain.FailureError{Op: op, Err: fmt.Errorf("%w: %v", context.DeadlineExceeded, err)}
    }
    return domain.Failure(op, err)
}

// isLockTimeout reports whether err is a lock wait that gave up: MySQL
// error 1205, or SQLITE_BUSY from the embedded store used in tests.
func isLockTimeout(err error) bool {
    var me *mysql.MySQLError
    if errors.As(err, &me) {
        return me.Number == 1205
    }
    msg := strings.ToLower(err.Error())
    return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}

// requireRole fails with ForbiddenError unless actor holds role.
func requireRole(actor model.Actor, role string) error {
    if actor.Role != role {
        return domain.ForbiddenError{Msg: "requires " + role + " role"}
    }
    return nil
}
