package service

import (
    "context"
    "database/sql"
    "time"

    "github.com/miraifest/ticket-booking/internal/domain"
)

// runTx executes fn inside one transaction.  The transaction context is
// detached from the caller's cancellation so a client disconnect cannot
// abort a unit of work half way; timeout bounds it instead.  Any error
// from fn, or a failed commit, rolls everything back.
func runTx(ctx context.Context, db *sql.DB, timeout time.Duration, op string, fn func(ctx context.Context, tx *sql.Tx) error) error {
    if timeout <= 0 {
        timeout = 10 * time.Second
    }
    txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
    defer cancel()

    tx, err := db.BeginTx(txCtx, nil)
    if err != nil {
        return domain.Failure(op, err)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if err := fn(txCtx, tx); err != nil {
        if txCtx.Err() != nil && !domain.IsTyped(err) {
            return domain.FailureError{Op: op, Err: txCtx.Err()}
        }
        return err
    }
    if err := tx.Commit(); err != nil {
        if txCtx.Err() != nil {
            return domain.FailureError{Op: op, Err: txCtx.Err()}
        }
        return domain.Failure(op, err)
    }
    committed = true
    return nil
}
