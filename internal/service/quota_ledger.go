package service

import (
    "context"
    "database/sql"
    "errors"
    "strconv"
    "time"

    "github.com/miraifest/ticket-booking/internal/domain"
    "github.com/miraifest/ticket-booking/internal/metrics"
    "github.com/miraifest/ticket-booking/internal/model"
    "github.com/miraifest/ticket-booking/internal/repository"
)

// QuotaLedger is the only writer of ticket_types.remaining_quota.  Reserve
// and Release run inside the caller's transaction so they commit or roll
// back together with the booking row they belong to.
type QuotaLedger struct {
    tickets   *repository.TicketTypeRepo
    txTimeout time.Duration
}

func NewQuotaLedger(tickets *repository.TicketTypeRepo, txTimeout time.Duration) *QuotaLedger {
    return &QuotaLedger{tickets: tickets, txTimeout: txTimeout}
}

// CheckAvailability reports whether the ticket type exists and still has
// qty units.  The answer is advisory; only Reserve is authoritative.
func (l *QuotaLedger) CheckAvailability(ctx context.Context, ticketTypeID uint64, qty int) (bool, error) {
    t, err := l.tickets.GetByID(ctx, ticketTypeID)
    if err != nil {
        if errors.Is(err, repository.ErrTicketTypeNotFound) {
            return false, nil
        }
        return false, fromRepo("check availability", err)
    }
    return t.RemainingQuota >= qty, nil
}

// Reserve takes qty units.  It fails with InsufficientStockError carrying
// the units left at write time when the pool cannot cover qty.
func (l *QuotaLedger) Reserve(ctx context.Context, tx *sql.Tx, ticketTypeID uint64, qty int) error {
    if qty <= 0 {
        return domain.NewValidationError("quantity", "must be greater than 0")
    }
    err := l.tickets.DecrementTx(ctx, tx, ticketTypeID, qty)
    if errors.Is(err, repository.ErrInsufficientQuota) {
        available := 0
        if t, rerr := l.tickets.GetByIDTx(ctx, tx, ticketTypeID); rerr == nil {
            available = t.RemainingQuota
        }
        return domain.InsufficientStockError{Available: available, Requested: qty}
    }
    if err != nil {
        return fromRepo("reserve quota", err)
    }
    metrics.TrackReserved(strconv.FormatUint(ticketTypeID, 10), qty)
    return nil
}

// Release returns qty units.  remaining_quota is clamped to quota.
func (l *QuotaLedger) Release(ctx context.Context, tx *sql.Tx, ticketTypeID uint64, qty int) error {
    if qty <= 0 {
        return domain.NewValidationError("quantity", "must be greater than 0")
    }
    if err := l.tickets.IncrementTx(ctx, tx, ticketTypeID, qty); err != nil {
        return fromRepo("release quota", err)
    }
    metrics.TrackReleased(strconv.FormatUint(ticketTypeID, 10), qty)
    return nil
}

// Resize changes the quota of a ticket type in its own transaction.  The
// number of sold units is preserved; only the unsold part moves, and it
// never drops below zero.
func (l *QuotaLedger) Resize(ctx context.Context, ticketTypeID uint64, newQuota int) (*model.TicketType, error) {
    if newQuota < 0 {
        return nil, domain.NewValidationError("quota", "must not be negative")
    }
    var out *model.TicketType
    err := runTx(ctx, l.tickets.DB(), l.txTimeout, "resize quota", func(ctx context.Context, tx *sql.Tx) error {
        t, err := l.ResizeTx(ctx, tx, ticketTypeID, newQuota)
        out = t
        return err
    })
    if err != nil {
        return nil, err
    }
    return out, nil
}

// ResizeTx is Resize inside the caller's transaction.
func (l *QuotaLedger) ResizeTx(ctx context.Context, tx *sql.Tx, ticketTypeID uint64, newQuota int) (*model.TicketType, error) {
    if newQuota < 0 {
        return nil, domain.NewValidationError("quota", "must not be negative")
    }
    t, err := l.tickets.ResizeTx(ctx, tx, ticketTypeID, newQuota)
    if err != nil {
        return nil, fromRepo("resize quota", err)
    }
    return t, nil
}
