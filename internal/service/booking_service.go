package service

import (
    "context"
    "database/sql"
    "errors"
    "io"
    "strings"
    "time"

    "github.com/shopspring/decimal"
    "go.uber.org/zap"

    "github.com/miraifest/ticket-booking/internal/domain"
    "github.com/miraifest/ticket-booking/internal/metrics"
    "github.com/miraifest/ticket-booking/internal/model"
    "github.com/miraifest/ticket-booking/internal/queue"
    "github.com/miraifest/ticket-booking/internal/repository"
    "github.com/miraifest/ticket-booking/internal/storage"
    "github.com/miraifest/ticket-booking/internal/validation"
)

// DefaultRejectReason is recorded when an admin rejects without a note.
const DefaultRejectReason = "no reason given"

// EventPublisher receives booking lifecycle events after commit.  Delivery
// is best effort: a publish error is logged and never fails the request.
type EventPublisher interface {
    PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
    PublishBookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error
}

// CachePurger drops cached catalogue responses after remaining quota
// changed.
type CachePurger interface {
    Purge(ctx context.Context) error
}

// ArtifactRenderer renders the QR image and e-ticket of a confirmed booking.
type ArtifactRenderer interface {
    StoreQR(ctx context.Context, p storage.QRPayload) (string, error)
    Discard(bookingCode string)
}

// ProofSaver stores uploaded payment proofs.
type ProofSaver interface {
    Save(ctx context.Context, bookingID uint64, r io.Reader) (string, error)
    Remove(ref string) error
}

// CreateBookingInput is the request to reserve Quantity units of a ticket
// type for UserID.
type CreateBookingInput struct {
    UserID       uint64 `json:"-" validate:"required"`
    TicketTypeID uint64 `json:"ticket_type_id" validate:"required"`
    Quantity     int    `json:"quantity" validate:"required,gt=0"`
}

// RejectResult reports the outcome of RejectBooking.
type RejectResult struct {
    BookingID     uint64 `json:"booking_id"`
    Reason        string `json:"reason"`
    QuotaRestored int    `json:"quota_restored"`
}

// BookingDeps wires a BookingService.  Artifacts, Proofs, Events, Cache
// and Log are optional.
type BookingDeps struct {
    DB        *sql.DB
    Bookings  *repository.BookingRepo
    Tickets   *repository.TicketTypeRepo
    Ledger    *QuotaLedger
    Codes     *CodeGenerator
    Artifacts ArtifactRenderer
    Proofs    ProofSaver
    Events    EventPublisher
    Cache     CachePurger
    Log       *zap.Logger
    TxTimeout time.Duration
}

// BookingService is the reservation orchestrator.  Every operation that
// touches quota runs as a single transaction: either the booking row and
// the quota change both commit or neither does.
type BookingService struct {
    db        *sql.DB
    bookings  *repository.BookingRepo
    tickets   *repository.TicketTypeRepo
    ledger    *QuotaLedger
    codes     *CodeGenerator
    artifacts ArtifactRenderer
    proofs    ProofSaver
    events    EventPublisher
    cache     CachePurger
    log       *zap.Logger
    txTimeout time.Duration
    now       func() time.Time
}

func NewBookingService(d BookingDeps) *BookingService {
    log := d.Log
    if log == nil {
        log = zap.NewNop()
    }
    codes := d.Codes
    if codes == nil {
        codes = NewCodeGenerator(defaultCodeAttempts)
    }
    ledger := d.Ledger
    if ledger == nil {
        ledger = NewQuotaLedger(d.Tickets, d.TxTimeout)
    }
    return &BookingService{
        db:        d.DB,
        bookings:  d.Bookings,
        tickets:   d.Tickets,
        ledger:    ledger,
        codes:     codes,
        artifacts: d.Artifacts,
        proofs:    d.Proofs,
        events:    d.Events,
        cache:     d.Cache,
        log:       log.Named("booking"),
        txTimeout: d.TxTimeout,
        now:       time.Now,
    }
}

// CreateBooking reserves quantity units and records a pending booking.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (detail *model.BookingDetail, err error) {
    start := time.Now()
    defer func() { s.track("create", start, err) }()

    if err := validation.Struct(in); err != nil {
        return nil, err
    }
    ok, err := s.ledger.CheckAvailability(ctx, in.TicketTypeID, in.Quantity)
    if err != nil {
        return nil, err
    }
    if !ok {
        // missing ticket types also fail the check
        ticket, err := s.tickets.GetByID(ctx, in.TicketTypeID)
        if err != nil {
            return nil, fromRepo("load ticket type", err)
        }
        return nil, domain.InsufficientStockError{Available: ticket.RemainingQuota, Requested: in.Quantity}
    }

    var bookingID uint64
    err = runTx(ctx, s.db, s.txTimeout, "create booking", func(ctx context.Context, tx *sql.Tx) error {
        bookingCode, err := s.codes.BookingCode(ctx, func(ctx context.Context, c string) (bool, error) {
            return s.bookings.CodeExistsTx(ctx, tx, "booking_code", c)
        })
        if err != nil {
            return err
        }
        qrCode, err := s.codes.QRPayloadCode(ctx, func(ctx context.Context, c string) (bool, error) {
            return s.bookings.CodeExistsTx(ctx, tx, "qr_code", c)
        })
        if err != nil {
            return err
        }
        // The decrement locks the ticket row, so the price read after it is
        // the one in force when the units were taken.
        if err := s.ledger.Reserve(ctx, tx, in.TicketTypeID, in.Quantity); err != nil {
            return err
        }
        locked, err := s.tickets.GetByIDTx(ctx, tx, in.TicketTypeID)
        if err != nil {
            return fromRepo("snapshot price", err)
        }
        b := &model.Booking{
            UserID:       in.UserID,
            TicketTypeID: in.TicketTypeID,
            Quantity:     in.Quantity,
            TotalPrice:   locked.Price.Mul(decimal.NewFromInt(int64(in.Quantity))),
            BookingCode:  bookingCode,
            QRCode:       qrCode,
        }
        if err := s.bookings.CreateTx(ctx, tx, b); err != nil {
            if errors.Is(err, repository.ErrConflict) {
                return domain.FailureError{Op: "create booking", Err: err}
            }
            return fromRepo("create booking", err)
        }
        bookingID = b.ID
        return nil
    })
    if err != nil {
        return nil, err
    }
    s.purgeCache(ctx)
    s.log.Info("booking created",
        zap.Uint64("booking_id", bookingID),
        zap.Uint64("user_id", in.UserID),
        zap.Uint64("ticket_type_id", in.TicketTypeID),
        zap.Int("quantity", in.Quantity))

    detail, err = s.bookings.GetDetail(ctx, bookingID, &in.UserID)
    if err != nil {
        return nil, fromRepo("load booking", err)
    }
    return detail, nil
}

// ApproveBooking confirms a pending booking and renders its QR artifacts.
// Quota is untouched: the units were already taken at creation.
func (s *BookingService) ApproveBooking(ctx context.Context, actor model.Actor, bookingID uint64) (detail *model.BookingDetail, err error) {
    start := time.Now()
    defer func() { s.track("approve", start, err) }()

    if err := requireRole(actor, model.RoleAdmin); err != nil {
        return nil, err
    }
    current, err := s.bookings.GetDetail(ctx, bookingID, nil)
    if err != nil {
        return nil, fromRepo("load booking", err)
    }
    if !current.PaymentStatus.CanTransitionTo(model.StatusConfirmed) {
        return nil, domain.InvalidTransitionError{From: string(current.PaymentStatus), To: string(model.StatusConfirmed)}
    }

    confirmedAt := s.now().UTC().Truncate(time.Second)
    var qrRef *string
    if s.artifacts != nil {
        ref, err := s.artifacts.StoreQR(ctx, storage.QRPayload{
            BookingCode: current.BookingCode,
            QRCode:      current.QRCode,
            TicketType:  current.TicketName,
            Quantity:    current.Quantity,
            UserName:    current.UserName,
            UserEmail:   current.UserEmail,
            TotalPrice:  current.TotalPrice,
            ConfirmedAt: confirmedAt,
        })
        if err != nil {
            return nil, domain.Failure("render qr artifact", err)
        }
        qrRef = &ref
    }

    err = runTx(ctx, s.db, s.txTimeout, "approve booking", func(ctx context.Context, tx *sql.Tx) error {
        return s.transition(ctx, tx, bookingID, repository.Transition{To: model.StatusConfirmed, QRImage: qrRef})
    })
    if err != nil {
        // a concurrent approve owns artifacts with the same name; anything
        // else, a concurrent reject included, leaves them orphaned
        var ite domain.InvalidTransitionError
        lostToApprove := errors.As(err, &ite) && ite.From == string(model.StatusConfirmed)
        if qrRef != nil && !lostToApprove {
            s.artifacts.Discard(current.BookingCode)
        }
        return nil, err
    }

    s.log.Info("booking approved", zap.Uint64("booking_id", bookingID), zap.Uint64("admin_id", actor.UserID))
    s.publishConfirmed(ctx, current, confirmedAt, qrRef)

    detail, err = s.bookings.GetDetail(ctx, bookingID, nil)
    if err != nil {
        return nil, fromRepo("load booking", err)
    }
    return detail, nil
}

// RejectBooking cancels a pending booking and returns its units to the
// pool in the same transaction.
func (s *BookingService) RejectBooking(ctx context.Context, actor model.Actor, bookingID uint64, reason string) (res *RejectResult, err error) {
    start := time.Now()
    defer func() { s.track("reject", start, err) }()

    if err := requireRole(actor, model.RoleAdmin); err != nil {
        return nil, err
    }
    reason = strings.TrimSpace(reason)
    if reason == "" {
        reason = DefaultRejectReason
    }

    var b *model.Booking
    err = runTx(ctx, s.db, s.txTimeout, "reject booking", func(ctx context.Context, tx *sql.Tx) error {
        var err error
        b, err = s.bookings.GetByIDTx(ctx, tx, bookingID)
        if err != nil {
            return fromRepo("load booking", err)
        }
        if !b.PaymentStatus.CanTransitionTo(model.StatusCancelled) {
            return domain.InvalidTransitionError{From: string(b.PaymentStatus), To: string(model.StatusCancelled)}
        }
        if err := s.transition(ctx, tx, bookingID, repository.Transition{To: model.StatusCancelled, Reason: &reason}); err != nil {
            return err
        }
        return s.ledger.Release(ctx, tx, b.TicketTypeID, b.Quantity)
    })
    if err != nil {
        return nil, err
    }

    s.purgeCache(ctx)
    s.log.Info("booking rejected",
        zap.Uint64("booking_id", bookingID),
        zap.Uint64("admin_id", actor.UserID),
        zap.Int("quota_restored", b.Quantity),
        zap.String("reason", reason))
    s.publishCancelled(ctx, b, reason)

    return &RejectResult{BookingID: bookingID, Reason: reason, QuotaRestored: b.Quantity}, nil
}

// transition applies t and maps a lost race to InvalidTransitionError.
func (s *BookingService) transition(ctx context.Context, tx *sql.Tx, bookingID uint64, t repository.Transition) error {
    err := s.bookings.TransitionTx(ctx, tx, bookingID, t)
    if errors.Is(err, repository.ErrNotPending) {
        from := "unknown"
        if b, rerr := s.bookings.GetByIDTx(ctx, tx, bookingID); rerr == nil {
            from = string(b.PaymentStatus)
        }
        return domain.InvalidTransitionError{From: from, To: string(t.To)}
    }
    if err != nil {
        return fromRepo("update booking status", err)
    }
    return nil
}

// GetBooking returns one booking.  A non-nil userID restricts the lookup
// to that user's bookings.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uint64, userID *uint64) (*model.BookingDetail, error) {
    d, err := s.bookings.GetDetail(ctx, bookingID, userID)
    if err != nil {
        return nil, fromRepo("load booking", err)
    }
    return d, nil
}

// ListUserBookings returns the user's bookings, newest first.
func (s *BookingService) ListUserBookings(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
    out, err := s.bookings.ListByUser(ctx, userID)
    if err != nil {
        return nil, fromRepo("list bookings", err)
    }
    return out, nil
}

// ListPending returns the review queue.
func (s *BookingService) ListPending(ctx context.Context, actor model.Actor) ([]model.BookingDetail, error) {
    if err := requireRole(actor, model.RoleAdmin); err != nil {
        return nil, err
    }
    out, err := s.bookings.ListPending(ctx)
    if err != nil {
        return nil, fromRepo("list pending bookings", err)
    }
    return out, nil
}

// History returns one page of the admin booking history.
func (s *BookingService) History(ctx context.Context, actor model.Actor, f repository.HistoryFilter) ([]model.BookingDetail, int, error) {
    if err := requireRole(actor, model.RoleAdmin); err != nil {
        return nil, 0, err
    }
    if f.Status != "" && !f.Status.Valid() {
        return nil, 0, domain.NewValidationError("status", "must be one of: pending confirmed cancelled")
    }
    if f.PerPage > 100 {
        f.PerPage = 100
    }
    out, total, err := s.bookings.History(ctx, f)
    if err != nil {
        return nil, 0, fromRepo("booking history", err)
    }
    return out, total, nil
}

// UploadProof stores a payment proof for the user's pending booking.
func (s *BookingService) UploadProof(ctx context.Context, userID, bookingID uint64, r io.Reader) (*model.BookingDetail, error) {
    if s.proofs == nil {
        return nil, domain.Failure("upload proof", errors.New("proof storage not configured"))
    }
    b, err := s.bookings.GetDetail(ctx, bookingID, &userID)
    if err != nil {
        return nil, fromRepo("load booking", err)
    }
    if b.PaymentStatus != model.StatusPending {
        return nil, domain.ConflictError{Resource: "booking", Msg: "payment proof can only be uploaded while pending"}
    }
    ref, err := s.proofs.Save(ctx, bookingID, r)
    if err != nil {
        return nil, domain.Failure("store proof", err)
    }
    if err := s.bookings.SetPaymentProof(ctx, bookingID, userID, ref); err != nil {
        _ = s.proofs.Remove(ref)
        if errors.Is(err, repository.ErrNotPending) {
            return nil, domain.ConflictError{Resource: "booking", Msg: "payment proof can only be uploaded while pending"}
        }
        return nil, fromRepo("record proof", err)
    }
    if b.PaymentProof != nil && *b.PaymentProof != ref {
        _ = s.proofs.Remove(*b.PaymentProof)
    }
    s.log.Info("payment proof uploaded", zap.Uint64("booking_id", bookingID), zap.Uint64("user_id", userID))
    return s.GetBooking(ctx, bookingID, &userID)
}

func (s *BookingService) purgeCache(ctx context.Context) {
    if s.cache == nil {
        return
    }
    if err := s.cache.Purge(context.WithoutCancel(ctx)); err != nil {
        s.log.Warn("purge ticket cache failed", zap.Error(err))
    }
}

func (s *BookingService) publishConfirmed(ctx context.Context, d *model.BookingDetail, at time.Time, qrRef *string) {
    if s.events == nil {
        return
    }
    ev := queue.BookingConfirmedEvent{
        BookingID:    d.ID,
        BookingCode:  d.BookingCode,
        UserID:       d.UserID,
        UserEmail:    d.UserEmail,
        TicketTypeID: d.TicketTypeID,
        TicketName:   d.TicketName,
        Quantity:     d.Quantity,
        TotalPrice:   d.TotalPrice.StringFixed(2),
        ConfirmedAt:  at.Format(time.RFC3339),
    }
    if qrRef != nil {
        ev.QRImage = *qrRef
    }
    if err := s.events.PublishBookingConfirmed(context.WithoutCancel(ctx), ev); err != nil {
        s.log.Warn("publish booking.confirmed failed", zap.Uint64("booking_id", d.ID), zap.Error(err))
    }
}

func (s *BookingService) publishCancelled(ctx context.Context, b *model.Booking, reason string) {
    if s.events == nil {
        return
    }
    ev := queue.BookingCancelledEvent{
        BookingID:     b.ID,
        BookingCode:   b.BookingCode,
        UserID:        b.UserID,
        TicketTypeID:  b.TicketTypeID,
        QuotaRestored: b.Quantity,
        Reason:        reason,
        CancelledAt:   s.now().UTC().Format(time.RFC3339),
    }
    if err := s.events.PublishBookingCancelled(context.WithoutCancel(ctx), ev); err != nil {
        s.log.Warn("publish booking.cancelled failed", zap.Uint64("booking_id", b.ID), zap.Error(err))
    }
}

func (s *BookingService) track(op string, start time.Time, err error) {
    metrics.ObserveTx(op, time.Since(start))
    metrics.TrackBooking(op, outcome(err))
}

// outcome labels err for metrics.
func outcome(err error) string {
    switch {
    case err == nil:
        return "ok"
    case domain.IsValidation(err):
        return "validation"
    case domain.IsNotFound(err):
        return "not_found"
    case domain.IsInsufficientStock(err):
        return "insufficient_stock"
    case domain.IsInvalidTransition(err):
        return "invalid_transition"
    case domain.IsForbidden(err):
        return "forbidden"
    case domain.IsConflict(err):
        return "conflict"
    }
    return "failure"
}
