package service

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/shopspring/decimal"
    "go.uber.org/zap"

    "github.com/miraifest/ticket-booking/internal/domain"
    "github.com/miraifest/ticket-booking/internal/model"
    "github.com/miraifest/ticket-booking/internal/repository"
    "github.com/miraifest/ticket-booking/internal/validation"
)

// CreateTicketTypeInput describes a new ticket type.
type CreateTicketTypeInput struct {
    Name        string          `json:"name" validate:"required,min=3,max=255"`
    Description *string         `json:"description"`
    Price       decimal.Decimal `json:"price"`
    Quota       int             `json:"quota" validate:"required,gt=0"`
}

// UpdateTicketTypeInput holds optional changes.  Quota goes through the
// ledger so sold units are preserved.
type UpdateTicketTypeInput struct {
    Name        *string          `json:"name" validate:"omitempty,min=3,max=255"`
    Description *string          `json:"description"`
    Price       *decimal.Decimal `json:"price"`
    Quota       *int             `json:"quota" validate:"omitempty,gte=0"`
}

// TicketService manages the ticket catalogue.
type TicketService struct {
    db        *sql.DB
    tickets   *repository.TicketTypeRepo
    ledger    *QuotaLedger
    cache     CachePurger
    log       *zap.Logger
    txTimeout time.Duration
}

func NewTicketService(db *sql.DB, tickets *repository.TicketTypeRepo, ledger *QuotaLedger, cache CachePurger, log *zap.Logger, txTimeout time.Duration) *TicketService {
    if log == nil {
        log = zap.NewNop()
    }
    return &TicketService{db: db, tickets: tickets, ledger: ledger, cache: cache, log: log.Named("tickets"), txTimeout: txTimeout}
}

// ListTicketTypes returns the catalogue with availability fields.
func (s *TicketService) ListTicketTypes(ctx context.Context) ([]model.TicketTypeView, error) {
    ts, err := s.tickets.List(ctx)
    if err != nil {
        return nil, fromRepo("list ticket types", err)
    }
    out := make([]model.TicketTypeView, 0, len(ts))
    for _, t := range ts {
        out = append(out, t.View())
    }
    return out, nil
}

// GetTicketType returns one ticket type.
func (s *TicketService) GetTicketType(ctx context.Context, id uint64) (*model.TicketTypeView, error) {
    t, err := s.tickets.GetByID(ctx, id)
    if err != nil {
        return nil, fromRepo("load ticket type", err)
    }
    v := t.View()
    return &v, nil
}

// CreateTicketType adds a ticket type whose whole quota is unsold.
func (s *TicketService) CreateTicketType(ctx context.Context, actor model.Actor, in CreateTicketTypeInput) (*model.TicketTypeView, error) {
    if err := requireRole(actor, model.RoleAdmin); err != nil {
        return nil, err
    }
    in.Name = strings.TrimSpace(in.Name)
    if err := validation.Struct(in); err != nil {
        return nil, err
    }
    if err := checkPrice(in.Price); err != nil {
        return nil, err
    }
    t := &model.TicketType{Name: in.Name, Description: in.Description, Price: in.Price.Round(2), Quota: in.Quota}
    if err := s.tickets.Create(ctx, t); err != nil {
        return nil, fromRepo("create ticket type", err)
    }
    s.purge(ctx)
    s.log.Info("ticket type created", zap.Uint64("ticket_type_id", t.ID), zap.Uint64("admin_id", actor.UserID), zap.Int("quota", t.Quota))
    v := t.View()
    return &v, nil
}

// UpdateTicketType applies in atomically.  Existing bookings keep their
// total price.
func (s *TicketService) UpdateTicketType(ctx context.Context, actor model.Actor, id uint64, in UpdateTicketTypeInput) (*model.TicketTypeView, error) {
    if err := requireRole(actor, model.RoleAdmin); err != nil {
        return nil, err
    }
    if in.Name != nil {
        n := strings.TrimSpace(*in.Name)
        in.Name = &n
    }
    if err := validation.Struct(in); err != nil {
        return nil, err
    }
    patch := repository.TicketTypePatch{Name: in.Name, Description: in.Description}
    if in.Price != nil {
        if err := checkPrice(*in.Price); err != nil {
            return nil, err
        }
        p := in.Price.Round(2)
        patch.Price = &p
    }
    if patch.Empty() && in.Quota == nil {
        return nil, domain.ValidationError{Msg: "no fields to update"}
    }

    var out *model.TicketType
    err := runTx(ctx, s.db, s.txTimeout, "update ticket type", func(ctx context.Context, tx *sql.Tx) error {
        if err := s.tickets.UpdateDetailsTx(ctx, tx, id, patch); err != nil {
            return fromRepo("update ticket type", err)
        }
        if in.Quota != nil {
            t, err := s.ledger.ResizeTx(ctx, tx, id, *in.Quota)
            if err != nil {
                return err
            }
            out = t
            return nil
        }
        t, err := s.tickets.GetByIDTx(ctx, tx, id)
        if err != nil {
            return fromRepo("load ticket type", err)
        }
        out = t
        return nil
    })
    if err != nil {
        return nil, err
    }
    s.purge(ctx)
    s.log.Info("ticket type updated", zap.Uint64("ticket_type_id", id), zap.Uint64("admin_id", actor.UserID))
    v := out.View()
    return &v, nil
}

// ResizeTicketType changes only the quota.
func (s *TicketService) ResizeTicketType(ctx context.Context, actor model.Actor, id uint64, newQuota int) (*model.TicketTypeView, error) {
    if err := requireRole(actor, model.RoleAdmin); err != nil {
        return nil, err
    }
    t, err := s.ledger.Resize(ctx, id, newQuota)
    if err != nil {
        return nil, err
    }
    s.purge(ctx)
    v := t.View()
    return &v, nil
}

// DeleteTicketType removes a ticket type that was never booked.
func (s *TicketService) DeleteTicketType(ctx context.Context, actor model.Actor, id uint64) error {
    if err := requireRole(actor, model.RoleAdmin); err != nil {
        return err
    }
    if err := s.tickets.Delete(ctx, id); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return domain.ConflictError{Resource: "ticket type", Msg: "ticket type has bookings"}
        }
        return fromRepo("delete ticket type", err)
    }
    s.purge(ctx)
    s.log.Info("ticket type deleted", zap.Uint64("ticket_type_id", id), zap.Uint64("admin_id", actor.UserID))
    return nil
}

func (s *TicketService) purge(ctx context.Context) {
    if s.cache == nil {
        return
    }
    if err := s.cache.Purge(context.WithoutCancel(ctx)); err != nil {
        s.log.Warn("purge ticket cache failed", zap.Error(err))
    }
}

func checkPrice(p decimal.Decimal) error {
    if p.IsNegative() {
        return domain.NewValidationError("price", "must be greater than or equal to 0")
    }
    if p.GreaterThanOrEqual(decimal.New(1, 10)) {
        return domain.NewValidationError("price", "is too large")
    }
    return nil
}
