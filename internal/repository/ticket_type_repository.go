package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/miraifest/ticket-booking/internal/model"
)

// TicketTypeRepo owns the ticket_types table.  The quota counters are only
// ever changed through DecrementTx, IncrementTx and ResizeTx, each of which
// is a single conditional UPDATE so the row lock taken by the statement is
// the only serialisation point between concurrent bookings.
type TicketTypeRepo struct {
	db *sql.DB
}

// NewTicketTypeRepo returns a new TicketTypeRepo bound to the given database.
func NewTicketTypeRepo(db *sql.DB) *TicketTypeRepo { return &TicketTypeRepo{db: db} }

// DB exposes the underlying sql.DB so callers can open transactions that
// span several repositories.
func (r *TicketTypeRepo) DB() *sql.DB { return r.db }

const ticketTypeColumns = `id, name, description, price, quota, remaining_quota, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicketType(row rowScanner) (*model.TicketType, error) {
	var t model.TicketType
	var desc sql.NullString
	if err := row.Scan(&t.ID, &t.Name, &desc, &t.Price, &t.Quota, &t.RemainingQuota, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketTypeNotFound
		}
		return nil, err
	}
	t.Description = nullString(desc)
	return &t, nil
}

// List returns every ticket type ordered by id.
func (r *TicketTypeRepo) List(ctx context.Context) ([]model.TicketType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+ticketTypeColumns+` FROM ticket_types ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.TicketType, 0)
	for rows.Next() {
		t, err := scanTicketType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// GetByID returns a ticket type or ErrTicketTypeNotFound.
func (r *TicketTypeRepo) GetByID(ctx context.Context, id uint64) (*model.TicketType, error) {
	return scanTicketType(r.db.QueryRowContext(ctx, `SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = ?`, id))
}

// GetByIDTx is GetByID inside the caller's transaction.
func (r *TicketTypeRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.TicketType, error) {
	return scanTicketType(tx.QueryRowContext(ctx, `SELECT `+ticketTypeColumns+` FROM ticket_types WHERE id = ?`, id))
}

// Create inserts a ticket type.  RemainingQuota is always initialised to
// Quota; the generated ID and timestamps are populated on t.
func (r *TicketTypeRepo) Create(ctx context.Context, t *model.TicketType) error {
	now := time.Now().UTC().Truncate(time.Second)
	t.RemainingQuota = t.Quota
	t.CreatedAt, t.UpdatedAt = now, now
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO ticket_types (name, description, price, quota, remaining_quota, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Description, t.Price, t.Quota, t.RemainingQuota, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// TicketTypePatch lists the descriptive fields an admin may change.  Nil
// fields are left untouched.  Quota changes go through ResizeTx.
type TicketTypePatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
}

// Empty reports whether the patch changes nothing.
func (p TicketTypePatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil
}

// UpdateDetailsTx applies p to the ticket type.  Existing bookings keep
// their own total_price so a price change never rewrites history.
func (r *TicketTypeRepo) UpdateDetailsTx(ctx context.Context, tx *sql.Tx, id uint64, p TicketTypePatch) error {
	if p.Empty() {
		return nil
	}
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *p.Name)
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *p.Price)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Truncate(time.Second), id)
	res, err := tx.ExecContext(ctx, `UPDATE ticket_types SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	return r.ensureTouched(ctx, tx, res, id)
}

// DecrementTx reserves qty units.  The WHERE clause re-checks the stock at
// write time, so two transactions racing for the last units cannot both
// succeed: the loser matches zero rows and gets ErrInsufficientQuota.
func (r *TicketTypeRepo) DecrementTx(ctx context.Context, tx *sql.Tx, id uint64, qty int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE ticket_types SET remaining_quota = remaining_quota - ?, updated_at = ? WHERE id = ? AND remaining_quota >= ?`,
		qty, time.Now().UTC().Truncate(time.Second), id, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	if _, err := r.GetByIDTx(ctx, tx, id); err != nil {
		return err
	}
	return ErrInsufficientQuota
}

// IncrementTx returns qty units to the pool, never exceeding quota.
func (r *TicketTypeRepo) IncrementTx(ctx context.Context, tx *sql.Tx, id uint64, qty int) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE ticket_types
		    SET remaining_quota = CASE WHEN remaining_quota + ? > quota THEN quota ELSE remaining_quota + ? END,
		        updated_at = ?
		  WHERE id = ?`,
		qty, qty, time.Now().UTC().Truncate(time.Second), id)
	if err != nil {
		return err
	}
	return r.ensureTouched(ctx, tx, res, id)
}

// ResizeTx sets quota to newQuota and shifts remaining_quota by the same
// delta, flooring at zero, so the number of units already sold is kept.
// remaining_quota is assigned first because MySQL evaluates SET clauses
// left to right against the updated row.
func (r *TicketTypeRepo) ResizeTx(ctx context.Context, tx *sql.Tx, id uint64, newQuota int) (*model.TicketType, error) {
	// quota columns are UNSIGNED; the delta is computed signed so a shrink
	// below the sold units floors at 0 instead of overflowing
	res, err := tx.ExecContext(ctx,
		`UPDATE ticket_types
		    SET remaining_quota = CASE
		            WHEN CAST(remaining_quota AS SIGNED) + ? - CAST(quota AS SIGNED) < 0 THEN 0
		            ELSE CAST(remaining_quota AS SIGNED) + ? - CAST(quota AS SIGNED)
		        END,
		        quota = ?,
		        updated_at = ?
		  WHERE id = ?`,
		newQuota, newQuota, newQuota, time.Now().UTC().Truncate(time.Second), id)
	if err != nil {
		return nil, err
	}
	if err := r.ensureTouched(ctx, tx, res, id); err != nil {
		return nil, err
	}
	return r.GetByIDTx(ctx, tx, id)
}

// Delete removes a ticket type that has never been booked.  Ticket types
// with bookings return ErrConflict.
func (r *TicketTypeRepo) Delete(ctx context.Context, id uint64) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE ticket_type_id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ticket_types WHERE id = ?`, id); err != nil {
		// a booking inserted after the count still trips the foreign key
		if isForeignKeyViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// ensureTouched turns a zero-row UPDATE into ErrTicketTypeNotFound when the
// row does not exist.  MySQL reports zero affected rows for a matching row
// whose values did not change, so existence is checked explicitly.
func (r *TicketTypeRepo) ensureTouched(ctx context.Context, tx *sql.Tx, res sql.Result, id uint64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = r.GetByIDTx(ctx, tx, id)
	return err
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func isForeignKeyViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1451") || strings.Contains(msg, "foreign key")
}
