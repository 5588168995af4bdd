package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/miraifest/ticket-booking/internal/model"
)

// BookingRepo provides data access helpers for the bookings table.  Status
// changes go through TransitionTx which only matches pending rows, so a
// booking leaves pending at most once even under concurrent admin actions.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying sql.DB.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingColumns = `id, user_id, ticket_type_id, quantity, total_price, booking_code, qr_code, qr_image, payment_proof, payment_status, rejection_reason, created_at, updated_at`

const bookingDetailSelect = `SELECT b.id, b.user_id, b.ticket_type_id, b.quantity, b.total_price, b.booking_code, b.qr_code,
       b.qr_image, b.payment_proof, b.payment_status, b.rejection_reason, b.created_at, b.updated_at,
       t.name, t.description, t.price, u.name, u.email
  FROM bookings b
  JOIN ticket_types t ON t.id = b.ticket_type_id
  JOIN users u ON u.id = b.user_id`

func scanBooking(row rowScanner) (*model.Booking, error) {
	var b model.Booking
	var qrImage, proof, reason sql.NullString
	var status string
	if err := row.Scan(&b.ID, &b.UserID, &b.TicketTypeID, &b.Quantity, &b.TotalPrice, &b.BookingCode, &b.QRCode,
		&qrImage, &proof, &status, &reason, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	b.PaymentStatus = model.PaymentStatus(status)
	b.QRImage, b.PaymentProof, b.RejectionReason = nullString(qrImage), nullString(proof), nullString(reason)
	return &b, nil
}

func scanBookingDetail(row rowScanner) (*model.BookingDetail, error) {
	var d model.BookingDetail
	var qrImage, proof, reason, desc sql.NullString
	var status string
	if err := row.Scan(&d.ID, &d.UserID, &d.TicketTypeID, &d.Quantity, &d.TotalPrice, &d.BookingCode, &d.QRCode,
		&qrImage, &proof, &status, &reason, &d.CreatedAt, &d.UpdatedAt,
		&d.TicketName, &desc, &d.TicketPrice, &d.UserName, &d.UserEmail); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	d.PaymentStatus = model.PaymentStatus(status)
	d.QRImage, d.PaymentProof, d.RejectionReason = nullString(qrImage), nullString(proof), nullString(reason)
	d.TicketDescription = nullString(desc)
	return &d, nil
}

func collectDetails(rows *sql.Rows) ([]model.BookingDetail, error) {
	defer rows.Close()
	out := make([]model.BookingDetail, 0)
	for rows.Next() {
		d, err := scanBookingDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// CreateTx inserts a pending booking and fills in ID and timestamps.  A
// duplicate booking_code or qr_code surfaces as ErrConflict.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	now := time.Now().UTC().Truncate(time.Second)
	b.PaymentStatus = model.StatusPending
	b.CreatedAt, b.UpdatedAt = now, now
	res, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, ticket_type_id, quantity, total_price, booking_code, qr_code, payment_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.TicketTypeID, b.Quantity, b.TotalPrice, b.BookingCode, b.QRCode, string(b.PaymentStatus), now, now)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// CodeExistsTx reports whether code is already used in column, which must be
// booking_code or qr_code.
func (r *BookingRepo) CodeExistsTx(ctx context.Context, tx *sql.Tx, column, code string) (bool, error) {
	switch column {
	case "booking_code", "qr_code":
	default:
		return false, fmt.Errorf("unknown code column %q", column)
	}
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE `+column+` = ?`, code).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByID returns the bare booking row.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
}

// GetByIDTx is GetByID inside the caller's transaction.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	return scanBooking(tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
}

// GetDetail returns a booking joined with its ticket type and buyer.  When
// userID is non-nil the booking must belong to that user; otherwise
// ErrBookingNotFound is returned so ownership is not leaked.
func (r *BookingRepo) GetDetail(ctx context.Context, id uint64, userID *uint64) (*model.BookingDetail, error) {
	q := bookingDetailSelect + ` WHERE b.id = ?`
	args := []any{id}
	if userID != nil {
		q += ` AND b.user_id = ?`
		args = append(args, *userID)
	}
	return scanBookingDetail(r.db.QueryRowContext(ctx, q, args...))
}

// ListByUser returns a user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, bookingDetailSelect+` WHERE b.user_id = ? ORDER BY b.created_at DESC, b.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectDetails(rows)
}

// ListPending returns every pending booking, oldest first so reviewers work
// through the queue in arrival order.
func (r *BookingRepo) ListPending(ctx context.Context) ([]model.BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, bookingDetailSelect+` WHERE b.payment_status = ? ORDER BY b.created_at ASC, b.id ASC`, string(model.StatusPending))
	if err != nil {
		return nil, err
	}
	return collectDetails(rows)
}

// Recent returns the latest limit bookings of any status.
func (r *BookingRepo) Recent(ctx context.Context, limit int) ([]model.BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, bookingDetailSelect+` ORDER BY b.created_at DESC, b.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return collectDetails(rows)
}

// HistoryFilter narrows the admin booking history.  Zero values disable a
// filter.
type HistoryFilter struct {
	Search       string
	Status       model.PaymentStatus
	TicketTypeID uint64
	Page         int
	PerPage      int
}

// History returns one page of bookings matching f and the total number of
// matching rows.
func (r *BookingRepo) History(ctx context.Context, f HistoryFilter) ([]model.BookingDetail, int, error) {
	where := make([]string, 0, 3)
	args := make([]any, 0, 6)
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + s + "%"
		where = append(where, `(u.name LIKE ? OR u.email LIKE ? OR b.booking_code LIKE ?)`)
		args = append(args, like, like, like)
	}
	if f.Status != "" {
		where = append(where, `b.payment_status = ?`)
		args = append(args, string(f.Status))
	}
	if f.TicketTypeID != 0 {
		where = append(where, `b.ticket_type_id = ?`)
		args = append(args, f.TicketTypeID)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQ := `SELECT COUNT(*) FROM bookings b JOIN ticket_types t ON t.id = b.ticket_type_id JOIN users u ON u.id = b.user_id` + clause
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, perPage := f.Page, f.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	pageArgs := append(append([]any{}, args...), perPage, (page-1)*perPage)
	rows, err := r.db.QueryContext(ctx, bookingDetailSelect+clause+` ORDER BY b.created_at DESC, b.id DESC LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collectDetails(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Transition describes a status change.  QRImage and Reason are written
// only when non-nil.
type Transition struct {
	To      model.PaymentStatus
	QRImage *string
	Reason  *string
}

// TransitionTx moves a pending booking to t.To.  The UPDATE only matches
// pending rows; when nothing matches, ErrBookingNotFound or ErrNotPending is
// returned depending on whether the row exists.
func (r *BookingRepo) TransitionTx(ctx context.Context, tx *sql.Tx, id uint64, t Transition) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings
		    SET payment_status = ?,
		        qr_image = COALESCE(?, qr_image),
		        rejection_reason = COALESCE(?, rejection_reason),
		        updated_at = ?
		  WHERE id = ? AND payment_status = ?`,
		string(t.To), t.QRImage, t.Reason, time.Now().UTC().Truncate(time.Second), id, string(model.StatusPending))
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
	return ErrNotPending
}

// SetPaymentProof records the uploaded proof path on a pending booking owned
// by userID.
func (r *BookingRepo) SetPaymentProof(ctx context.Context, id, userID uint64, path string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET payment_proof = ?, updated_at = ? WHERE id = ? AND user_id = ? AND payment_status = ?`,
		path, time.Now().UTC().Truncate(time.Second), id, userID, string(model.StatusPending))
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
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b.UserID != userID {
		return ErrBookingNotFound
	}
	return ErrNotPending
}

// CountByUser returns how many bookings reference the user.
func (r *BookingRepo) CountByUser(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

// HeldUnits returns the sum of quantities of pending and confirmed bookings
// for a ticket type.  quota - remaining_quota must always equal this value.
func (r *BookingRepo) HeldUnits(ctx context.Context, ticketTypeID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM bookings WHERE ticket_type_id = ? AND payment_status IN (?, ?)`,
		ticketTypeID, string(model.StatusPending), string(model.StatusConfirmed)).Scan(&n)
	return n, err
}
