// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// service package to distinguish between different failure scenarios
// without inspecting driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrTicketTypeNotFound is returned when no ticket_types row matches.
var ErrTicketTypeNotFound = errors.New("ticket type not found")

// ErrBookingNotFound is returned when no bookings row matches (or the row
// belongs to a different user when ownership is enforced).
var ErrBookingNotFound = errors.New("booking not found")

// ErrUserNotFound is returned when no users row matches.
var ErrUserNotFound = errors.New("user not found")

// ErrInsufficientQuota is returned by the conditional quota decrement when
// remaining_quota is lower than the requested quantity at write time.
var ErrInsufficientQuota = errors.New("insufficient quota")

// ErrNotPending is returned by the conditional status update when the
// booking has already left the pending state.
var ErrNotPending = errors.New("booking is not pending")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as attempting to
// delete a ticket type that still has bookings. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// isDuplicateKey reports whether err is a unique-key violation.  MySQL
// reports error 1062; the message check keeps the embedded SQLite used in
// tests working as well.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique constraint")
}
