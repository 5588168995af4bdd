// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names; each is bound to the default exchange under its own name.
const (
    BookingConfirmedQueue = "booking.confirmed"
    BookingCancelledQueue = "booking.cancelled"
)

// BookingConfirmedEvent is published when an admin approves a booking.
// It contains enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type BookingConfirmedEvent struct {
    BookingID    uint64 `json:"booking_id"`
    BookingCode  string `json:"booking_code"`
    UserID       uint64 `json:"user_id"`
    UserEmail    string `json:"user_email"`
    TicketTypeID uint64 `json:"ticket_type_id"`
    TicketName   string `json:"ticket_name"`
    Quantity     int    `json:"quantity"`
    TotalPrice   string `json:"total_price"`
    QRImage      string `json:"qr_image,omitempty"`
    ConfirmedAt  string `json:"confirmed_at"`
}

// BookingCancelledEvent is published when an admin rejects a booking and
// its units return to the pool.
type BookingCancelledEvent struct {
    BookingID     uint64 `json:"booking_id"`
    BookingCode   string `json:"booking_code"`
    UserID        uint64 `json:"user_id"`
    TicketTypeID  uint64 `json:"ticket_type_id"`
    QuotaRestored int    `json:"quota_restored"`
    Reason        string `json:"reason"`
    CancelledAt   string `json:"cancelled_at"`
}
