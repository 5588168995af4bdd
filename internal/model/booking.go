package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// PaymentStatus is the state of a booking's payment review.
type PaymentStatus string

const (
    StatusPending   PaymentStatus = "pending"
    StatusConfirmed PaymentStatus = "confirmed"
    StatusCancelled PaymentStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s PaymentStatus) Valid() bool {
    switch s {
    case StatusPending, StatusConfirmed, StatusCancelled:
        return true
    }
    return false
}

// CanTransitionTo reports whether a booking in state s may move to next.
// Only pending bookings move, and only to confirmed or cancelled; both of
// those are terminal.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
    return s == StatusPending && (next == StatusConfirmed || next == StatusCancelled)
}

// Booking records a user's purchase of Quantity units of one ticket type.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – buyer.
//  TicketTypeID    – ticket type purchased.
//  Quantity        – number of units (> 0).
//  TotalPrice      – price * quantity frozen at creation time.
//  BookingCode     – unique human-facing code (MIRAIyyyymmddXXXXXXXX).
//  QRCode          – unique machine payload code (MF-<32 hex>).
//  QRImage         – reference to the rendered QR artifact, set on confirmation.
//  PaymentProof    – path of the uploaded payment proof, if any.
//  PaymentStatus   – pending, confirmed or cancelled.
//  RejectionReason – admin note recorded when the booking was cancelled.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Booking struct {
    ID              uint64          `json:"id"`
    UserID          uint64          `json:"user_id"`
    TicketTypeID    uint64          `json:"ticket_type_id"`
    Quantity        int             `json:"quantity"`
    TotalPrice      decimal.Decimal `json:"total_price"`
    BookingCode     string          `json:"booking_code"`
    QRCode          string          `json:"qr_code"`
    QRImage         *string         `json:"qr_image"`
    PaymentProof    *string         `json:"payment_proof"`
    PaymentStatus   PaymentStatus   `json:"payment_status"`
    RejectionReason *string         `json:"rejection_reason,omitempty"`
    CreatedAt       time.Time       `json:"created_at"`
    UpdatedAt       time.Time       `json:"updated_at"`
}

// BookingDetail is a booking joined with its ticket type and buyer.  The
// URL fields are filled in by the handler layer from the stored paths.
type BookingDetail struct {
    Booking
    TicketName        string          `json:"ticket_name"`
    TicketDescription *string         `json:"ticket_description"`
    TicketPrice       decimal.Decimal `json:"ticket_price"`
    UserName          string          `json:"user_name"`
    UserEmail         string          `json:"user_email"`
    PaymentProofURL   *string         `json:"payment_proof_url,omitempty"`
    QRImageURL        *string         `json:"qr_code_url,omitempty"`
}
