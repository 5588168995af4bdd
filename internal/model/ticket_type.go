package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// TicketType is a sellable category of tickets with a finite pool.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – display name (e.g. "Presale 1").
//  Description    – optional free text.
//  Price          – unit price; bookings snapshot it at creation.
//  Quota          – total sellable units.
//  RemainingQuota – unsold units; 0 <= RemainingQuota <= Quota.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type TicketType struct {
    ID             uint64          `json:"id"`
    Name           string          `json:"name"`
    Description    *string         `json:"description"`
    Price          decimal.Decimal `json:"price"`
    Quota          int             `json:"quota"`
    RemainingQuota int             `json:"remaining_quota"`
    CreatedAt      time.Time       `json:"created_at"`
    UpdatedAt      time.Time       `json:"updated_at"`
}

// Sold is the number of units held by pending or confirmed bookings.
func (t TicketType) Sold() int { return t.Quota - t.RemainingQuota }

// IsAvailable reports whether at least one unit can still be reserved.
func (t TicketType) IsAvailable() bool { return t.RemainingQuota > 0 }

// TicketTypeView is the public representation returned by the catalogue
// endpoints.  It adds the derived availability fields.
type TicketTypeView struct {
    TicketType
    IsAvailable bool `json:"is_available"`
    SoldCount   int  `json:"sold"`
}

// View converts a TicketType into its public representation.
func (t TicketType) View() TicketTypeView {
    return TicketTypeView{TicketType: t, IsAvailable: t.IsAvailable(), SoldCount: t.Sold()}
}
