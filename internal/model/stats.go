package model

import "github.com/shopspring/decimal"

// DashboardOverview holds the headline counters of the admin dashboard.
type DashboardOverview struct {
    TotalBookings   int             `json:"total_bookings"`
    PendingPayments int             `json:"pending_payments"`
    TotalRevenue    decimal.Decimal `json:"total_revenue"`
    TotalUsers      int             `json:"total_users"`
}

// TicketTypeSales aggregates confirmed bookings for one ticket type.
type TicketTypeSales struct {
    TicketTypeID  uint64          `json:"ticket_type_id"`
    Name          string          `json:"name"`
    TotalBookings int             `json:"total_bookings"`
    TotalTickets  int             `json:"total_tickets"`
    Revenue       decimal.Decimal `json:"revenue"`
}

// DashboardStats is the payload of GET /admin/dashboard/stats.
type DashboardStats struct {
    Overview       DashboardOverview `json:"overview"`
    BookingsByType []TicketTypeSales `json:"bookings_by_type"`
    RecentBookings []BookingDetail   `json:"recent_bookings"`
}
