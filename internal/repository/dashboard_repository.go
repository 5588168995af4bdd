package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/miraifest/ticket-booking/internal/model"
)

// DashboardRepo runs the aggregate queries behind the admin dashboard.
type DashboardRepo struct {
	db *sql.DB
}

func NewDashboardRepo(db *sql.DB) *DashboardRepo { return &DashboardRepo{db: db} }

// Overview returns the headline counters.  Revenue only counts confirmed
// bookings; users only counts the user role.
func (r *DashboardRepo) Overview(ctx context.Context) (model.DashboardOverview, error) {
	var o model.DashboardOverview
	var revenue decimal.NullDecimal
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN payment_status = ? THEN 1 ELSE 0 END), 0),
		        SUM(CASE WHEN payment_status = ? THEN total_price END)
		   FROM bookings`,
		string(model.StatusPending), string(model.StatusConfirmed)).Scan(&o.TotalBookings, &o.PendingPayments, &revenue)
	if err != nil {
		return o, err
	}
	if revenue.Valid {
		o.TotalRevenue = revenue.Decimal
	}
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = ?`, model.RoleUser).Scan(&o.TotalUsers)
	return o, err
}

// SalesByType aggregates confirmed bookings per ticket type.  Ticket types
// without sales are included with zero counts.
func (r *DashboardRepo) SalesByType(ctx context.Context) ([]model.TicketTypeSales, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.name, COUNT(b.id), COALESCE(SUM(b.quantity), 0), SUM(b.total_price)
		   FROM ticket_types t
		   LEFT JOIN bookings b ON b.ticket_type_id = t.id AND b.payment_status = ?
		  GROUP BY t.id, t.name
		  ORDER BY t.id`,
		string(model.StatusConfirmed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.TicketTypeSales, 0)
	for rows.Next() {
		var s model.TicketTypeSales
		var revenue decimal.NullDecimal
		if err := rows.Scan(&s.TicketTypeID, &s.Name, &s.TotalBookings, &s.TotalTickets, &revenue); err != nil {
			return nil, err
		}
		if revenue.Valid {
			s.Revenue = revenue.Decimal
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
