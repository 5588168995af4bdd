package service

import (
    "context"

    "github.com/miraifest/ticket-booking/internal/model"
    "github.com/miraifest/ticket-booking/internal/repository"
)

const recentBookingsLimit = 5

// DashboardService assembles the admin overview.
type DashboardService struct {
    stats    *repository.DashboardRepo
    bookings *repository.BookingRepo
}

func NewDashboardService(stats *repository.DashboardRepo, bookings *repository.BookingRepo) *DashboardService {
    return &DashboardService{stats: stats, bookings: bookings}
}

// Stats returns counters, per-type sales and the latest bookings.
func (s *DashboardService) Stats(ctx context.Context, actor model.Actor) (*model.DashboardStats, error) {
    if err := requireRole(actor, model.RoleAdmin); err != nil {
        return nil, err
    }
    overview, err := s.stats.Overview(ctx)
    if err != nil {
        return nil, fromRepo("dashboard overview", err)
    }
    byType, err := s.stats.SalesByType(ctx)
    if err != nil {
        return nil, fromRepo("dashboard sales", err)
    }
    recent, err := s.bookings.Recent(ctx, recentBookingsLimit)
    if err != nil {
        return nil, fromRepo("dashboard recent", err)
    }
    return &model.DashboardStats{Overview: overview, BookingsByType: byType, RecentBookings: recent}, nil
}
