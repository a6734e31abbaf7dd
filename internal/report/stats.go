package report

import (
	"context"
	"fmt"
	"time"
)

// Stats is the dashboard header shown above the report list.
type Stats struct {
	TotalRooms          int64   `json:"total_rooms"`
	OccupiedRooms       int64   `json:"occupied_rooms"`
	OccupancyRate       float64 `json:"occupancy_rate"`
	TotalReservations   int64   `json:"total_reservations"`
	ActiveReservations  int64   `json:"active_reservations"`
	TotalGuests         int64   `json:"total_guests"`
	RevenueThisMonth    float64 `json:"revenue_this_month"`
	UnreadNotifications int64   `json:"unread_notifications"`
}

const statsSQL = `
	SELECT
		(SELECT COUNT(*) FROM rooms),
		(SELECT COUNT(*) FROM rooms WHERE status = 'occupied'),
		(SELECT COUNT(*) FROM reservations),
		(SELECT COUNT(*) FROM reservations WHERE status IN ('confirmed', 'checked_in')),
		(SELECT COUNT(*) FROM guests),
		(SELECT COALESCE(SUM(amount), 0)::float8 FROM payments
		  WHERE status = 'paid' AND created_at >= $1),
		(SELECT COUNT(*) FROM notifications WHERE NOT is_read)`

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	var st Stats
	err := s.db.QueryRow(ctx, statsSQL, monthStart).Scan(
		&st.TotalRooms, &st.OccupiedRooms, &st.TotalReservations, &st.ActiveReservations,
		&st.TotalGuests, &st.RevenueThisMonth, &st.UnreadNotifications,
	)
	if err != nil {
		return nil, fmt.Errorf("report stats: %w", err)
	}
	st.RevenueThisMonth = Money(st.RevenueThisMonth)
	st.OccupancyRate = Percentage(float64(st.OccupiedRooms), float64(st.TotalRooms))
	return &st, nil
}
