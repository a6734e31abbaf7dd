package report

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/LonelyIsle/resort-api/internal/export"
)

type OccupancySummary struct {
	TotalRooms        int64   `json:"total_rooms"`
	OccupiedRooms     int64   `json:"occupied_rooms"`
	AvailableRooms    int64   `json:"available_rooms"`
	MaintenanceRooms  int64   `json:"maintenance_rooms"`
	OccupancyRate     float64 `json:"occupancy_rate"`
	TotalReservations int64   `json:"total_reservations"`
	TotalNights       int64   `json:"total_nights"`
	AverageStay       float64 `json:"average_stay"`
}

type RoomTypeOccupancy struct {
	RoomType      string  `json:"room_type"`
	TotalRooms    int64   `json:"total_rooms"`
	OccupiedRooms int64   `json:"occupied_rooms"`
	OccupancyRate float64 `json:"occupancy_rate"`
}

type DailyOccupancy struct {
	Date          string  `json:"date"`
	OccupiedRooms int64   `json:"occupied_rooms"`
	TotalRooms    int64   `json:"total_rooms"`
	OccupancyRate float64 `json:"occupancy_rate"`
}

type OccupancyBreakdowns struct {
	ByRoomType []RoomTypeOccupancy `json:"by_room_type"`
	ByDay      []DailyOccupancy    `json:"by_day"`
}

type OccupancyReport struct {
	Period     Period              `json:"period"`
	Summary    OccupancySummary    `json:"summary"`
	Breakdowns OccupancyBreakdowns `json:"breakdowns"`
}

func (r *OccupancyReport) Type() Type       { return TypeOccupancy }
func (r *OccupancyReport) Name() string     { return "occupancy_report" }
func (r *OccupancyReport) Subtitle() string { return "Period: " + r.Period.String() }

func (r *OccupancyReport) Tables() []export.Table {
	return []export.Table{
		export.TableOf("summary", r.Summary),
		export.TableOf("by_room_type", r.Breakdowns.ByRoomType),
		export.TableOf("by_day", r.Breakdowns.ByDay),
	}
}

// Room counts reflect current room status; reservation figures cover stays
// overlapping the period. Each breakdown reads the tables independently.
const (
	occupancyRoomsSQL = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'occupied'),
			COUNT(*) FILTER (WHERE status = 'available'),
			COUNT(*) FILTER (WHERE status = 'maintenance')
		FROM rooms
		WHERE ($1::text = '' OR room_type = $1::text)`

	occupancyStaysSQL = `
		SELECT
			COUNT(*),
			COALESCE(SUM(r.check_out - r.check_in), 0)::bigint,
			COALESCE(AVG(r.check_out - r.check_in), 0)::float8
		FROM reservations r
		JOIN rooms rm ON rm.id = r.room_id
		WHERE r.status <> 'cancelled'
		  AND r.check_in <= $2::date
		  AND r.check_out >= $1::date
		  AND ($3::text = '' OR rm.room_type = $3::text)`

	occupancyByRoomTypeSQL = `
		SELECT room_type,
		       COUNT(*) AS total_rooms,
		       COUNT(*) FILTER (WHERE status = 'occupied') AS occupied_rooms
		FROM rooms
		WHERE ($1::text = '' OR room_type = $1::text)
		GROUP BY room_type
		ORDER BY room_type`

	occupancyByDaySQL = `
		SELECT TO_CHAR(d, 'YYYY-MM-DD') AS date,
		       (SELECT COUNT(DISTINCT r.room_id)
		          FROM reservations r
		          JOIN rooms rm ON rm.id = r.room_id
		         WHERE r.status IN ('confirmed', 'checked_in', 'checked_out')
		           AND r.check_in <= d::date
		           AND r.check_out > d::date
		           AND ($3::text = '' OR rm.room_type = $3::text)) AS occupied_rooms,
		       (SELECT COUNT(*) FROM rooms
		         WHERE ($3::text = '' OR room_type = $3::text)) AS total_rooms
		FROM generate_series($1::date, $2::date, interval '1 day') AS d
		ORDER BY d`
)

// Occupancy reports room usage. Filter: room_type.
func (s *Service) Occupancy(ctx context.Context, opts Options) (*OccupancyReport, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p := opts.Period
	roomType := opts.filter("room_type")
	rep := &OccupancyReport{Period: p}

	sum := &rep.Summary
	err := s.db.QueryRow(ctx, occupancyRoomsSQL, roomType).
		Scan(&sum.TotalRooms, &sum.OccupiedRooms, &sum.AvailableRooms, &sum.MaintenanceRooms)
	if err != nil {
		return nil, fmt.Errorf("occupancy rooms: %w", err)
	}
	sum.OccupancyRate = Percentage(float64(sum.OccupiedRooms), float64(sum.TotalRooms))

	err = s.db.QueryRow(ctx, occupancyStaysSQL, p.Start, p.End, roomType).
		Scan(&sum.TotalReservations, &sum.TotalNights, &sum.AverageStay)
	if err != nil {
		return nil, fmt.Errorf("occupancy stays: %w", err)
	}
	sum.AverageStay = Money(sum.AverageStay)

	rows, err := s.db.Query(ctx, occupancyByRoomTypeSQL, roomType)
	if err != nil {
		return nil, fmt.Errorf("occupancy by room type: %w", err)
	}
	rep.Breakdowns.ByRoomType, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (RoomTypeOccupancy, error) {
		var o RoomTypeOccupancy
		err := row.Scan(&o.RoomType, &o.TotalRooms, &o.OccupiedRooms)
		o.OccupancyRate = Percentage(float64(o.OccupiedRooms), float64(o.TotalRooms))
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("occupancy by room type: %w", err)
	}

	rows, err = s.db.Query(ctx, occupancyByDaySQL, p.Start, p.End, roomType)
	if err != nil {
		return nil, fmt.Errorf("occupancy by day: %w", err)
	}
	rep.Breakdowns.ByDay, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (DailyOccupancy, error) {
		var d DailyOccupancy
		err := row.Scan(&d.Date, &d.OccupiedRooms, &d.TotalRooms)
		d.OccupancyRate = Percentage(float64(d.OccupiedRooms), float64(d.TotalRooms))
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("occupancy by day: %w", err)
	}

	return rep, nil
}
