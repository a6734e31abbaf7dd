// Package rooms lists rooms and changes their housekeeping status, pushing
// every change to websocket subscribers.
package rooms

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/LonelyIsle/resort-api/internal/db"
	"github.com/LonelyIsle/resort-api/internal/logger"
	"github.com/LonelyIsle/resort-api/internal/metrics"
)

var (
	ErrNotFound      = errors.New("room not found")
	ErrInvalidStatus = errors.New("invalid room status")
)

// EventStatusChanged is the websocket event type for status updates.
const EventStatusChanged = "room_status"

var statuses = map[string]bool{
	"available":   true,
	"occupied":    true,
	"maintenance": true,
	"cleaning":    true,
}

func ValidStatus(s string) bool { return statuses[s] }

type Room struct {
	ID            int64   `json:"id"`
	RoomNumber    string  `json:"room_number"`
	RoomType      string  `json:"room_type"`
	Status        string  `json:"status"`
	PricePerNight float64 `json:"price_per_night"`
}

// Broadcaster is satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(eventType string, data any) error
}

type Service struct {
	q   db.Querier
	hub Broadcaster
}

func NewService(q db.Querier, hub Broadcaster) *Service {
	return &Service{q: q, hub: hub}
}

const (
	listSQL = `
		SELECT id, room_number, room_type, status, price_per_night::float8
		FROM rooms
		ORDER BY room_number`

	updateStatusSQL = `
		UPDATE rooms SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id, room_number, room_type, status, price_per_night::float8`
)

func scanRoom(row pgx.Row) (Room, error) {
	var r Room
	err := row.Scan(&r.ID, &r.RoomNumber, &r.RoomType, &r.Status, &r.PricePerNight)
	return r, err
}

func (s *Service) List(ctx context.Context) ([]Room, error) {
	rows, err := s.q.Query(ctx, listSQL)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Room, error) { return scanRoom(row) })
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return out, nil
}

// UpdateStatus sets a room's status and broadcasts the new state. A failed
// broadcast is logged; the update itself has already succeeded.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*Room, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	r, err := scanRoom(s.q.QueryRow(ctx, updateStatusSQL, status, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update room status: %w", err)
	}
	metrics.RoomStatusChanges.WithLabelValues(status).Inc()

	if s.hub != nil {
		if err := s.hub.Broadcast(EventStatusChanged, r); err != nil {
			logger.WithContext(ctx).WithError(err).WithField("room_id", r.ID).Warn("room status broadcast dropped")
		}
	}
	return &r, nil
}
