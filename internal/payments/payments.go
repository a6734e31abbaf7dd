// Package payments moves payments between statuses and notifies the guest,
// all inside one database transaction.
package payments

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
	ErrNotFound          = errors.New("payment not found")
	ErrInvalidTransition = errors.New("payment status transition not allowed")
	ErrInvalidStatus     = errors.New("invalid payment status")
)

var statuses = map[string]bool{
	"pending":   true,
	"paid":      true,
	"failed":    true,
	"cancelled": true,
	"refunded":  true,
}

// ValidStatus reports whether s is a payment status at all, regardless of
// where a payment could move from.
func ValidStatus(s string) bool { return statuses[s] }

// transitions lists the allowed next statuses for each status.
var transitions = map[string][]string{
	"pending": {"paid", "failed", "cancelled"},
	"paid":    {"refunded"},
	"failed":  {"pending"},
}

func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Payment struct {
	ID            int64   `json:"id"`
	ReservationID int64   `json:"reservation_id"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	Previous      string  `json:"previous_status"`
	Notified      bool    `json:"notified"`
}

type Service struct {
	db db.TxBeginner
}

func NewService(pool db.TxBeginner) *Service { return &Service{db: pool} }

const (
	lockPaymentSQL = `
		SELECT p.id, p.reservation_id, p.amount::float8, p.status, g.user_id
		FROM payments p
		JOIN reservations r ON r.id = p.reservation_id
		LEFT JOIN guests g ON g.id = r.guest_id
		WHERE p.id = $1
		FOR UPDATE OF p`

	updatePaymentSQL = `UPDATE payments SET status = $1, updated_at = NOW() WHERE id = $2`

	insertNotificationSQL = `
		INSERT INTO notifications (user_id, type, title, message)
		VALUES ($1, 'payment', $2, $3)`
)

// UpdateStatus locks the payment row, checks the transition, writes the new
// status and the guest notification, then commits. Any failure rolls the
// whole transaction back.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*Payment, error) {
	if !ValidStatus(status) {
		metrics.PaymentTransitions.WithLabelValues("unknown", "rejected").Inc()
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin payment tx: %w", err)
	}

	p, err := transition(ctx, tx, id, status)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			logger.WithContext(ctx).WithError(rbErr).Error("payment rollback")
		}
		metrics.PaymentTransitions.WithLabelValues(status, "rejected").Inc()
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		metrics.PaymentTransitions.WithLabelValues(status, "error").Inc()
		return nil, fmt.Errorf("commit payment tx: %w", err)
	}

	metrics.PaymentTransitions.WithLabelValues(status, "ok").Inc()
	logger.WithContext(ctx).WithField("payment_id", id).
		WithField("from", p.Previous).WithField("to", p.Status).Info("payment status changed")
	return p, nil
}

func transition(ctx context.Context, tx pgx.Tx, id int64, status string) (*Payment, error) {
	var (
		p      Payment
		userID *int64
	)
	err := tx.QueryRow(ctx, lockPaymentSQL, id).Scan(&p.ID, &p.ReservationID, &p.Amount, &p.Previous, &userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock payment: %w", err)
	}
	if !CanTransition(p.Previous, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Previous, status)
	}

	if _, err := tx.Exec(ctx, updatePaymentSQL, status, id); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}
	p.Status = status

	if userID != nil {
		title, msg := notificationText(p, status)
		if _, err := tx.Exec(ctx, insertNotificationSQL, *userID, title, msg); err != nil {
			return nil, fmt.Errorf("insert payment notification: %w", err)
		}
		p.Notified = true
	}
	return &p, nil
}

func notificationText(p Payment, status string) (string, string) {
	switch status {
	case "paid":
		return "Payment received", fmt.Sprintf("We received your payment of %.2f for reservation #%d.", p.Amount, p.ReservationID)
	case "refunded":
		return "Payment refunded", fmt.Sprintf("Your payment of %.2f for reservation #%d has been refunded.", p.Amount, p.ReservationID)
	case "failed":
		return "Payment failed", fmt.Sprintf("Your payment for reservation #%d could not be processed.", p.ReservationID)
	case "cancelled":
		return "Payment cancelled", fmt.Sprintf("Your payment for reservation #%d was cancelled.", p.ReservationID)
	default:
		return "Payment updated", fmt.Sprintf("Your payment for reservation #%d is now %s.", p.ReservationID, status)
	}
}
