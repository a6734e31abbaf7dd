package report

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/LonelyIsle/resort-api/internal/export"
)

type FinancialSummary struct {
	TotalRevenue   float64 `json:"total_revenue"`
	TotalPayments  int64   `json:"total_payments"`
	AveragePayment float64 `json:"average_payment"`
	PendingAmount  float64 `json:"pending_amount"`
	RefundedAmount float64 `json:"refunded_amount"`
}

type PaymentMethodBreakdown struct {
	PaymentMethod string  `json:"payment_method"`
	Count         int64   `json:"count"`
	Total         float64 `json:"total"`
	Percentage    float64 `json:"percentage"`
}

type RevenuePoint struct {
	Period string  `json:"period"`
	Total  float64 `json:"total"`
	Count  int64   `json:"count"`
}

type TopReservation struct {
	ReservationID int64   `json:"reservation_id"`
	GuestName     string  `json:"guest_name"`
	RoomNumber    string  `json:"room_number"`
	TotalPaid     float64 `json:"total_paid"`
}

type TopGuest struct {
	GuestID      int64   `json:"guest_id"`
	GuestName    string  `json:"guest_name"`
	Email        string  `json:"email"`
	Reservations int64   `json:"reservations"`
	TotalSpent   float64 `json:"total_spent"`
}

type FinancialBreakdowns struct {
	ByPaymentMethod []PaymentMethodBreakdown `json:"by_payment_method"`
	RevenueOverTime []RevenuePoint           `json:"revenue_over_time"`
	TopReservations []TopReservation         `json:"top_reservations"`
	TopGuests       []TopGuest               `json:"top_guests"`
}

type FinancialReport struct {
	Period     Period              `json:"period"`
	Summary    FinancialSummary    `json:"summary"`
	Breakdowns FinancialBreakdowns `json:"breakdowns"`
}

func (r *FinancialReport) Type() Type       { return TypeFinancial }
func (r *FinancialReport) Name() string     { return "financial_report" }
func (r *FinancialReport) Subtitle() string { return "Period: " + r.Period.String() }

func (r *FinancialReport) Tables() []export.Table {
	return []export.Table{
		export.TableOf("summary", r.Summary),
		export.TableOf("by_payment_method", r.Breakdowns.ByPaymentMethod),
		export.TableOf("revenue_over_time", r.Breakdowns.RevenueOverTime),
		export.TableOf("top_reservations", r.Breakdowns.TopReservations),
		export.TableOf("top_guests", r.Breakdowns.TopGuests),
	}
}

// Only payments with status 'paid' count as revenue.
const (
	financialSummarySQL = `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0)::float8,
			COUNT(*) FILTER (WHERE status = 'paid'),
			COALESCE(AVG(amount) FILTER (WHERE status = 'paid'), 0)::float8,
			COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0)::float8,
			COALESCE(SUM(amount) FILTER (WHERE status = 'refunded'), 0)::float8
		FROM payments
		WHERE created_at BETWEEN $1 AND $2
		  AND ($3::text = '' OR payment_method = $3::text)`

	financialByMethodSQL = `
		SELECT payment_method, COUNT(*), COALESCE(SUM(amount), 0)::float8 AS total
		FROM payments
		WHERE status = 'paid'
		  AND created_at BETWEEN $1 AND $2
		  AND ($3::text = '' OR payment_method = $3::text)
		GROUP BY payment_method
		ORDER BY total DESC`

	financialOverTimeSQL = `
		SELECT TO_CHAR(date_trunc($3::text, created_at), 'YYYY-MM-DD') AS period,
		       COALESCE(SUM(amount), 0)::float8 AS total,
		       COUNT(*) AS count
		FROM payments
		WHERE status = 'paid'
		  AND created_at BETWEEN $1 AND $2
		  AND ($4::text = '' OR payment_method = $4::text)
		GROUP BY 1
		ORDER BY %s`

	financialTopReservationsSQL = `
		SELECT r.id,
		       COALESCE(g.first_name || ' ' || g.last_name, '') AS guest_name,
		       COALESCE(rm.room_number, '') AS room_number,
		       SUM(p.amount)::float8 AS total_paid
		FROM payments p
		JOIN reservations r ON r.id = p.reservation_id
		LEFT JOIN guests g ON g.id = r.guest_id
		LEFT JOIN rooms rm ON rm.id = r.room_id
		WHERE p.status = 'paid'
		  AND p.created_at BETWEEN $1 AND $2
		  AND ($3::text = '' OR p.payment_method = $3::text)
		GROUP BY r.id, g.first_name, g.last_name, rm.room_number
		ORDER BY total_paid DESC
		LIMIT $4`

	financialTopGuestsSQL = `
		SELECT g.id,
		       COALESCE(g.first_name || ' ' || g.last_name, '') AS guest_name,
		       COALESCE(g.email, '') AS email,
		       COUNT(DISTINCT r.id) AS reservations,
		       SUM(p.amount)::float8 AS total_spent
		FROM payments p
		JOIN reservations r ON r.id = p.reservation_id
		JOIN guests g ON g.id = r.guest_id
		WHERE p.status = 'paid'
		  AND p.created_at BETWEEN $1 AND $2
		  AND ($3::text = '' OR p.payment_method = $3::text)
		GROUP BY g.id, g.first_name, g.last_name, g.email
		ORDER BY total_spent DESC
		LIMIT $4`
)

// Financial aggregates payments in the period. Filter: payment_method.
func (s *Service) Financial(ctx context.Context, opts Options) (*FinancialReport, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p := opts.Period
	method := opts.filter("payment_method")
	rep := &FinancialReport{Period: p}

	sum := &rep.Summary
	err := s.db.QueryRow(ctx, financialSummarySQL, p.Start, p.End, method).
		Scan(&sum.TotalRevenue, &sum.TotalPayments, &sum.AveragePayment, &sum.PendingAmount, &sum.RefundedAmount)
	if err != nil {
		return nil, fmt.Errorf("financial summary: %w", err)
	}
	sum.TotalRevenue = Money(sum.TotalRevenue)
	sum.AveragePayment = Money(sum.AveragePayment)
	sum.PendingAmount = Money(sum.PendingAmount)
	sum.RefundedAmount = Money(sum.RefundedAmount)

	rows, err := s.db.Query(ctx, financialByMethodSQL, p.Start, p.End, method)
	if err != nil {
		return nil, fmt.Errorf("financial by method: %w", err)
	}
	rep.Breakdowns.ByPaymentMethod, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (PaymentMethodBreakdown, error) {
		var b PaymentMethodBreakdown
		err := row.Scan(&b.PaymentMethod, &b.Count, &b.Total)
		b.Total = Money(b.Total)
		b.Percentage = Percentage(b.Total, sum.TotalRevenue)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("financial by method: %w", err)
	}

	rows, err = s.db.Query(ctx, fmt.Sprintf(financialOverTimeSQL, opts.orderBy("total")), p.Start, p.End, opts.bucket(), method)
	if err != nil {
		return nil, fmt.Errorf("financial over time: %w", err)
	}
	rep.Breakdowns.RevenueOverTime, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (RevenuePoint, error) {
		var pt RevenuePoint
		err := row.Scan(&pt.Period, &pt.Total, &pt.Count)
		pt.Total = Money(pt.Total)
		return pt, err
	})
	if err != nil {
		return nil, fmt.Errorf("financial over time: %w", err)
	}

	rows, err = s.db.Query(ctx, financialTopReservationsSQL, p.Start, p.End, method, opts.topN())
	if err != nil {
		return nil, fmt.Errorf("financial top reservations: %w", err)
	}
	rep.Breakdowns.TopReservations, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (TopReservation, error) {
		var t TopReservation
		err := row.Scan(&t.ReservationID, &t.GuestName, &t.RoomNumber, &t.TotalPaid)
		t.TotalPaid = Money(t.TotalPaid)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("financial top reservations: %w", err)
	}

	rows, err = s.db.Query(ctx, financialTopGuestsSQL, p.Start, p.End, method, opts.topN())
	if err != nil {
		return nil, fmt.Errorf("financial top guests: %w", err)
	}
	rep.Breakdowns.TopGuests, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (TopGuest, error) {
		var g TopGuest
		err := row.Scan(&g.GuestID, &g.GuestName, &g.Email, &g.Reservations, &g.TotalSpent)
		g.TotalSpent = Money(g.TotalSpent)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("financial top guests: %w", err)
	}

	return rep, nil
}
