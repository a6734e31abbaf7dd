package report

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/LonelyIsle/resort-api/internal/export"
)

type NotificationSummary struct {
	TotalNotifications int64   `json:"total_notifications"`
	ReadCount          int64   `json:"read_count"`
	UnreadCount        int64   `json:"unread_count"`
	ReadRate           float64 `json:"read_rate"`
}

type NotificationType struct {
	Type       string  `json:"type"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

type NotificationPoint struct {
	Period    string `json:"period"`
	Count     int64  `json:"count"`
	ReadCount int64  `json:"read_count"`
}

type NotificationBreakdowns struct {
	ByType                []NotificationType  `json:"by_type"`
	NotificationsOverTime []NotificationPoint `json:"notifications_over_time"`
}

type NotificationReport struct {
	Period     Period                 `json:"period"`
	Summary    NotificationSummary    `json:"summary"`
	Breakdowns NotificationBreakdowns `json:"breakdowns"`
}

func (r *NotificationReport) Type() Type       { return TypeNotifications }
func (r *NotificationReport) Name() string     { return "notifications_report" }
func (r *NotificationReport) Subtitle() string { return "Period: " + r.Period.String() }

func (r *NotificationReport) Tables() []export.Table {
	return []export.Table{
		export.TableOf("summary", r.Summary),
		export.TableOf("by_type", r.Breakdowns.ByType),
		export.TableOf("notifications_over_time", r.Breakdowns.NotificationsOverTime),
	}
}

const (
	notificationSummarySQL = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_read),
		       COUNT(*) FILTER (WHERE NOT is_read)
		FROM notifications
		WHERE created_at BETWEEN $1 AND $2
		  AND ($3::text = '' OR type = $3::text)`

	notificationByTypeSQL = `
		SELECT type, COUNT(*) AS count
		FROM notifications
		WHERE created_at BETWEEN $1 AND $2
		  AND ($3::text = '' OR type = $3::text)
		GROUP BY type
		ORDER BY count DESC`

	notificationOverTimeSQL = `
		SELECT TO_CHAR(date_trunc($3::text, created_at), 'YYYY-MM-DD') AS period,
		       COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE is_read) AS read_count
		FROM notifications
		WHERE created_at BETWEEN $1 AND $2
		  AND ($4::text = '' OR type = $4::text)
		GROUP BY 1
		ORDER BY %s`
)

// Notifications reports delivery and read rates. Filter: type.
func (s *Service) Notifications(ctx context.Context, opts Options) (*NotificationReport, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p := opts.Period
	typ := opts.filter("type")
	rep := &NotificationReport{Period: p}

	sum := &rep.Summary
	err := s.db.QueryRow(ctx, notificationSummarySQL, p.Start, p.End, typ).
		Scan(&sum.TotalNotifications, &sum.ReadCount, &sum.UnreadCount)
	if err != nil {
		return nil, fmt.Errorf("notification summary: %w", err)
	}
	sum.ReadRate = Percentage(float64(sum.ReadCount), float64(sum.TotalNotifications))

	rows, err := s.db.Query(ctx, notificationByTypeSQL, p.Start, p.End, typ)
	if err != nil {
		return nil, fmt.Errorf("notification by type: %w", err)
	}
	rep.Breakdowns.ByType, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (NotificationType, error) {
		var n NotificationType
		err := row.Scan(&n.Type, &n.Count)
		n.Percentage = Percentage(float64(n.Count), float64(sum.TotalNotifications))
		return n, err
	})
	if err != nil {
		return nil, fmt.Errorf("notification by type: %w", err)
	}

	rows, err = s.db.Query(ctx, fmt.Sprintf(notificationOverTimeSQL, opts.orderBy("total")), p.Start, p.End, opts.bucket(), typ)
	if err != nil {
		return nil, fmt.Errorf("notification over time: %w", err)
	}
	rep.Breakdowns.NotificationsOverTime, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (NotificationPoint, error) {
		var pt NotificationPoint
		err := row.Scan(&pt.Period, &pt.Count, &pt.ReadCount)
		return pt, err
	})
	if err != nil {
		return nil, fmt.Errorf("notification over time: %w", err)
	}

	return rep, nil
}
