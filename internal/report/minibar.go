package report

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/LonelyIsle/resort-api/internal/export"
)

type MinibarSummary struct {
	TotalItemsConsumed          int64   `json:"total_items_consumed"`
	TotalRevenue                float64 `json:"total_revenue"`
	UniqueItems                 int64   `json:"unique_items"`
	ReservationsWithConsumption int64   `json:"reservations_with_consumption"`
}

type MinibarItem struct {
	ItemName string  `json:"item_name"`
	Category string  `json:"category"`
	Quantity int64   `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

type MinibarCategory struct {
	Category   string  `json:"category"`
	Quantity   int64   `json:"quantity"`
	Revenue    float64 `json:"revenue"`
	Percentage float64 `json:"percentage"`
}

type ConsumptionPoint struct {
	Period   string  `json:"period"`
	Quantity int64   `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

type MinibarBreakdowns struct {
	TopItems            []MinibarItem      `json:"top_items"`
	ByCategory          []MinibarCategory  `json:"by_category"`
	ConsumptionOverTime []ConsumptionPoint `json:"consumption_over_time"`
}

type MinibarReport struct {
	Period     Period            `json:"period"`
	Summary    MinibarSummary    `json:"summary"`
	Breakdowns MinibarBreakdowns `json:"breakdowns"`
}

func (r *MinibarReport) Type() Type       { return TypeMinibar }
func (r *MinibarReport) Name() string     { return "minibar_report" }
func (r *MinibarReport) Subtitle() string { return "Period: " + r.Period.String() }

func (r *MinibarReport) Tables() []export.Table {
	return []export.Table{
		export.TableOf("summary", r.Summary),
		export.TableOf("top_items", r.Breakdowns.TopItems),
		export.TableOf("by_category", r.Breakdowns.ByCategory),
		export.TableOf("consumption_over_time", r.Breakdowns.ConsumptionOverTime),
	}
}

const (
	minibarSummarySQL = `
		SELECT
			COALESCE(SUM(mc.quantity), 0)::bigint,
			COALESCE(SUM(mc.total_price), 0)::float8,
			COUNT(DISTINCT mc.item_id),
			COUNT(DISTINCT mc.reservation_id)
		FROM minibar_consumption mc
		JOIN minibar_items mi ON mi.id = mc.item_id
		WHERE mc.consumed_at BETWEEN $1 AND $2
		  AND ($3::text = '' OR mi.category = $3::text)`

	minibarTopItemsSQL = `
		SELECT mi.name, mi.category,
		       SUM(mc.quantity)::bigint AS quantity,
		       SUM(mc.total_price)::float8 AS revenue
		FROM minibar_consumption mc
		JOIN minibar_items mi ON mi.id = mc.item_id
		WHERE mc.consumed_at BETWEEN $1 AND $2
		  AND ($3::text = '' OR mi.category = $3::text)
		GROUP BY mi.id, mi.name, mi.category
		ORDER BY quantity DESC
		LIMIT $4`

	minibarByCategorySQL = `
		SELECT mi.category,
		       SUM(mc.quantity)::bigint AS quantity,
		       SUM(mc.total_price)::float8 AS revenue
		FROM minibar_consumption mc
		JOIN minibar_items mi ON mi.id = mc.item_id
		WHERE mc.consumed_at BETWEEN $1 AND $2
		  AND ($3::text = '' OR mi.category = $3::text)
		GROUP BY mi.category
		ORDER BY revenue DESC`

	minibarOverTimeSQL = `
		SELECT TO_CHAR(date_trunc($3::text, mc.consumed_at), 'YYYY-MM-DD') AS period,
		       SUM(mc.quantity)::bigint AS quantity,
		       SUM(mc.total_price)::float8 AS revenue
		FROM minibar_consumption mc
		JOIN minibar_items mi ON mi.id = mc.item_id
		WHERE mc.consumed_at BETWEEN $1 AND $2
		  AND ($4::text = '' OR mi.category = $4::text)
		GROUP BY 1
		ORDER BY %s`
)

// Minibar reports consumption. Filter: category.
func (s *Service) Minibar(ctx context.Context, opts Options) (*MinibarReport, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p := opts.Period
	category := opts.filter("category")
	rep := &MinibarReport{Period: p}

	sum := &rep.Summary
	err := s.db.QueryRow(ctx, minibarSummarySQL, p.Start, p.End, category).
		Scan(&sum.TotalItemsConsumed, &sum.TotalRevenue, &sum.UniqueItems, &sum.ReservationsWithConsumption)
	if err != nil {
		return nil, fmt.Errorf("minibar summary: %w", err)
	}
	sum.TotalRevenue = Money(sum.TotalRevenue)

	rows, err := s.db.Query(ctx, minibarTopItemsSQL, p.Start, p.End, category, opts.topN())
	if err != nil {
		return nil, fmt.Errorf("minibar top items: %w", err)
	}
	rep.Breakdowns.TopItems, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (MinibarItem, error) {
		var it MinibarItem
		err := row.Scan(&it.ItemName, &it.Category, &it.Quantity, &it.Revenue)
		it.Revenue = Money(it.Revenue)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("minibar top items: %w", err)
	}

	rows, err = s.db.Query(ctx, minibarByCategorySQL, p.Start, p.End, category)
	if err != nil {
		return nil, fmt.Errorf("minibar by category: %w", err)
	}
	rep.Breakdowns.ByCategory, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (MinibarCategory, error) {
		var c MinibarCategory
		err := row.Scan(&c.Category, &c.Quantity, &c.Revenue)
		c.Revenue = Money(c.Revenue)
		c.Percentage = Percentage(c.Revenue, sum.TotalRevenue)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("minibar by category: %w", err)
	}

	rows, err = s.db.Query(ctx, fmt.Sprintf(minibarOverTimeSQL, opts.orderBy("revenue")), p.Start, p.End, opts.bucket(), category)
	if err != nil {
		return nil, fmt.Errorf("minibar over time: %w", err)
	}
	rep.Breakdowns.ConsumptionOverTime, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (ConsumptionPoint, error) {
		var pt ConsumptionPoint
		err := row.Scan(&pt.Period, &pt.Quantity, &pt.Revenue)
		pt.Revenue = Money(pt.Revenue)
		return pt, err
	})
	if err != nil {
		return nil, fmt.Errorf("minibar over time: %w", err)
	}

	return rep, nil
}
