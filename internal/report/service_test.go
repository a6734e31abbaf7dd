package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jknair0/beforeeach"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LonelyIsle/resort-api/internal/export"
)

var (
	mock pgxmock.PgxPoolIface
	svc  *Service
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func setUp() {
	mock, _ = pgxmock.NewPool()
	svc = NewService(mock, nil, WithClock(func() time.Time { return fixedNow }), WithTimeout(time.Second))
}

func tearDown() {
	mock.Close()
}

var it = beforeeach.Create(setUp, tearDown)

func q(sql string) string { return regexp.QuoteMeta(sql) }

func januaryOptions() Options {
	return Options{Period: Period{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC),
	}}
}

func TestFinancialReport(t *testing.T) {
	it(func() {
		opts := januaryOptions()
		p := opts.Period

		mock.ExpectQuery(q(financialSummarySQL)).WithArgs(p.Start, p.End, "").
			WillReturnRows(pgxmock.NewRows([]string{"a", "b", "c", "d", "e"}).
				AddRow(600.0, int64(3), 200.0, 50.0, 0.0))
		mock.ExpectQuery(q(financialByMethodSQL)).WithArgs(p.Start, p.End, "").
			WillReturnRows(pgxmock.NewRows([]string{"payment_method", "count", "total"}).
				AddRow("card", int64(2), 500.0).
				AddRow("cash", int64(1), 100.0))
		mock.ExpectQuery(q(fmt.Sprintf(financialOverTimeSQL, "period ASC"))).WithArgs(p.Start, p.End, "day", "").
			WillReturnRows(pgxmock.NewRows([]string{"period", "total", "count"}).
				AddRow("2024-01-05", 600.0, int64(3)))
		mock.ExpectQuery(q(financialTopReservationsSQL)).WithArgs(p.Start, p.End, "", 10).
			WillReturnRows(pgxmock.NewRows([]string{"id", "guest_name", "room_number", "total_paid"}))
		mock.ExpectQuery(q(financialTopGuestsSQL)).WithArgs(p.Start, p.End, "", 10).
			WillReturnRows(pgxmock.NewRows([]string{"id", "guest_name", "email", "reservations", "total_spent"}).
				AddRow(int64(7), "Ana Lima", "ana@resort.test", int64(1), 600.0))

		rep, err := svc.Financial(context.Background(), opts)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())

		assert.Equal(t, 600.0, rep.Summary.TotalRevenue)
		assert.Equal(t, int64(3), rep.Summary.TotalPayments)
		assert.Equal(t, 200.0, rep.Summary.AveragePayment)
		assert.Equal(t, 50.0, rep.Summary.PendingAmount)

		require.Len(t, rep.Breakdowns.ByPaymentMethod, 2)
		assert.Equal(t, 83.33, rep.Breakdowns.ByPaymentMethod[0].Percentage)
		assert.Equal(t, 16.67, rep.Breakdowns.ByPaymentMethod[1].Percentage)
		assert.Equal(t, []RevenuePoint{{Period: "2024-01-05", Total: 600, Count: 3}}, rep.Breakdowns.RevenueOverTime)
		assert.NotNil(t, rep.Breakdowns.TopReservations)
		assert.Empty(t, rep.Breakdowns.TopReservations)

		b, err := json.Marshal(rep)
		require.NoError(t, err)
		assert.Contains(t, string(b), `"period":{"start_date":"2024-01-01","end_date":"2024-01-31"}`)
		assert.Contains(t, string(b), `"top_reservations":[]`)

		names := []string{}
		for _, tbl := range rep.Tables() {
			names = append(names, tbl.Name)
		}
		assert.Equal(t, []string{"summary", "by_payment_method", "revenue_over_time", "top_reservations", "top_guests"}, names)
	})
}

func TestGuestNameIsNeverNull(t *testing.T) {
	// either name part being NULL makes the concatenation NULL, which
	// cannot scan into a string
	coalesced := regexp.MustCompile(`COALESCE\(g\.first_name \|\| ' ' \|\| g\.last_name, ''\) AS guest_name`)
	for name, sql := range map[string]string{
		"top reservations": financialTopReservationsSQL,
		"top guests":       financialTopGuestsSQL,
	} {
		assert.Equal(t, strings.Count(sql, "AS guest_name"), len(coalesced.FindAllString(sql, -1)), name)
		assert.Contains(t, sql, "AS guest_name", name)
	}
}

func TestFinancialFilterAndSort(t *testing.T) {
	it(func() {
		opts := januaryOptions()
		opts.Filters = map[string]string{"payment_method": "card"}
		opts.Bucket = "month"
		opts.SortBy, opts.SortOrder = "total", "desc"
		opts.Limit = 3
		p := opts.Period

		mock.ExpectQuery(q(financialSummarySQL)).WithArgs(p.Start, p.End, "card").
			WillReturnRows(pgxmock.NewRows([]string{"a", "b", "c", "d", "e"}).AddRow(0.0, int64(0), 0.0, 0.0, 0.0))
		mock.ExpectQuery(q(financialByMethodSQL)).WithArgs(p.Start, p.End, "card").
			WillReturnRows(pgxmock.NewRows([]string{"payment_method", "count", "total"}))
		mock.ExpectQuery(q(fmt.Sprintf(financialOverTimeSQL, "total DESC"))).WithArgs(p.Start, p.End, "month", "card").
			WillReturnRows(pgxmock.NewRows([]string{"period", "total", "count"}))
		mock.ExpectQuery(q(financialTopReservationsSQL)).WithArgs(p.Start, p.End, "card", 3).
			WillReturnRows(pgxmock.NewRows([]string{"id", "guest_name", "room_number", "total_paid"}))
		mock.ExpectQuery(q(financialTopGuestsSQL)).WithArgs(p.Start, p.End, "card", 3).
			WillReturnRows(pgxmock.NewRows([]string{"id", "guest_name", "email", "reservations", "total_spent"}))

		rep, err := svc.Financial(context.Background(), opts)
		require.NoError(t, err)
		assert.Zero(t, rep.Summary.TotalRevenue)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFailingQueryAbortsReport(t *testing.T) {
	it(func() {
		opts := januaryOptions()
		mock.ExpectQuery(q(financialSummarySQL)).
			WillReturnRows(pgxmock.NewRows([]string{"a", "b", "c", "d", "e"}).AddRow(1.0, int64(1), 1.0, 0.0, 0.0))
		mock.ExpectQuery(q(financialByMethodSQL)).WillReturnError(errors.New("relation does not exist"))

		rep, err := svc.Financial(context.Background(), opts)
		assert.Nil(t, rep)
		assert.ErrorContains(t, err, "financial by method")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOccupancyReport(t *testing.T) {
	it(func() {
		opts := januaryOptions()
		p := opts.Period

		mock.ExpectQuery(q(occupancyRoomsSQL)).WithArgs("").
			WillReturnRows(pgxmock.NewRows([]string{"a", "b", "c", "d"}).AddRow(int64(20), int64(5), int64(13), int64(2)))
		mock.ExpectQuery(q(occupancyStaysSQL)).WithArgs(p.Start, p.End, "").
			WillReturnRows(pgxmock.NewRows([]string{"a", "b", "c"}).AddRow(int64(4), int64(10), 2.5))
		mock.ExpectQuery(q(occupancyByRoomTypeSQL)).WithArgs("").
			WillReturnRows(pgxmock.NewRows([]string{"room_type", "total_rooms", "occupied_rooms"}).
				AddRow("suite", int64(3), int64(1)).
				AddRow("closed wing", int64(0), int64(0)))
		mock.ExpectQuery(q(occupancyByDaySQL)).WithArgs(p.Start, p.End, "").
			WillReturnRows(pgxmock.NewRows([]string{"date", "occupied_rooms", "total_rooms"}).
				AddRow("2024-01-01", int64(10), int64(20)))

		rep, err := svc.Occupancy(context.Background(), opts)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())

		assert.Equal(t, 25.0, rep.Summary.OccupancyRate)
		assert.Equal(t, 2.5, rep.Summary.AverageStay)
		assert.Equal(t, 33.33, rep.Breakdowns.ByRoomType[0].OccupancyRate)
		assert.Equal(t, 0.0, rep.Breakdowns.ByRoomType[1].OccupancyRate)
		assert.Equal(t, 50.0, rep.Breakdowns.ByDay[0].OccupancyRate)
	})
}

func TestMinibarReportWithNoConsumption(t *testing.T) {
	it(func() {
		opts := januaryOptions()

		mock.ExpectQuery(q(minibarSummarySQL)).
			WillReturnRows(pgxmock.NewRows([]string{"a", "b", "c", "d"}).AddRow(int64(0), 0.0, int64(0), int64(0)))
		mock.ExpectQuery(q(minibarTopItemsSQL)).
			WillReturnRows(pgxmock.NewRows([]string{"name", "category", "quantity", "revenue"}))
		mock.ExpectQuery(q(minibarByCategorySQL)).
			WillReturnRows(pgxmock.NewRows([]string{"category", "quantity", "revenue"}))
		mock.ExpectQuery(q(fmt.Sprintf(minibarOverTimeSQL, "period ASC"))).
			WillReturnRows(pgxmock.NewRows([]string{"period", "quantity", "revenue"}))

		rep, err := svc.Minibar(context.Background(), opts)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())

		out, err := export.NewExporterAt(func() time.Time { return fixedNow }).Export(export.FormatCSV, rep.Name(), rep)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, out.Size, 0)
		assert.Equal(t, "minibar_report_2024-03-15.csv", out.Filename)
		assert.Contains(t, string(out.Content), "item_name,category,quantity,revenue")
	})
}

func TestMinibarPercentages(t *testing.T) {
	it(func() {
		mock.ExpectQuery(q(minibarSummarySQL)).
			WillReturnRows(pgxmock.NewRows([]string{"a", "b", "c", "d"}).AddRow(int64(6), 40.0, int64(3), int64(2)))
		mock.ExpectQuery(q(minibarTopItemsSQL)).
			WillReturnRows(pgxmock.NewRows([]string{"name", "category", "quantity", "revenue"}).
				AddRow("Sparkling water", "drinks", int64(4), 10.0))
		mock.ExpectQuery(q(minibarByCategorySQL)).
			WillReturnRows(pgxmock.NewRows([]string{"category", "quantity", "revenue"}).
				AddRow("snacks", int64(2), 30.0).
				AddRow("drinks", int64(4), 10.0))
		mock.ExpectQuery(q(fmt.Sprintf(minibarOverTimeSQL, "period ASC"))).
			WillReturnRows(pgxmock.NewRows([]string{"period", "quantity", "revenue"}))

		rep, err := svc.Minibar(context.Background(), januaryOptions())
		require.NoError(t, err)
		assert.Equal(t, 75.0, rep.Breakdowns.ByCategory[0].Percentage)
		assert.Equal(t, 25.0, rep.Breakdowns.ByCategory[1].Percentage)
		assert.Equal(t, "Sparkling water", rep.Breakdowns.TopItems[0].ItemName)
	})
}

func TestNotificationReport(t *testing.T) {
	it(func() {
		opts := januaryOptions()
		opts.Filters = map[string]string{"type": "payment"}
		p := opts.Period

		mock.ExpectQuery(q(notificationSummarySQL)).WithArgs(p.Start, p.End, "payment").
			WillReturnRows(pgxmock.NewRows([]string{"a", "b", "c"}).AddRow(int64(8), int64(6), int64(2)))
		mock.ExpectQuery(q(notificationByTypeSQL)).WithArgs(p.Start, p.End, "payment").
			WillReturnRows(pgxmock.NewRows([]string{"type", "count"}).AddRow("payment", int64(8)))
		mock.ExpectQuery(q(fmt.Sprintf(notificationOverTimeSQL, "period ASC"))).WithArgs(p.Start, p.End, "day", "payment").
			WillReturnRows(pgxmock.NewRows([]string{"period", "total", "read_count"}).AddRow("2024-01-02", int64(8), int64(6)))

		rep, err := svc.Notifications(context.Background(), opts)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
		assert.Equal(t, 75.0, rep.Summary.ReadRate)
		assert.Equal(t, 100.0, rep.Breakdowns.ByType[0].Percentage)
		assert.Equal(t, int64(6), rep.Breakdowns.NotificationsOverTime[0].ReadCount)
	})
}

func TestStats(t *testing.T) {
	it(func() {
		monthStart := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(q(statsSQL)).WithArgs(monthStart).
			WillReturnRows(pgxmock.NewRows([]string{"a", "b", "c", "d", "e", "f", "g"}).
				AddRow(int64(40), int64(10), int64(120), int64(12), int64(95), 1234.567, int64(3)))

		st, err := svc.Stats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 25.0, st.OccupancyRate)
		assert.Equal(t, 1234.57, st.RevenueThisMonth)
		assert.Equal(t, int64(3), st.UnreadNotifications)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGenerateDispatch(t *testing.T) {
	it(func() {
		_, err := svc.Generate(context.Background(), ReportRequest{ReportType: TypeCustom, Format: FormatJSON})
		assert.ErrorIs(t, err, ErrInvalidRequest)

		_, err = svc.Generate(context.Background(), ReportRequest{ReportType: "housekeeping", Format: FormatJSON})
		assert.ErrorIs(t, err, ErrUnknownReportType)

		// Default period: Jan 1 of the clock's year up to now.
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(q(notificationSummarySQL)).WithArgs(start, fixedNow, "").
			WillReturnError(errors.New("boom"))
		_, err = svc.Generate(context.Background(), ReportRequest{ReportType: TypeNotifications, Format: FormatJSON})
		assert.ErrorContains(t, err, "boom")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
