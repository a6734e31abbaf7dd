package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LonelyIsle/resort-api/internal/export"
)

type Type string

const (
	TypeFinancial     Type = "financial"
	TypeOccupancy     Type = "occupancy"
	TypeMinibar       Type = "minibar"
	TypeNotifications Type = "notifications"
	TypeCustom        Type = "custom"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatPDF   Format = "pdf"
	FormatExcel Format = "excel"
	FormatCSV   Format = "csv"
)

var (
	ErrInvalidRequest    = errors.New("invalid report request")
	ErrUnknownReportType = errors.New("unknown report type")
	ErrQueryRejected     = errors.New("invalid or disallowed query")
)

// AvailableReportTypes is fixed and does not depend on the database.
func AvailableReportTypes() []Type {
	return []Type{TypeFinancial, TypeOccupancy, TypeMinibar, TypeNotifications, TypeCustom}
}

func AvailableFormats() []Format {
	return []Format{FormatJSON, FormatPDF, FormatExcel, FormatCSV}
}

func validType(t Type) bool {
	for _, v := range AvailableReportTypes() {
		if v == t {
			return true
		}
	}
	return false
}

func validFormat(f Format) bool {
	for _, v := range AvailableFormats() {
		if v == f {
			return true
		}
	}
	return false
}

// Report is what the aggregation service returns for every built-in type.
type Report interface {
	export.Tabler
	Type() Type
	// Name is the base of the export filename, e.g. "financial_report".
	Name() string
}

// Period is the inclusive time range a report covers.
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}{p.Start.Format(dateLayout), p.End.Format(dateLayout)})
}

func (p Period) String() string {
	return fmt.Sprintf("%s to %s", p.Start.Format(dateLayout), p.End.Format(dateLayout))
}

// Options are the knobs every built-in aggregation understands.
type Options struct {
	Period    Period
	Filters   map[string]string
	Bucket    string // day, week or month
	SortBy    string // date or total
	SortOrder string // asc or desc
	Limit     int    // size of top-N breakdowns
}

const defaultTopN = 10

func (o Options) filter(key string) string {
	if o.Filters == nil {
		return ""
	}
	return o.Filters[key]
}

func (o Options) bucket() string {
	switch o.Bucket {
	case "week", "month":
		return o.Bucket
	}
	return "day"
}

func (o Options) topN() int {
	if o.Limit <= 0 {
		return defaultTopN
	}
	if o.Limit > maxLimit {
		return maxLimit
	}
	return o.Limit
}

// orderBy builds the ORDER BY clause of a time series from whitelisted
// pieces only; metric is the series' value column.
func (o Options) orderBy(metric string) string {
	col := "period"
	if o.SortBy == "total" {
		col = metric
	}
	dir := "ASC"
	if o.SortOrder == "desc" {
		dir = "DESC"
	}
	return col + " " + dir
}
