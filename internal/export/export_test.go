package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type methodRow struct {
	PaymentMethod string  `json:"payment_method"`
	Count         int64   `json:"count"`
	Total         float64 `json:"total"`
	internal      string
	Skipped       string `json:"-"`
}

type summaryRow struct {
	TotalRevenue float64 `json:"total_revenue"`
	Note         *string `json:"note,omitempty"`
}

var fixedNow = time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)

func sampleTables() Tables {
	return Tables{
		TableOf("summary", summaryRow{TotalRevenue: 600}),
		TableOf("by_payment_method", []methodRow{
			{PaymentMethod: "card", Count: 2, Total: 500},
			{PaymentMethod: "cash, front desk", Count: 1, Total: 100},
		}),
		TableOf("top_guests", []methodRow{}),
	}
}

func TestTableOf(t *testing.T) {
	tbl := TableOf("by_payment_method", []methodRow{{PaymentMethod: "card", Count: 2, Total: 10.5, internal: "x"}})
	assert.Equal(t, []string{"payment_method", "count", "total"}, tbl.Columns)
	assert.Equal(t, [][]any{{"card", int64(2), 10.5}}, tbl.Rows)

	empty := TableOf("empty", []methodRow(nil))
	assert.Equal(t, []string{"payment_method", "count", "total"}, empty.Columns)
	assert.Empty(t, empty.Rows)

	single := TableOf("summary", &summaryRow{TotalRevenue: 1})
	assert.Equal(t, []string{"total_revenue", "note"}, single.Columns)
	assert.Equal(t, [][]any{{1.0, nil}}, single.Rows)

	assert.Empty(t, TableOf("nothing", nil).Columns)
	assert.Empty(t, TableOf("scalar", 42).Columns)
}

func TestHeaderMatchesJSONKeys(t *testing.T) {
	rows := []methodRow{{PaymentMethod: "card", Count: 1, Total: 1}}
	b, err := json.Marshal(rows[0])
	require.NoError(t, err)
	var asMap map[string]any
	require.NoError(t, json.Unmarshal(b, &asMap))

	var keys []string
	for k := range asMap {
		keys = append(keys, k)
	}
	cols := append([]string(nil), TableOf("x", rows).Columns...)
	sort.Strings(keys)
	sort.Strings(cols)
	assert.Equal(t, keys, cols)
}

func TestCSVSectionsAndQuoting(t *testing.T) {
	out, err := NewExporterAt(func() time.Time { return fixedNow }).CSV("financial_report", sampleTables())
	require.NoError(t, err)

	assert.Equal(t, "financial_report_2024-02-01.csv", out.Filename)
	assert.Equal(t, MimeCSV, out.MimeType)
	assert.Equal(t, len(out.Content), out.Size)

	blocks := strings.Split(strings.TrimSuffix(string(out.Content), "\n"), "\n\n")
	require.Len(t, blocks, 3)

	expectHeaders := map[string][]string{
		"summary":           {"total_revenue", "note"},
		"by_payment_method": {"payment_method", "count", "total"},
		"top_guests":        {"payment_method", "count", "total"},
	}
	for _, block := range blocks {
		name, body, ok := strings.Cut(block, "\n")
		require.True(t, ok)
		name = strings.TrimPrefix(name, "# ")

		records, err := csv.NewReader(strings.NewReader(body)).ReadAll()
		require.NoError(t, err)
		assert.Equal(t, expectHeaders[name], records[0], name)

		if name == "by_payment_method" {
			require.Len(t, records, 3)
			assert.Equal(t, []string{"cash, front desk", "1", "100"}, records[2])
		}
		if name == "top_guests" {
			assert.Len(t, records, 1, "header only")
		}
	}

	// The whole file is also readable in one pass when comments are skipped.
	r := csv.NewReader(bytes.NewReader(out.Content))
	r.Comment = '#'
	r.FieldsPerRecord = -1
	_, err = r.ReadAll()
	assert.NoError(t, err)
}

func TestCSVHashCellsSurviveCommentSkipping(t *testing.T) {
	src := Tables{
		TableOf("top_items", []methodRow{
			{PaymentMethod: "#1 Cola", Count: 4, Total: 12},
			{PaymentMethod: `#2 "Diet" Cola`, Count: 1, Total: 3},
		}),
		TableOf("summary", summaryRow{TotalRevenue: 15}),
		{Name: "tags", Columns: []string{"#tag"}, Rows: [][]any{{"#vip"}}},
	}
	out, err := NewExporterAt(func() time.Time { return fixedNow }).CSV("minibar_report", src)
	require.NoError(t, err)

	r := csv.NewReader(bytes.NewReader(out.Content))
	r.Comment = '#'
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"payment_method", "count", "total"},
		{"#1 Cola", "4", "12"},
		{`#2 "Diet" Cola`, "1", "3"},
		{"total_revenue", "note"},
		{"15", ""},
		{"#tag"},
		{"#vip"},
	}, records)
}

func TestCSVSingleTableHasNoMarker(t *testing.T) {
	out, err := NewExporterAt(func() time.Time { return fixedNow }).CSV("custom", Tables{
		TableOf("rows", []methodRow{{PaymentMethod: "a \"quoted\"\nvalue", Count: 1}}),
	})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out.Content)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"payment_method", "count", "total"}, records[0])
	assert.Equal(t, "a \"quoted\"\nvalue", records[1][0])
}

func TestExcelRoundTrip(t *testing.T) {
	out, err := NewExporterAt(func() time.Time { return fixedNow }).Excel("financial_report", sampleTables())
	require.NoError(t, err)
	assert.Equal(t, "financial_report_2024-02-01.xlsx", out.Filename)
	assert.Equal(t, MimeExcel, out.MimeType)

	f, err := excelize.OpenReader(bytes.NewReader(out.Content))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"summary", "by_payment_method", "top_guests"}, f.GetSheetList())

	rows, err := f.GetRows("by_payment_method")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"payment_method", "count", "total"}, rows[0])
	assert.Equal(t, []string{"card", "2", "500"}, rows[1])

	rows, err = f.GetRows("top_guests")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"payment_method", "count", "total"}}, rows)
}

func TestPDF(t *testing.T) {
	out, err := NewExporterAt(func() time.Time { return fixedNow }).PDF("occupancy_report", sampleTables())
	require.NoError(t, err)

	assert.Equal(t, "occupancy_report_2024-02-01.pdf", out.Filename)
	assert.Equal(t, MimePDF, out.MimeType)
	assert.True(t, bytes.HasPrefix(out.Content, []byte("%PDF-")))
	assert.Equal(t, len(out.Content), out.Size)
}

func TestExportDispatch(t *testing.T) {
	e := NewExporterAt(func() time.Time { return fixedNow })
	for _, f := range []Format{FormatExcel, FormatPDF, FormatCSV} {
		out, err := e.Export(f, "minibar_report", Tables{})
		require.NoError(t, err, f)
		assert.GreaterOrEqual(t, out.Size, 0)
	}

	_, err := e.Export("docx", "minibar_report", Tables{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFilenameAndTitle(t *testing.T) {
	assert.Equal(t, "Q1_revenue_2024-02-01.csv", Filename("Q1 revenue", "csv", fixedNow))
	assert.Equal(t, "report_2024-02-01.pdf", Filename("../..", "pdf", fixedNow))
	assert.Equal(t, "Financial Report", Title("financial_report"))
	assert.Equal(t, "Report", Title(""))
	assert.Equal(t, "École Report", Title("école_report"))
	assert.Equal(t, "Über Minibar", Title("über-minibar"))
}

func TestSheetNameIsUniqueAndShort(t *testing.T) {
	used := map[string]bool{}
	long := strings.Repeat("x", 40)
	first := sheetName(long, used)
	second := sheetName(long, used)
	assert.Len(t, first, maxSheetName)
	assert.LessOrEqual(t, len(second), maxSheetName)
	assert.NotEqual(t, first, second)
	assert.Equal(t, "a_b", sheetName("a/b", used))
}
