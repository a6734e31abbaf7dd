package export

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

type Format string

const (
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
	FormatCSV   Format = "csv"
)

const (
	MimeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimePDF   = "application/pdf"
	MimeCSV   = "text/csv"
)

// ErrUnsupportedFormat is returned for anything other than excel, pdf, csv.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ReportExport is a finished file, ready to be streamed to the client.
type ReportExport struct {
	Filename string `json:"filename"`
	Content  []byte `json:"-"`
	MimeType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// Subtitled is optionally implemented by sources that have a period or
// other context line to print under the title.
type Subtitled interface {
	Subtitle() string
}

// Exporter turns tables into files.
type Exporter struct {
	now func() time.Time
}

func NewExporter() *Exporter { return &Exporter{now: time.Now} }

// NewExporterAt pins the clock used for filenames and timestamps.
func NewExporterAt(now func() time.Time) *Exporter { return &Exporter{now: now} }

// Export dispatches to the serializer for format.
func (e *Exporter) Export(format Format, reportName string, src Tabler) (*ReportExport, error) {
	switch format {
	case FormatExcel:
		return e.Excel(reportName, src)
	case FormatPDF:
		return e.PDF(reportName, src)
	case FormatCSV:
		return e.CSV(reportName, src)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func (e *Exporter) finish(reportName, ext, mime string, content []byte) *ReportExport {
	return &ReportExport{
		Filename: Filename(reportName, ext, e.now()),
		Content:  content,
		MimeType: mime,
		Size:     len(content),
	}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Filename follows <reportName>_<YYYY-MM-DD>.<ext>.
func Filename(reportName, ext string, at time.Time) string {
	name := strings.Trim(unsafeName.ReplaceAllString(reportName, "_"), "_")
	if name == "" {
		name = "report"
	}
	return fmt.Sprintf("%s_%s.%s", name, at.Format("2006-01-02"), ext)
}

// Title turns "financial_report" into "Financial Report".
func Title(reportName string) string {
	words := strings.FieldsFunc(reportName, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	if len(words) == 0 {
		return "Report"
	}
	return strings.Join(words, " ")
}
