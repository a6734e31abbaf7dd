package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// CSV writes a single table as plain CSV. Several tables are written as
// blocks, each introduced by a "# <name>" line and separated by a blank
// line; csv.Reader with Comment = '#' skips the markers. A record whose
// first cell starts with '#' has that cell quoted so it is not read as one.
func (e *Exporter) CSV(reportName string, src Tabler) (*ReportExport, error) {
	tables := src.Tables()
	var buf bytes.Buffer

	for i, t := range tables {
		if len(tables) > 1 {
			if i > 0 {
				buf.WriteByte('\n')
			}
			fmt.Fprintf(&buf, "# %s\n", t.Name)
		}
		if err := writeCSVTable(&buf, t); err != nil {
			return nil, fmt.Errorf("csv %s: %w", t.Name, err)
		}
	}
	return e.finish(reportName, "csv", MimeCSV, buf.Bytes()), nil
}

func writeCSVTable(buf *bytes.Buffer, t Table) error {
	w := csv.NewWriter(buf)
	if len(t.Columns) > 0 {
		if err := writeRecord(buf, w, t.Columns); err != nil {
			return err
		}
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = FormatCell(row[i])
			}
		}
		if err := writeRecord(buf, w, record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// writeRecord is w.Write except that a leading '#' cell is always quoted;
// csv.Writer leaves it bare.
func writeRecord(buf *bytes.Buffer, w *csv.Writer, record []string) error {
	if len(record) == 0 || !strings.HasPrefix(record[0], "#") {
		return w.Write(record)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	buf.WriteString(`"` + strings.ReplaceAll(record[0], `"`, `""`) + `"`)
	if len(record) == 1 {
		buf.WriteByte('\n')
		return nil
	}
	buf.WriteByte(',')
	return w.Write(record[1:])
}
