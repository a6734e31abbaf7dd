package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// Excel writes one sheet per table with a bold header row.
func (e *Exporter) Excel(reportName string, src Tabler) (*ReportExport, error) {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("excel style: %w", err)
	}

	tables := src.Tables()
	if len(tables) == 0 {
		tables = []Table{{Name: reportName}}
	}

	used := map[string]bool{}
	for i, t := range tables {
		sheet := sheetName(t.Name, used)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return nil, fmt.Errorf("excel sheet %s: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("excel sheet %s: %w", sheet, err)
		}
		if err := writeSheet(f, sheet, t, header); err != nil {
			return nil, fmt.Errorf("excel sheet %s: %w", sheet, err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("excel write: %w", err)
	}
	return e.finish(reportName, "xlsx", MimeExcel, buf.Bytes()), nil
}

func writeSheet(f *excelize.File, sheet string, t Table, headerStyle int) error {
	if len(t.Columns) == 0 {
		return nil
	}
	cols := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &cols); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(cols), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for r, row := range t.Rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = excelValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return nil
}

// excelValue keeps numbers and times native so spreadsheets can sum them.
func excelValue(v any) any {
	switch v.(type) {
	case nil, string, bool, time.Time,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	default:
		return FormatCell(v)
	}
}

func sheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if clean == "" {
		clean = "Sheet"
	}
	if len(clean) > maxSheetName {
		clean = clean[:maxSheetName]
	}
	candidate := clean
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		base := clean
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		candidate = base + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
