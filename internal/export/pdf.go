package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfMargin    = 10.0
	pdfRowHeight = 6.0
)

// PDF renders a title, the generation time, then every table as a simple
// grid. Wide tables switch the page to landscape.
func (e *Exporter) PDF(reportName string, src Tabler) (*ReportExport, error) {
	tables := src.Tables()

	orientation := "P"
	for _, t := range tables {
		if len(t.Columns) > 6 {
			orientation = "L"
			break
		}
	}

	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, _ := pdf.GetPageSize()
	usable := pageW - 2*pdfMargin

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(20, 20, 20)
	pdf.CellFormat(0, 10, tr(Title(reportName)), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 5, tr("Generated: "+e.now().Format(time.RFC3339)), "", 1, "L", false, 0, "")
	if s, ok := src.(Subtitled); ok && s.Subtitle() != "" {
		pdf.CellFormat(0, 5, tr(s.Subtitle()), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	for _, t := range tables {
		pdf.SetFont("Arial", "B", 12)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 8, tr(Title(t.Name)), "", 1, "L", false, 0, "")

		if len(t.Columns) == 0 || len(t.Rows) == 0 {
			pdf.SetFont("Arial", "I", 9)
			pdf.SetTextColor(110, 110, 110)
			pdf.CellFormat(0, pdfRowHeight, "No data", "", 1, "L", false, 0, "")
			pdf.Ln(3)
			continue
		}

		colW := usable / float64(len(t.Columns))

		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(40, 40, 40)
		pdf.SetTextColor(255, 255, 255)
		for _, c := range t.Columns {
			pdf.CellFormat(colW, pdfRowHeight, tr(fit(pdf, c, colW)), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(50, 50, 50)
		for i, row := range t.Rows {
			fill := i%2 == 1
			pdf.SetFillColor(242, 242, 242)
			for j := range t.Columns {
				var cell string
				if j < len(row) {
					cell = FormatCell(row[j])
				}
				pdf.CellFormat(colW, pdfRowHeight, tr(fit(pdf, cell, colW)), "1", 0, "L", fill, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf write: %w", err)
	}
	return e.finish(reportName, "pdf", MimePDF, buf.Bytes()), nil
}

// fit shortens s with an ellipsis until it fits in width mm.
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	const pad = 2.0
	if pdf.GetStringWidth(s) <= width-pad {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width-pad {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
