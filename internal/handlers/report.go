package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/LonelyIsle/resort-api/internal/export"
	"github.com/LonelyIsle/resort-api/internal/logger"
	"github.com/LonelyIsle/resort-api/internal/metrics"
	"github.com/LonelyIsle/resort-api/internal/report"
	"github.com/LonelyIsle/resort-api/internal/respond"
)

// ReportGenerator is satisfied by *report.Service.
type ReportGenerator interface {
	Generate(ctx context.Context, req report.ReportRequest) (report.Report, error)
	Custom(ctx context.Context, req report.CustomReportRequest) (*report.CustomReport, error)
	Stats(ctx context.Context) (*report.Stats, error)
}

type Reports struct {
	gen      ReportGenerator
	exporter *export.Exporter
}

func NewReports(gen ReportGenerator, exporter *export.Exporter) *Reports {
	if exporter == nil {
		exporter = export.NewExporter()
	}
	return &Reports{gen: gen, exporter: exporter}
}

// filterKeys are the query parameters the per-type GET endpoints forward as
// filters.
var filterKeys = []string{"payment_method", "room_type", "category", "type"}

// Generate handles POST /reports/generate.
func (h *Reports) Generate(w http.ResponseWriter, r *http.Request) {
	var req report.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		countReport("", "", "invalid")
		badRequest(w, "invalid json")
		return
	}
	h.serve(w, r, req)
}

// ByType handles GET /reports/{type}; the type comes from the route, the
// rest from the query string.
func (h *Reports) ByType(t report.Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := requestFromQuery(t, r)
		if err != nil {
			countReport(t, "", "invalid")
			badRequest(w, err.Error())
			return
		}
		h.serve(w, r, req)
	}
}

func requestFromQuery(t report.Type, r *http.Request) (report.ReportRequest, error) {
	q := r.URL.Query()
	req := report.ReportRequest{
		ReportType: t,
		Format:     report.Format(q.Get("format")),
		StartDate:  q.Get("start_date"),
		EndDate:    q.Get("end_date"),
		SortBy:     q.Get("sort_by"),
		SortOrder:  q.Get("sort_order"),
	}
	if req.Format == "" {
		req.Format = report.FormatJSON
	}
	if g := q.Get("group_by"); g != "" {
		req.GroupBy = strings.Split(g, ",")
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			return req, errors.New("limit must be a number")
		}
		req.Limit = n
	}
	for _, k := range filterKeys {
		if v := q.Get(k); v != "" {
			if req.Filters == nil {
				req.Filters = map[string]string{}
			}
			req.Filters[k] = v
		}
	}
	return req, nil
}

func (h *Reports) serve(w http.ResponseWriter, r *http.Request, req report.ReportRequest) {
	if err := report.Validate(req); err != nil {
		countReport(req.ReportType, req.Format, "invalid")
		writeError(w, r, err)
		return
	}
	if !report.ValidateReportRequest(req) {
		countReport(req.ReportType, req.Format, "invalid")
		badRequest(w, "invalid report request")
		return
	}

	started := time.Now()
	rep, err := h.gen.Generate(r.Context(), req)
	if err != nil {
		h.fail(req.ReportType, req.Format, err)
		writeError(w, r, err)
		return
	}
	h.write(w, r, rep, req.Format, started)
}

// write sends rep as JSON or as a file download and records the metrics.
func (h *Reports) write(w http.ResponseWriter, r *http.Request, rep report.Report, format report.Format, started time.Time) {
	typ := string(rep.Type())
	if format == report.FormatJSON || format == "" {
		metrics.ReportDuration.WithLabelValues(typ).Observe(time.Since(started).Seconds())
		countReport(rep.Type(), report.FormatJSON, "ok")
		respond.OK(w, rep, "")
		return
	}

	out, err := h.exporter.Export(export.Format(format), rep.Name(), rep)
	if err != nil {
		countReport(rep.Type(), format, "error")
		writeError(w, r, fmt.Errorf("export %s: %w", format, err))
		return
	}
	metrics.ReportDuration.WithLabelValues(typ).Observe(time.Since(started).Seconds())
	countReport(rep.Type(), format, "ok")
	metrics.ExportBytes.WithLabelValues(string(format)).Observe(float64(out.Size))

	w.Header().Set("Content-Type", out.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(out.Size))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Content); err != nil {
		logger.WithContext(r.Context()).WithError(err).Warn("report download interrupted")
	}
}

func (h *Reports) fail(t report.Type, f report.Format, err error) {
	result := "error"
	if errors.Is(err, report.ErrInvalidRequest) || errors.Is(err, report.ErrUnknownReportType) {
		result = "invalid"
	}
	countReport(t, f, result)
}

// countReport records one report request. Types and formats outside the
// fixed lists are counted as "unknown" so callers cannot mint new series.
func countReport(t report.Type, f report.Format, result string) {
	typ, format := "unknown", "unknown"
	for _, v := range report.AvailableReportTypes() {
		if v == t {
			typ = string(t)
		}
	}
	for _, v := range report.AvailableFormats() {
		if v == f {
			format = string(f)
		}
	}
	metrics.ReportsGenerated.WithLabelValues(typ, format, result).Inc()
}

// Custom handles POST /reports/custom. An optional ?format= exports the
// result instead of returning JSON.
func (h *Reports) Custom(w http.ResponseWriter, r *http.Request) {
	typ := report.TypeCustom
	format := report.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = report.FormatJSON
	}

	var req report.CustomReportRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		countReport(typ, format, "invalid")
		badRequest(w, "invalid json")
		return
	}
	if err := report.Validate(req); err != nil {
		countReport(typ, format, "invalid")
		writeError(w, r, err)
		return
	}
	if !report.ValidateReportRequest(report.ReportRequest{ReportType: report.TypeCustom, Format: format}) {
		countReport(typ, format, "invalid")
		badRequest(w, "format must be one of [json pdf excel csv]")
		return
	}

	started := time.Now()
	rep, err := h.gen.Custom(r.Context(), req)
	if err != nil {
		if errors.Is(err, report.ErrQueryRejected) {
			metrics.CustomQueriesRejected.Inc()
			logger.WithContext(r.Context()).WithField("report_name", req.ReportName).Warn("custom query rejected")
		}
		h.fail(typ, format, err)
		writeError(w, r, err)
		return
	}
	h.write(w, r, rep, format, started)
}

func (h *Reports) Types(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, report.AvailableReportTypes(), "")
}

func (h *Reports) Formats(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, report.AvailableFormats(), "")
}

func (h *Reports) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.gen.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.OK(w, st, "")
}
