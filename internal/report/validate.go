package report

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	dateLayout = "2006-01-02"
	maxLimit   = 1000
)

// ReportRequest is the body of POST /reports/generate and the query string
// of the per-type GET endpoints.
type ReportRequest struct {
	ReportType Type              `json:"report_type" validate:"required,oneof=financial occupancy minibar notifications custom"`
	Format     Format            `json:"format" validate:"required,oneof=json pdf excel csv"`
	StartDate  string            `json:"start_date,omitempty" validate:"omitempty,reportdate"`
	EndDate    string            `json:"end_date,omitempty" validate:"omitempty,reportdate"`
	Filters    map[string]string `json:"filters,omitempty" validate:"omitempty,max=10,dive,keys,max=50,endkeys,max=200"`
	GroupBy    []string          `json:"group_by,omitempty" validate:"omitempty,max=3,dive,oneof=day week month"`
	SortBy     string            `json:"sort_by,omitempty" validate:"omitempty,oneof=date total"`
	SortOrder  string            `json:"sort_order,omitempty" validate:"omitempty,oneof=asc desc"`
	Limit      int               `json:"limit,omitempty" validate:"omitempty,min=1,max=1000"`
}

// CustomReportRequest carries user-supplied SQL; it only runs after the
// query guard accepts it.
type CustomReportRequest struct {
	ReportName string         `json:"report_name" validate:"required,max=100"`
	Query      string         `json:"query" validate:"required,max=10000"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("reportdate", func(fl validator.FieldLevel) bool {
		_, _, err := parseDate(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks the request shape. The returned error wraps
// ErrInvalidRequest and its message is safe to show to the caller.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "reportdate":
		return field + " must be a date (YYYY-MM-DD) or RFC3339 timestamp"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

// ValidateReportRequest is the semantic second pass: whitelisted type and
// format, limit range, parseable dates and start_date <= end_date.
func ValidateReportRequest(req ReportRequest) bool {
	if !validType(req.ReportType) || !validFormat(req.Format) {
		return false
	}
	if req.Limit < 0 || req.Limit > maxLimit {
		return false
	}
	var start, end time.Time
	if req.StartDate != "" {
		t, _, err := parseDate(req.StartDate)
		if err != nil {
			return false
		}
		start = t
	}
	if req.EndDate != "" {
		t, dateOnly, err := parseDate(req.EndDate)
		if err != nil {
			return false
		}
		end = t
		if dateOnly {
			end = endOfDay(t)
		}
	}
	if req.StartDate != "" && req.EndDate != "" && start.After(end) {
		return false
	}
	return true
}

// Options resolves defaults: the period runs from Jan 1 of now's year to
// now unless given, and a date-only end_date covers that whole day.
func (r ReportRequest) Options(now time.Time) (Options, error) {
	p := Period{
		Start: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()),
		End:   now,
	}
	if r.StartDate != "" {
		t, _, err := parseDate(r.StartDate)
		if err != nil {
			return Options{}, fmt.Errorf("%w: start_date: %v", ErrInvalidRequest, err)
		}
		p.Start = t
	}
	if r.EndDate != "" {
		t, dateOnly, err := parseDate(r.EndDate)
		if err != nil {
			return Options{}, fmt.Errorf("%w: end_date: %v", ErrInvalidRequest, err)
		}
		if dateOnly {
			t = endOfDay(t)
		}
		p.End = t
	}

	opts := Options{
		Period:    p,
		Filters:   r.Filters,
		SortBy:    r.SortBy,
		SortOrder: r.SortOrder,
		Limit:     r.Limit,
	}
	if len(r.GroupBy) > 0 {
		opts.Bucket = r.GroupBy[0]
	}
	return opts, nil
}

func parseDate(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q", s)
	}
	return t, false, nil
}

func endOfDay(t time.Time) time.Time {
	return t.AddDate(0, 0, 1).Add(-time.Microsecond)
}
