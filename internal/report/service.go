package report

import (
	"context"
	"fmt"
	"time"

	"github.com/LonelyIsle/resort-api/internal/db"
)

// DB is what the service needs from the pool: reads, plus transactions for
// custom queries.
type DB interface {
	db.Querier
	db.TxBeginner
}

// Service runs the read-only aggregation queries behind every report. Each
// call builds its own report; nothing is shared between requests.
type Service struct {
	db      DB
	guard   *QueryGuard
	timeout time.Duration
	maxRows int
	now     func() time.Time
}

type Option func(*Service)

// WithTimeout bounds a whole report (all of its queries).
func WithTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }

// WithMaxRows caps the rows a custom report returns.
func WithMaxRows(n int) Option { return func(s *Service) { s.maxRows = n } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(pool DB, guard *QueryGuard, opts ...Option) *Service {
	s := &Service{
		db:      pool,
		guard:   guard,
		timeout: 30 * time.Second,
		maxRows: maxLimit,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.guard == nil {
		s.guard = NewQueryGuard(DefaultDeniedKeywords())
	}
	return s
}

// Now is the service clock; handlers use it to resolve default periods.
func (s *Service) Now() time.Time { return s.now() }

// Generate dispatches a validated request to its aggregation.
func (s *Service) Generate(ctx context.Context, req ReportRequest) (Report, error) {
	opts, err := req.Options(s.now())
	if err != nil {
		return nil, err
	}
	switch req.ReportType {
	case TypeFinancial:
		return asReport(s.Financial(ctx, opts))
	case TypeOccupancy:
		return asReport(s.Occupancy(ctx, opts))
	case TypeMinibar:
		return asReport(s.Minibar(ctx, opts))
	case TypeNotifications:
		return asReport(s.Notifications(ctx, opts))
	case TypeCustom:
		return nil, fmt.Errorf("%w: custom reports are generated through /reports/custom", ErrInvalidRequest)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownReportType, req.ReportType)
	}
}

// asReport keeps a failed typed result from becoming a non-nil Report.
func asReport[T Report](r T, err error) (Report, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
