package report

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/LonelyIsle/resort-api/internal/export"
)

type CustomMetadata struct {
	RowCount    int      `json:"row_count"`
	Columns     []string `json:"columns"`
	Truncated   bool     `json:"truncated"`
	ExecutionMS int64    `json:"execution_ms"`
}

// CustomReport is the result of an ad-hoc query. Data is keyed by column
// name; the positional rows keep duplicate column names intact for export.
type CustomReport struct {
	ReportName  string           `json:"report_name"`
	GeneratedAt time.Time        `json:"generated_at"`
	Data        []map[string]any `json:"data"`
	Metadata    CustomMetadata   `json:"metadata"`

	rows [][]any
}

func (r *CustomReport) Type() Type   { return TypeCustom }
func (r *CustomReport) Name() string { return r.ReportName }

func (r *CustomReport) Subtitle() string {
	return fmt.Sprintf("%d rows", r.Metadata.RowCount)
}

func (r *CustomReport) Tables() []export.Table {
	return []export.Table{{Name: "data", Columns: r.Metadata.Columns, Rows: r.rows}}
}

// Custom runs a guarded ad-hoc SELECT inside a read-only transaction that
// is always rolled back. A rejected query returns ErrQueryRejected and is
// never sent to the database.
func (s *Service) Custom(ctx context.Context, req CustomReportRequest) (*CustomReport, error) {
	if !s.guard.Allowed(req.Query) {
		return nil, ErrQueryRejected
	}
	args, err := orderedParams(req.Parameters)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	started := s.now()
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("custom report begin: %w", err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rows, err := tx.Query(ctx, strings.TrimSuffix(strings.TrimSpace(req.Query), ";"), args...)
	if err != nil {
		return nil, fmt.Errorf("custom report query: %w", err)
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}

	rep := &CustomReport{
		ReportName: req.ReportName,
		Data:       []map[string]any{},
		rows:       [][]any{},
	}
	for rows.Next() {
		if len(rep.rows) >= s.maxRows {
			rep.Metadata.Truncated = true
			break
		}
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("custom report scan: %w", err)
		}
		record := make(map[string]any, len(cols))
		for i := range vals {
			vals[i] = normalize(vals[i])
			record[cols[i]] = vals[i]
		}
		rep.rows = append(rep.rows, vals)
		rep.Data = append(rep.Data, record)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("custom report rows: %w", err)
	}

	done := s.now()
	rep.GeneratedAt = done
	rep.Metadata.Columns = cols
	rep.Metadata.RowCount = len(rep.rows)
	rep.Metadata.ExecutionMS = done.Sub(started).Milliseconds()
	return rep, nil
}

// orderedParams binds parameters to $1..$n. Numeric keys ("1", "$2") sort
// numerically and come first, other keys follow in lexical order.
func orderedParams(params map[string]any) ([]any, error) {
	if len(params) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, iok := paramIndex(keys[i])
		nj, jok := paramIndex(keys[j])
		switch {
		case iok && jok:
			return ni < nj
		case iok != jok:
			return iok
		default:
			return keys[i] < keys[j]
		}
	})

	args := make([]any, len(keys))
	for i, k := range keys {
		v, err := paramValue(params[k])
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %q: %v", ErrInvalidRequest, k, err)
		}
		args[i] = v
	}
	return args, nil
}

func paramIndex(key string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(key, "$"))
	return n, err == nil
}

func paramValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool:
		return x, nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		return x.Float64()
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return int64(x), nil
		}
		return x, nil
	case int, int64:
		return x, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

// normalize turns driver values into something JSON and the exporters
// render sensibly.
func normalize(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(x).String()
	case []byte:
		return string(x)
	case float64:
		if !finite(x) {
			return nil
		}
		return x
	default:
		return v
	}
}
