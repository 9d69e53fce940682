package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"statusboard/internal/adapters/http/perf"
)

// SQLDB is the database interface used by all stores.
// Both *sql.DB and *TimedDB satisfy it.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var (
	_ SQLDB = (*sql.DB)(nil)
	_ SQLDB = (*TimedDB)(nil)
)

// DefaultSlowQuery is the default threshold for slow query warnings.
const DefaultSlowQuery = 50 * time.Millisecond

// TimedDB wraps a *sql.DB to log slow statements and record them to a collector.
type TimedDB struct {
	db        *sql.DB
	collector *perf.Collector
	threshold time.Duration
}

// NewTimedDB wraps db with timing instrumentation. A nil collector only logs.
// PRE: db is a valid database connection
// POST: Returns a TimedDB; non-positive threshold falls back to DefaultSlowQuery
func NewTimedDB(db *sql.DB, collector *perf.Collector, threshold time.Duration) *TimedDB {
	if threshold <= 0 {
		threshold = DefaultSlowQuery
	}
	return &TimedDB{db: db, collector: collector, threshold: threshold}
}

// observe logs the statement duration and forwards it to the collector.
// The label is supplied by the caller through WithOp; statements without a
// label are recorded under the database method name.
func (t *TimedDB) observe(ctx context.Context, method string, start time.Time) {
	elapsed := time.Since(start)
	op := opFromContext(ctx, method)

	if elapsed >= t.threshold {
		slog.Warn("slow_query", "op", op, "duration_ms", elapsed.Milliseconds())
	} else {
		slog.Debug("query", "op", op, "duration_ms", float64(elapsed.Microseconds())/1000.0)
	}

	if t.collector != nil {
		t.collector.Record(perf.Sample{Kind: perf.KindStore, Label: op, Duration: elapsed, At: start})
	}
}

// ExecContext wraps sql.DB.ExecContext with timing.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := t.db.ExecContext(ctx, query, args...)
	t.observe(ctx, "ExecContext", start)
	return res, err
}

// QueryRowContext wraps sql.DB.QueryRowContext with timing.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := t.db.QueryRowContext(ctx, query, args...)
	t.observe(ctx, "QueryRowContext", start)
	return row
}

// QueryContext wraps sql.DB.QueryContext with timing.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.observe(ctx, "QueryContext", start)
	return rows, err
}

type opKey struct{}

// WithOp labels the statements run with ctx, e.g. "kv.Get".
func WithOp(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opKey{}, op)
}

func opFromContext(ctx context.Context, fallback string) string {
	if op, ok := ctx.Value(opKey{}).(string); ok && op != "" {
		return op
	}
	return fallback
}
