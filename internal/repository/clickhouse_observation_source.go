package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"SignalLab/internal/domain/models"
	domrepo "SignalLab/internal/domain/repository"
	pkgch "SignalLab/pkg/clickhouse"
	applogger "SignalLab/pkg/logger"
	xutil "SignalLab/pkg/util"
)

var _ domrepo.ObservationSource = (*CHObservationSource)(nil)

// rows is the subset of *sql.Rows the source reads through.
type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type queryFunc func(ctx context.Context, query string, args ...any) (rows, error)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CHObservationSource reads daily closes from a ClickHouse table shaped
// (symbol String, day Date, close Float64).
type CHObservationSource struct {
	query queryFunc
	ping  func(ctx context.Context) error
	table string
	l     *applogger.Logger
}

// NewCHObservationSource validates database and table as plain identifiers
// because they are interpolated into the query text.
func NewCHObservationSource(ch *pkgch.Client, database, table string, l *applogger.Logger) (*CHObservationSource, error) {
	db := ch.DB()
	return newCHObservationSource(func(ctx context.Context, q string, args ...any) (rows, error) {
		return db.QueryContext(ctx, q, args...)
	}, ch.Health, database, table, l)
}

func newCHObservationSource(q queryFunc, ping func(context.Context) error, database, table string, l *applogger.Logger) (*CHObservationSource, error) {
	if !identRe.MatchString(database) || !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid clickhouse table %q.%q", database, table)
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &CHObservationSource{
		query: q,
		ping:  ping,
		table: database + "." + table,
		l:     l.With("clickhouse-source"),
	}, nil
}

// LatestObservations returns up to limit most recent closes for symbol, oldest first.
func (s *CHObservationSource) LatestObservations(ctx context.Context, symbol string, limit int) ([]models.Observation, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT day, close
        FROM %s
        WHERE symbol = ?
        ORDER BY day DESC
        LIMIT ?`, s.table)

	rs, err := s.query(ctx, q, symbol, limit)
	if err != nil {
		s.l.Error("clickhouse latest_observations query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Int("limit", limit),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rs.Close()

	out := make([]models.Observation, 0, limit)
	for rs.Next() {
		var (
			day   time.Time
			price sql.NullFloat64
		)
		if err := rs.Scan(&day, &price); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		if !price.Valid {
			continue
		}
		out = append(out, models.Observation{Timestamp: xutil.TruncateDay(day), Value: price.Float64})
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	s.l.Info("clickhouse latest_observations ok",
		applogger.String("symbol", symbol),
		applogger.Int("limit", limit),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHObservationSource) Health(ctx context.Context) error {
	return s.ping(ctx)
}
