package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"RatioLab/internal/domain/models"
	"RatioLab/internal/services/session"
	pkgch "RatioLab/pkg/clickhouse"
	"RatioLab/pkg/logger"
)

// CHMinuteFeed implements MinuteFeed backed by ClickHouse.
type CHMinuteFeed struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	l     *logger.Logger
}

// NewCHMinuteFeed reads joined minutes from table.
func NewCHMinuteFeed(ch *pkgch.Client, table string, l *logger.Logger) *CHMinuteFeed {
	if l == nil {
		l = logger.Nop()
	}
	return &CHMinuteFeed{ch: ch, db: ch.DB(), table: table, l: l}
}

// Init creates the minute table when missing.
func (f *CHMinuteFeed) Init(ctx context.Context) error {
	return f.ch.InitSchema(ctx, []string{chMinuteDDL(f.table)})
}

func (f *CHMinuteFeed) GetMinutes(ctx context.Context, symbol string, from, to time.Time) ([]models.MinuteBar, error) {
	start := time.Now()
	lo, hi := session.DayBounds(from, to)
	q := fmt.Sprintf(`
        SELECT ts, asset_close, asset_volume, bench_close, bench_volume
        FROM %s FINAL
        WHERE symbol = ? AND ts >= ? AND ts <= ?
        ORDER BY ts ASC`, f.table)

	rows, err := f.db.QueryContext(ctx, q, symbol, lo, hi)
	if err != nil {
		f.l.Error("clickhouse get_minutes query error",
			logger.String("symbol", symbol),
			logger.Error(err))
		return nil, fmt.Errorf("get minutes: %w", err)
	}
	defer rows.Close()

	out, err := scanMinutes(rows)
	if err != nil {
		f.l.Error("clickhouse get_minutes scan error",
			logger.String("symbol", symbol),
			logger.Error(err))
		return nil, err
	}
	f.l.Debug("clickhouse get_minutes ok",
		logger.String("symbol", symbol),
		logger.Date("from", from),
		logger.Date("to", to),
		logger.Int("rows", len(out)),
		logger.Duration("duration_ms", time.Since(start)))
	return out, nil
}

func (f *CHMinuteFeed) TradingDays(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error) {
	lo, hi := session.DayBounds(from, to)
	q := fmt.Sprintf(`
        SELECT DISTINCT toDate(ts, '%s') AS d
        FROM %s
        WHERE symbol = ? AND ts >= ? AND ts <= ?
        ORDER BY d ASC`, session.ExchangeTimezone, f.table)

	rows, err := f.db.QueryContext(ctx, q, symbol, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("trading days: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan trading day: %w", err)
		}
		out = append(out, time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC))
	}
	return out, rows.Err()
}

// rowScanner is satisfied by *sql.Rows and pgx.Rows.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanMinutes reads (ts, asset_close, asset_volume, bench_close, bench_volume) rows and
// derives the local date, clock and session of each bar.
func scanMinutes(rows rowScanner) ([]models.MinuteBar, error) {
	out := make([]models.MinuteBar, 0, 4096)
	for rows.Next() {
		var b models.MinuteBar
		if err := rows.Scan(&b.Timestamp, &b.AssetClose, &b.AssetVolume, &b.BenchmarkClose, &b.BenchmarkVolume); err != nil {
			return nil, fmt.Errorf("scan minute: %w", err)
		}
		out = append(out, session.Localize(b))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
