package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"RatioLab/internal/domain/models"
	"RatioLab/internal/services/session"
	"RatioLab/pkg/logger"
)

// PGMinuteFeed implements MinuteFeed on a Postgres table through pgxpool.
type PGMinuteFeed struct {
	pool  *pgxpool.Pool
	table string
	l     *logger.Logger
}

// NewPGPool connects and pings a pool for dsn.
func NewPGPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// NewPGMinuteFeed reads joined minutes from table.
func NewPGMinuteFeed(pool *pgxpool.Pool, table string, l *logger.Logger) *PGMinuteFeed {
	if l == nil {
		l = logger.Nop()
	}
	return &PGMinuteFeed{pool: pool, table: pgx.Identifier{table}.Sanitize(), l: l}
}

// Init creates the minute table when missing.
func (f *PGMinuteFeed) Init(ctx context.Context) error {
	if _, err := f.pool.Exec(ctx, pgMinuteDDL(f.table)); err != nil {
		return fmt.Errorf("init postgres schema: %w", err)
	}
	return nil
}

func (f *PGMinuteFeed) GetMinutes(ctx context.Context, symbol string, from, to time.Time) ([]models.MinuteBar, error) {
	lo, hi := session.DayBounds(from, to)
	q := fmt.Sprintf(`
        SELECT ts, asset_close, asset_volume, bench_close, bench_volume
        FROM %s
        WHERE symbol = $1 AND ts >= $2 AND ts <= $3
        ORDER BY ts ASC`, f.table)

	rows, err := f.pool.Query(ctx, q, symbol, lo, hi)
	if err != nil {
		f.l.Error("postgres get_minutes query error", logger.String("symbol", symbol), logger.Error(err))
		return nil, fmt.Errorf("get minutes: %w", err)
	}
	defer rows.Close()
	return scanMinutes(rows)
}

func (f *PGMinuteFeed) TradingDays(ctx context.Context, symbol string, from, to time.Time) ([]time.Time, error) {
	lo, hi := session.DayBounds(from, to)
	q := fmt.Sprintf(`
        SELECT DISTINCT (ts AT TIME ZONE '%s')::date AS d
        FROM %s
        WHERE symbol = $1 AND ts >= $2 AND ts <= $3
        ORDER BY d ASC`, session.ExchangeTimezone, f.table)

	rows, err := f.pool.Query(ctx, q, symbol, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("trading days: %w", err)
	}
	days, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (time.Time, error) {
		var d time.Time
		err := row.Scan(&d)
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), err
	})
	if err != nil {
		return nil, fmt.Errorf("scan trading days: %w", err)
	}
	return days, nil
}
