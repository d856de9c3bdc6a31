package repository

import "fmt"

// Minute bars are stored pre-joined: one row per (symbol, minute) carrying the asset and
// its benchmark side by side.

func chMinuteDDL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    symbol       LowCardinality(String),
    ts           DateTime64(0, 'UTC'),
    asset_close  Float64,
    asset_volume Float64,
    bench_close  Float64,
    bench_volume Float64
) ENGINE = ReplacingMergeTree
PARTITION BY toYYYYMM(ts)
ORDER BY (symbol, ts)`, table)
}

func pgMinuteDDL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    symbol       TEXT NOT NULL,
    ts           TIMESTAMPTZ NOT NULL,
    asset_close  DOUBLE PRECISION NOT NULL,
    asset_volume DOUBLE PRECISION NOT NULL,
    bench_close  DOUBLE PRECISION NOT NULL,
    bench_volume DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (symbol, ts)
)`, table)
}

var sinkDDL = []string{
	`CREATE TABLE IF NOT EXISTS rl_baselines (
    run_id        String,
    symbol        LowCardinality(String),
    as_of         Date,
    method        LowCardinality(String),
    value         Float64,
    defined       UInt8,
    lookback_days UInt16,
    samples       UInt32,
    created_at    DateTime DEFAULT now()
) ENGINE = MergeTree ORDER BY (symbol, as_of, method, run_id)`,
	`CREATE TABLE IF NOT EXISTS rl_leaderboard (
    run_id       String,
    symbol       LowCardinality(String),
    date_from    Date,
    date_to      Date,
    rank         UInt32,
    method       LowCardinality(String),
    buy_pct      Float64,
    sell_pct     Float64,
    total_return Float64,
    trade_count  UInt32,
    days_used    UInt32,
    final_equity Float64,
    created_at   DateTime DEFAULT now()
) ENGINE = MergeTree ORDER BY (symbol, run_id, rank)`,
	`CREATE TABLE IF NOT EXISTS rl_daily_actions (
    run_id      String,
    date        Date,
    symbol      LowCardinality(String),
    session     LowCardinality(String),
    method      LowCardinality(String),
    buy_pct     Float64,
    sell_pct    Float64,
    day_return  Float64,
    trade_count UInt32,
    baseline    Float64,
    confidence  Float64,
    features    String
) ENGINE = MergeTree ORDER BY (symbol, date, method, buy_pct, sell_pct, run_id)`,
	`CREATE TABLE IF NOT EXISTS rl_policy_decisions (
    run_id     String,
    symbol     LowCardinality(String),
    date       Date,
    regime_key String,
    method     LowCardinality(String),
    buy_pct    Float64,
    sell_pct   Float64,
    day_return Float64,
    resolved   UInt8,
    reason     LowCardinality(String)
) ENGINE = MergeTree ORDER BY (symbol, run_id, date)`,
}
