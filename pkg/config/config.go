package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output     string `yaml:"output" default:"stdout"`
		TimeFormat string `yaml:"time_format"`
		Collect    struct {
			Enabled        bool          `yaml:"enabled"`
			Topic          string        `yaml:"topic" default:"ratiolab.logs"`
			Interval       time.Duration `yaml:"interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"collect"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"5s"`
		// RateBurst and RatePerSecond bound the heavy endpoints per client; 0 disables.
		RateBurst     float64 `yaml:"rate_burst" default:"10"`
		RatePerSecond float64 `yaml:"rate_per_second" default:"1"`
		// CORSOrigins lists browser origins allowed to call the API; empty disables CORS.
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Feed struct {
		Type     string        `yaml:"type" default:"clickhouse" validate:"oneof=clickhouse postgres"`
		Table    string        `yaml:"table" default:"minute_bars" validate:"required"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"10m"`
	} `yaml:"feed"`
	Sink struct {
		Types     []string `yaml:"types" validate:"dive,oneof=clickhouse kafka"`
		BatchSize int      `yaml:"batch_size" default:"2000" validate:"gte=1"`
	} `yaml:"sink"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		ResultTopic  string   `yaml:"result_topic" default:"ratiolab.results"`
		JobTopic     string   `yaml:"job_topic" default:"ratiolab.jobs"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"ratiolab-workers"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"16"`
			RetryMax   int           `yaml:"retry_max" default:"2"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"500ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"10s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"ratiolab.jobs.dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"ratiolab"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		MaxConnections   int           `yaml:"max_connections" default:"10"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"60s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"120s"`
	} `yaml:"clickhouse"`
	Postgres struct {
		DSN      string `yaml:"dsn"`
		MaxConns int32  `yaml:"max_conns" default:"8"`
	} `yaml:"postgres"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"ratiolab"`
	} `yaml:"redis"`
	Cache struct {
		Enabled       bool          `yaml:"enabled"`
		TTL           time.Duration `yaml:"ttl" default:"30m"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"512"`
	} `yaml:"cache"`
	Jobs struct {
		Transport   string        `yaml:"transport" default:"kafka" validate:"oneof=kafka redis"`
		Workers     int           `yaml:"workers" default:"2" validate:"gte=1"`
		RetryLimit  int           `yaml:"retry_limit" default:"2" validate:"gte=0"`
		RetryDelay  time.Duration `yaml:"retry_delay" default:"30s"`
		QueuePrefix string        `yaml:"queue_prefix" default:"ratiolab:jobs"`
	} `yaml:"jobs"`
	Backtest Backtest `yaml:"backtest"`
	Costs    struct {
		Commission float64 `yaml:"commission" validate:"gte=0"`
		Capital    float64 `yaml:"capital" validate:"gte=0"`
		SpreadBps  float64 `yaml:"spread_bps" validate:"gte=0"`
		SlipBps    float64 `yaml:"slip_bps" validate:"gte=0"`
	} `yaml:"costs"`
}

// Backtest holds the estimator, simulator and walk-forward knobs.
type Backtest struct {
	Methods             []string `yaml:"methods" default:"[\"VWAP_RATIO\",\"VOL_WEIGHTED\",\"WINSORIZED\",\"WEIGHTED_MEDIAN\",\"EQUAL_MEAN\"]" validate:"min=1,dive,oneof=VWAP_RATIO VOL_WEIGHTED WINSORIZED WEIGHTED_MEDIAN EQUAL_MEAN"`
	WinsorLow           float64  `yaml:"winsor_low" default:"0.01" validate:"gte=0,lte=1"`
	WinsorHigh          float64  `yaml:"winsor_high" default:"0.99" validate:"gte=0,lte=1"`
	MinSamples          int      `yaml:"min_samples" default:"30" validate:"gte=1"`
	LookbackDays        int      `yaml:"lookback_days" default:"5" validate:"gte=1"`
	BuyMin              float64  `yaml:"buy_min" default:"0.5" validate:"gte=0"`
	BuyMax              float64  `yaml:"buy_max" default:"2" validate:"gte=0"`
	BuyStep             float64  `yaml:"buy_step" default:"0.5"`
	SellMin             float64  `yaml:"sell_min" default:"0.5" validate:"gte=0"`
	SellMax             float64  `yaml:"sell_max" default:"2" validate:"gte=0,lt=100"`
	SellStep            float64  `yaml:"sell_step" default:"0.5"`
	StartingCash        float64  `yaml:"starting_cash" default:"10000"`
	FlattenEOD          bool     `yaml:"flatten_eod"`
	ParticipationCapPct float64  `yaml:"participation_cap_pct" validate:"gte=0,lte=100"`
	Window              string   `yaml:"window" default:"RTH"`
	MinShares           float64  `yaml:"min_shares" validate:"gte=0"`
	MinDollar           float64  `yaml:"min_dollar" validate:"gte=0"`
	LiquidityBaseline   bool     `yaml:"liquidity_baseline"`
	LiquidityTriggers   bool     `yaml:"liquidity_triggers"`
	TrainWindowDays     int      `yaml:"train_window_days" default:"60" validate:"gte=1"`
	RegimeBins          int      `yaml:"regime_bins" default:"3" validate:"gte=1"`
	RegimeFields        []string `yaml:"regime_fields" default:"[\"bench_prev_ret\",\"bench_overnight_ret\"]" validate:"min=1"`
	MinSupport          int      `yaml:"min_support" default:"1" validate:"gte=1"`
	MinConfidence       float64  `yaml:"min_confidence" validate:"gte=0,lte=100"`
	MinSharpe           *float64 `yaml:"min_sharpe"`
	ConfidenceHorizon   int      `yaml:"confidence_horizon" default:"10" validate:"gte=1"`
	Workers             int      `yaml:"workers" default:"4" validate:"gte=1"`
	MaxGridCells        int      `yaml:"max_grid_cells" default:"5000" validate:"gte=1"`
}

// Error names the configuration key that failed validation.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s", e.Key, e.Reason)
}

var validate = validator.New()

func decode(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Parse decodes YAML, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads a .env file when present, then the YAML file, then applies
// environment overrides before validating.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	applyEnv(c)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func applyEnv(c *Config) {
	if v := os.Getenv("RATIOLAB_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("RATIOLAB_FEED"); v != "" {
		c.Feed.Type = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
}

// Validate runs tag validation, then the cross-field checks tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			fe := ve[0]
			return &Error{Key: fe.Namespace(), Reason: fmt.Sprintf("failed %q (%s)", fe.Tag(), fe.Param())}
		}
		return err
	}
	b := c.Backtest
	switch {
	case b.BuyStep <= 0:
		return &Error{Key: "backtest.buy_step", Reason: "must be > 0"}
	case b.SellStep <= 0:
		return &Error{Key: "backtest.sell_step", Reason: "must be > 0"}
	case b.BuyMin > b.BuyMax:
		return &Error{Key: "backtest.buy_min", Reason: "must not exceed buy_max"}
	case b.SellMin > b.SellMax:
		return &Error{Key: "backtest.sell_min", Reason: "must not exceed sell_max"}
	case b.WinsorLow > b.WinsorHigh:
		return &Error{Key: "backtest.winsor_low", Reason: "must not exceed winsor_high"}
	case b.StartingCash <= 0:
		return &Error{Key: "backtest.starting_cash", Reason: "must be > 0"}
	}
	if c.Feed.Type == "postgres" && c.Postgres.DSN == "" {
		return &Error{Key: "postgres.dsn", Reason: "is required when feed.type is postgres"}
	}
	for _, s := range c.Sink.Types {
		if s == "kafka" && len(c.Kafka.Brokers) == 0 {
			return &Error{Key: "kafka.brokers", Reason: "is required for the kafka sink"}
		}
	}
	if c.Jobs.Transport == "redis" && !c.Redis.Enabled {
		return &Error{Key: "redis.enabled", Reason: "is required when jobs.transport is redis"}
	}
	if c.Log.Collect.Enabled && len(c.Kafka.Brokers) == 0 {
		return &Error{Key: "kafka.brokers", Reason: "is required when log.collect.enabled"}
	}
	return nil
}
