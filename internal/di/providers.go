package di

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	domrepo "RatioLab/internal/domain/repository"
	"RatioLab/internal/handler/api"
	internalrepo "RatioLab/internal/repository"
	"RatioLab/internal/usecase"
	"RatioLab/pkg/cache"
	pkgch "RatioLab/pkg/clickhouse"
	"RatioLab/pkg/config"
	"RatioLab/pkg/http/middleware"
	pkgkafka "RatioLab/pkg/kafka"
	"RatioLab/pkg/logger"
	"RatioLab/pkg/metrics"
	"RatioLab/pkg/queue"
	"RatioLab/pkg/server"
)

const initTimeout = 10 * time.Second

// ProvideKafkaProducer creates a Kafka producer, or nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAutoCreateTopics(true),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the app logger. With log.collect enabled, repeated entries are
// aggregated and shipped to Kafka.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Collect.Enabled && producer != nil {
		l.AddCollector(&logger.CollectionConfig{
			TimeInterval:   cfg.Log.Collect.Interval,
			CountThreshold: cfg.Log.Collect.CountThreshold,
			Topic:          cfg.Log.Collect.Topic,
			Publisher:      producer,
		})
	}
	return l, nil
}

func needsClickHouse(cfg *config.Config) bool {
	return cfg.Feed.Type == "clickhouse" || slices.Contains(cfg.Sink.Types, "clickhouse")
}

// ProvideClickHouseClient creates a ClickHouse client when the feed or a sink uses it.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !needsClickHouse(cfg) {
		return nil, nil
	}
	maxOpen := cfg.ClickHouse.MaxConnections
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(maxOpen, (maxOpen+1)/2),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvidePGPool connects to Postgres when it backs the minute feed.
func ProvidePGPool(cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.Feed.Type != "postgres" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	return internalrepo.NewPGPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
}

// ProvideRedisCache connects to Redis when enabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCacheService picks the memoizer backend: memory in front of Redis when Redis is
// enabled, memory alone otherwise, nothing when caching is off.
func ProvideCacheService(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	if !cfg.Cache.Enabled {
		return nil
	}
	if rc != nil {
		return cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize))
	}
	return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))
}

// ProvideMinuteFeed builds the configured feed, ensures its table and wraps it in the cache.
func ProvideMinuteFeed(
	cfg *config.Config,
	ch *pkgch.Client,
	pool *pgxpool.Pool,
	svc cache.Service,
	log *logger.Logger,
) (domrepo.MinuteFeed, error) {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	var feed domrepo.MinuteFeed
	switch cfg.Feed.Type {
	case "postgres":
		f := internalrepo.NewPGMinuteFeed(pool, cfg.Feed.Table, log)
		if err := f.Init(ctx); err != nil {
			return nil, fmt.Errorf("postgres feed: %w", err)
		}
		feed = f
	default:
		f := internalrepo.NewCHMinuteFeed(ch, cfg.Feed.Table, log)
		if err := f.Init(ctx); err != nil {
			return nil, fmt.Errorf("clickhouse feed: %w", err)
		}
		feed = f
	}
	return internalrepo.NewCachedFeed(feed, cache.NewMemoizer(svc, cfg.Feed.CacheTTL)), nil
}

// ProvideResultSink fans results out to the configured sinks. No sinks means results are
// only returned to the caller.
func ProvideResultSink(
	cfg *config.Config,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	log *logger.Logger,
) (domrepo.ResultSink, error) {
	var sinks []domrepo.ResultSink
	for _, typ := range cfg.Sink.Types {
		switch typ {
		case "clickhouse":
			sinks = append(sinks, internalrepo.NewCHResultSink(ch, cfg.Sink.BatchSize, log))
		case "kafka":
			if producer == nil {
				return nil, fmt.Errorf("kafka sink: no producer")
			}
			sinks = append(sinks, internalrepo.NewKafkaResultSink(producer, cfg.Kafka.ResultTopic, cfg.Sink.BatchSize))
		}
	}
	sink := internalrepo.NewMultiSink(sinks...)

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := sink.Init(ctx); err != nil {
		return nil, fmt.Errorf("result sink: %w", err)
	}
	return sink, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideBacktester creates the backtest use case. Derived results share the feed's
// cache backend under their own TTL.
func ProvideBacktester(
	cfg *config.Config,
	feed domrepo.MinuteFeed,
	sink domrepo.ResultSink,
	m domrepo.Metrics,
	svc cache.Service,
	log *logger.Logger,
) *usecase.Backtester {
	return usecase.NewBacktester(feed, sink, m, cache.NewMemoizer(svc, cfg.Cache.TTL), cfg, log)
}

// ProvideJobHandler creates the worker-mode job handler.
func ProvideJobHandler(cfg *config.Config, bt *usecase.Backtester, m domrepo.Metrics, log *logger.Logger) *usecase.JobHandler {
	return usecase.NewJobHandler(cfg.Kafka.JobTopic, bt, m, log)
}

// ProvideKafkaConsumer creates the job consumer when jobs arrive over Kafka.
func ProvideKafkaConsumer(cfg *config.Config, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Jobs.Transport != "kafka" || len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TracingHook())
	return consumer, nil
}

// ProvideJobQueue creates the Redis job queue when jobs arrive over Redis.
func ProvideJobQueue(cfg *config.Config, rc *cache.RedisCache, jobs *usecase.JobHandler, log *logger.Logger) *queue.RedisQueue {
	if cfg.Jobs.Transport != "redis" || rc == nil {
		return nil
	}
	return queue.NewRedisQueue(log, queue.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		RetryLimit: cfg.Jobs.RetryLimit,
		RetryDelay: cfg.Jobs.RetryDelay,
	}, rc.Client(),
		queue.WithKeyPrefix(cfg.Jobs.QueuePrefix),
		queue.WithHandler(jobs),
	)
}

// ProvideLimiter bounds the heavy HTTP endpoints per client.
func ProvideLimiter(cfg *config.Config) *middleware.Limiter {
	return middleware.NewLimiter(cfg.Server.RateBurst, cfg.Server.RatePerSecond)
}

// ProvideBacktestHandler creates the query API handler.
func ProvideBacktestHandler(log *logger.Logger, bt *usecase.Backtester, limiter *middleware.Limiter) *api.BacktestHandler {
	return api.NewBacktestHandler(log, bt, limiter)
}

// ProvideApp creates the application. Resources close in dependency order: the sink
// flushes before the producer and ClickHouse client it writes to.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	bt *usecase.Backtester,
	h *api.BacktestHandler,
	jobs *usecase.JobHandler,
	consumer *pkgkafka.Consumer,
	q *queue.RedisQueue,
	sink domrepo.ResultSink,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	pool *pgxpool.Pool,
	rc *cache.RedisCache,
) *server.App {
	closers := []server.Closer{{Name: "result sink", Close: sink.Close}}
	closers = append(closers, server.Closer{Name: "log collector", Close: func() error {
		log.RemoveCollector()
		return nil
	}})
	if producer != nil {
		closers = append(closers, server.Closer{Name: "kafka producer", Close: producer.Close})
	}
	if ch != nil {
		closers = append(closers, server.Closer{Name: "clickhouse", Close: ch.Close})
	}
	if pool != nil {
		closers = append(closers, server.Closer{Name: "postgres", Close: func() error {
			pool.Close()
			return nil
		}})
	}
	if rc != nil {
		closers = append(closers, server.Closer{Name: "redis", Close: rc.Close})
	}
	return server.New(cfg, log, bt, h, jobs, consumer, q, closers)
}
