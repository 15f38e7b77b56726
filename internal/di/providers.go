package di

import (
	"context"
	"fmt"
	"time"

	"FinBack/internal/domain/repository"
	"FinBack/internal/handler/api"
	internalrepo "FinBack/internal/repository"
	"FinBack/internal/service/ratelimit"
	"FinBack/internal/usecase"
	"FinBack/pkg/cache"
	pkgch "FinBack/pkg/clickhouse"
	"FinBack/pkg/config"
	pkgkafka "FinBack/pkg/kafka"
	applogger "FinBack/pkg/logger"
	"FinBack/pkg/metrics"
	"FinBack/pkg/server"
)

// Optional infrastructure providers return nil when their section is disabled.

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient connects to ClickHouse and creates the candle and ledger tables.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	schema := append(internalrepo.CandleSchema(db), internalrepo.LedgerSchema(db)...)
	if err := client.InitSchema(ctx, schema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse ready", applogger.String("database", db))
	return client, nil
}

// ProvideCandleStore reads candles from ClickHouse.
func ProvideCandleStore(client *pkgch.Client, l *applogger.Logger) repository.CandleStore {
	if client == nil {
		return nil
	}
	return internalrepo.NewCHCandleStore(client.DB(), client.Database(), l)
}

// ProvideLedgerStore persists run ledgers in ClickHouse.
func ProvideLedgerStore(client *pkgch.Client, l *applogger.Logger) repository.LedgerStore {
	if client == nil {
		return nil
	}
	return internalrepo.NewCHLedgerStore(client.DB(), client.Database(), l)
}

// ProvideKafkaProducer creates the producer for the results topic.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	p := cfg.Kafka.Producer
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(p.BatchSize, p.BatchBytes, p.Linger),
		pkgkafka.WithTimeouts(p.WriteTimeout, p.ReadTimeout),
		pkgkafka.WithMaxAttempts(p.MaxAttempts),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideResultPublisher announces run summaries on the results topic.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ResultPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultsTopic)
}

// ProvideCache creates the result cache: memory in front of Redis, or memory alone.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Redis.MemorySize)), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(cfg.Redis.MemorySize)), nil
}

// ProvideResultCache narrows the cache to what the runner needs.
func ProvideResultCache(c cache.Service) repository.ResultCache {
	return c
}

// ProvideCandlesUseCase creates candles use case.
func ProvideCandlesUseCase(store repository.CandleStore) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(store)
}

// ProvideBacktestRunner creates the backtest use case.
func ProvideBacktestRunner(
	candles *usecase.CandlesUseCase,
	ledgers repository.LedgerStore,
	pub repository.ResultPublisher,
	rc repository.ResultCache,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.BacktestRunner {
	return usecase.NewBacktestRunner(candles, ledgers, pub, rc, m, l, usecase.RunnerConfig{
		ResultTTL:     cfg.Backtest.ResultTTL,
		LockTTL:       cfg.Backtest.LockTTL,
		MaxBars:       cfg.Backtest.MaxBars,
		SignalFields:  cfg.Backtest.SignalFields,
		PriceFields:   cfg.Backtest.PriceFields,
		PersistLedger: cfg.Backtest.PersistLedger,
	})
}

// ProvideRateLimiter limits backtest submissions per client.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Backtest.RateLimit.Capacity, cfg.Backtest.RateLimit.RefillPerSec)
}

// ProvideHTTPHandler creates the echo handler for the API routes.
func ProvideHTTPHandler(
	l *applogger.Logger,
	runner *usecase.BacktestRunner,
	candles *usecase.CandlesUseCase,
	limiter *ratelimit.Limiter,
) *api.BacktestEchoHandler {
	return api.NewBacktestEchoHandler(l, runner, candles, limiter.Allow)
}

// ProvideKafkaConsumer creates a consumer for backtest requests.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(c.GroupID),
		pkgkafka.WithConsumerWorkers(c.Workers),
		pkgkafka.WithConsumerBufferSize(c.BufferSize),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerDLQ(c.DLQTopic),
		pkgkafka.WithConsumerFetch(c.MinBytes, c.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaBacktestHandler handles the requests topic.
func ProvideKafkaBacktestHandler(runner *usecase.BacktestRunner, cfg *config.Config) *usecase.KafkaBacktestHandler {
	return usecase.NewKafkaBacktestHandler(cfg.Kafka.RequestsTopic, runner)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler *api.BacktestEchoHandler,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaBacktestHandler,
	limiter *ratelimit.Limiter,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	c cache.Service,
) *server.App {
	app := server.New(cfg, l, handler, limiter)
	if consumer != nil {
		app.WithConsumer(consumer, kh)
	}
	if chClient != nil {
		app.WithHealthCheck("clickhouse", chClient.Health)
		app.WithCloser("clickhouse", chClient.Close)
	}
	if producer != nil {
		app.WithCloser("kafka producer", producer.Close)
	}
	app.WithCloser("cache", c.Close)
	return app
}
