package di

import (
	"context"
	"fmt"
	"math"
	"time"

	"CryptoSatX/internal/dispatcher"
	"CryptoSatX/internal/domain/repository"
	domsvc "CryptoSatX/internal/domain/service"
	"CryptoSatX/internal/handler/api"
	internalrepo "CryptoSatX/internal/repository"
	"CryptoSatX/internal/service/binance"
	icache "CryptoSatX/internal/service/cache"
	"CryptoSatX/internal/service/coinglass"
	svcmetrics "CryptoSatX/internal/service/metrics"
	"CryptoSatX/internal/service/ratelimit"
	"CryptoSatX/internal/service/sentiment"
	"CryptoSatX/internal/usecase"
	pkgch "CryptoSatX/pkg/clickhouse"
	"CryptoSatX/pkg/config"
	xhttp "CryptoSatX/pkg/http"
	pkgkafka "CryptoSatX/pkg/kafka"
	applogger "CryptoSatX/pkg/logger"
	"CryptoSatX/pkg/metrics"
	"CryptoSatX/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	initTimeout   = 10 * time.Second
	maxBatchCount = 20
)

// Catalog lists the registered operation names. Providers that must run
// after registration take it as an input.
type Catalog []string

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  cfg.Logging.Output,
		Service: "cryptosatx",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics registers every collector with the default registry.
func ProvideMetrics() (*metrics.Recorder, error) {
	reg := prometheus.DefaultRegisterer
	dispatcher.RegisterMetrics(reg)
	pkgkafka.RegisterConsumerMetrics(reg)
	pkgkafka.RegisterProducerMetrics(reg)
	svcmetrics.Register()
	rec, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	return rec, nil
}

// ProvideDispatcher creates the empty operation registry.
func ProvideDispatcher(cfg *config.Config, l *applogger.Logger) *dispatcher.Dispatcher {
	return dispatcher.New(dispatcher.Config{
		DefaultTimeout:   cfg.DefaultTimeout(),
		TimeoutOverrides: cfg.TimeoutOverrides(),
	}, dispatcher.WithLogger(l))
}

// ProvideScoringConfig validates and freezes the scoring setup.
func ProvideScoringConfig(cfg *config.Config) (*usecase.ScoringConfig, error) {
	sc, err := usecase.NewScoringConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("scoring config: %w", err)
	}
	return sc, nil
}

// ProvideSignalEngine fans factor fetches out through the dispatcher.
func ProvideSignalEngine(d *dispatcher.Dispatcher, sc *usecase.ScoringConfig, l *applogger.Logger) *usecase.SignalEngine {
	return usecase.NewSignalEngine(d, sc, l)
}

// ProvideCache returns Redis when enabled, else an in-process TTL cache.
func ProvideCache(cfg *config.Config, l *applogger.Logger) icache.BytesCache {
	if !cfg.Redis.Enabled {
		return icache.NewTTLCache()
	}
	rc := icache.NewRedisCache(icache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   "cryptosatx:",
	})
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		l.Warn("redis unreachable, falling back to in-process cache",
			applogger.String("addr", cfg.Redis.Addr),
			applogger.Error(err),
		)
		_ = rc.Close()
		return icache.NewTTLCache()
	}
	return rc
}

// ProvideClickHouseClient connects to ClickHouse; nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideSignalStore creates the signal table store; nil when persistence is off.
func ProvideSignalStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) (repository.SignalStore, error) {
	if ch == nil || !cfg.Signal.Persist {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	store, err := internalrepo.NewCHSignalStore(ctx, ch, internalrepo.DefaultSignalTable, l)
	if err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaProducer creates the shared producer; nil when Kafka is disabled.
// When a collector topic is configured, aggregated error logs ride on it.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	if cfg.Logging.CollectorTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval: cfg.Logging.CollectorInterval,
			Topic:        cfg.Logging.CollectorTopic,
			Publisher:    producer,
		})
	}
	return producer, nil
}

// ProvideSignalPublisher publishes signal events; nil without a producer.
func ProvideSignalPublisher(p *pkgkafka.Producer, cfg *config.Config) repository.SignalPublisher {
	if p == nil || cfg.Signal.Topic == "" {
		return nil
	}
	return internalrepo.NewKafkaSignalPublisher(p, cfg.Signal.Topic)
}

// ProvideSignalService wraps the engine with cache, store and events.
func ProvideSignalService(
	engine *usecase.SignalEngine,
	c icache.BytesCache,
	store repository.SignalStore,
	pub repository.SignalPublisher,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.SignalService {
	return usecase.NewSignalService(engine, c, store, pub, m, usecase.SignalServiceConfig{
		CacheTTL:         cfg.Signal.CacheTTL,
		BatchConcurrency: cfg.Signal.BatchConcurrency,
		HistoryLimit:     cfg.Signal.HistoryLimit,
	}, l)
}

// ProvideBinanceClient creates the futures market data adapter.
func ProvideBinanceClient(cfg *config.Config) *binance.Client {
	return binance.New(cfg.Binance.APIKey, cfg.Binance.SecretKey, cfg.Binance.Testnet)
}

// ProvideLiquidationMonitor returns the stream-fed monitor; nil unless
// liquidations.source is stream.
func ProvideLiquidationMonitor(cfg *config.Config) *binance.LiquidationMonitor {
	if cfg.Liquidations.Source != "stream" {
		return nil
	}
	return binance.NewLiquidationMonitor(cfg.Liquidations.Window)
}

// ProvideLiquidationStream feeds the monitor from the force-order websocket.
func ProvideLiquidationStream(cfg *config.Config, m *binance.LiquidationMonitor, l *applogger.Logger) *binance.LiquidationStream {
	if m == nil {
		return nil
	}
	return binance.NewLiquidationStream(cfg.Binance.WebSocketURL, cfg.Binance.ReconnectDelay, cfg.Binance.PingInterval, m, l)
}

// ProvideOperations registers the whole catalog into the dispatcher.
func ProvideOperations(
	d *dispatcher.Dispatcher,
	cfg *config.Config,
	market *binance.Client,
	monitor *binance.LiquidationMonitor,
	sc *usecase.ScoringConfig,
	svc *usecase.SignalService,
) (Catalog, error) {
	deps := usecase.OperationDeps{
		Market:    market,
		Sentiment: sentiment.New(cfg.Sentiment.BaseURL, cfg.Sentiment.Timeout, cfg.Sentiment.CacheTTL),
		Signals:   svc,
		Defaults: usecase.MarketDefaults{
			StatsPeriod:   repository.NormalizePeriod(cfg.Binance.StatsPeriod),
			OIPoints:      cfg.Binance.OIPoints,
			DepthLevels:   cfg.Binance.DepthLevels,
			RangeInterval: cfg.Binance.RangeInterval,
			RangeCandles:  cfg.Binance.RangeCandles,
		},
		MaxBatchSymbol: maxBatchCount,
	}
	if monitor != nil {
		var src domsvc.LiquidationSource = monitor
		deps.LiquidStream = src
	} else {
		deps.Coinglass = coinglass.New(cfg.Coinglass.BaseURL, cfg.Coinglass.APIKey, cfg.Coinglass.Interval,
			cfg.Coinglass.Timeout, cfg.Coinglass.Retries)
	}
	deps.SignalTimeout, deps.BatchTimeout = signalTimeouts(cfg, sc.Deadline)

	if err := usecase.RegisterOperations(d, deps); err != nil {
		return nil, err
	}
	return Catalog(d.ListOperations()), nil
}

// signalTimeouts derives the signal operation limits from the engine deadline
// unless the configuration overrides them.
func signalTimeouts(cfg *config.Config, deadline time.Duration) (single, batch time.Duration) {
	overrides := cfg.Dispatcher.TimeoutOverrides
	if _, ok := overrides[usecase.OpSignalsGet]; !ok {
		single = deadline + time.Second
	}
	if _, ok := overrides[usecase.OpSignalsBatch]; !ok {
		waves := math.Ceil(float64(maxBatchCount) / float64(cfg.Signal.BatchConcurrency))
		batch = time.Duration(waves)*deadline + time.Second
	}
	return single, batch
}

// ProvideRateLimiter creates the per-client limiter shared by the HTTP routes.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.Capacity, cfg.Server.RateLimit.RefillPerSec)
}

// rateLimitPruner evicts idle client buckets for the life of the app.
func rateLimitPruner(rl *ratelimit.Limiter, idle time.Duration) server.Component {
	return server.NewLoop(func(ctx context.Context) { rl.RunPruner(ctx, idle) })
}

// ProvideHTTPServer mounts the dispatch routes on the echo server.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, d *dispatcher.Dispatcher, rl *ratelimit.Limiter, _ Catalog) *xhttp.Server {
	h := api.NewDispatchEchoHandler(l, d, rl)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer([]xhttp.Handler{h},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideKafkaConsumer serves dispatch requests from Kafka; nil when Kafka
// is disabled or no requests topic is configured.
func ProvideKafkaConsumer(
	cfg *config.Config,
	l *applogger.Logger,
	d *dispatcher.Dispatcher,
	p *pkgkafka.Producer,
	m repository.Metrics,
	_ Catalog,
) (*pkgkafka.Consumer, error) {
	if p == nil || cfg.Dispatcher.RequestsTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.TraceHook{}, pkgkafka.LoggingHook{Log: l}))

	h := usecase.NewKafkaDispatchHandler(cfg.Dispatcher.RequestsTopic, cfg.Dispatcher.ResponsesTopic, d, p, m)
	if err := consumer.RegisterHandler(h); err != nil {
		return nil, err
	}
	return consumer, nil
}

// ProvideApp assembles the lifecycle: background components start before
// the HTTP server and infrastructure clients close last.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	rl *ratelimit.Limiter,
	consumer *pkgkafka.Consumer,
	stream *binance.LiquidationStream,
	c icache.BytesCache,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
) *server.App {
	app := server.New(l, httpServer, cfg.Server.ShutdownTimeout)

	if producer != nil {
		app.AddCloser("kafka producer", producer.Close)
		if cfg.Logging.CollectorTopic != "" {
			app.AddCloser("log collector", func() error {
				l.RemoveCollector()
				return nil
			})
		}
	}
	if ch != nil {
		app.AddCloser("clickhouse", ch.Close)
	}
	if rc, ok := c.(*icache.RedisCache); ok {
		app.AddCloser("redis", rc.Close)
	}

	app.AddComponent("rate limit pruner", rateLimitPruner(rl, cfg.Server.RateLimit.IdleTTL))
	if stream != nil {
		app.AddComponent("liquidation stream", server.NewLoop(stream.Run))
	}
	if consumer != nil {
		app.AddComponent("kafka dispatch consumer", consumer)
	}
	return app
}
