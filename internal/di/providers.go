package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	drepo "CoinPulse/internal/domain/repository"
	"CoinPulse/internal/handler/api"
	internalrepo "CoinPulse/internal/repository"
	"CoinPulse/internal/service/cache"
	"CoinPulse/internal/service/coingecko"
	"CoinPulse/internal/service/gdelt"
	svcmetrics "CoinPulse/internal/service/metrics"
	"CoinPulse/internal/service/ratelimit"
	"CoinPulse/internal/services/analytics"
	"CoinPulse/internal/usecase"
	pkgch "CoinPulse/pkg/clickhouse"
	"CoinPulse/pkg/config"
	pkgkafka "CoinPulse/pkg/kafka"
	"CoinPulse/pkg/logger"
	"CoinPulse/pkg/metrics"
	"CoinPulse/pkg/server"
)

const schemaTimeout = 10 * time.Second

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the application logger and attaches the digest collector when configured.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Digest.Enabled && producer != nil {
		l.AddCollector(&logger.CollectionConfig{
			TimeInterval:   cfg.Log.Digest.Interval,
			CountThreshold: cfg.Log.Digest.MaxItems,
			Topic:          cfg.Log.Digest.Topic,
			Publisher:      producer,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) drepo.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New()
}

// ProvideAnalyticsMetrics registers the API endpoint collectors, or returns nil when metrics are off.
func ProvideAnalyticsMetrics(cfg *config.Config) *svcmetrics.AnalyticsMetrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return svcmetrics.NewAnalyticsMetrics(prometheus.DefaultRegisterer)
}

// ProvideCache returns Redis behind a short in-process layer when enabled,
// otherwise the in-process TTL cache alone.
func ProvideCache(cfg *config.Config, l *logger.Logger) cache.BytesCache {
	if !cfg.Redis.Enabled {
		return cache.NewTTLCache()
	}
	rc := cache.NewRedisCache(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		// reads and writes degrade to misses, so a cold Redis is not fatal
		l.Warn("redis unavailable at startup", logger.String("addr", cfg.Redis.Addr), logger.Error(err))
	}
	return cache.NewLayeredCache(rc, cfg.Cache.LocalTTL)
}

// ProvideMarketSource creates the CoinGecko client.
func ProvideMarketSource(cfg *config.Config, c cache.BytesCache, l *logger.Logger) *coingecko.Client {
	return coingecko.New(coingecko.Config{
		BaseURL:        cfg.Market.BaseURL,
		APIKey:         cfg.Market.APIKey,
		Timeout:        cfg.Market.Timeout,
		RequestsPerSec: cfg.Market.RequestsPerSec,
		RetryInitial:   cfg.Market.RetryInitial,
		MaxElapsed:     cfg.Market.MaxElapsed,
		CacheTTL:       cfg.Market.CacheTTL,
	}, coingecko.WithCache(c), coingecko.WithLogger(l))
}

// ProvideEventQuerier creates the GDELT client.
func ProvideEventQuerier(cfg *config.Config, l *logger.Logger) *gdelt.Client {
	return gdelt.New(gdelt.Config{
		BaseURL:        cfg.Events.BaseURL,
		Countries:      cfg.Events.Countries,
		Timeout:        cfg.Events.Timeout,
		RequestsPerSec: cfg.Events.RequestsPerSec,
		ValidateLinks:  cfg.Events.ValidateLinks,
		LinkTimeout:    cfg.Events.LinkTimeout,
		LinkWorkers:    cfg.Events.LinkWorkers,
	}, gdelt.WithLogger(l))
}

// ProvideClickHouseClient connects and creates the report schema, or returns nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	if err := client.InitSchema(ctx, internalrepo.ReportSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideReportStore returns nil without ClickHouse.
func ProvideReportStore(ch *pkgch.Client, l *logger.Logger) drepo.ReportStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHReportStore(ch, l)
}

// ProvideReportPublisher returns nil without Kafka.
func ProvideReportPublisher(producer *pkgkafka.Producer, cfg *config.Config) drepo.ReportPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.ReportTopic)
}

// ProvidePipelineConfig maps the pipeline section onto the use case config.
func ProvidePipelineConfig(cfg *config.Config) usecase.PipelineConfig {
	return usecase.PipelineConfig{
		Detectors: analytics.DetectorParams{
			Eps:           cfg.Pipeline.Eps,
			MinPts:        cfg.Pipeline.MinPts,
			Trees:         cfg.Pipeline.Trees,
			MaxSamples:    cfg.Pipeline.MaxSamples,
			Contamination: cfg.Pipeline.Contamination,
			Seed:          cfg.Pipeline.Seed,
		},
		QueryEvents:    cfg.Pipeline.QueryEvents,
		QueryPause:     cfg.Pipeline.QueryPause,
		QueryPolicy:    usecase.QueryPolicy(cfg.Pipeline.QueryPolicy),
		ParallelDetect: cfg.Pipeline.ParallelDetect,
		Keyword:        cfg.Events.Keyword,
		MaxRecords:     cfg.Events.MaxRecords,
	}
}

// ProvidePipeline creates the anomaly pipeline. Snapshots go to Kafka when a producer exists.
func ProvidePipeline(
	cfg *config.Config,
	pcfg usecase.PipelineConfig,
	source *coingecko.Client,
	events *gdelt.Client,
	m drepo.Metrics,
	l *logger.Logger,
	producer *pkgkafka.Producer,
) *usecase.AnomalyPipeline {
	var opts []usecase.PipelineOption
	if producer != nil {
		opts = append(opts, usecase.WithSnapshotSink(internalrepo.NewKafkaSnapshotSink(producer, cfg.Kafka.SnapshotTopic)))
	}
	return usecase.NewAnomalyPipeline(source, events, m, l, pcfg, opts...)
}

// ProvideHandler creates the HTTP handler with caching, rate limiting and health checks.
func ProvideHandler(
	cfg *config.Config,
	l *logger.Logger,
	pipeline *usecase.AnomalyPipeline,
	c cache.BytesCache,
	am *svcmetrics.AnalyticsMetrics,
	ch *pkgch.Client,
) *api.AnomaliesEchoHandler {
	opts := []api.HandlerOption{
		api.WithReportCache(c, cfg.Cache.ReportTTL),
		api.WithRateLimiter(ratelimit.New(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst)),
		api.WithAnalyticsMetrics(am),
	}
	if lc, ok := c.(*cache.LayeredCache); ok {
		opts = append(opts, api.WithHealthCheck("redis", lc.Ping))
	}
	if ch != nil {
		opts = append(opts, api.WithHealthCheck("clickhouse", ch.Health))
	}
	return api.NewAnomaliesEchoHandler(l, pipeline, opts...)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	pipeline *usecase.AnomalyPipeline,
	handler *api.AnomaliesEchoHandler,
	store drepo.ReportStore,
	publisher drepo.ReportPublisher,
	c cache.BytesCache,
	ch *pkgch.Client,
) *server.App {
	opts := []server.Option{
		server.WithHandler(handler),
		server.WithReportStore(store),
		server.WithReportPublisher(publisher),
	}
	if lc, ok := c.(*cache.LayeredCache); ok {
		opts = append(opts, server.WithCloser("redis", lc))
	}
	if ch != nil {
		opts = append(opts, server.WithCloser("clickhouse", ch))
	}
	return server.New(cfg, l, pipeline, opts...)
}
