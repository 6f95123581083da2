package di

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"SignalLab/internal/domain/repository"
	"SignalLab/internal/domain/service"
	"SignalLab/internal/handler/api"
	internalrepo "SignalLab/internal/repository"
	icache "SignalLab/internal/service/cache"
	"SignalLab/internal/service/ratelimit"
	"SignalLab/internal/services/forecast"
	"SignalLab/internal/services/ingest"
	"SignalLab/internal/services/sentiment"
	"SignalLab/internal/usecase"
	pkgch "SignalLab/pkg/clickhouse"
	"SignalLab/pkg/config"
	xhttp "SignalLab/pkg/http"
	"SignalLab/pkg/http/middleware"
	pkgkafka "SignalLab/pkg/kafka"
	applogger "SignalLab/pkg/logger"
	"SignalLab/pkg/metrics"
	"SignalLab/pkg/queue"
	"SignalLab/pkg/server"
)

// sentimentJobType is the queue message type for background sentiment jobs.
const sentimentJobType = "sentiment.score"

// Optional infrastructure providers return nil when disabled in config;
// consumers of their values treat nil as "feature off".

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRedisClient connects to Redis when the shared cache or the job queue
// needs it. Both share one client.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	useCache := cfg.Cache.Enabled && cfg.Cache.Redis.Enabled
	if !useCache && !cfg.Queue.Enabled {
		return nil, nil
	}
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	ping := func(ctx context.Context) error { return cli.Ping(ctx).Err() }
	if err := pingWithRetry(ping, 3); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return cli, nil
}

// ProvideRedisCache exposes the Redis client as a result cache tier.
func ProvideRedisCache(cfg *config.Config, cli *redis.Client) *icache.RedisCache {
	if cli == nil || !cfg.Cache.Enabled || !cfg.Cache.Redis.Enabled {
		return nil
	}
	return icache.NewRedisCacheFromClient(cli, cfg.Cache.Redis.Prefix)
}

// pingWithRetry gives a dependency that is still starting a few chances.
func pingWithRetry(ping func(context.Context) error, retries uint64) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	return backoff.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return ping(ctx)
	}, backoff.WithMaxRetries(b, retries))
}

// ProvideResultCache picks the cache used by the analysis usecases:
// process-local only, or local in front of Redis.
func ProvideResultCache(cfg *config.Config, rc *icache.RedisCache) icache.BytesCache {
	if !cfg.Cache.Enabled {
		return nil
	}
	local := icache.NewTTLCache()
	if rc == nil {
		return local
	}
	l1TTL := cfg.Cache.TTL / 4
	if l1TTL <= 0 {
		l1TTL = time.Minute
	}
	return icache.NewLayered(local, rc, l1TTL)
}

// ProvideLexicon loads the configured word list, or the built-in one.
func ProvideLexicon(cfg *config.Config) (sentiment.Lexicon, error) {
	if cfg.Sentiment.LexiconPath == "" {
		return sentiment.DefaultLexicon(), nil
	}
	lex, err := sentiment.LoadLexicon(cfg.Sentiment.LexiconPath)
	if err != nil {
		return nil, fmt.Errorf("lexicon: %w", err)
	}
	return lex, nil
}

func ProvideSentimentAnalyzer(lex sentiment.Lexicon) service.SentimentAnalyzer {
	return sentiment.NewScorer(lex)
}

func ProvideForecaster() service.Forecaster {
	return forecast.NewLinearForecaster()
}

// ProvideDataset creates the in-memory dataset seeded with the sample series.
func ProvideDataset(cfg *config.Config) *ingest.Dataset {
	return ingest.NewDataset(
		ingest.WithHorizonRange(cfg.Forecast.MinHorizon, cfg.Forecast.MaxHorizon),
		ingest.WithInitialHorizon(cfg.Forecast.DefaultHorizon),
	)
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
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
	return client, nil
}

// ProvideObservationSource exposes stored closes to the forecast usecase.
func ProvideObservationSource(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.ObservationSource, error) {
	if ch == nil {
		return nil, nil
	}
	src, err := internalrepo.NewCHObservationSource(ch, cfg.ClickHouse.Database, cfg.ClickHouse.Table, l)
	if err != nil {
		return nil, fmt.Errorf("observation source: %w", err)
	}
	return src, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideResultPublisher publishes batch sentiment results.
func ProvideResultPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.ResultPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
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
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.TraceHook(), pkgkafka.LogHook(l)))
	return consumer, nil
}

func ProvideForecastUseCase(
	cfg *config.Config,
	f service.Forecaster,
	ds *ingest.Dataset,
	src repository.ObservationSource,
	m repository.Metrics,
	c icache.BytesCache,
	l *applogger.Logger,
) *usecase.ForecastUseCase {
	opts := []usecase.ForecastOption{
		usecase.WithForecastMetrics(m),
		usecase.WithDefaultHorizon(cfg.Forecast.DefaultHorizon),
		usecase.WithForecastLogger(l),
	}
	if src != nil {
		opts = append(opts, usecase.WithObservationSource(src))
	}
	if c != nil {
		opts = append(opts, usecase.WithForecastCache(c, cfg.Cache.TTL))
	}
	return usecase.NewForecastUseCase(f, ds, opts...)
}

func ProvideSentimentUseCase(
	cfg *config.Config,
	a service.SentimentAnalyzer,
	m repository.Metrics,
	c icache.BytesCache,
	l *applogger.Logger,
) *usecase.SentimentUseCase {
	opts := []usecase.SentimentOption{
		usecase.WithMaxLines(cfg.Sentiment.MaxLines),
		usecase.WithSentimentMetrics(m),
		usecase.WithSentimentLogger(l),
	}
	if c != nil {
		opts = append(opts, usecase.WithSentimentCache(c, cfg.Cache.TTL))
	}
	return usecase.NewSentimentUseCase(a, opts...)
}

// ProvideSentimentJobHandler registers the batch job handler for the request topic.
func ProvideSentimentJobHandler(
	cfg *config.Config,
	uc *usecase.SentimentUseCase,
	pub repository.ResultPublisher,
	m repository.Metrics,
) *usecase.SentimentJobHandler {
	if pub == nil {
		return nil
	}
	return usecase.NewSentimentJobHandler(cfg.Kafka.RequestTopic, uc, pub, m)
}

// ProvideJobStore keeps background job states in Redis.
func ProvideJobStore(cfg *config.Config, cli *redis.Client) repository.JobStore {
	if cli == nil || !cfg.Queue.Enabled {
		return nil
	}
	return internalrepo.NewRedisJobStore(cli, cfg.Cache.Redis.Prefix, cfg.Queue.ResultTTL)
}

// ProvideRedisQueue builds the background job queue. Its sentiment job handler
// publishes into the job store, and dead-lettered jobs are marked failed there.
func ProvideRedisQueue(
	cfg *config.Config,
	l *applogger.Logger,
	cli *redis.Client,
	uc *usecase.SentimentUseCase,
	store repository.JobStore,
	m repository.Metrics,
) *queue.RedisQueue {
	if cli == nil || store == nil {
		return nil
	}
	q := queue.NewRedisQueue(l, queue.QueueConfig{
		Workers:      cfg.Queue.Workers,
		RetryLimit:   cfg.Queue.RetryLimit,
		RetryDelay:   cfg.Queue.RetryDelay,
		PollInterval: cfg.Queue.PollInterval,
	}, cli,
		queue.WithKeyPrefix(cfg.Queue.KeyPrefix),
		queue.WithDeadHandler(usecase.MarkDead(store, l)),
	)
	q.RegisterJob(usecase.NewSentimentJobHandler(sentimentJobType, uc, store, m))
	return q
}

// ProvideSentimentJobs exposes the queue to the HTTP API.
func ProvideSentimentJobs(q *queue.RedisQueue, store repository.JobStore, uc *usecase.SentimentUseCase) *usecase.SentimentJobs {
	if q == nil || store == nil {
		return nil
	}
	return usecase.NewSentimentJobs(q, store, uc, sentimentJobType)
}

// ProvideHTTPServer builds the API server with rate limiting and dependency health checks.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	fuc *usecase.ForecastUseCase,
	suc *usecase.SentimentUseCase,
	jobs *usecase.SentimentJobs,
	cli *redis.Client,
	src repository.ObservationSource,
	q *queue.RedisQueue,
) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	limiter := ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
	skip := func(c echo.Context) bool {
		p := c.Path()
		return p == "/healthz" || (metricsPath != "" && p == metricsPath)
	}

	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetrics(metricsPath, nil, nil),
		xhttp.WithLogger(l),
		xhttp.WithMiddleware(middleware.RateLimit(limiter, xhttp.ClientKey, skip)),
	}
	if cli != nil {
		opts = append(opts, xhttp.WithHealthCheck("redis", func(ctx context.Context) error {
			return cli.Ping(ctx).Err()
		}))
	}
	if src != nil {
		opts = append(opts, xhttp.WithHealthCheck("clickhouse", src.Health))
	}
	if q != nil {
		opts = append(opts, xhttp.WithHealthCheck("queue", queueHealth(q)))
	}

	return xhttp.NewServer(xhttp.Handlers{
		api.NewForecastEchoHandler(l, fuc),
		api.NewSentimentEchoHandler(l, suc, jobs),
	}, opts...)
}

// maxDeadJobs marks the queue unhealthy once this many jobs are dead-lettered.
const maxDeadJobs = 1000

func queueHealth(q *queue.RedisQueue) func(context.Context) error {
	return func(ctx context.Context) error {
		_, _, dead, err := q.Stats(ctx)
		if err != nil {
			return err
		}
		if dead >= maxDeadJobs {
			return fmt.Errorf("%d dead-lettered jobs", dead)
		}
		return nil
	}
}

// ProvideApp creates the application and attaches the error log digest to
// Kafka when a producer is available.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh *usecase.SentimentJobHandler,
	producer *pkgkafka.Producer,
	q *queue.RedisQueue,
	cli *redis.Client,
	ch *pkgch.Client,
) *server.App {
	if producer != nil && cfg.Kafka.LogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      producer,
		})
	}

	app := server.New(cfg, l, srv)
	if consumer != nil && kh != nil {
		app.WithConsumer(consumer, kh)
	}
	if q != nil {
		app.WithQueue(q)
	}
	if producer != nil {
		app.AddCloser("kafka producer", producer.Close)
	}
	if cli != nil {
		app.AddCloser("redis", cli.Close)
	}
	if ch != nil {
		app.AddCloser("clickhouse", ch.Close)
	}
	return app
}
