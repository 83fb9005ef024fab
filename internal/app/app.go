// Package app wires the search service together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/catalog-search/internal/analysis"
	"github.com/utafrali/catalog-search/internal/config"
	"github.com/utafrali/catalog-search/internal/engine"
	esengine "github.com/utafrali/catalog-search/internal/engine/elasticsearch"
	"github.com/utafrali/catalog-search/internal/engine/memory"
	"github.com/utafrali/catalog-search/internal/event"
	handler "github.com/utafrali/catalog-search/internal/handler/http"
	"github.com/utafrali/catalog-search/internal/lifecycle"
	"github.com/utafrali/catalog-search/internal/query"
	"github.com/utafrali/catalog-search/internal/service"
	"github.com/utafrali/catalog-search/internal/source"
	"github.com/utafrali/catalog-search/internal/suggest"
	"github.com/utafrali/catalog-search/pkg/database"
	"github.com/utafrali/catalog-search/pkg/health"
	"github.com/utafrali/catalog-search/pkg/httpclient"
	pkgkafka "github.com/utafrali/catalog-search/pkg/kafka"
	"github.com/utafrali/catalog-search/pkg/tracing"
)

const serviceName = "search"

// App wires together all dependencies and runs the search service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	engine         engine.EngineClient
	service        *service.SearchService
	health         *health.Handler
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	dlq            *pkgkafka.DLQProducer
	consumer       *pkgkafka.Consumer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// Nothing is started until Run.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger, health: health.NewHandler()}
	if err := a.init(ctx); err != nil {
		_ = a.closeResources(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	// Initialize OpenTelemetry tracing.
	shutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRate:     cfg.OTelSampleRate,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = shutdown

	// Configure slow query logging.
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)

	indexCfg, err := cfg.IndexConfig()
	if err != nil {
		return err
	}

	if err := a.initEngine(); err != nil {
		return err
	}

	synonyms, editor, err := a.initSynonyms(ctx)
	if err != nil {
		return err
	}

	src, err := a.initSource(ctx)
	if err != nil {
		return err
	}

	var publisher service.Publisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(a.producer)
		a.health.RegisterOptional("kafka", a.producer.Ping)
	}

	// Build the dependency graph.
	manager := lifecycle.NewManager(a.engine, synonyms, analysis.NewDirWordLists(cfg.WordListDir), logger)
	a.service = service.New(service.Deps{
		Lifecycle:   manager,
		Finder:      query.NewBuilder(a.engine, indexCfg, cfg.Languages, logger),
		Suggester:   suggest.NewAggregator(a.engine, indexCfg, cfg.Languages, cfg.SuggestPolicy(), logger),
		Source:      src,
		Synonyms:    editor,
		Publisher:   publisher,
		IndexConfig: indexCfg,
		Concurrency: cfg.ReindexConcurrency,
	}, logger)

	if cfg.KafkaEnabled {
		a.initConsumer()
	}

	// Health checks.
	a.health.SetTimeout(cfg.EngineRequestTimeout)
	a.health.Register("search_engine", a.engine.Ping)
	a.health.RegisterInfo("index", func() any { return a.service.IndexState() })
	a.health.RegisterInfo("reindex", func() any { return a.service.ReindexStatus() })

	// HTTP router.
	router := handler.NewRouter(a.service, a.health, handler.RouterConfig{
		AdminToken:         cfg.AdminToken,
		CORSOrigins:        cfg.CORSAllowedOrigins,
		SuggestCacheMaxAge: cfg.SuggestCacheMaxAge,
		PprofEnabled:       cfg.PprofEnabled,
		PprofAllowedCIDRs:  cfg.PprofAllowedCIDRs,
	}, logger)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return nil
}

func (a *App) initEngine() error {
	switch a.cfg.SearchEngine {
	case config.EngineElasticsearch:
		eng, err := esengine.New(esengine.Config{
			Addresses:      []string{a.cfg.ElasticsearchURL()},
			Username:       a.cfg.ESUsername,
			Password:       a.cfg.ESPassword,
			RequestTimeout: a.cfg.EngineRequestTimeout,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("init elasticsearch engine: %w", err)
		}
		a.engine = eng
		a.logger.Info("elasticsearch search engine initialized",
			slog.String("url", a.cfg.ElasticsearchURL()),
		)
	default:
		a.engine = memory.New()
		a.logger.Info("in-memory search engine initialized")
	}
	return nil
}

// initSynonyms returns the store the lifecycle reads at Init and the editor
// behind the synonym endpoints. Both are nil when synonyms are disabled.
func (a *App) initSynonyms(ctx context.Context) (lifecycle.SynonymStore, service.SynonymEditor, error) {
	switch a.cfg.SynonymsSource {
	case config.SynonymsFile:
		store := analysis.NewFileSynonymStore(a.cfg.SynonymsFile)
		a.logger.Info("file synonym store initialized", slog.String("path", store.Path()))
		return store, store, nil
	case config.SynonymsRedis:
		client, err := database.NewRedisClient(ctx, database.RedisConfig{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		a.health.RegisterOptional("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		a.logger.Info("redis synonym store initialized",
			slog.String("addr", a.cfg.RedisAddr),
			slog.String("key", a.cfg.SynonymsRedisKey),
		)
		store := analysis.NewRedisSynonymStore(client, a.cfg.SynonymsRedisKey)
		return store, store, nil
	default:
		return nil, nil, nil
	}
}

func (a *App) initSource(ctx context.Context) (source.DocumentSource, error) {
	switch a.cfg.ReindexSource {
	case config.SourcePostgres:
		pool, err := database.NewPostgresPool(ctx, database.DefaultPostgresConfig(a.cfg.DatabaseURL), a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
		if err := database.RunMigrations(ctx, pool, source.Migrations(), a.logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		a.health.RegisterOptional("postgres", pool.Ping)
		a.logger.Info("postgres document source initialized")
		return source.NewPostgresSource(pool, a.cfg.ReindexPageSize, a.logger), nil
	default:
		client := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("product-service"),
			a.logger,
		)
		a.logger.Info("product service document source initialized",
			slog.String("url", a.cfg.ProductServiceURL),
		)
		return source.NewHTTPSource(client, a.cfg.ProductServiceURL, a.cfg.ReindexPageSize, a.logger), nil
	}
}

func (a *App) initConsumer() {
	a.dlq = pkgkafka.NewDLQProducer(a.cfg.KafkaBrokers, a.logger)
	store := pkgkafka.NewMemoryIdempotencyStore(24 * time.Hour)
	eventConsumer := event.NewConsumer(a.service, a.logger)

	a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:  a.cfg.KafkaBrokers,
		GroupID:  a.cfg.KafkaGroupID,
		Topic:    event.TopicReindexRequested,
		MinBytes: 1,
		MaxBytes: 10e6,
	}, pkgkafka.IdempotentHandler(store, eventConsumer.Handle, a.logger), a.logger, pkgkafka.WithDLQ(a.dlq))

	a.logger.Info("kafka consumer initialized",
		slog.Any("brokers", a.cfg.KafkaBrokers),
		slog.String("topic", event.TopicReindexRequested),
	)
}

// Service exposes the search service, e.g. for the one-shot reindex job.
func (a *App) Service() *service.SearchService {
	return a.service
}

// Publisher returns the Kafka-backed event producer, or nil when Kafka is
// disabled.
func (a *App) Publisher() *event.Producer {
	if a.producer == nil {
		return nil
	}
	return event.NewProducer(a.producer)
}

// Run starts the HTTP server and Kafka consumer, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	// Start HTTP server.
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.cfg.ReindexOnStart {
		runID, err := a.service.StartReindex(ctx)
		if err != nil {
			a.logger.Error("initial reindex not started", slog.String("error", err.Error()))
		} else {
			a.logger.Info("initial reindex started", slog.String("run_id", runID))
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// A background reindex keeps the lifecycle until it ends.
	done := make(chan struct{})
	go func() {
		a.service.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		a.logger.Warn("reindex still running at shutdown")
	}

	errs = append(errs, a.closeResources(shutdownCtx))

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// Close releases connections without serving, for callers that never Run.
func (a *App) Close(ctx context.Context) error {
	if a.service != nil {
		a.service.Wait()
	}
	return a.closeResources(ctx)
}

func (a *App) closeResources(ctx context.Context) error {
	var errs []error
	if a.producer != nil {
		errs = append(errs, a.producer.Close())
	}
	if a.dlq != nil {
		errs = append(errs, a.dlq.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracerShutdown != nil {
		errs = append(errs, a.tracerShutdown(ctx))
	}
	return errors.Join(errs...)
}

