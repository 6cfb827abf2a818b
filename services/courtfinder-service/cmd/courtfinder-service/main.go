package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/courtfinder/libs/config"
	"github.com/md-rashed-zaman/courtfinder/libs/db"
	"github.com/md-rashed-zaman/courtfinder/libs/httpx"
	"github.com/md-rashed-zaman/courtfinder/libs/kafkax"
	otelx "github.com/md-rashed-zaman/courtfinder/libs/otel"
	"github.com/md-rashed-zaman/courtfinder/libs/runtime"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/events"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/feed"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/feedcache"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/fetchlog"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/finder"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/handlers"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/metrics"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/settings"
	"github.com/md-rashed-zaman/courtfinder/services/courtfinder-service/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "courtfinder-service")
	port, err := config.Port("PORT", "8090")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	cfg, err := settings.Load()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		panic(err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		panic(err)
	}

	client, err := feed.NewClient(cfg.Feed, logger)
	if err != nil {
		panic(err)
	}

	readyChecks := []runtime.ReadyCheck{
		{Name: "venue", Check: func(context.Context) error { return cfg.Venue.Validate() }},
	}

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		redisDB, err := config.Int("REDIS_DB", 0, 0, 15)
		if err != nil {
			panic(err)
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()
		readyChecks = append(readyChecks, runtime.ReadyCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	var store feedcache.Store
	if rdb != nil {
		store = feedcache.NewRedisStore(rdb)
	} else {
		store = feedcache.NewMemoryStore(cfg.CacheSize, cfg.CacheTTL)
	}
	source := feedcache.New(client, store, feedcache.Options{
		Namespace: client.OrgID(),
		TTL:       cfg.CacheTTL,
		Metrics:   m,
		Logger:    logger,
	})

	var sinks []fetchlog.Recorder
	if dbURL := config.String("DATABASE_URL", ""); dbURL != "" {
		pool, err := db.Open(ctx, dbURL, db.Options{})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()
		sinks = append(sinks, storage.NewFetchLogRepository(pool))
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	}
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		publisher, err := events.NewPublisher(brokers, config.String("KAFKA_FETCH_TOPIC", events.DefaultTopic))
		if err != nil {
			logger.Error("kafka publisher init failed", "err", err)
		} else {
			defer func() { _ = publisher.Close() }()
			sinks = append(sinks, publisher)
			readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
		}
	}
	var recorder fetchlog.Recorder
	if len(sinks) > 0 {
		queue := fetchlog.NewQueue(fetchlog.NewMulti(sinks...), 256, logger)
		queueDone := make(chan struct{})
		go func() {
			queue.Run(ctx)
			close(queueDone)
		}()
		defer func() { <-queueDone }()
		recorder = queue
	} else {
		logger.Info("fetch log disabled (no DATABASE_URL or KAFKA_BROKERS)")
	}

	f, err := finder.New(finder.Config{
		Venue:    cfg.Venue,
		Source:   source,
		OrgID:    client.OrgID(),
		Recorder: recorder,
		Metrics:  m,
		Logger:   logger,
	})
	if err != nil {
		panic(err)
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	handlers.NewAvailabilityHandler(f, logger).Register(mux)

	bodyLimit, err := config.Int("REQUEST_BODY_LIMIT_BYTES", 64<<10, 1, 10<<20)
	if err != nil {
		panic(err)
	}
	requestTimeout := config.Duration("REQUEST_TIMEOUT_SECONDS", 30*time.Second, time.Second)
	limitPerMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 120, 1, 100000)
	if err != nil {
		panic(err)
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods: config.List("CORS_ALLOWED_METHODS", "GET,OPTIONS"),
			AllowedHeaders: config.List("CORS_ALLOWED_HEADERS", "Content-Type,X-Request-Id"),
			MaxAge:         config.Duration("CORS_MAX_AGE_SECONDS", 10*time.Minute, time.Second),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		rateLimit(rdb, limitPerMinute, logger),
		httpx.WithBodyLimit(int64(bodyLimit)),
		httpx.WithTimeout(requestTimeout),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "courtfinder")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting",
			"addr", srv.Addr,
			"venue_timezone", cfg.Venue.Location.String(),
			"org_id", client.OrgID(),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// rateLimit prefers the shared Redis limiter so replicas enforce one budget.
func rateLimit(rdb *redis.Client, perMinute int, logger *slog.Logger) httpx.Middleware {
	if rdb != nil {
		rl := httpx.NewRedisRateLimiter(rdb, perMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "courtfinder:rl"))
		failOpen := config.Bool("RATE_LIMIT_FAIL_OPEN", true)
		return rl.Middleware(logger, failOpen)
	}
	if config.Bool("RATE_LIMIT_DISABLED", false) {
		return nil
	}
	return httpx.NewRateLimiter(perMinute, time.Minute).Middleware()
}
