package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fdk/resource-service/internal/api"
	"github.com/fdk/resource-service/internal/api/handlers"
	"github.com/fdk/resource-service/internal/graph"
	"github.com/fdk/resource-service/internal/ingest"
	"github.com/fdk/resource-service/internal/metrics"
	"github.com/fdk/resource-service/internal/rdf"
	"github.com/fdk/resource-service/internal/repository"
	"github.com/fdk/resource-service/internal/scheduler"
	"github.com/fdk/resource-service/internal/services"
	"github.com/fdk/resource-service/pkg/config"
	"github.com/fdk/resource-service/pkg/database"
	"github.com/fdk/resource-service/pkg/logger"

	_ "github.com/fdk/resource-service/docs"
)

// @title           FDK Resource Service API
// @version         1.0
// @description     Stores harvested RDF resources and builds union graphs over them.

// @contact.name   FDK Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-KEY

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Initialize logger
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("Starting resource service",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
		zap.Bool("kafka_enabled", cfg.Kafka.Enabled),
		zap.Bool("processor_enabled", cfg.UnionGraph.ProcessorEnabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.Open(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if !database.IsPostgres(db) {
		// a local SQLite store has no separate migrate step
		if err := repository.Migrate(db); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database handle", zap.Error(err))
	}
	log.Info("Database connected successfully")

	m := metrics.New(nil)

	// Webhook delivery goes through asynq when redis is configured
	var enqueuer services.TaskEnqueuer
	if cfg.Webhook.Async && cfg.RedisAddr != "" {
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer client.Close()
		enqueuer = client
	}
	notifier := services.NewWebhookNotifier(enqueuer,
		services.NewHTTPWebhookSender(cfg.Webhook.Timeout, m),
		services.WebhookOptions{MaxRetry: cfg.Webhook.MaxRetry, Timeout: cfg.Webhook.Timeout},
	)

	// Initialize repositories and services
	orderRepo := repository.NewOrderRepository(db)
	resourceRepo := repository.NewResourceRepository(db)
	orderSvc := services.NewOrderService(orderRepo, notifier, m)
	resourceSvc := services.NewResourceService(resourceRepo, m)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.UnionGraph.ProcessorEnabled {
		proc := scheduler.NewProcessor(orderRepo,
			graph.NewBuilder(resourceRepo, cfg.UnionGraph.ResourceBatchSize),
			notifier, m,
			scheduler.Options{
				InstanceID:         cfg.UnionGraph.InstanceID,
				PollInterval:       cfg.UnionGraph.PollInterval,
				LockTimeout:        cfg.UnionGraph.LockTimeout,
				StaleSweepInterval: cfg.UnionGraph.StaleSweepInterval,
				TTLSweepInterval:   cfg.UnionGraph.TTLSweepInterval,
				MaxConcurrent:      cfg.UnionGraph.MaxConcurrent,
			},
		)
		g.Go(func() error { return proc.Run(gctx) })
	}

	var breakers *handlers.CircuitBreakersHandler
	if cfg.Kafka.Enabled {
		mgr := ingest.NewManager(cfg.Breaker, ingest.BreakerNames(), m)
		listeners, err := ingest.NewKafkaListeners(cfg.Kafka, ingest.NewHandler(resourceSvc, rdf.NewConverter()), mgr, m)
		if err != nil {
			log.Fatal("Failed to create kafka listeners", zap.Error(err))
		}
		g.Go(func() error { return mgr.Run(gctx) })
		for _, l := range listeners {
			g.Go(func() error {
				// a dead consumer shows up as not running in the breaker status
				if err := l.Run(gctx); err != nil {
					log.Error("listener stopped with error", zap.String("topic", l.Topic()), zap.Error(err))
				}
				return nil
			})
		}
		breakers = handlers.NewCircuitBreakersHandler(mgr)
	}

	// Create router with dependencies
	router := api.NewRouter(api.Dependencies{
		APIKey:           cfg.API.Key,
		RateLimitRPS:     cfg.API.RateLimitRPS,
		RateLimitBurst:   cfg.API.RateLimitBurst,
		TrustedProxyHops: cfg.API.TrustedProxyHops,
		HealthHandler:    handlers.NewHealthHandler(sqlDB),
		UnionGraphsHandler: handlers.NewUnionGraphsHandler(orderSvc, handlers.UnionGraphFeatures{
			ResetEnabled:  cfg.UnionGraph.ResetEnabled,
			DeleteEnabled: cfg.UnionGraph.DeleteEnabled,
		}),
		ResourcesHandler:       handlers.NewResourcesHandler(resourceSvc),
		CircuitBreakersHandler: breakers,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	g.Go(func() error {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown started")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("service stopped with error", zap.Error(err))
	} else {
		log.Info("service exited gracefully")
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("close database failed", zap.Error(err))
	}
}
