package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	crmsyncapp "github.com/fintrack/backend/internal/application/crmsync"
	identityapp "github.com/fintrack/backend/internal/application/identity"
	"github.com/fintrack/backend/internal/infrastructure/auth"
	"github.com/fintrack/backend/internal/infrastructure/cache"
	"github.com/fintrack/backend/internal/infrastructure/config"
	"github.com/fintrack/backend/internal/infrastructure/crm"
	"github.com/fintrack/backend/internal/infrastructure/logger"
	"github.com/fintrack/backend/internal/infrastructure/persistence"
	"github.com/fintrack/backend/internal/infrastructure/scheduler"
	"github.com/fintrack/backend/internal/infrastructure/telemetry"
	"github.com/fintrack/backend/internal/infrastructure/webhook"
	"github.com/fintrack/backend/internal/interfaces/http/handler"
	"github.com/fintrack/backend/internal/interfaces/http/middleware"
	"github.com/fintrack/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			FinTrack CRM Sync API
//	@version		1.0
//	@description	Identity webhook intake and CRM contact synchronization
//	@BasePath		/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	shutdownTimeout         = 30 * time.Second
	pendingMetricsInterval  = time.Minute
	telemetryShutdownBudget = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	export := telemetry.Export{
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceName:       serviceName,
		ServiceVersion:    version,
	}

	// OTLP log export is teed onto the stdout core once the provider exists
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Export:  export,
		Enabled: cfg.Telemetry.LogsEnabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	if logProvider.IsEnabled() {
		log, err = logger.New(logCfg, logProvider.ZapCore(serviceName, logger.ParseLevel(cfg.Log.Level)))
		if err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting FinTrack CRM sync",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Export:        export,
		Enabled:       cfg.Telemetry.Enabled,
		SamplingRatio: cfg.Telemetry.SamplingRatio,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Export:         export,
		Enabled:        cfg.Telemetry.MetricsEnabled,
		ExportInterval: cfg.Telemetry.MetricsInterval,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer shutdownTelemetry(log, logProvider, meterProvider, tracerProvider)

	syncMetrics, err := telemetry.NewSyncMetrics(meterProvider.Meter("fintrack/crmsync"), log)
	if err != nil {
		log.Fatal("Failed to create sync metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log)
	if err := dbTracing.Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Lock and dedupe stores
	stores, err := cache.NewStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).Create()
	if err != nil {
		log.Fatal("Failed to initialize lock and dedupe stores", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing stores", zap.Error(err))
		}
	}()
	log.Info("Lock and dedupe stores ready", zap.String("backend", stores.Backend))

	// CRM client
	contacts, err := crm.NewContactClient(crm.Config{
		BaseURL:     cfg.CRM.BaseURL,
		APIKey:      cfg.CRM.APIKey,
		Timeout:     cfg.CRM.Timeout,
		MaxBodySize: cfg.CRM.MaxBodySize,
	}, crm.WithMetrics(syncMetrics))
	if err != nil {
		log.Fatal("Failed to create CRM client", zap.Error(err))
	}

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)

	// Background executor for post-signup sync
	executor := scheduler.NewExecutor(scheduler.Config{
		Workers:    cfg.Sync.Workers,
		QueueSize:  cfg.Sync.QueueSize,
		JobTimeout: cfg.Sync.JobTimeout,
	}, log)
	if err := executor.Start(ctx); err != nil {
		log.Fatal("Failed to start sync executor", zap.Error(err))
	}

	// Application services
	reconciler := crmsyncapp.NewReconciliationService(crmsyncapp.ReconciliationServiceConfig{
		Users:   userRepo,
		Logs:    syncLogRepo,
		Gateway: contacts,
		Locks:   stores.Locks,
		Metrics: syncMetrics,
		LockTTL: cfg.Sync.LockTTL,
		Logger:  log,
	})
	backfill := crmsyncapp.NewBackfillService(crmsyncapp.BackfillServiceConfig{
		Users:        userRepo,
		Reconciler:   reconciler,
		DefaultLimit: cfg.Sync.BulkDefaultLimit,
		MaxLimit:     cfg.Sync.BulkMaxLimit,
		CallDelay:    cfg.Sync.CallDelay,
		Logger:       log,
	})
	statusService := crmsyncapp.NewStatusService(userRepo, syncLogRepo, log)
	signupSync := crmsyncapp.NewSignupSyncScheduler(executor, reconciler, log)
	lifecycle := identityapp.NewLifecycleService(userRepo, signupSync, log)

	var verifier identityapp.SignatureVerifier
	if cfg.Webhook.SigningSecret != "" {
		v, err := webhook.NewVerifier(cfg.Webhook.SigningSecret, cfg.Webhook.Tolerance)
		if err != nil {
			log.Fatal("Invalid webhook signing secret", zap.Error(err))
		}
		verifier = v
	}
	if cfg.Webhook.AllowUnsigned {
		log.Warn("Webhook signature verification is disabled")
	}
	webhookService := identityapp.NewWebhookService(identityapp.WebhookServiceConfig{
		Verifier:      verifier,
		Lifecycle:     lifecycle,
		Processed:     stores.Idempotency,
		Metrics:       syncMetrics,
		AllowUnsigned: cfg.Webhook.AllowUnsigned,
		DedupeTTL:     cfg.Webhook.DedupeTTL,
		Logger:        log,
	})

	metricsCtx, stopMetrics := context.WithCancel(ctx)
	defer stopMetrics()
	syncMetrics.StartPeriodicCollection(metricsCtx, userRepo, pendingMetricsInterval)

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine, err := router.NewEngine(router.Config{
		Logger:  log,
		Tokens:  auth.NewJWTService(cfg.JWT),
		Webhook: handler.NewWebhookHandler(webhookService, cfg.Webhook.MaxPayloadSize),
		Sync:    handler.NewSyncHandler(reconciler, backfill, statusService),
		Health:  handler.NewHealthHandler(db),
		CORS: middleware.CORSConfig{
			AllowOrigins:  cfg.HTTP.CORSAllowOrigins,
			AllowMethods:  cfg.HTTP.CORSAllowMethods,
			AllowHeaders:  cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders: []string{middleware.RequestIDHeader},
			MaxAge:        12 * time.Hour,
		},
		Tracing: middleware.TracingConfig{
			ServiceName: serviceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	// Drain queued signup syncs before the stores and database close
	if err := executor.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping sync executor", zap.Error(err))
	}
	syncMetrics.Stop()

	log.Info("Server exited gracefully")
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func shutdownTelemetry(log *zap.Logger, providers ...shutdowner) {
	ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownBudget)
	defer cancel()
	for _, p := range providers {
		if err := p.Shutdown(ctx); err != nil {
			log.Error("Telemetry shutdown failed", zap.Error(err))
		}
	}
}
