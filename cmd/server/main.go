package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	docapp "github.com/smberp/backend/internal/application/document"
	"github.com/smberp/backend/internal/domain/document"
	"github.com/smberp/backend/internal/domain/shared"
	"github.com/smberp/backend/internal/infrastructure/auth"
	"github.com/smberp/backend/internal/infrastructure/cache"
	"github.com/smberp/backend/internal/infrastructure/config"
	"github.com/smberp/backend/internal/infrastructure/event"
	"github.com/smberp/backend/internal/infrastructure/logger"
	"github.com/smberp/backend/internal/infrastructure/persistence"
	"github.com/smberp/backend/internal/infrastructure/persistence/models"
	"github.com/smberp/backend/internal/infrastructure/telemetry"
	"github.com/smberp/backend/internal/interfaces/http/handler"
	"github.com/smberp/backend/internal/interfaces/http/middleware"
	"github.com/smberp/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const maxRequestBodyBytes = 1 << 20

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting ERP posting service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry
	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	postingMetrics, err := telemetry.NewPostingMetrics(meterProvider.Meter("github.com/smberp/backend/posting"))
	if err != nil {
		log.Fatal("Failed to register posting metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if db.Driver == "sqlite" {
		// Postgres schemas are owned by cmd/migrate
		if err := db.DB.AutoMigrate(&models.DocumentModel{}); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	log.Info("Database connected", zap.String("driver", db.Driver))

	// Events
	eventBus := event.NewInMemoryEventBus(log)
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Event, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()

	auditHandler := event.NewIdempotentHandler(
		docapp.NewPostingAuditHandler(log),
		idempotencyStore,
		log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: true}),
	)
	eventBus.Subscribe(auditHandler, document.EventTypeDocumentPosted, document.EventTypeDocumentDeleted)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Application
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	documentService := docapp.NewService(documentRepo, eventBus, postingMetrics, log, cfg.Posting)
	jwtService := auth.NewJWTService(cfg.JWT)

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORS(middleware.CORSConfigFromHTTP(cfg.HTTP)))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(meterProvider.Meter("github.com/smberp/backend/http")))
	engine.Use(middleware.BodyLimit(maxRequestBodyBytes))

	systemHandler := handler.NewSystemHandler(cfg.App.Name, db)
	engine.GET("/health", systemHandler.Health)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"), router.WithMiddleware(
		middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			JWTService: jwtService,
			SkipPaths:  []string{"/api/v1/ping"},
			Logger:     log,
		}),
		middleware.TracingAttributeInjector(),
	))

	bulkLimiter := middleware.NewRateLimiter(cfg.Posting.BulkRateLimit, cfg.Posting.BulkRateWindow)
	documentRoutes := handler.NewDocumentHandler(documentService,
		handler.WithBulkMiddleware(middleware.RateLimit(bulkLimiter)),
	).Routes()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	r.Register(documentRoutes).Register(systemRoutes)
	r.Setup()

	// Unauthenticated: registered after Setup, JWT skips it by path
	engine.GET(r.BasePath()+"/ping", systemHandler.Ping)

	for _, route := range documentRoutes.Routes() {
		log.Debug("Route registered", zap.String("method", route.Method), zap.String("path", r.BasePath()+route.Path))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop event bus", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shutdown meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shutdown tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
