package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/stackit/stackit/internal/api"
	"github.com/stackit/stackit/internal/auth"
	"github.com/stackit/stackit/internal/cache"
	"github.com/stackit/stackit/internal/db"
	"github.com/stackit/stackit/internal/engine"
	"github.com/stackit/stackit/internal/models"
	"github.com/stackit/stackit/internal/moderation"
	"github.com/stackit/stackit/internal/reconcile"
	"github.com/stackit/stackit/pkg/config"
	"github.com/stackit/stackit/pkg/logging"
	"github.com/stackit/stackit/pkg/telemetry"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting StackIt API Server")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	redisCache, err := cache.New(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	tagCache, err := cache.NewLRU[[]models.Tag](cfg.Cache.LRUSize, cfg.Cache.TagTTL)
	if err != nil {
		logger.Fatal("Failed to create tag cache", zap.Error(err))
	}

	tokens, err := auth.NewManager(&cfg.Auth)
	if err != nil {
		logger.Fatal("Failed to create token manager", zap.Error(err))
	}

	filter := moderation.NewFilter(cfg.Moderation.ExtraWords)
	eng := engine.New(db.NewStore(database.DB), redisCache, filter, &cfg.Engine)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	if cfg.Reconcile.Interval > 0 {
		auditor := db.NewReconcileRepository(db.NewRepository(database.DB))
		reconciler := reconcile.New(auditor, redisCache, &cfg.Reconcile)
		go func() {
			if err := reconciler.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Reconciler stopped", zap.Error(err))
			}
		}()
	}

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	api.NewRouter(api.Deps{
		DB:          database,
		Cache:       redisCache,
		Engine:      eng,
		Auth:        tokens,
		Filter:      filter,
		Renderer:    moderation.NewRenderer(),
		TagCache:    tagCache,
		CacheConfig: cfg.Cache,
		CORSOrigins: cfg.Server.CORSOrigins,
		Metrics:     cfg.Telemetry.Enabled && cfg.Telemetry.PrometheusEnabled,
	}).SetupRoutes(router)

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopBackground()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
