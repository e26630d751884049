package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/stackit/stackit/internal/cache"
	"github.com/stackit/stackit/internal/db"
	"github.com/stackit/stackit/internal/reconcile"
	"github.com/stackit/stackit/pkg/config"
	"github.com/stackit/stackit/pkg/logging"
)

func main() {
	seed := flag.Bool("seed", false, "insert the default tag set after migrating")
	audit := flag.Bool("reconcile", false, "audit vote and answer counters after migrating")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall migration timeout")
	flag.Parse()

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
	logger.Info("Starting StackIt migrations")

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := db.Migrate(ctx, database.DB); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}
	logger.Info("Schema is up to date")

	if *seed {
		if err := db.Seed(ctx, database.DB); err != nil {
			logger.Fatal("Seeding failed", zap.Error(err))
		}
		logger.Info("Default tags seeded")
	}

	if *audit {
		redisCache, err := cache.New(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisCache.Close()

		auditor := db.NewReconcileRepository(db.NewRepository(database.DB))
		report, err := reconcile.New(auditor, redisCache, &cfg.Reconcile).RunOnce(ctx)
		if err != nil {
			logger.Fatal("Counter audit failed", zap.Error(err))
		}
		logger.Info("Counter audit finished",
			zap.Int("drifted", len(report.Drift)),
			zap.Int("repaired", report.Repaired),
			zap.Int("failed", report.Failed))
	}
}
