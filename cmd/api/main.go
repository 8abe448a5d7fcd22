package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/orderbatch/internal/api"
	"github.com/timmy/orderbatch/internal/config"
	"github.com/timmy/orderbatch/internal/logger"
	"github.com/timmy/orderbatch/internal/report"
	"github.com/timmy/orderbatch/internal/repository"
	"github.com/timmy/orderbatch/internal/service"
	"github.com/timmy/orderbatch/internal/sink"
	"github.com/timmy/orderbatch/internal/storage"
)

func main() {
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to get database handle")
	}

	var archive *report.ArchivePublisher
	if cfg.Report.Archive.Enabled {
		store, err := storage.NewStorage(&cfg.Storage)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize storage")
		}
		archive = report.NewArchivePublisher(store, cfg.Report.Archive.Key)
	}

	var stats report.StatsQuerier = repository.NewReportRepository(db)
	if cfg.Sinks.ProcessedOrders.Writer == "pgx" && cfg.Sinks.ProcessedOrders.DSN != "" {
		pool, err := sink.OpenPool(context.Background(), sink.PoolConfig{URL: cfg.Sinks.ProcessedOrders.DSN, MaxConns: 2})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to connect to processed_orders database")
		}
		defer pool.Close()
		stats = report.WithConfirmedWrites(stats, sink.NewPGBatchSink(pool))
	}

	queryService := service.NewRunQueryService(
		repository.NewRunRepository(db),
		repository.NewChunkLogRepository(db),
		stats,
		archive,
	)

	router := api.SetupRouter(queryService, sqlDB, &cfg.Server, appLogger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
