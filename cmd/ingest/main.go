package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/orderbatch/internal/config"
	"github.com/timmy/orderbatch/internal/engine"
	"github.com/timmy/orderbatch/internal/logger"
	"github.com/timmy/orderbatch/internal/processor"
	"github.com/timmy/orderbatch/internal/report"
	"github.com/timmy/orderbatch/internal/repository"
	"github.com/timmy/orderbatch/internal/service"
	"github.com/timmy/orderbatch/internal/sink"
	"github.com/timmy/orderbatch/internal/source/csvfile"
	"github.com/timmy/orderbatch/internal/storage"
	"gorm.io/gorm"
)

func main() {
	os.Exit(run())
}

func run() int {
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	inputPath := flag.String("input", "", "Order CSV file (default: batch.input_path)")
	chunkSize := flag.Int("chunk-size", 0, "Records per commit (default: batch.chunk_size)")
	skipLimit := flag.Int("skip-limit", -1, "Maximum skipped records (default: batch.skip_limit)")
	workers := flag.Int("workers", 0, "Parallel validators (default: batch.validate_workers)")
	configPath := flag.String("config", "", "Path to config file")
	resumeID := flag.String("resume", "", "Resume the run with this ID instead of starting a new one")
	sample := flag.Bool("sample", false, "Write the sample input file when the input is missing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Error("Failed to load config")
		return 2
	}
	if *inputPath != "" {
		cfg.Batch.InputPath = *inputPath
	}
	if *chunkSize != 0 {
		cfg.Batch.ChunkSize = *chunkSize
	}
	if *skipLimit >= 0 {
		cfg.Batch.SkipLimit = *skipLimit
	}
	if *workers != 0 {
		cfg.Batch.ValidateWorkers = *workers
	}
	if *sample {
		cfg.Batch.SampleIfMissing = true
	}

	if err := cfg.Batch.Validate(); err != nil {
		appLogger.WithError(err).Error("Invalid batch configuration")
		return 2
	}
	if err := cfg.Report.Webhook.Validate(); err != nil {
		appLogger.WithError(err).Error("Invalid report configuration")
		return 2
	}
	loc, _ := cfg.Batch.Location()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Error("Failed to initialize database")
		return 1
	}

	committer, confirmed, closeSinks, err := buildSinks(ctx, cfg, db)
	if err != nil {
		appLogger.WithError(err).Error("Failed to initialize sinks")
		return 1
	}
	defer closeSinks()

	publishers, err := buildPublishers(ctx, cfg)
	if err != nil {
		appLogger.WithError(err).Error("Failed to initialize report publishers")
		return 1
	}

	batchService := service.NewBatchService(
		repository.NewRunRepository(db),
		repository.NewChunkLogRepository(db),
		committer,
		processor.New(processor.WithLocation(loc)),
		report.NewReporter(
			report.WithConfirmedWrites(repository.NewReportRepository(db), confirmed),
			publishers...,
		),
		appLogger,
		engine.Config{
			ChunkSize:       cfg.Batch.ChunkSize,
			SkipLimit:       cfg.Batch.SkipLimit,
			ValidateWorkers: cfg.Batch.ValidateWorkers,
		},
	)

	var out *service.RunOutcome
	if *resumeID != "" {
		appLogger.WithField(logger.FieldRunID, *resumeID).Info("Resuming batch run")
		out, err = batchService.Resume(ctx, *resumeID)
	} else {
		if err := ensureInput(cfg.Batch.InputPath, cfg.Batch.SampleIfMissing); err != nil {
			appLogger.WithError(err).Error("Failed to prepare input")
			return 1
		}
		out, err = batchService.Run(ctx, cfg.Batch.InputPath)
	}

	if out == nil {
		appLogger.WithError(err).Error("Batch run did not start")
		return 2
	}
	if err != nil {
		appLogger.WithError(err).WithField(logger.FieldRunID, out.Result.RunID).
			Error("Batch run failed; resume with -resume " + out.Result.RunID)
		return 1
	}
	return 0
}

// ensureInput writes the sample order file when path does not exist and
// sampling is enabled.
func ensureInput(path string, sampleIfMissing bool) error {
	if _, err := os.Stat(path); err == nil || !errors.Is(err, os.ErrNotExist) || !sampleIfMissing {
		return nil
	}
	if err := csvfile.WriteSample(path); err != nil {
		return err
	}
	logger.Info("Input %s not found, wrote %d sample orders", path, len(csvfile.SampleRows))
	return nil
}

// buildSinks creates the orders and processed_orders sinks, in commit order.
// The returned counter is non-nil when processed_orders is written through
// pgx and must be counted there.
func buildSinks(ctx context.Context, cfg *config.Config, db *gorm.DB) (*sink.Set, report.ConfirmedCounter, func(), error) {
	set := sink.NewSet().Add(sink.NameOrders, sink.NewOrdersSink(db))

	switch cfg.Sinks.ProcessedOrders.Writer {
	case "gorm", "":
		set.Add(sink.NameProcessedOrders, sink.NewProcessedOrdersSink(db))
		return set, nil, func() {}, nil
	case "pgx":
		pg, closePool, err := openPGSink(ctx, cfg, cfg.Batch.ValidateWorkers+1)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			closePool()
			return nil, nil, nil, err
		}
		set.Add(sink.NameProcessedOrders, pg)
		return set, pg, closePool, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown processed_orders writer %q", cfg.Sinks.ProcessedOrders.Writer)
	}
}

// openPGSink connects the pgx processed_orders writer to its own DSN or, when
// none is set, to the main postgres database.
func openPGSink(ctx context.Context, cfg *config.Config, maxConns int) (*sink.PGBatchSink, func(), error) {
	url := cfg.Sinks.ProcessedOrders.DSN
	if url == "" {
		if cfg.Database.Driver != "postgres" {
			return nil, nil, fmt.Errorf("pgx writer needs a postgres database or sinks.processed_orders.dsn")
		}
		url = cfg.Database.PostgresURL()
	}
	pool, err := sink.OpenPool(ctx, sink.PoolConfig{URL: url, MaxConns: int32(maxConns)})
	if err != nil {
		return nil, nil, err
	}
	return sink.NewPGBatchSink(pool), pool.Close, nil
}

// buildPublishers returns the report destinations enabled in cfg. The log
// report is always first.
func buildPublishers(ctx context.Context, cfg *config.Config) ([]report.Publisher, error) {
	publishers := []report.Publisher{report.NewLogPublisher()}

	if cfg.Report.OutputDir != "" {
		publishers = append(publishers, report.NewFilePublisher(cfg.Report.OutputDir))
	}
	if cfg.Report.Webhook.Enabled {
		publishers = append(publishers, report.NewWebhookPublisher(&cfg.Report.Webhook))
	}
	if cfg.Report.Archive.Enabled {
		store, err := storage.NewStorage(&cfg.Storage)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		publishers = append(publishers, report.NewArchivePublisher(store, cfg.Report.Archive.Key))
	}
	return publishers, nil
}
