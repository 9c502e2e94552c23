package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/receipts-extractor/constants"
	"github.com/joseph-ayodele/receipts-extractor/internal/common"
	"github.com/joseph-ayodele/receipts-extractor/internal/core"
	"github.com/joseph-ayodele/receipts-extractor/internal/core/async"
	"github.com/joseph-ayodele/receipts-extractor/internal/ingest"
	"github.com/joseph-ayodele/receipts-extractor/internal/repository"
	"github.com/joseph-ayodele/receipts-extractor/internal/server"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional .env file")
	flush := flag.Duration("flush", time.Minute, "how often finished documents are saved as a run")
	flag.Parse()

	if err := common.LoadDotEnv(*envFile); err != nil {
		slog.Error("load env file", "error", err)
		os.Exit(2)
	}
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	logger, closer := common.NewLogger(cfg.Log, os.Stdout)
	defer closer.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *flush, logger); err != nil {
		logger.Error("receiptsd.exit", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, flush time.Duration, logger *slog.Logger) error {
	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("db.close.failed", "error", err)
		}
	}()
	if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
		return err
	}
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	runs := repository.NewRunRepository(db, logger)

	proc, err := core.NewProcessorFromConfig(cfg, nil, logger)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Pipeline.InboxDir, 0o755); err != nil {
		return err
	}
	paths, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.Pipeline.InboxDir},
		AllowedExts: constants.AllowedExtensions,
		InitialScan: true,
		Debounce:    cfg.Pipeline.Debounce,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	go func() {
		for err := range watchErrs {
			logger.Warn("watcher.error", "error", err)
		}
	}()

	// gRPC server
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return err
	}
	srv := server.New(logger, server.NewReviewService(runs, proc.Review(), logger))
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Serve(ctx, lis) }()
	go srv.WatchHealth(ctx, 30*time.Second, func(ctx context.Context) error {
		return db.HealthCheck(ctx, 3*time.Second)
	})

	daemon := core.NewDaemon(logger,
		ingest.NewFSIngestor(logger, ingest.WithHashIndex(runs)),
		proc,
		cfg.Pipeline.InboxDir,
		core.WithDaemonStore(runs),
		core.WithFlushInterval(flush),
		core.WithQueueOptions(
			async.WithWorkers(cfg.Pipeline.Workers),
			async.WithQueueSize(cfg.Pipeline.QueueSize),
			async.WithProcessTimeout(cfg.Pipeline.ProcessTimeout),
		),
	)
	logger.Info("receiptsd.started", "inbox", cfg.Pipeline.InboxDir, "grpc_addr", cfg.Server.GRPCAddr, "db", db.Dialect())
	runErr := daemon.Run(ctx, paths)

	// the watcher can stop on its own; take the server down with it
	if ctx.Err() == nil {
		srv.Stop()
	}
	return errors.Join(runErr, <-srvErr)
}
