package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nstop/reddit-topics/internal/aggregator"
	"github.com/nstop/reddit-topics/internal/collector"
	"github.com/nstop/reddit-topics/internal/config"
	"github.com/nstop/reddit-topics/internal/server"
	"github.com/nstop/reddit-topics/internal/topics"
	"golang.org/x/sync/errgroup"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	mapping, err := topics.Load(cfg.TopicsFile)
	if err != nil {
		logger.Error("failed to load topic mapping", "file", cfg.TopicsFile, "error", err)
		os.Exit(1)
	}
	logger.Info("topic mapping loaded", "file", cfg.TopicsFile, "topics", mapping.Len())

	col, err := collector.New(cfg.Collector())
	if err != nil {
		logger.Error("failed to initialize collector", "error", err)
		os.Exit(1)
	}
	logger.Info("collector initialized", "mode", cfg.CollectorMode)

	agg := aggregator.New(col, mapping, aggregator.Options{
		FetchTimeout:  cfg.FetchTimeout,
		MaxConcurrent: cfg.MaxConcurrentFetches,
		DefaultTotal:  cfg.DefaultPostLimit,
	})

	srv := server.New(cfg, col, agg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}
