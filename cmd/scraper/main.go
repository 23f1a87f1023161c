package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nstop/reddit-topics/internal/aggregator"
	"github.com/nstop/reddit-topics/internal/collector"
	"github.com/nstop/reddit-topics/internal/config"
	"github.com/nstop/reddit-topics/internal/dashboard"
	"github.com/nstop/reddit-topics/internal/domain"
	"github.com/nstop/reddit-topics/internal/storage"
	"github.com/nstop/reddit-topics/internal/topics"
)

// One-shot aggregation of every configured topic to NDJSON, with an optional
// chart dashboard over the output.
func main() {
	// 1. Setup
	godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	outFile := os.Getenv("OUTPUT_FILE")
	if outFile == "" {
		outFile = "data/current.json"
	}

	// 2. Optional dashboard
	dashPort := os.Getenv("DASHBOARD_PORT")
	if dashPort != "" {
		go func() {
			logger.Info("starting dashboard", "port", dashPort)
			if err := dashboard.StartServer(outFile, dashPort); err != nil {
				logger.Error("dashboard failed", "err", err)
			}
		}()
	}

	// 3. Load inputs
	mapping, err := topics.Load(cfg.TopicsFile)
	if err != nil {
		logger.Error("failed to load topic mapping", "file", cfg.TopicsFile, "error", err)
		os.Exit(1)
	}

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

	// 4. Concurrency setup
	topicNames := mapping.Topics()
	jobQueue := make(chan string, len(topicNames))
	resultQueue := make(chan domain.PostSummary, 100)
	var workerWg sync.WaitGroup
	var writerWg sync.WaitGroup

	writer := &storage.WriterService{FilePath: outFile}
	writerWg.Add(1)
	go writer.Start(&writerWg, resultQueue)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Topics run sequentially enough with 2 workers; the aggregator fans out
	// per subreddit inside each job.
	numWorkers := 2

	for i := 0; i < numWorkers; i++ {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			for topic := range jobQueue {
				select {
				case <-ctx.Done():
					return
				default:
				}

				result, err := agg.FetchTopic(ctx, topic, domain.ListingHot, 0)
				if err != nil {
					logger.Error("aggregation failed", "topic", topic, "err", err)
					continue
				}
				if ferr := result.FailureErr(); ferr != nil {
					logger.Warn("partial aggregation", "topic", topic, "err", ferr)
				}
				logger.Info("topic aggregated",
					"topic", topic,
					"posts", len(result.Posts),
					"failed_subreddits", len(result.Failures))
				for _, p := range result.Posts {
					resultQueue <- p
				}
			}
		}()
	}

	// 5. Enqueue jobs
	logger.Info("starting aggregation cycle", "topics", len(topicNames))
	for _, t := range topicNames {
		jobQueue <- t
	}
	close(jobQueue)

	// 6. Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	workerWg.Wait()
	close(resultQueue)
	writerWg.Wait()
	logger.Info("aggregation complete", "output", outFile)

	// Keep alive for dashboard
	if dashPort != "" {
		select {}
	}
}
