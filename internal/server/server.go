package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/nstop/reddit-topics/internal/aggregator"
	"github.com/nstop/reddit-topics/internal/config"
	"github.com/nstop/reddit-topics/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Server is the REST transport over the collector and topic aggregator.
type Server struct {
	config      *config.Config
	httpServer  *http.Server
	rateLimiter *rate.Limiter
	collector   domain.Collector
	aggregator  *aggregator.Aggregator

	mu    sync.RWMutex
	ready bool
}

// New creates a server wired to a collector and aggregator.
func New(cfg *config.Config, col domain.Collector, agg *aggregator.Aggregator) *Server {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		config:      cfg,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		collector:   col,
		aggregator:  agg,
	}

	mux := s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// System endpoints (no rate limiting)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/", s.withMiddleware(s.handleIndex))
	mux.HandleFunc("/api/topics", s.withMiddleware(s.handleTopics))
	mux.HandleFunc("/api/topic-latest", s.withMiddleware(s.handleTopicLatest))
	mux.HandleFunc("/api/hot-threads", s.withMiddleware(s.handleHotThreads))
	mux.HandleFunc("/api/post-content", s.withMiddleware(s.handlePostContent))
	mux.HandleFunc("/api/front-page", s.withMiddleware(s.handleFrontPage))
	mux.HandleFunc("/api/subreddit-posts-by-time", s.withMiddleware(s.handleSubredditPostsByTime))
	mux.HandleFunc("/api/subreddit-new-posts", s.withMiddleware(s.handleSubredditNewPosts))
	mux.HandleFunc("/api/subreddit-rising-posts", s.withMiddleware(s.handleSubredditRisingPosts))
	mux.HandleFunc("/api/subreddit-info", s.withMiddleware(s.handleSubredditInfo))

	return mux
}

// SetReady marks the server as ready to serve traffic
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// server fails.
func (s *Server) Start(ctx context.Context) error {
	s.SetReady(true)

	slog.Info("starting server", "addr", s.httpServer.Addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down server")
	return s.httpServer.Shutdown(shutdownCtx)
}
