package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/nstop/reddit-topics/internal/aggregator"
	"github.com/nstop/reddit-topics/internal/domain"
)

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}

// handleReady handles GET /ready
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()

	if !ready {
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "not_ready",
			Timestamp: time.Now().UTC(),
			Reason:    "service is initializing",
		})
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC(),
	})
}

// handleIndex handles GET / with a route listing. The mux routes every
// unmatched path here, so anything but the exact root is a 404.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, r, http.StatusNotFound, ErrCodeInvalidRequest, "Not found", false, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"service": "reddit-topics",
		"endpoints": map[string]any{
			"rest_api": map[string]string{
				"hot_threads":       "/api/hot-threads",
				"post_content":      "/api/post-content",
				"front_page":        "/api/front-page",
				"subreddit_by_time": "/api/subreddit-posts-by-time",
				"subreddit_new":     "/api/subreddit-new-posts",
				"subreddit_rising":  "/api/subreddit-rising-posts",
				"subreddit_info":    "/api/subreddit-info",
				"topic_latest":      "/api/topic-latest",
				"topics":            "/api/topics",
			},
			"utilities": map[string]string{
				"health":  "/health",
				"ready":   "/ready",
				"metrics": "/metrics",
			},
		},
	})
}

// handleTopics handles GET /api/topics
func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Use GET", false, nil)
		return
	}

	names := s.aggregator.Topics()
	respondJSON(w, http.StatusOK, TopicsResponse{Topics: names, TotalCount: len(names)})
}

// handleTopicLatest handles POST /api/topic-latest
func (s *Server) handleTopicLatest(w http.ResponseWriter, r *http.Request) {
	var req TopicLatestRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	if req.Topic == "" {
		s.writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "topic is required", false, nil)
		return
	}
	if req.Kind == "" {
		req.Kind = string(domain.ListingHot)
	}
	if req.Limit <= 0 {
		req.Limit = 50
	}

	kind, err := domain.ParseListingKind(req.Kind)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), false, nil)
		return
	}

	result, err := s.aggregator.FetchTopic(r.Context(), req.Topic, kind, req.PerSubredditLimit)
	if err != nil {
		switch {
		case errors.Is(err, aggregator.ErrUnknownTopic):
			s.writeError(w, r, http.StatusBadRequest, ErrCodeUnknownTopic, err.Error(), false,
				map[string]interface{}{"available_topics": s.aggregator.Topics()})
		case errors.Is(err, aggregator.ErrDeadline):
			s.writeError(w, r, http.StatusGatewayTimeout, ErrCodeDeadlineExceeded, err.Error(), true, nil)
		default:
			s.writeError(w, r, http.StatusInternalServerError, ErrCodeInternalError, err.Error(), true, nil)
		}
		return
	}

	posts := result.Posts
	if len(posts) > req.Limit {
		posts = posts[:req.Limit]
	}

	respondJSON(w, http.StatusOK, TopicLatestResponse{
		Topic:             result.Topic,
		Kind:              result.Kind,
		TotalPosts:        len(posts),
		SubredditsQueried: result.SubredditsQueried,
		Posts:             posts,
		Failures:          result.Failures,
	})
}

// handleHotThreads handles POST /api/hot-threads
func (s *Server) handleHotThreads(w http.ResponseWriter, r *http.Request) {
	s.handleListing(w, r, domain.ListingHot)
}

// handleSubredditNewPosts handles POST /api/subreddit-new-posts
func (s *Server) handleSubredditNewPosts(w http.ResponseWriter, r *http.Request) {
	s.handleListing(w, r, domain.ListingNew)
}

// handleSubredditRisingPosts handles POST /api/subreddit-rising-posts
func (s *Server) handleSubredditRisingPosts(w http.ResponseWriter, r *http.Request) {
	s.handleListing(w, r, domain.ListingRising)
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request, kind domain.ListingKind) {
	var req SubredditPostsRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	if req.Subreddit == "" {
		s.writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "subreddit is required", false, nil)
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	posts, err := s.collector.FetchPosts(r.Context(), req.Subreddit, kind, req.Limit)
	if err != nil {
		s.writeFetchError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, SubredditPostsResponse{Subreddit: req.Subreddit, Posts: posts})
}

// handleSubredditPostsByTime handles POST /api/subreddit-posts-by-time
func (s *Server) handleSubredditPostsByTime(w http.ResponseWriter, r *http.Request) {
	var req SubredditPostsByTimeRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	if req.Subreddit == "" {
		s.writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "subreddit is required", false, nil)
		return
	}
	if req.TimePeriod == "" {
		req.TimePeriod = string(domain.TimeWeek)
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	window, err := domain.ParseTimeFilter(req.TimePeriod)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), false, nil)
		return
	}

	posts, err := s.collector.FetchTopPosts(r.Context(), req.Subreddit, window, req.Limit)
	if err != nil {
		s.writeFetchError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, SubredditPostsResponse{Subreddit: req.Subreddit, Posts: posts})
}

// handleFrontPage handles POST /api/front-page
func (s *Server) handleFrontPage(w http.ResponseWriter, r *http.Request) {
	var req FrontPageRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	if req.Sort == "" {
		req.Sort = string(domain.ListingHot)
	}
	if req.TimeFilter == "" {
		req.TimeFilter = string(domain.TimeDay)
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	kind, err := domain.ParseListingKind(req.Sort)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), false, nil)
		return
	}
	window, err := domain.ParseTimeFilter(req.TimeFilter)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), false, nil)
		return
	}

	posts, err := s.collector.FetchFrontPage(r.Context(), kind, window, req.Limit)
	if err != nil {
		s.writeFetchError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, FrontPageResponse{Sort: req.Sort, TimeFilter: req.TimeFilter, Posts: posts})
}

// handlePostContent handles POST /api/post-content
func (s *Server) handlePostContent(w http.ResponseWriter, r *http.Request) {
	var req PostContentRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	if req.PostID == "" {
		s.writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "post_id is required", false, nil)
		return
	}
	if req.CommentLimit <= 0 {
		req.CommentLimit = 20
	}
	if req.CommentDepth <= 0 {
		req.CommentDepth = 3
	}

	detail, err := s.collector.FetchPost(r.Context(), req.PostID, req.CommentLimit, req.CommentDepth)
	if err != nil {
		s.writeFetchError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

// handleSubredditInfo handles POST /api/subreddit-info
func (s *Server) handleSubredditInfo(w http.ResponseWriter, r *http.Request) {
	var req SubredditInfoRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	if req.Subreddit == "" {
		s.writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "subreddit is required", false, nil)
		return
	}

	info, err := s.collector.FetchSubredditInfo(r.Context(), req.Subreddit)
	if err != nil {
		s.writeFetchError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// decodePost enforces the POST method and decodes the JSON request body.
// Writes the error response itself and returns false when the request is bad.
func (s *Server) decodePost(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		s.writeError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Use POST", false, nil)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body", false, nil)
		return false
	}
	return true
}

// writeFetchError maps upstream fetch failures onto HTTP statuses.
func (s *Server) writeFetchError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.writeError(w, r, http.StatusGatewayTimeout, ErrCodeDeadlineExceeded, err.Error(), true, nil)
		return
	}

	var fe *domain.FetchError
	if errors.As(err, &fe) {
		retryable := fe.Kind == domain.FetchRateLimited || fe.Kind == domain.FetchNetwork
		s.writeError(w, r, http.StatusBadGateway, ErrCodeUpstreamError, err.Error(), retryable,
			map[string]interface{}{"kind": string(fe.Kind), "subreddit": fe.Subreddit})
		return
	}

	s.writeError(w, r, http.StatusInternalServerError, ErrCodeInternalError, err.Error(), true, nil)
}
