package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nstop/reddit-topics/internal/aggregator"
	"github.com/nstop/reddit-topics/internal/config"
	"github.com/nstop/reddit-topics/internal/domain"
	"github.com/nstop/reddit-topics/internal/topics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCollector serves canned data for handler tests.
type stubCollector struct {
	posts   map[string][]domain.PostSummary
	fetchEr error
}

func (c *stubCollector) FetchPosts(_ context.Context, subreddit string, _ domain.ListingKind, limit int) ([]domain.PostSummary, error) {
	if c.fetchEr != nil {
		return nil, c.fetchEr
	}
	posts := c.posts[subreddit]
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (c *stubCollector) FetchTopPosts(ctx context.Context, subreddit string, _ domain.TimeFilter, limit int) ([]domain.PostSummary, error) {
	return c.FetchPosts(ctx, subreddit, domain.ListingTop, limit)
}

func (c *stubCollector) FetchFrontPage(ctx context.Context, kind domain.ListingKind, _ domain.TimeFilter, limit int) ([]domain.PostSummary, error) {
	return c.FetchPosts(ctx, "frontpage", kind, limit)
}

func (c *stubCollector) FetchPost(_ context.Context, postID string, _, _ int) (*domain.PostDetail, error) {
	if c.fetchEr != nil {
		return nil, c.fetchEr
	}
	return &domain.PostDetail{
		PostSummary: domain.PostSummary{ID: postID, Title: "stub post"},
		Body:        "stub body",
		Comments:    []domain.Comment{{Author: "alice", Score: 1, Body: "hi"}},
	}, nil
}

func (c *stubCollector) FetchSubredditInfo(_ context.Context, subreddit string) (*domain.SubredditInfo, error) {
	if c.fetchEr != nil {
		return nil, c.fetchEr
	}
	return &domain.SubredditInfo{Name: subreddit, Subscribers: 100}, nil
}

func newTestServer(t *testing.T, col domain.Collector) (*Server, http.Handler) {
	t.Helper()

	mapping, err := topics.FromMap(map[string][]string{
		"programming": {"golang", "programming"},
	})
	require.NoError(t, err)

	agg := aggregator.New(col, mapping, aggregator.Options{
		FetchTimeout:  time.Second,
		MaxConcurrent: 2,
		DefaultTotal:  50,
	})

	srv := New(config.Default(), col, agg)
	srv.SetReady(true)
	return srv, srv.setupRoutes()
}

func defaultStub() *stubCollector {
	return &stubCollector{
		posts: map[string][]domain.PostSummary{
			"golang": {
				{ID: "a1", Title: "first", Subreddit: "golang", Score: 100, Created: time.Unix(1748000000, 0)},
				{ID: "a2", Title: "second", Subreddit: "golang", Score: 50, Created: time.Unix(1748000100, 0)},
			},
			"programming": {
				{ID: "b1", Title: "third", Subreddit: "programming", Score: 75, Created: time.Unix(1748000200, 0)},
			},
			"frontpage": {
				{ID: "f1", Title: "front", Subreddit: "popular", Score: 9000},
			},
		},
	}
}

func postJSON(t *testing.T, handler http.Handler, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	_, handler := newTestServer(t, defaultStub())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestReadyEndpoint(t *testing.T) {
	srv, handler := newTestServer(t, defaultStub())

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	srv.SetReady(false)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIndexRouteListing(t *testing.T) {
	_, handler := newTestServer(t, defaultStub())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/topic-latest")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/no-such-path", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTopicsEndpoint(t *testing.T) {
	_, handler := newTestServer(t, defaultStub())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/topics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TopicsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"programming"}, resp.Topics)
	assert.Equal(t, 1, resp.TotalCount)
}

func TestTopicLatest(t *testing.T) {
	_, handler := newTestServer(t, defaultStub())

	rec := postJSON(t, handler, "/api/topic-latest", `{"topic": "programming"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TopicLatestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "programming", resp.Topic)
	assert.Equal(t, 2, resp.SubredditsQueried)
	assert.Equal(t, 3, resp.TotalPosts)
	assert.Empty(t, resp.Failures)

	// Merged across subreddits, highest score first
	require.Len(t, resp.Posts, 3)
	assert.Equal(t, "a1", resp.Posts[0].ID)
	assert.Equal(t, "b1", resp.Posts[1].ID)
	assert.Equal(t, "a2", resp.Posts[2].ID)
}

func TestTopicLatestUnknownTopic(t *testing.T) {
	_, handler := newTestServer(t, defaultStub())

	rec := postJSON(t, handler, "/api/topic-latest", `{"topic": "knitting"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeUnknownTopic, resp.Code)
	assert.Contains(t, rec.Body.String(), "available_topics")
}

func TestTopicLatestTruncatesToLimit(t *testing.T) {
	_, handler := newTestServer(t, defaultStub())

	rec := postJSON(t, handler, "/api/topic-latest", `{"topic": "programming", "limit": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TopicLatestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Posts, 1)
	assert.Equal(t, "a1", resp.Posts[0].ID)
}

func TestTopicLatestReportsPartialFailures(t *testing.T) {
	stub := defaultStub()
	delete(stub.posts, "programming")

	// Per-subreddit failure: make programming fail but golang succeed.
	col := &selectiveFailCollector{stubCollector: stub, failFor: "programming"}
	_, handler := newTestServer(t, col)

	rec := postJSON(t, handler, "/api/topic-latest", `{"topic": "programming"}`)
	require.Equal(t, http.StatusOK, rec.Code, "partial results are still a 200")

	var resp TopicLatestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalPosts)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, "programming", resp.Failures[0].Subreddit)
	assert.Equal(t, domain.FetchForbidden, resp.Failures[0].Kind)
}

type selectiveFailCollector struct {
	*stubCollector
	failFor string
}

func (c *selectiveFailCollector) FetchPosts(ctx context.Context, subreddit string, kind domain.ListingKind, limit int) ([]domain.PostSummary, error) {
	if subreddit == c.failFor {
		return nil, domain.NewFetchError(subreddit, domain.FetchForbidden, assert.AnError)
	}
	return c.stubCollector.FetchPosts(ctx, subreddit, kind, limit)
}

func TestHotThreads(t *testing.T) {
	_, handler := newTestServer(t, defaultStub())

	rec := postJSON(t, handler, "/api/hot-threads", `{"subreddit": "golang", "limit": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SubredditPostsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "golang", resp.Subreddit)
	require.Len(t, resp.Posts, 1)
	assert.Equal(t, "a1", resp.Posts[0].ID)
}

func TestHotThreadsRequiresSubreddit(t *testing.T) {
	_, handler := newTestServer(t, defaultStub())

	rec := postJSON(t, handler, "/api/hot-threads", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListingUpstreamError(t *testing.T) {
	stub := defaultStub()
	stub.fetchEr = domain.NewFetchError("golang", domain.FetchRateLimited, assert.AnError)
	_, handler := newTestServer(t, stub)

	rec := postJSON(t, handler, "/api/hot-threads", `{"subreddit": "golang"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeUpstreamError, resp.Code)
	assert.True(t, resp.Retryable)
}

func TestFrontPage(t *testing.T) {
	_, handler := newTestServer(t, defaultStub())

	rec := postJSON(t, handler, "/api/front-page", `{"sort": "hot", "limit": 5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp FrontPageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Posts, 1)
	assert.Equal(t, "f1", resp.Posts[0].ID)
}

func TestFrontPageRejectsBadSort(t *testing.T) {
	_, handler := newTestServer(t, defaultStub())

	rec := postJSON(t, handler, "/api/front-page", `{"sort": "spicy"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubredditPostsByTimeRejectsBadPeriod(t *testing.T) {
	_, handler := newTestServer(t, defaultStub())

	rec := postJSON(t, handler, "/api/subreddit-posts-by-time", `{"subreddit": "golang", "time_period": "fortnight"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostContent(t *testing.T) {
	_, handler := newTestServer(t, defaultStub())

	rec := postJSON(t, handler, "/api/post-content", `{"post_id": "abc123"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail domain.PostDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "abc123", detail.ID)
	require.Len(t, detail.Comments, 1)
}

func TestSubredditInfo(t *testing.T) {
	_, handler := newTestServer(t, defaultStub())

	rec := postJSON(t, handler, "/api/subreddit-info", `{"subreddit": "golang"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var info domain.SubredditInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "golang", info.Name)
}

func TestMethodNotAllowed(t *testing.T) {
	_, handler := newTestServer(t, defaultStub())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/hot-threads", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestInvalidJSONBody(t *testing.T) {
	_, handler := newTestServer(t, defaultStub())

	req := httptest.NewRequest(http.MethodPost, "/api/hot-threads", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ErrCodeInvalidRequest, resp.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	_, handler := newTestServer(t, defaultStub())

	req := httptest.NewRequest(http.MethodGet, "/api/topics", nil)
	req.Header.Set("X-Request-ID", "550e8400-e29b-41d4-a716-446655440000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", rec.Header().Get("X-Request-ID"))
}
