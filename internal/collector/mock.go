package collector

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/nstop/reddit-topics/internal/domain"
)

// MockClient implements domain.Collector but returns fake data
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (mc *MockClient) FetchPosts(ctx context.Context, sub string, kind domain.ListingKind, limit int) ([]domain.PostSummary, error) {
	// Simulate network latency (nice for testing concurrency)
	select {
	case <-time.After(200 * time.Millisecond):
	case <-ctx.Done():
		return nil, domain.NewFetchError(sub, domain.FetchNetwork, ctx.Err())
	}

	var posts []domain.PostSummary
	for i := 0; i < limit; i++ {
		posts = append(posts, domain.PostSummary{
			ID:           fmt.Sprintf("mock_%s_%s_%d", sub, kind, i),
			Title:        fmt.Sprintf("[%s] Simulated %s post #%d", sub, kind, i),
			Author:       "simulated_user",
			Subreddit:    sub,
			Score:        rand.Intn(500),
			CommentCount: rand.Intn(50),
			Created:      time.Now().UTC().Add(-time.Duration(i) * time.Hour),
			Permalink:    fmt.Sprintf("/r/%s/comments/mock_%d", sub, i),
			URL:          "http://localhost/mock-url",
			PostType:     "text",
		})
	}
	return posts, nil
}

func (mc *MockClient) FetchTopPosts(ctx context.Context, sub string, window domain.TimeFilter, limit int) ([]domain.PostSummary, error) {
	return mc.FetchPosts(ctx, sub, domain.ListingTop, limit)
}

func (mc *MockClient) FetchFrontPage(ctx context.Context, kind domain.ListingKind, window domain.TimeFilter, limit int) ([]domain.PostSummary, error) {
	return mc.FetchPosts(ctx, "popular", kind, limit)
}

func (mc *MockClient) FetchPost(ctx context.Context, postID string, commentLimit, commentDepth int) (*domain.PostDetail, error) {
	return &domain.PostDetail{
		PostSummary: domain.PostSummary{
			ID:        postID,
			Title:     fmt.Sprintf("Simulated post %s", postID),
			Author:    "simulated_user",
			Subreddit: "golang",
			Score:     rand.Intn(500),
			Created:   time.Now().UTC(),
			PostType:  "text",
		},
		Body: "Simulated post body",
		Comments: []domain.Comment{
			{Author: "simulated_commenter", Score: 12, Body: "Simulated comment"},
		},
	}, nil
}

func (mc *MockClient) FetchSubredditInfo(ctx context.Context, sub string) (*domain.SubredditInfo, error) {
	return &domain.SubredditInfo{
		Name:        sub,
		Title:       fmt.Sprintf("r/%s", sub),
		Description: "Simulated subreddit",
		Subscribers: rand.Intn(1_000_000),
		Created:     time.Now().UTC().AddDate(-5, 0, 0),
		Type:        "public",
	}, nil
}
