package server

import (
	"time"

	"github.com/nstop/reddit-topics/internal/aggregator"
	"github.com/nstop/reddit-topics/internal/domain"
)

// Request/response shapes for the REST API.

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
}

type HotThreadsRequest struct {
	Subreddit string `json:"subreddit"`
	Limit     int    `json:"limit"`
}

type PostContentRequest struct {
	PostID       string `json:"post_id"`
	CommentLimit int    `json:"comment_limit"`
	CommentDepth int    `json:"comment_depth"`
}

type FrontPageRequest struct {
	Sort       string `json:"sort"`
	Limit      int    `json:"limit"`
	TimeFilter string `json:"time_filter"`
}

type SubredditPostsByTimeRequest struct {
	Subreddit  string `json:"subreddit"`
	TimePeriod string `json:"time_period"`
	Limit      int    `json:"limit"`
}

type SubredditPostsRequest struct {
	Subreddit string `json:"subreddit"`
	Limit     int    `json:"limit"`
}

type SubredditInfoRequest struct {
	Subreddit string `json:"subreddit"`
}

type TopicLatestRequest struct {
	Topic string `json:"topic"`
	Kind  string `json:"kind"`
	Limit int    `json:"limit"`
	// PerSubredditLimit overrides the derived per-subreddit share when > 0.
	PerSubredditLimit int `json:"per_subreddit_limit"`
}

type SubredditPostsResponse struct {
	Subreddit string               `json:"subreddit"`
	Posts     []domain.PostSummary `json:"posts"`
}

type FrontPageResponse struct {
	Sort       string               `json:"sort"`
	TimeFilter string               `json:"time_filter"`
	Posts      []domain.PostSummary `json:"posts"`
}

type TopicLatestResponse struct {
	Topic             string               `json:"topic"`
	Kind              domain.ListingKind   `json:"kind"`
	TotalPosts        int                  `json:"total_posts"`
	SubredditsQueried int                  `json:"subreddits_queried"`
	Posts             []domain.PostSummary `json:"posts"`
	Failures          []aggregator.Failure `json:"failures,omitempty"`
}

type TopicsResponse struct {
	Topics     []string `json:"topics"`
	TotalCount int      `json:"total_count"`
}
