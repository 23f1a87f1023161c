package domain

import (
	"context"
	"fmt"
	"time"
)

// ListingKind is the sort/freshness mode Reddit applies when returning a
// subreddit's posts.
type ListingKind string

const (
	ListingHot    ListingKind = "hot"
	ListingNew    ListingKind = "new"
	ListingRising ListingKind = "rising"
	ListingTop    ListingKind = "top"
)

// ParseListingKind validates a user-supplied listing kind.
func ParseListingKind(s string) (ListingKind, error) {
	switch ListingKind(s) {
	case ListingHot, ListingNew, ListingRising, ListingTop:
		return ListingKind(s), nil
	}
	return "", fmt.Errorf("invalid listing kind: %q (use 'hot', 'new', 'rising', or 'top')", s)
}

// TimeFilter narrows top listings to a time window.
type TimeFilter string

const (
	TimeHour  TimeFilter = "hour"
	TimeDay   TimeFilter = "day"
	TimeWeek  TimeFilter = "week"
	TimeMonth TimeFilter = "month"
	TimeYear  TimeFilter = "year"
	TimeAll   TimeFilter = "all"
)

// ParseTimeFilter validates a user-supplied time filter.
func ParseTimeFilter(s string) (TimeFilter, error) {
	switch TimeFilter(s) {
	case TimeHour, TimeDay, TimeWeek, TimeMonth, TimeYear, TimeAll:
		return TimeFilter(s), nil
	}
	return "", fmt.Errorf("invalid time filter: %q (use hour/day/week/month/year/all)", s)
}

// PostSummary is the clean, denormalized record of a single Reddit post.
// Immutable once fetched.
type PostSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	Subreddit    string    `json:"subreddit"`
	Score        int       `json:"score"`
	CommentCount int       `json:"comment_count"`
	Created      time.Time `json:"created"`
	Permalink    string    `json:"permalink"`
	URL          string    `json:"url,omitempty"`
	PostType     string    `json:"post_type"`
	UpvoteRatio  float64   `json:"upvote_ratio,omitempty"`
	Flair        string    `json:"flair,omitempty"`
	Stickied     bool      `json:"stickied,omitempty"`
}

// Comment is a single comment with its reply subtree.
type Comment struct {
	Author  string    `json:"author"`
	Score   int       `json:"score"`
	Body    string    `json:"body"`
	Replies []Comment `json:"replies,omitempty"`
}

// PostDetail is a post together with its body text and comment tree.
type PostDetail struct {
	PostSummary
	Body     string    `json:"body,omitempty"`
	Comments []Comment `json:"comments"`
}

// SubredditInfo describes a subreddit.
type SubredditInfo struct {
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Subscribers int       `json:"subscribers"`
	Created     time.Time `json:"created"`
	NSFW        bool      `json:"nsfw"`
	Type        string    `json:"type,omitempty"`
}

// ListingFetcher fetches one subreddit listing. It is the only capability the
// topic aggregator depends on.
type ListingFetcher interface {
	FetchPosts(ctx context.Context, subreddit string, kind ListingKind, limit int) ([]PostSummary, error)
}

// Collector is the full data-fetching surface consumed by the transport layer.
type Collector interface {
	ListingFetcher
	FetchTopPosts(ctx context.Context, subreddit string, window TimeFilter, limit int) ([]PostSummary, error)
	FetchFrontPage(ctx context.Context, kind ListingKind, window TimeFilter, limit int) ([]PostSummary, error)
	FetchPost(ctx context.Context, postID string, commentLimit, commentDepth int) (*PostDetail, error)
	FetchSubredditInfo(ctx context.Context, subreddit string) (*SubredditInfo, error)
}
