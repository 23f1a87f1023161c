package aggregator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nstop/reddit-topics/internal/domain"
	"github.com/nstop/reddit-topics/internal/topics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchFunc func(ctx context.Context, subreddit string, kind domain.ListingKind, limit int) ([]domain.PostSummary, error)

func (f fetchFunc) FetchPosts(ctx context.Context, subreddit string, kind domain.ListingKind, limit int) ([]domain.PostSummary, error) {
	return f(ctx, subreddit, kind, limit)
}

func testMapping(t *testing.T) *topics.Mapping {
	t.Helper()
	m, err := topics.FromMap(map[string][]string{
		"programming": {"programming", "golang", "learnprogramming"},
		"science":     {"science"},
	})
	require.NoError(t, err)
	return m
}

func post(id, sub string, score int, created time.Time) domain.PostSummary {
	return domain.PostSummary{
		ID:        id,
		Title:     "post " + id,
		Subreddit: sub,
		Score:     score,
		Created:   created,
	}
}

func TestFetchTopicUnknownTopic(t *testing.T) {
	var calls atomic.Int64
	fetcher := fetchFunc(func(ctx context.Context, sub string, kind domain.ListingKind, limit int) ([]domain.PostSummary, error) {
		calls.Add(1)
		return nil, nil
	})

	agg := New(fetcher, testMapping(t), Options{})

	result, err := agg.FetchTopic(context.Background(), "nonexistent-topic", domain.ListingHot, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownTopic)
	assert.Nil(t, result)
	assert.Zero(t, calls.Load(), "no fetches should be issued for an unknown topic")
}

func TestFetchTopicSubredditsAreSubsetOfMapping(t *testing.T) {
	now := time.Now().UTC()
	fetcher := fetchFunc(func(ctx context.Context, sub string, kind domain.ListingKind, limit int) ([]domain.PostSummary, error) {
		return []domain.PostSummary{post(sub+"_1", sub, 10, now)}, nil
	})

	agg := New(fetcher, testMapping(t), Options{})

	result, err := agg.FetchTopic(context.Background(), "programming", domain.ListingHot, 5)
	require.NoError(t, err)

	mapped := map[string]bool{"programming": true, "golang": true, "learnprogramming": true}
	for _, p := range result.Posts {
		assert.True(t, mapped[p.Subreddit], "post from unmapped subreddit %q", p.Subreddit)
	}
	assert.Equal(t, 3, result.SubredditsQueried)
	assert.Empty(t, result.Failures)
}

func TestFetchTopicDeduplicatesByID(t *testing.T) {
	now := time.Now().UTC()
	// Same post id visible through two subreddits (cross-post)
	fetcher := fetchFunc(func(ctx context.Context, sub string, kind domain.ListingKind, limit int) ([]domain.PostSummary, error) {
		return []domain.PostSummary{
			post("shared", sub, 100, now),
			post(sub+"_own", sub, 50, now),
		}, nil
	})

	agg := New(fetcher, testMapping(t), Options{})

	result, err := agg.FetchTopic(context.Background(), "programming", domain.ListingHot, 5)
	require.NoError(t, err)

	counts := make(map[string]int)
	for _, p := range result.Posts {
		counts[p.ID]++
	}
	assert.Equal(t, 1, counts["shared"], "cross-posted id must appear exactly once")
	assert.Len(t, result.Posts, 4)
}

func TestFetchTopicMergeOrder(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fetcher := fetchFunc(func(ctx context.Context, sub string, kind domain.ListingKind, limit int) ([]domain.PostSummary, error) {
		switch sub {
		case "programming":
			return []domain.PostSummary{
				post("a", sub, 300, base),
				post("b", sub, 100, base.Add(-time.Hour)),
			}, nil
		case "golang":
			return []domain.PostSummary{
				post("c", sub, 100, base), // same score as b, newer
				post("d", sub, 300, base), // ties with a on score+time, subreddit breaks it
			}, nil
		default:
			return nil, nil
		}
	})

	agg := New(fetcher, testMapping(t), Options{})

	result, err := agg.FetchTopic(context.Background(), "programming", domain.ListingHot, 5)
	require.NoError(t, err)

	var ids []string
	for _, p := range result.Posts {
		ids = append(ids, p.ID)
	}
	// score desc, then created desc, then subreddit asc
	assert.Equal(t, []string{"d", "a", "c", "b"}, ids)
}

func TestFetchTopicDeterministicOrder(t *testing.T) {
	now := time.Now().UTC()
	fetcher := fetchFunc(func(ctx context.Context, sub string, kind domain.ListingKind, limit int) ([]domain.PostSummary, error) {
		// Jitter completion order across calls
		time.Sleep(time.Duration(len(sub)%3) * time.Millisecond)
		return []domain.PostSummary{
			post(sub+"_1", sub, 10, now),
			post(sub+"_2", sub, 10, now),
		}, nil
	})

	agg := New(fetcher, testMapping(t), Options{MaxConcurrent: 3})

	first, err := agg.FetchTopic(context.Background(), "programming", domain.ListingHot, 5)
	require.NoError(t, err)
	second, err := agg.FetchTopic(context.Background(), "programming", domain.ListingHot, 5)
	require.NoError(t, err)

	assert.Equal(t, first.Posts, second.Posts)
}

func TestFetchTopicPartialFailure(t *testing.T) {
	now := time.Now().UTC()
	fetcher := fetchFunc(func(ctx context.Context, sub string, kind domain.ListingKind, limit int) ([]domain.PostSummary, error) {
		if sub == "golang" {
			return nil, domain.NewFetchError(sub, domain.FetchForbidden, errors.New("banned"))
		}
		return []domain.PostSummary{post(sub+"_1", sub, 10, now)}, nil
	})

	agg := New(fetcher, testMapping(t), Options{})

	result, err := agg.FetchTopic(context.Background(), "programming", domain.ListingHot, 5)
	require.NoError(t, err, "partial failure must not fail the call")

	assert.Len(t, result.Posts, 2)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "golang", result.Failures[0].Subreddit)
	assert.Equal(t, domain.FetchForbidden, result.Failures[0].Kind)
	assert.True(t, result.Partial())
	assert.Error(t, result.FailureErr())
}

func TestFetchTopicTotalFailure(t *testing.T) {
	fetcher := fetchFunc(func(ctx context.Context, sub string, kind domain.ListingKind, limit int) ([]domain.PostSummary, error) {
		return nil, domain.NewFetchError(sub, domain.FetchNetwork, errors.New("unreachable"))
	})

	agg := New(fetcher, testMapping(t), Options{})

	result, err := agg.FetchTopic(context.Background(), "programming", domain.ListingHot, 5)
	require.NoError(t, err, "total failure still returns a result, not an error")

	assert.Empty(t, result.Posts)
	assert.Len(t, result.Failures, 3, "every subreddit must be in the failure set")
	assert.False(t, result.Partial())
}

func TestFetchTopicSlowSubredditBoundedByTimeout(t *testing.T) {
	now := time.Now().UTC()
	fetcher := fetchFunc(func(ctx context.Context, sub string, kind domain.ListingKind, limit int) ([]domain.PostSummary, error) {
		if sub == "learnprogramming" {
			// Never returns on its own
			<-ctx.Done()
			return nil, domain.NewFetchError(sub, domain.FetchNetwork, ctx.Err())
		}
		return []domain.PostSummary{post(sub+"_1", sub, 10, now)}, nil
	})

	agg := New(fetcher, testMapping(t), Options{FetchTimeout: 50 * time.Millisecond})

	start := time.Now()
	result, err := agg.FetchTopic(context.Background(), "programming", domain.ListingHot, 5)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second, "aggregation must not hang on a slow subreddit")
	assert.Len(t, result.Posts, 2)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "learnprogramming", result.Failures[0].Subreddit)
}

func TestFetchTopicCallerCancellation(t *testing.T) {
	fetcher := fetchFunc(func(ctx context.Context, sub string, kind domain.ListingKind, limit int) ([]domain.PostSummary, error) {
		<-ctx.Done()
		return nil, domain.NewFetchError(sub, domain.FetchNetwork, ctx.Err())
	})

	agg := New(fetcher, testMapping(t), Options{FetchTimeout: 10 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	result, err := agg.FetchTopic(ctx, "programming", domain.ListingHot, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeadline)
	assert.Nil(t, result, "no partial results on cancellation")
}

func TestFetchTopicDefaultPerSubredditShare(t *testing.T) {
	var got atomic.Int64
	fetcher := fetchFunc(func(ctx context.Context, sub string, kind domain.ListingKind, limit int) ([]domain.PostSummary, error) {
		got.Store(int64(limit))
		return nil, nil
	})

	agg := New(fetcher, testMapping(t), Options{DefaultTotal: 30})

	_, err := agg.FetchTopic(context.Background(), "science", domain.ListingHot, 0)
	require.NoError(t, err)
	// One subreddit: 30/1 + 5
	assert.Equal(t, int64(35), got.Load())
}
