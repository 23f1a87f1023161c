package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nstop/reddit-topics/internal/domain"
	"github.com/nstop/reddit-topics/internal/topics"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrUnknownTopic is returned when the requested topic is not in the
	// mapping. No fetches are issued.
	ErrUnknownTopic = errors.New("unknown topic")

	// ErrDeadline is returned when the aggregate call itself is cancelled or
	// times out. No partial results are returned in that case.
	ErrDeadline = errors.New("aggregation deadline exceeded")
)

// Options tunes the fan-out behavior.
type Options struct {
	// FetchTimeout bounds each per-subreddit fetch. Since fetches run
	// concurrently it is also the aggregation latency ceiling.
	FetchTimeout time.Duration

	// MaxConcurrent bounds in-flight fetches within one call.
	MaxConcurrent int

	// DefaultTotal is the requested total post count used to derive a
	// per-subreddit share when the caller passes no explicit limit.
	DefaultTotal int
}

func (o Options) withDefaults() Options {
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 10 * time.Second
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 4
	}
	if o.DefaultTotal <= 0 {
		o.DefaultTotal = 50
	}
	return o
}

// Aggregator fans a topic request out across the topic's subreddits and
// merges the results. Stateless between calls; safe for concurrent use.
type Aggregator struct {
	fetcher domain.ListingFetcher
	mapping *topics.Mapping
	opts    Options
}

func New(fetcher domain.ListingFetcher, mapping *topics.Mapping, opts Options) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		mapping: mapping,
		opts:    opts.withDefaults(),
	}
}

// Topics returns the topic names this aggregator can serve.
func (a *Aggregator) Topics() []string {
	return a.mapping.Topics()
}

// FetchTopic fetches one listing per subreddit mapped to topic, concurrently,
// and merges the results. A failed subreddit never aborts its siblings: the
// failure is recorded in the result and whatever succeeded is returned. Only
// an unknown topic or cancellation of ctx fail the whole call.
func (a *Aggregator) FetchTopic(ctx context.Context, topic string, kind domain.ListingKind, perSubredditLimit int) (*Result, error) {
	subs, ok := a.mapping.Subreddits(topic)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}

	if perSubredditLimit <= 0 {
		// Spread the default total across subreddits, padded to absorb
		// cross-post duplicates.
		perSubredditLimit = a.opts.DefaultTotal/len(subs) + 5
	}

	start := time.Now()

	// Indexed by mapping position so the merge order is independent of
	// completion order.
	fetched := make([][]domain.PostSummary, len(subs))
	failed := make([]*Failure, len(subs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.MaxConcurrent)

	for i, sub := range subs {
		i, sub := i, sub
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, a.opts.FetchTimeout)
			defer cancel()

			posts, err := a.fetcher.FetchPosts(fctx, sub, kind, perSubredditLimit)
			if err != nil {
				if gctx.Err() != nil {
					// The caller is gone; stop the whole group.
					return gctx.Err()
				}
				fkind := domain.FetchKind(err)
				failed[i] = &Failure{Subreddit: sub, Kind: fkind, Message: err.Error()}
				fetchesTotal.WithLabelValues(string(fkind)).Inc()
				return nil
			}
			fetched[i] = posts
			fetchesTotal.WithLabelValues("ok").Inc()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeadline, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeadline, err)
	}

	result := &Result{
		Topic:             topic,
		Kind:              kind,
		SubredditsQueried: len(subs),
		Posts:             merge(fetched),
	}
	for _, f := range failed {
		if f != nil {
			result.Failures = append(result.Failures, *f)
		}
	}

	aggregationDuration.Observe(time.Since(start).Seconds())
	return result, nil
}

// merge concatenates per-subreddit results in mapping order, drops duplicate
// post ids (first seen wins), and applies the final cross-subreddit order:
// score desc, created desc, subreddit asc. The stable sort preserves each
// source's native order among full ties, which makes the output deterministic
// for fixed inputs.
func merge(fetched [][]domain.PostSummary) []domain.PostSummary {
	seen := make(map[string]struct{})
	var posts []domain.PostSummary
	for _, batch := range fetched {
		for _, p := range batch {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			posts = append(posts, p)
		}
	}

	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Created.Equal(b.Created) {
			return a.Created.After(b.Created)
		}
		return a.Subreddit < b.Subreddit
	})
	return posts
}
