package aggregator

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/nstop/reddit-topics/internal/domain"
)

// Failure records one subreddit that could not be fetched.
type Failure struct {
	Subreddit string                `json:"subreddit"`
	Kind      domain.FetchErrorKind `json:"kind"`
	Message   string                `json:"message"`
}

// Result is the merged outcome of one topic fetch. Posts are deduplicated by
// id and ordered score desc, created desc, subreddit asc. Failures follow the
// topic's subreddit order.
type Result struct {
	Topic             string               `json:"topic"`
	Kind              domain.ListingKind   `json:"kind"`
	SubredditsQueried int                  `json:"subreddits_queried"`
	Posts             []domain.PostSummary `json:"posts"`
	Failures          []Failure            `json:"failures,omitempty"`
}

// Partial reports whether some, but not all, subreddits failed.
func (r *Result) Partial() bool {
	return len(r.Failures) > 0 && len(r.Failures) < r.SubredditsQueried
}

// FailureErr flattens the failure set into a single error value for logging.
// Returns nil when every subreddit succeeded.
func (r *Result) FailureErr() error {
	var merr *multierror.Error
	for _, f := range r.Failures {
		merr = multierror.Append(merr, fmt.Errorf("r/%s: %s: %s", f.Subreddit, f.Kind, f.Message))
	}
	return merr.ErrorOrNil()
}
