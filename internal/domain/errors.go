package domain

import (
	"errors"
	"fmt"
)

// FetchErrorKind classifies why a subreddit fetch failed.
type FetchErrorKind string

const (
	FetchNotFound    FetchErrorKind = "not_found"
	FetchForbidden   FetchErrorKind = "forbidden"
	FetchRateLimited FetchErrorKind = "rate_limited"
	FetchNetwork     FetchErrorKind = "network"
)

// FetchError is a classified per-subreddit fetch failure.
type FetchError struct {
	Subreddit string
	Kind      FetchErrorKind
	Err       error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch r/%s: %s", e.Subreddit, e.Kind)
	}
	return fmt.Sprintf("fetch r/%s: %s: %v", e.Subreddit, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err with a subreddit and failure kind.
func NewFetchError(subreddit string, kind FetchErrorKind, err error) *FetchError {
	return &FetchError{Subreddit: subreddit, Kind: kind, Err: err}
}

// FetchKind extracts the failure kind from an error chain, defaulting to
// network for unclassified failures.
func FetchKind(err error) FetchErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return FetchNetwork
}
