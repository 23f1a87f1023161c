package collector

import (
	"net/http"

	"github.com/nstop/reddit-topics/internal/domain"
)

// classifyStatus maps an HTTP status code to the fetch error taxonomy.
// A zero code means the request never produced a response (network failure,
// timeout, cancellation).
func classifyStatus(subreddit string, code int, err error) *domain.FetchError {
	kind := domain.FetchNetwork
	switch code {
	case http.StatusNotFound, http.StatusGone:
		kind = domain.FetchNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		kind = domain.FetchForbidden
	case http.StatusTooManyRequests:
		kind = domain.FetchRateLimited
	}
	return domain.NewFetchError(subreddit, kind, err)
}
