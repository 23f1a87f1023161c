package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nstop/reddit-topics/internal/domain"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://www.reddit.com"

// PublicClient fetches through reddit.com's public .json endpoints. No
// credentials needed, but Reddit requires a descriptive User-Agent and is
// strict about request rate.
type PublicClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	baseURL    string
}

type listingResponse struct {
	Data struct {
		Children []struct {
			Kind string   `json:"kind"`
			Data postData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type postData struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Subreddit   string  `json:"subreddit"`
	Author      string  `json:"author"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	SelfText    string  `json:"selftext"`
	IsSelf      bool    `json:"is_self"`
	IsGallery   bool    `json:"is_gallery"`
	Stickied    bool    `json:"stickied"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	Flair       string  `json:"link_flair_text"`
}

type commentData struct {
	Author  string          `json:"author"`
	Score   int             `json:"score"`
	Body    string          `json:"body"`
	Replies json.RawMessage `json:"replies"`
}

type aboutResponse struct {
	Data struct {
		DisplayName       string  `json:"display_name"`
		Title             string  `json:"title"`
		PublicDescription string  `json:"public_description"`
		Subscribers       int     `json:"subscribers"`
		CreatedUTC        float64 `json:"created_utc"`
		Over18            bool    `json:"over18"`
		SubredditType     string  `json:"subreddit_type"`
	} `json:"data"`
}

func NewPublicClient(userAgent string) (*PublicClient, error) {
	if userAgent == "" {
		return nil, fmt.Errorf("user agent is required for public mode")
	}
	return &PublicClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// Public JSON Limit: 1 req / 2 seconds (Stricter)
		limiter:   rate.NewLimiter(rate.Every(2*time.Second), 1),
		userAgent: userAgent,
		baseURL:   defaultBaseURL,
	}, nil
}

func (pc *PublicClient) FetchPosts(ctx context.Context, sub string, kind domain.ListingKind, limit int) ([]domain.PostSummary, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", limit))
	if kind == domain.ListingTop {
		q.Set("t", string(domain.TimeDay))
	}
	path := fmt.Sprintf("/r/%s/%s.json", url.PathEscape(sub), kind)

	var resp listingResponse
	if err := pc.getJSON(ctx, sub, path, q, &resp); err != nil {
		return nil, err
	}
	return convertListing(&resp), nil
}

func (pc *PublicClient) FetchTopPosts(ctx context.Context, sub string, window domain.TimeFilter, limit int) ([]domain.PostSummary, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("t", string(window))
	path := fmt.Sprintf("/r/%s/top.json", url.PathEscape(sub))

	var resp listingResponse
	if err := pc.getJSON(ctx, sub, path, q, &resp); err != nil {
		return nil, err
	}
	return convertListing(&resp), nil
}

func (pc *PublicClient) FetchFrontPage(ctx context.Context, kind domain.ListingKind, window domain.TimeFilter, limit int) ([]domain.PostSummary, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", limit))
	if kind == domain.ListingTop {
		q.Set("t", string(window))
	}
	path := fmt.Sprintf("/%s.json", kind)

	var resp listingResponse
	if err := pc.getJSON(ctx, "frontpage", path, q, &resp); err != nil {
		return nil, err
	}
	return convertListing(&resp), nil
}

func (pc *PublicClient) FetchPost(ctx context.Context, postID string, commentLimit, commentDepth int) (*domain.PostDetail, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", commentLimit))
	q.Set("depth", fmt.Sprintf("%d", commentDepth))
	q.Set("sort", "top")
	path := fmt.Sprintf("/comments/%s.json", url.PathEscape(postID))

	// The comments endpoint returns a two element array: the post listing
	// followed by the comment listing.
	var pair []json.RawMessage
	if err := pc.getJSON(ctx, postID, path, q, &pair); err != nil {
		return nil, err
	}
	if len(pair) < 2 {
		return nil, domain.NewFetchError(postID, domain.FetchNotFound, fmt.Errorf("post %s not found", postID))
	}

	var postListing listingResponse
	if err := json.Unmarshal(pair[0], &postListing); err != nil || len(postListing.Data.Children) == 0 {
		return nil, domain.NewFetchError(postID, domain.FetchNotFound, fmt.Errorf("post %s not found", postID))
	}

	post := postListing.Data.Children[0].Data
	detail := &domain.PostDetail{
		PostSummary: convertPostData(post),
		Body:        post.SelfText,
		Comments:    parseCommentListing(pair[1], commentLimit, commentDepth),
	}
	return detail, nil
}

func (pc *PublicClient) FetchSubredditInfo(ctx context.Context, sub string) (*domain.SubredditInfo, error) {
	path := fmt.Sprintf("/r/%s/about.json", url.PathEscape(sub))

	var resp aboutResponse
	if err := pc.getJSON(ctx, sub, path, nil, &resp); err != nil {
		return nil, err
	}
	return &domain.SubredditInfo{
		Name:        resp.Data.DisplayName,
		Title:       resp.Data.Title,
		Description: resp.Data.PublicDescription,
		Subscribers: resp.Data.Subscribers,
		Created:     time.Unix(int64(resp.Data.CreatedUTC), 0).UTC(),
		NSFW:        resp.Data.Over18,
		Type:        resp.Data.SubredditType,
	}, nil
}

// getJSON performs a rate-limited GET, retrying transient failures with
// exponential backoff. 4xx responses are permanent and classified immediately.
func (pc *PublicClient) getJSON(ctx context.Context, sub, path string, q url.Values, out any) error {
	if err := pc.limiter.Wait(ctx); err != nil {
		return domain.NewFetchError(sub, domain.FetchNetwork, err)
	}

	u := pc.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(domain.NewFetchError(sub, domain.FetchNetwork, err))
		}
		req.Header.Set("User-Agent", pc.userAgent)

		resp, err := pc.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(domain.NewFetchError(sub, domain.FetchNetwork, err))
			}
			return domain.NewFetchError(sub, domain.FetchNetwork, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			ferr := classifyStatus(sub, resp.StatusCode, fmt.Errorf("reddit public access status: %d", resp.StatusCode))
			if resp.StatusCode >= 500 {
				return ferr // transient, retry
			}
			return backoff.Permanent(ferr)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(domain.NewFetchError(sub, domain.FetchNetwork, err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, 2), ctx))
}

func convertListing(resp *listingResponse) []domain.PostSummary {
	var posts []domain.PostSummary
	for _, child := range resp.Data.Children {
		posts = append(posts, convertPostData(child.Data))
	}
	return posts
}

func convertPostData(d postData) domain.PostSummary {
	postType := "link"
	switch {
	case d.IsSelf:
		postType = "text"
	case d.IsGallery:
		postType = "gallery"
	}
	author := d.Author
	if author == "" {
		author = "[deleted]"
	}
	return domain.PostSummary{
		ID:           d.ID,
		Title:        d.Title,
		Author:       author,
		Subreddit:    d.Subreddit,
		Score:        d.Score,
		CommentCount: d.NumComments,
		Created:      time.Unix(int64(d.CreatedUTC), 0).UTC(),
		Permalink:    d.Permalink,
		URL:          d.URL,
		PostType:     postType,
		UpvoteRatio:  d.UpvoteRatio,
		Flair:        d.Flair,
		Stickied:     d.Stickied,
	}
}

// parseCommentListing decodes a comment listing, recursing through nested
// reply listings. Reddit encodes an absent reply tree as the empty string, so
// replies cannot be decoded with a static struct.
func parseCommentListing(raw []byte, limit, depth int) []domain.Comment {
	if depth <= 0 || limit <= 0 {
		return nil
	}

	var listing struct {
		Data struct {
			Children []struct {
				Kind string          `json:"kind"`
				Data json.RawMessage `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil
	}

	var out []domain.Comment
	for _, child := range listing.Data.Children {
		if child.Kind != "t1" {
			continue // skip "more" stubs
		}
		if len(out) >= limit {
			break
		}
		var cd commentData
		if err := json.Unmarshal(child.Data, &cd); err != nil {
			continue
		}
		author := cd.Author
		if author == "" {
			author = "[deleted]"
		}
		c := domain.Comment{Author: author, Score: cd.Score, Body: cd.Body}
		if len(cd.Replies) > 0 && cd.Replies[0] == '{' {
			c.Replies = parseCommentListing(cd.Replies, limit, depth-1)
		}
		out = append(out, c)
	}
	return out
}
