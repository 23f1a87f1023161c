package collector

import (
	"context"
	"time"

	"github.com/loganintech/go-reddit/v2/reddit"
	"github.com/nstop/reddit-topics/internal/domain"
	"golang.org/x/time/rate"
)

// APIClient fetches through the authenticated Reddit API.
type APIClient struct {
	client  *reddit.Client
	limiter *rate.Limiter
}

func NewAPIClient(id, secret, user, pass, userAgent string) (*APIClient, error) {
	creds := reddit.Credentials{ID: id, Secret: secret, Username: user, Password: pass}

	client, err := reddit.NewClient(creds, reddit.WithUserAgent(userAgent))
	if err != nil {
		return nil, err
	}

	// API Rate Limit: ~60 reqs/min (safe buffer)
	limiter := rate.NewLimiter(rate.Every(1*time.Second), 1)

	return &APIClient{client: client, limiter: limiter}, nil
}

func (ac *APIClient) FetchPosts(ctx context.Context, sub string, kind domain.ListingKind, limit int) ([]domain.PostSummary, error) {
	if kind == domain.ListingTop {
		return ac.FetchTopPosts(ctx, sub, domain.TimeDay, limit)
	}
	if err := ac.limiter.Wait(ctx); err != nil {
		return nil, domain.NewFetchError(sub, domain.FetchNetwork, err)
	}

	opts := &reddit.ListOptions{Limit: limit}
	var (
		posts []*reddit.Post
		resp  *reddit.Response
		err   error
	)
	switch kind {
	case domain.ListingNew:
		posts, resp, err = ac.client.Subreddit.NewPosts(ctx, sub, opts)
	case domain.ListingRising:
		posts, resp, err = ac.client.Subreddit.RisingPosts(ctx, sub, opts)
	default:
		posts, resp, err = ac.client.Subreddit.HotPosts(ctx, sub, opts)
	}
	if err != nil {
		return nil, classifyStatus(sub, statusOf(resp), err)
	}
	return convertPosts(posts), nil
}

func (ac *APIClient) FetchTopPosts(ctx context.Context, sub string, window domain.TimeFilter, limit int) ([]domain.PostSummary, error) {
	if err := ac.limiter.Wait(ctx); err != nil {
		return nil, domain.NewFetchError(sub, domain.FetchNetwork, err)
	}

	posts, resp, err := ac.client.Subreddit.TopPosts(ctx, sub, &reddit.ListPostOptions{
		ListOptions: reddit.ListOptions{Limit: limit},
		Time:        string(window),
	})
	if err != nil {
		return nil, classifyStatus(sub, statusOf(resp), err)
	}
	return convertPosts(posts), nil
}

// FetchFrontPage fetches Reddit's front page. go-reddit routes an empty
// subreddit name to the front page listing endpoints.
func (ac *APIClient) FetchFrontPage(ctx context.Context, kind domain.ListingKind, window domain.TimeFilter, limit int) ([]domain.PostSummary, error) {
	if kind == domain.ListingTop {
		return ac.FetchTopPosts(ctx, "", window, limit)
	}
	return ac.FetchPosts(ctx, "", kind, limit)
}

func (ac *APIClient) FetchPost(ctx context.Context, postID string, commentLimit, commentDepth int) (*domain.PostDetail, error) {
	if err := ac.limiter.Wait(ctx); err != nil {
		return nil, domain.NewFetchError(postID, domain.FetchNetwork, err)
	}

	pc, resp, err := ac.client.Post.Get(ctx, postID)
	if err != nil {
		return nil, classifyStatus(postID, statusOf(resp), err)
	}

	detail := &domain.PostDetail{
		PostSummary: convertPost(pc.Post),
		Body:        pc.Post.Body,
		Comments:    convertComments(pc.Comments, commentLimit, commentDepth),
	}
	return detail, nil
}

func (ac *APIClient) FetchSubredditInfo(ctx context.Context, sub string) (*domain.SubredditInfo, error) {
	if err := ac.limiter.Wait(ctx); err != nil {
		return nil, domain.NewFetchError(sub, domain.FetchNetwork, err)
	}

	sr, resp, err := ac.client.Subreddit.Get(ctx, sub)
	if err != nil {
		return nil, classifyStatus(sub, statusOf(resp), err)
	}

	info := &domain.SubredditInfo{
		Name:        sr.Name,
		Title:       sr.Title,
		Description: sr.Description,
		Subscribers: sr.Subscribers,
		NSFW:        sr.NSFW,
	}
	if sr.Created != nil {
		info.Created = sr.Created.Time
	}
	return info, nil
}

func statusOf(resp *reddit.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

func convertPosts(posts []*reddit.Post) []domain.PostSummary {
	var result []domain.PostSummary
	for _, p := range posts {
		result = append(result, convertPost(p))
	}
	return result
}

func convertPost(p *reddit.Post) domain.PostSummary {
	postType := "link"
	if p.IsSelfPost {
		postType = "text"
	}
	summary := domain.PostSummary{
		ID:           p.ID,
		Title:        p.Title,
		Author:       p.Author,
		Subreddit:    p.SubredditName,
		Score:        p.Score,
		CommentCount: p.NumberOfComments,
		Permalink:    p.Permalink,
		URL:          p.URL,
		PostType:     postType,
		UpvoteRatio:  float64(p.UpvoteRatio),
		Stickied:     p.Stickied,
	}
	if p.Created != nil {
		summary.Created = p.Created.Time
	}
	if summary.Author == "" {
		summary.Author = "[deleted]"
	}
	return summary
}

func convertComments(comments []*reddit.Comment, limit, depth int) []domain.Comment {
	if depth <= 0 || limit <= 0 {
		return nil
	}
	var out []domain.Comment
	for _, c := range comments {
		if len(out) >= limit {
			break
		}
		author := c.Author
		if author == "" {
			author = "[deleted]"
		}
		out = append(out, domain.Comment{
			Author:  author,
			Score:   c.Score,
			Body:    c.Body,
			Replies: convertComments(c.Replies.Comments, limit, depth-1),
		})
	}
	return out
}
