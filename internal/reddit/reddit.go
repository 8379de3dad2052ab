// Package reddit is the source gateway: it fetches posts from monitored
// subreddits and submits comments. Client speaks the authenticated API;
// FeedSource is a credential-less read-only alternative over public feeds.
package reddit

import (
	"context"
	"fmt"
	"time"
)

// PostData is a raw post record from the gateway, before persistence.
type PostData struct {
	RedditID     string
	Title        string
	Body         string
	Author       string
	Subreddit    string
	URL          string
	Score        int
	CommentCount int
	CreatedAt    time.Time
}

// Source supplies recent posts for a subreddit.
type Source interface {
	FetchRecent(ctx context.Context, subreddit string, since time.Time) ([]PostData, error)
}

// Gateway is the full source gateway surface: fetching plus the
// side-effecting and metrics calls the posting and monitoring stages need.
type Gateway interface {
	Source
	PostComment(ctx context.Context, redditPostID, text string) (commentID string, err error)
	GetPostMetrics(ctx context.Context, redditPostID string) (score, commentCount int, err error)
	GetCommentMetrics(ctx context.Context, commentID string) (score, replyCount int, err error)
}

// GatewayError wraps any gateway call failure with the call name.
type GatewayError struct {
	Call string
	Err  error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Call, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func gatewayErr(call string, err error) error {
	return &GatewayError{Call: call, Err: err}
}
