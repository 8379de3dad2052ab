package reddit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedSource fetches posts from public subreddit Atom feeds. It needs no
// credentials but is read-only: posting and metrics calls fail, and feed
// entries carry no score or comment count (the monitor backfills those once
// an authenticated client is configured).
type FeedSource struct {
	parser  *gofeed.Parser
	baseURL string
}

// NewFeedSource creates a feed-backed source.
func NewFeedSource() *FeedSource {
	return &FeedSource{
		parser:  gofeed.NewParser(),
		baseURL: "https://www.reddit.com",
	}
}

// FetchRecent parses the subreddit's new feed and returns entries published
// at or after since.
func (f *FeedSource) FetchRecent(ctx context.Context, subreddit string, since time.Time) ([]PostData, error) {
	feedURL := fmt.Sprintf("%s/r/%s/new/.rss", f.baseURL, subreddit)
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, gatewayErr("fetch_recent", fmt.Errorf("parsing feed %s: %w", feedURL, err))
	}

	var posts []PostData
	for _, item := range feed.Items {
		p, ok := feedItemToPost(item, subreddit)
		if !ok {
			continue
		}
		if p.CreatedAt.Before(since) {
			continue
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// PostComment is unsupported in feed mode.
func (f *FeedSource) PostComment(ctx context.Context, redditPostID, text string) (string, error) {
	return "", gatewayErr("post_comment", fmt.Errorf("feed source is read-only"))
}

// GetPostMetrics is unsupported in feed mode.
func (f *FeedSource) GetPostMetrics(ctx context.Context, redditPostID string) (int, int, error) {
	return 0, 0, gatewayErr("get_post_metrics", fmt.Errorf("feed source is read-only"))
}

// GetCommentMetrics is unsupported in feed mode.
func (f *FeedSource) GetCommentMetrics(ctx context.Context, commentID string) (int, int, error) {
	return 0, 0, gatewayErr("get_comment_metrics", fmt.Errorf("feed source is read-only"))
}

func feedItemToPost(item *gofeed.Item, subreddit string) (PostData, bool) {
	id := redditIDFromLink(item.Link)
	if id == "" || strings.TrimSpace(item.Title) == "" {
		return PostData{}, false
	}

	author := ""
	if item.Author != nil {
		author = strings.TrimPrefix(item.Author.Name, "/u/")
	}

	created := time.Now().UTC()
	if item.PublishedParsed != nil {
		created = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		created = item.UpdatedParsed.UTC()
	}

	body := item.Content
	if body == "" {
		body = item.Description
	}

	return PostData{
		RedditID:  id,
		Title:     strings.TrimSpace(item.Title),
		Body:      stripHTML(body),
		Author:    author,
		Subreddit: subreddit,
		URL:       item.Link,
		CreatedAt: created,
	}, true
}

// redditIDFromLink extracts the post ID from a permalink like
// https://www.reddit.com/r/forhire/comments/abc123/title/.
func redditIDFromLink(link string) string {
	parts := strings.Split(link, "/")
	for i, part := range parts {
		if part == "comments" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
