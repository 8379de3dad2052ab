package pipeline

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/zubairkhawar/reddit-tool/internal/config"
	"github.com/zubairkhawar/reddit-tool/internal/database"
	"github.com/zubairkhawar/reddit-tool/internal/metrics"
	"github.com/zubairkhawar/reddit-tool/internal/reddit"
)

// Fetcher pulls recent posts from the configured subreddits into the
// database.
type Fetcher struct {
	db     *database.DB
	source reddit.Source
	cfg    config.Reddit
}

// NewFetcher creates a fetcher.
func NewFetcher(db *database.DB, source reddit.Source, cfg config.Reddit) *Fetcher {
	return &Fetcher{db: db, source: source, cfg: cfg}
}

// FetchResult holds the results of a fetch run.
type FetchResult struct {
	TotalFound int
	NewPosts   int
	Duplicates int
	Filtered   int
	Errors     int
}

// Fetch pulls recent posts from every configured subreddit. Posts whose
// title and body match none of the configured keywords are dropped before
// storage; duplicates are absorbed by the reddit_id uniqueness boundary.
func (f *Fetcher) Fetch(ctx context.Context) *FetchResult {
	r := &FetchResult{}

	hoursBack := f.cfg.FetchHoursBack
	if hoursBack <= 0 {
		hoursBack = 24
	}
	since := time.Now().UTC().Add(-time.Duration(hoursBack) * time.Hour)

	for _, subreddit := range f.cfg.Subreddits {
		posts, err := f.source.FetchRecent(ctx, subreddit, since)
		if err != nil {
			log.Printf("Error fetching r/%s: %v", subreddit, err)
			r.Errors++
			continue
		}
		r.TotalFound += len(posts)

		for _, p := range posts {
			if !f.matchesKeywords(p) {
				r.Filtered++
				continue
			}
			id, err := f.db.InsertPost(&database.Post{
				RedditID:     p.RedditID,
				Title:        p.Title,
				Body:         p.Body,
				Author:       p.Author,
				Subreddit:    p.Subreddit,
				URL:          p.URL,
				Score:        p.Score,
				CommentCount: p.CommentCount,
				CreatedAt:    p.CreatedAt.Format("2006-01-02 15:04:05"),
			})
			if err != nil {
				log.Printf("Error storing post %s: %v", p.RedditID, err)
				r.Errors++
				continue
			}
			if id == 0 {
				r.Duplicates++
				continue
			}
			r.NewPosts++
			metrics.PostsFetched.Inc()
		}
		log.Printf("r/%s: %d posts fetched", subreddit, len(posts))
	}

	log.Printf("Fetch complete: %d found, %d new, %d duplicates, %d filtered out",
		r.TotalFound, r.NewPosts, r.Duplicates, r.Filtered)
	return r
}

// matchesKeywords reports whether the post mentions any configured keyword.
// An empty keyword list keeps everything.
func (f *Fetcher) matchesKeywords(p reddit.PostData) bool {
	if len(f.cfg.Keywords) == 0 {
		return true
	}
	text := strings.ToLower(p.Title + " " + p.Body)
	for _, kw := range f.cfg.Keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
