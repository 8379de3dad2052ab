package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/zubairkhawar/reddit-tool/internal/config"
	"github.com/zubairkhawar/reddit-tool/internal/database"
	"github.com/zubairkhawar/reddit-tool/internal/reddit"
)

// fakeSource implements reddit.Source for testing.
type fakeSource struct {
	posts map[string][]reddit.PostData
	err   error
}

func (f *fakeSource) FetchRecent(_ context.Context, subreddit string, _ time.Time) ([]reddit.PostData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.posts[subreddit], nil
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRedditConfig() config.Reddit {
	return config.Reddit{
		Subreddits:     []string{"forhire"},
		Keywords:       []string{"looking for", "automation"},
		FetchHoursBack: 24,
	}
}

func post(id, title, body string) reddit.PostData {
	return reddit.PostData{
		RedditID:  id,
		Title:     title,
		Body:      body,
		Subreddit: "forhire",
		CreatedAt: time.Now().UTC(),
	}
}

func TestFetchStoresMatchingPosts(t *testing.T) {
	db := openTestDB(t)
	src := &fakeSource{posts: map[string][]reddit.PostData{
		"forhire": {
			post("aaa", "Looking for a developer", "Paid work"),
			post("bbb", "My cat pictures", "Nothing relevant here"),
			post("ccc", "Workflow automation needed", "Budget available"),
		},
	}}

	fetcher := NewFetcher(db, src, testRedditConfig())
	result := fetcher.Fetch(context.Background())

	if result.TotalFound != 3 || result.NewPosts != 2 || result.Filtered != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if p, _ := db.GetPostByRedditID("bbb"); p != nil {
		t.Error("filtered post must not be stored")
	}
	if p, _ := db.GetPostByRedditID("aaa"); p == nil {
		t.Error("matching post must be stored")
	}
}

func TestFetchDeduplicatesAcrossRuns(t *testing.T) {
	db := openTestDB(t)
	src := &fakeSource{posts: map[string][]reddit.PostData{
		"forhire": {post("aaa", "Looking for a developer", "")},
	}}

	fetcher := NewFetcher(db, src, testRedditConfig())
	fetcher.Fetch(context.Background())
	result := fetcher.Fetch(context.Background())

	if result.NewPosts != 0 || result.Duplicates != 1 {
		t.Fatalf("expected duplicate absorbed, got %+v", result)
	}
}

func TestFetchEmptyKeywordListKeepsEverything(t *testing.T) {
	db := openTestDB(t)
	cfg := testRedditConfig()
	cfg.Keywords = nil
	src := &fakeSource{posts: map[string][]reddit.PostData{
		"forhire": {post("aaa", "Anything at all", "")},
	}}

	fetcher := NewFetcher(db, src, cfg)
	result := fetcher.Fetch(context.Background())

	if result.NewPosts != 1 || result.Filtered != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestFetchSourceErrorCounted(t *testing.T) {
	db := openTestDB(t)
	src := &fakeSource{err: errors.New("network down")}

	fetcher := NewFetcher(db, src, testRedditConfig())
	result := fetcher.Fetch(context.Background())

	if result.Errors != 1 || result.TotalFound != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
