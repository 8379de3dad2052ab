package classify

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/zubairkhawar/reddit-tool/internal/database"
	"github.com/zubairkhawar/reddit-tool/internal/notify"
)

// mockProvider implements llm.Provider for testing.
type mockProvider struct {
	response string
	err      error
}

func (m *mockProvider) Generate(_ context.Context, _ string, _ float64, _ int) (string, error) {
	return m.response, m.err
}

func (m *mockProvider) IsConfigured() bool { return true }

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTestPost(t *testing.T, db *database.DB, redditID, title, body string) int64 {
	t.Helper()
	id, err := db.InsertPost(&database.Post{
		RedditID:  redditID,
		Title:     title,
		Body:      body,
		Subreddit: "forhire",
		CreatedAt: "2026-08-27 10:00:00",
	})
	if err != nil || id == 0 {
		t.Fatalf("failed to insert post: id=%d err=%v", id, err)
	}
	return id
}

func TestClassifyOpportunity(t *testing.T) {
	db := openTestDB(t)
	pid := insertTestPost(t, db, "abc123", "Need a Django developer",
		"Looking for someone to automate my reports, budget $500, need it ASAP")

	resp, _ := json.Marshal(map[string]any{
		"is_opportunity":   true,
		"priority":         "high",
		"confidence_score": 0.85,
		"summary":          "Automating reports in Django",
		"intent":           "Hire a developer for report automation",
		"budget_mentioned": true,
		"budget_amount":    "$500",
		"services_needed":  "web development, automation",
		"urgency_level":    "high",
	})

	engine := NewEngine(db, NewLLMClassifier(&mockProvider{response: string(resp)}), notify.Discard{})
	result := engine.ClassifyPosts(context.Background())

	if result.Processed != 1 || result.Opportunities != 1 {
		t.Fatalf("expected 1 processed opportunity, got %+v", result)
	}

	c, _ := db.GetClassification(pid)
	if c == nil || !c.IsOpportunity || c.Priority != database.PriorityHigh {
		t.Fatalf("unexpected classification: %+v", c)
	}
	if c.ConfidenceScore != 0.85 || c.BudgetAmount != "$500" {
		t.Errorf("unexpected fields: %+v", c)
	}

	p, _ := db.GetPostByID(pid)
	if !p.IsOpportunity || p.Priority != database.PriorityHigh {
		t.Error("expected denormalized opportunity flags on the post")
	}
}

func TestClassifyStripsCodeFences(t *testing.T) {
	db := openTestDB(t)
	pid := insertTestPost(t, db, "abc123", "Hiring", "Need a bot built")

	resp := "```json\n{\"is_opportunity\": true, \"priority\": \"medium\", \"confidence_score\": 0.7}\n```"
	engine := NewEngine(db, NewLLMClassifier(&mockProvider{response: resp}), notify.Discard{})
	result := engine.ClassifyPosts(context.Background())

	if result.Opportunities != 1 {
		t.Fatalf("expected fenced JSON to parse, got %+v", result)
	}
	c, _ := db.GetClassification(pid)
	if c.ConfidenceScore != 0.7 {
		t.Errorf("expected confidence 0.7, got %v", c.ConfidenceScore)
	}
}

func TestClassifyUnparseableResponseFallsBack(t *testing.T) {
	db := openTestDB(t)
	pid := insertTestPost(t, db, "abc123", "Hiring", "Need help")

	engine := NewEngine(db, NewLLMClassifier(&mockProvider{response: "not json at all"}), notify.Discard{})
	result := engine.ClassifyPosts(context.Background())

	if result.Processed != 1 || result.Fallbacks != 1 {
		t.Fatalf("expected 1 fallback, got %+v", result)
	}

	c, _ := db.GetClassification(pid)
	if c == nil || c.IsOpportunity || c.ConfidenceScore != 0 || c.Priority != database.PriorityLow {
		t.Fatalf("unexpected fallback record: %+v", c)
	}
	if c.Summary != "Classification failed" {
		t.Errorf("expected failure summary, got %q", c.Summary)
	}

	// Fallback is terminal: the post is not retried.
	posts, _ := db.GetUnclassifiedPosts()
	if len(posts) != 0 {
		t.Error("expected no posts pending classification after fallback")
	}
}

func TestClassifyProviderErrorLeavesPostUnclassified(t *testing.T) {
	db := openTestDB(t)
	insertTestPost(t, db, "abc123", "Hiring", "Need help")

	engine := NewEngine(db, NewLLMClassifier(&mockProvider{err: errors.New("connection refused")}), notify.Discard{})
	result := engine.ClassifyPosts(context.Background())

	if result.Errors != 1 || result.Processed != 0 {
		t.Fatalf("expected 1 error, got %+v", result)
	}

	posts, _ := db.GetUnclassifiedPosts()
	if len(posts) != 1 {
		t.Error("expected post to stay unclassified for the next batch")
	}
}

func TestClassifyHighPriorityNotification(t *testing.T) {
	db := openTestDB(t)
	insertTestPost(t, db, "abc123", "Urgent: need automation built today", "Paying well")

	resp, _ := json.Marshal(map[string]any{
		"is_opportunity":   true,
		"priority":         "urgent",
		"confidence_score": 0.9,
		"summary":          "Urgent automation build",
	})
	engine := NewEngine(db, NewLLMClassifier(&mockProvider{response: string(resp)}), notify.NewRecorder(db))
	engine.ClassifyPosts(context.Background())

	notifs, _ := db.GetUnreadNotifications()
	if len(notifs) != 1 || notifs[0].Type != notify.TypeHighPriority {
		t.Fatalf("expected one high_priority notification, got %+v", notifs)
	}
}

func TestClassifyInvalidPriorityCoerced(t *testing.T) {
	db := openTestDB(t)
	pid := insertTestPost(t, db, "abc123", "Hiring", "Need help")

	resp, _ := json.Marshal(map[string]any{
		"is_opportunity":   true,
		"priority":         "SUPER-HIGH",
		"confidence_score": 0.6,
	})
	engine := NewEngine(db, NewLLMClassifier(&mockProvider{response: string(resp)}), notify.Discard{})
	engine.ClassifyPosts(context.Background())

	c, _ := db.GetClassification(pid)
	if c.Priority != database.PriorityLow {
		t.Errorf("expected unknown priority coerced to low, got %q", c.Priority)
	}
}

func TestKeywordClassifierOpportunity(t *testing.T) {
	k := NewKeywordClassifier()
	c, err := k.Classify(context.Background(), &database.Post{
		Title: "[Hiring] Looking for a web scraping bot",
		Body:  "Need someone to build a scraper, budget $300, needed ASAP",
	})
	if err != nil {
		t.Fatalf("keyword classify: %v", err)
	}
	if !c.IsOpportunity {
		t.Fatal("expected opportunity")
	}
	if c.Priority != database.PriorityUrgent {
		t.Errorf("expected urgent priority with urgency words, got %q", c.Priority)
	}
	if !c.BudgetMentioned || c.BudgetAmount == "" {
		t.Errorf("expected budget detected, got %+v", c)
	}
	if c.ServicesNeeded == "" {
		t.Error("expected services extracted")
	}
}

func TestKeywordClassifierNonOpportunity(t *testing.T) {
	k := NewKeywordClassifier()
	c, _ := k.Classify(context.Background(), &database.Post{
		Title: "What editor do you all use?",
		Body:  "Just curious about everyone's setup.",
	})
	if c.IsOpportunity {
		t.Errorf("expected non-opportunity, got %+v", c)
	}
	if c.Priority != database.PriorityLow {
		t.Errorf("expected low priority, got %q", c.Priority)
	}
}

func TestKeywordClassifierWordBoundaries(t *testing.T) {
	k := NewKeywordClassifier()
	c, _ := k.Classify(context.Background(), &database.Post{
		Title: "Looking for someone to maintain my garden",
		Body:  "Paid work, weekly.",
	})
	for _, svc := range []string{"ai integration"} {
		if c.ServicesNeeded != "" && c.ServicesNeeded == svc {
			t.Errorf("'ai' must not match inside 'maintain': %q", c.ServicesNeeded)
		}
	}
}

func TestTruncateKeepsRuneBoundaries(t *testing.T) {
	// "é" is two bytes; a cut at 4 lands mid-rune and must back up.
	s := "caf" + strings.Repeat("é", 10)
	got := truncate(s, 4)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate produced invalid UTF-8: %q", got)
	}
	if got != "caf..." {
		t.Errorf("truncate = %q, want %q", got, "caf...")
	}
	if got := truncate(s, 5); got != "café..." {
		t.Errorf("cut on a rune boundary must keep the full rune, got %q", got)
	}
	if truncate("short", 100) != "short" {
		t.Error("strings under the limit must pass through unchanged")
	}
}
