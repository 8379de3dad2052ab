package approval

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/zubairkhawar/reddit-tool/internal/database"
	"github.com/zubairkhawar/reddit-tool/internal/notify"
	"github.com/zubairkhawar/reddit-tool/internal/reddit"
)

// fakeGateway implements reddit.Gateway for testing.
type fakeGateway struct {
	commentID    string
	postErr      error
	score        int
	replies      int
	metricsErr   error
	postedTexts  []string
	postedTo     []string
	metricsCalls int
}

func (f *fakeGateway) FetchRecent(_ context.Context, _ string, _ time.Time) ([]reddit.PostData, error) {
	return nil, nil
}

func (f *fakeGateway) PostComment(_ context.Context, redditPostID, text string) (string, error) {
	if f.postErr != nil {
		return "", f.postErr
	}
	f.postedTo = append(f.postedTo, redditPostID)
	f.postedTexts = append(f.postedTexts, text)
	return f.commentID, nil
}

func (f *fakeGateway) GetPostMetrics(_ context.Context, _ string) (int, int, error) {
	f.metricsCalls++
	return f.score, f.replies, f.metricsErr
}

func (f *fakeGateway) GetCommentMetrics(_ context.Context, _ string) (int, int, error) {
	f.metricsCalls++
	return f.score, f.replies, f.metricsErr
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

func insertPostAndReply(t *testing.T, db *database.DB, manual bool) (int64, int64) {
	t.Helper()
	pid, err := db.InsertPost(&database.Post{
		RedditID:  "abc123",
		Title:     "Need automation help",
		Subreddit: "forhire",
		CreatedAt: "2026-08-27 10:00:00",
	})
	if err != nil || pid == 0 {
		t.Fatalf("insert post: id=%d err=%v", pid, err)
	}
	rid, err := db.InsertReply(&database.Reply{
		PostID:                 pid,
		Content:                "draft reply",
		ConfidenceScore:        0.9,
		RequiresManualApproval: manual,
	})
	if err != nil {
		t.Fatalf("insert reply: %v", err)
	}
	return pid, rid
}

func TestApproveAndPost(t *testing.T) {
	db := openTestDB(t)
	_, rid := insertPostAndReply(t, db, true)

	gw := &fakeGateway{commentID: "cmt42"}
	engine := NewEngine(db, gw, notify.NewRecorder(db))

	outcome, err := engine.Approve(context.Background(), rid, "alice")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !outcome.Posted || outcome.CommentID != "cmt42" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(gw.postedTo) != 1 || gw.postedTo[0] != "abc123" {
		t.Errorf("expected comment posted to abc123, got %v", gw.postedTo)
	}

	r, _ := db.GetReplyByID(rid)
	if r.Status != database.StatusPosted || r.ApprovedBy == nil || *r.ApprovedBy != "alice" {
		t.Errorf("unexpected reply state: %+v", r)
	}

	notifs, _ := db.GetUnreadNotifications()
	types := map[string]bool{}
	for _, n := range notifs {
		types[n.Type] = true
	}
	if !types[notify.TypeReplyApproved] || !types[notify.TypeReplyPosted] {
		t.Errorf("expected approved and posted notifications, got %v", types)
	}
}

func TestApproveSendsEditedContent(t *testing.T) {
	db := openTestDB(t)
	_, rid := insertPostAndReply(t, db, true)
	if err := db.EditReplyContent(rid, "the edited version"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	gw := &fakeGateway{commentID: "cmt1"}
	engine := NewEngine(db, gw, notify.Discard{})

	if _, err := engine.Approve(context.Background(), rid, "alice"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if len(gw.postedTexts) != 1 || gw.postedTexts[0] != "the edited version" {
		t.Errorf("expected edited text sent, got %v", gw.postedTexts)
	}

	r, _ := db.GetReplyByID(rid)
	if r.Content != "the edited version" {
		t.Errorf("expected content promoted to edited text, got %q", r.Content)
	}
}

func TestApproveTwiceFails(t *testing.T) {
	db := openTestDB(t)
	_, rid := insertPostAndReply(t, db, true)

	engine := NewEngine(db, &fakeGateway{commentID: "c"}, notify.Discard{})
	if _, err := engine.Approve(context.Background(), rid, "alice"); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if _, err := engine.Approve(context.Background(), rid, "bob"); !errors.Is(err, database.ErrIllegalTransition) {
		t.Errorf("expected ErrIllegalTransition on second approve, got %v", err)
	}
}

func TestPostingFailureMarksFailed(t *testing.T) {
	db := openTestDB(t)
	_, rid := insertPostAndReply(t, db, true)

	gw := &fakeGateway{postErr: &reddit.GatewayError{Call: "post_comment", Err: errors.New("RATELIMIT")}}
	engine := NewEngine(db, gw, notify.Discard{})

	outcome, err := engine.Approve(context.Background(), rid, "alice")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if outcome.Posted {
		t.Fatal("expected posting failure")
	}

	r, _ := db.GetReplyByID(rid)
	if r.Status != database.StatusFailed {
		t.Errorf("expected failed status (not rejected), got %s", r.Status)
	}
	if r.ErrorMessage == nil || *r.ErrorMessage == "" {
		t.Error("expected error message recorded")
	}
}

func TestRejectedIsTerminal(t *testing.T) {
	db := openTestDB(t)
	_, rid := insertPostAndReply(t, db, true)

	engine := NewEngine(db, &fakeGateway{}, notify.Discard{})
	if err := engine.Reject(rid, "alice"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := engine.Approve(context.Background(), rid, "alice"); !errors.Is(err, database.ErrIllegalTransition) {
		t.Errorf("expected rejected reply to be unapprovable, got %v", err)
	}
}

func TestPostApprovedAutoApproves(t *testing.T) {
	db := openTestDB(t)
	_, autoID := insertPostAndReply(t, db, false)

	pid2, _ := db.InsertPost(&database.Post{
		RedditID: "def456", Title: "Another post", Subreddit: "forhire",
		CreatedAt: "2026-08-27 10:00:00",
	})
	manualID, _ := db.InsertReply(&database.Reply{
		PostID: pid2, Content: "held draft", RequiresManualApproval: true,
	})

	gw := &fakeGateway{commentID: "cmt9"}
	engine := NewEngine(db, gw, notify.Discard{})
	result := engine.PostApproved(context.Background())

	if result.Approved != 1 || result.Posted != 1 {
		t.Fatalf("expected 1 auto-approved and posted, got %+v", result)
	}

	auto, _ := db.GetReplyByID(autoID)
	if auto.Status != database.StatusPosted || auto.ApprovedBy == nil || *auto.ApprovedBy != "auto" {
		t.Errorf("expected auto-approved posted reply, got %+v", auto)
	}

	manual, _ := db.GetReplyByID(manualID)
	if manual.Status != database.StatusPending {
		t.Errorf("manual-approval reply must stay pending, got %s", manual.Status)
	}
}

func TestMarkSuccessful(t *testing.T) {
	db := openTestDB(t)
	_, rid := insertPostAndReply(t, db, true)

	engine := NewEngine(db, &fakeGateway{}, notify.NewRecorder(db))
	if err := engine.MarkSuccessful(context.Background(), rid, "alice", "client hired me"); err != nil {
		t.Fatalf("mark successful: %v", err)
	}

	r, _ := db.GetReplyByID(rid)
	if !r.MarkedSuccessful || r.SuccessNotes == nil || *r.SuccessNotes != "client hired me" {
		t.Errorf("unexpected reply: %+v", r)
	}

	notifs, _ := db.GetUnreadNotifications()
	if len(notifs) != 1 || notifs[0].Type != notify.TypeSuccessMarked {
		t.Errorf("expected success notification, got %+v", notifs)
	}
}

func TestUpdateEngagementNotifiesOnThreshold(t *testing.T) {
	db := openTestDB(t)
	_, rid := insertPostAndReply(t, db, false)

	engine := NewEngine(db, &fakeGateway{commentID: "cmt1"}, notify.Discard{})
	if _, err := engine.Approve(context.Background(), rid, "auto"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	gw := &fakeGateway{score: 7, replies: 2}
	engine = NewEngine(db, gw, notify.NewRecorder(db))
	if err := engine.UpdateEngagement(context.Background()); err != nil {
		t.Fatalf("update engagement: %v", err)
	}

	r, _ := db.GetReplyByID(rid)
	if r.Upvotes != 7 || r.ReplyCount != 2 {
		t.Errorf("expected engagement stored, got %+v", r)
	}

	notifs, _ := db.GetUnreadNotifications()
	if len(notifs) != 1 || notifs[0].Type != notify.TypeEngagementIncrease {
		t.Fatalf("expected engagement notification, got %+v", notifs)
	}

	// A second pass at the same score does not notify again.
	if err := engine.UpdateEngagement(context.Background()); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	notifs, _ = db.GetUnreadNotifications()
	if len(notifs) != 1 {
		t.Errorf("expected no repeat notification, got %d", len(notifs))
	}
}
