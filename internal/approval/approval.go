// Package approval drives the reply state machine: pending replies are
// approved (by a human or the auto-approval job), posted through the source
// gateway, and end up posted or failed. Rejection and the orthogonal
// success flag live here too.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/zubairkhawar/reddit-tool/internal/database"
	"github.com/zubairkhawar/reddit-tool/internal/metrics"
	"github.com/zubairkhawar/reddit-tool/internal/notify"
	"github.com/zubairkhawar/reddit-tool/internal/reddit"
)

const timeLayout = "2006-01-02 15:04:05"

// engagementNotifyThreshold is the upvote count at which a posted reply
// earns an engagement notification.
const engagementNotifyThreshold = 5

// Engine owns reply state transitions.
type Engine struct {
	db       *database.DB
	gateway  reddit.Gateway
	notifier notify.Notifier
	now      func() time.Time
}

// NewEngine creates an approval engine.
func NewEngine(db *database.DB, gateway reddit.Gateway, notifier notify.Notifier) *Engine {
	return &Engine{db: db, gateway: gateway, notifier: notifier, now: time.Now}
}

// PostingOutcome is the result of one posting attempt.
type PostingOutcome struct {
	Posted    bool
	CommentID string
	Reason    string
}

// Approve transitions a reply from pending to approved and immediately
// attempts to post it. Of two concurrent approvals exactly one wins the
// guarded transition; the loser gets database.ErrIllegalTransition, so at
// most one posting attempt is ever in flight per reply.
func (e *Engine) Approve(ctx context.Context, replyID int64, actor string) (*PostingOutcome, error) {
	nowStr := e.now().UTC().Format(timeLayout)
	if err := e.db.ApproveReply(replyID, actor, nowStr); err != nil {
		return nil, err
	}
	// What was edited is what gets sent; make the record say so.
	if err := e.db.PromoteEditedContent(replyID); err != nil {
		return nil, fmt.Errorf("promoting edited content: %w", err)
	}

	reply, err := e.db.GetReplyByID(replyID)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, fmt.Errorf("reply %d disappeared after approval", replyID)
	}

	post, err := e.db.GetPostByID(reply.PostID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("post %d not found for reply %d", reply.PostID, replyID)
	}

	postID := post.ID
	e.notifier.Notify(ctx, notify.Event{
		Type:    notify.TypeReplyApproved,
		Title:   "Reply approved for: " + truncate(post.Title, 100),
		Message: fmt.Sprintf("Approved by %s", actor),
		PostID:  &postID,
	})

	return e.post(ctx, reply, post)
}

// post sends an approved reply through the gateway and records the outcome.
func (e *Engine) post(ctx context.Context, reply *database.Reply, post *database.Post) (*PostingOutcome, error) {
	commentID, err := e.gateway.PostComment(ctx, post.RedditID, reply.Content)
	if err != nil {
		var gwErr *reddit.GatewayError
		if errors.As(err, &gwErr) {
			metrics.IncGatewayError(gwErr.Call)
		}
		metrics.PostingErrors.Inc()

		reason := err.Error()
		if dbErr := e.db.MarkReplyFailed(reply.ID, reason); dbErr != nil {
			return nil, fmt.Errorf("recording posting failure: %w", dbErr)
		}
		log.Printf("Posting reply %d failed: %v", reply.ID, err)
		return &PostingOutcome{Posted: false, Reason: reason}, nil
	}

	nowStr := e.now().UTC().Format(timeLayout)
	if err := e.db.MarkReplyPosted(reply.ID, commentID, nowStr); err != nil {
		return nil, fmt.Errorf("recording posted reply: %w", err)
	}
	metrics.RepliesPosted.Inc()
	if err := e.db.BumpDailyMetrics(e.now().UTC().Format("2006-01-02"), 0, 0, 1, 0); err != nil {
		log.Printf("Error updating daily metrics: %v", err)
	}

	postID := post.ID
	e.notifier.Notify(ctx, notify.Event{
		Type:    notify.TypeReplyPosted,
		Title:   "Reply posted on: " + truncate(post.Title, 100),
		Message: "Comment " + commentID,
		PostID:  &postID,
	})
	log.Printf("Posted reply %d as comment %s", reply.ID, commentID)
	return &PostingOutcome{Posted: true, CommentID: commentID}, nil
}

// Reject transitions a reply from pending to rejected.
func (e *Engine) Reject(replyID int64, actor string) error {
	return e.db.RejectReply(replyID, actor)
}

// EditContent stages replacement text on a pending reply. The original
// content is kept until approval promotes the edit.
func (e *Engine) EditContent(replyID int64, text string) error {
	return e.db.EditReplyContent(replyID, text)
}

// MarkSuccessful flags a reply as having led to a real outcome. Legal in
// any status.
func (e *Engine) MarkSuccessful(ctx context.Context, replyID int64, actor, notes string) error {
	nowStr := e.now().UTC().Format(timeLayout)
	if err := e.db.MarkReplySuccessful(replyID, actor, notes, nowStr); err != nil {
		return err
	}

	reply, err := e.db.GetReplyByID(replyID)
	if err != nil || reply == nil {
		return err
	}
	postID := reply.PostID
	e.notifier.Notify(ctx, notify.Event{
		Type:    notify.TypeSuccessMarked,
		Title:   fmt.Sprintf("Reply %d marked successful", replyID),
		Message: notes,
		PostID:  &postID,
	})
	return nil
}

// Result holds the results of a batch posting run.
type Result struct {
	Approved int
	Posted   int
	Failed   int
	Errors   int
}

// PostApproved is the batch posting job: it auto-approves pending replies
// not flagged for manual approval and posts them, plus any replies already
// sitting in approved state from a crashed earlier run.
func (e *Engine) PostApproved(ctx context.Context) *Result {
	r := &Result{}

	auto, err := e.db.GetAutoApprovableReplies()
	if err != nil {
		log.Printf("Error getting auto-approvable replies: %v", err)
		r.Errors++
		return r
	}
	for i := range auto {
		outcome, err := e.Approve(ctx, auto[i].ID, "auto")
		if err != nil {
			if errors.Is(err, database.ErrIllegalTransition) {
				continue // lost the race to a concurrent approval
			}
			log.Printf("Error auto-approving reply %d: %v", auto[i].ID, err)
			r.Errors++
			continue
		}
		r.Approved++
		if outcome.Posted {
			r.Posted++
		} else {
			r.Failed++
		}
	}

	stranded, err := e.db.GetRepliesByStatus(database.StatusApproved)
	if err != nil {
		log.Printf("Error getting approved replies: %v", err)
		r.Errors++
		return r
	}
	for i := range stranded {
		reply := &stranded[i]
		post, err := e.db.GetPostByID(reply.PostID)
		if err != nil || post == nil {
			log.Printf("Error loading post for stranded reply %d: %v", reply.ID, err)
			r.Errors++
			continue
		}
		outcome, err := e.post(ctx, reply, post)
		if err != nil {
			log.Printf("Error posting stranded reply %d: %v", reply.ID, err)
			r.Errors++
			continue
		}
		if outcome.Posted {
			r.Posted++
		} else {
			r.Failed++
		}
	}

	log.Printf("Posting complete: %d approved, %d posted, %d failed, %d errors",
		r.Approved, r.Posted, r.Failed, r.Errors)
	return r
}

// UpdateEngagement refreshes upvote and reply counts on posted replies and
// notifies when a reply first crosses the engagement threshold.
func (e *Engine) UpdateEngagement(ctx context.Context) error {
	replies, err := e.db.GetPostedRepliesWithComment()
	if err != nil {
		return fmt.Errorf("getting posted replies: %w", err)
	}

	for i := range replies {
		reply := &replies[i]
		score, replyCount, err := e.gateway.GetCommentMetrics(ctx, *reply.RedditCommentID)
		if err != nil {
			var gwErr *reddit.GatewayError
			if errors.As(err, &gwErr) {
				metrics.IncGatewayError(gwErr.Call)
			}
			log.Printf("Error fetching engagement for reply %d: %v", reply.ID, err)
			continue
		}

		if err := e.db.UpdateReplyEngagement(reply.ID, score, replyCount); err != nil {
			log.Printf("Error updating engagement for reply %d: %v", reply.ID, err)
			continue
		}

		if score >= engagementNotifyThreshold && reply.Upvotes < engagementNotifyThreshold {
			postID := reply.PostID
			e.notifier.Notify(ctx, notify.Event{
				Type:    notify.TypeEngagementIncrease,
				Title:   fmt.Sprintf("Reply %d is getting traction", reply.ID),
				Message: fmt.Sprintf("%d upvotes, %d replies", score, replyCount),
				PostID:  &postID,
			})
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
