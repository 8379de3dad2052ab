// Package monitor tracks engagement on opportunity posts after the reply
// went out, and sends deterministic follow-up comments when a thread heats
// up.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/zubairkhawar/reddit-tool/internal/config"
	"github.com/zubairkhawar/reddit-tool/internal/database"
	"github.com/zubairkhawar/reddit-tool/internal/metrics"
	"github.com/zubairkhawar/reddit-tool/internal/notify"
	"github.com/zubairkhawar/reddit-tool/internal/reddit"
)

const timeLayout = "2006-01-02 15:04:05"

// Monitor refreshes engagement on tracked posts and drives follow-ups.
type Monitor struct {
	db       *database.DB
	gateway  reddit.Gateway
	notifier notify.Notifier
	cfg      config.Monitor
}

// New creates a monitor.
func New(db *database.DB, gateway reddit.Gateway, notifier notify.Notifier, cfg config.Monitor) *Monitor {
	return &Monitor{db: db, gateway: gateway, notifier: notifier, cfg: cfg}
}

// Result holds the results of a monitoring pass.
type Result struct {
	Checked int
	Drifted int
	Errors  int
}

// MonitorDue re-fetches score and comment counts for every opportunity post
// whose last check is older than the configured interval. Any change from the
// stored values counts as drift: the stored score and comment count are
// refreshed and the engagement flags set, so a dip followed by new activity is
// still caught on the next pass. last_monitored_at advances whether or not
// anything changed, so a quiet post is not rechecked before the next interval.
func (m *Monitor) MonitorDue(ctx context.Context, now time.Time) *Result {
	r := &Result{}

	cutoff := now.UTC().Add(-time.Duration(m.cfg.IntervalHours) * time.Hour).Format(timeLayout)
	posts, err := m.db.GetPostsDueForMonitoring(cutoff)
	if err != nil {
		log.Printf("Error getting posts due for monitoring: %v", err)
		r.Errors++
		return r
	}

	nowStr := now.UTC().Format(timeLayout)
	for i := range posts {
		post := &posts[i]
		score, comments, err := m.gateway.GetPostMetrics(ctx, post.RedditID)
		if err != nil {
			var gwErr *reddit.GatewayError
			if errors.As(err, &gwErr) {
				metrics.IncGatewayError(gwErr.Call)
			}
			log.Printf("Error fetching metrics for post %d: %v", post.ID, err)
			r.Errors++
			continue
		}
		r.Checked++

		if score != post.Score || comments != post.CommentCount {
			newComments := comments - post.CommentCount
			if newComments < 0 {
				newComments = 0
			}
			if err := m.db.RecordEngagementDrift(post.ID, score, comments, newComments); err != nil {
				log.Printf("Error recording engagement for post %d: %v", post.ID, err)
				r.Errors++
				continue
			}
			r.Drifted++

			postID := post.ID
			m.notifier.Notify(ctx, notify.Event{
				Type:  notify.TypeEngagementIncrease,
				Title: "Engagement changed on: " + truncate(post.Title, 100),
				Message: fmt.Sprintf("Score %d -> %d, comments %d -> %d",
					post.Score, score, post.CommentCount, comments),
				PostID: &postID,
			})
		}

		if err := m.db.TouchLastMonitored(post.ID, nowStr); err != nil {
			log.Printf("Error touching last_monitored_at for post %d: %v", post.ID, err)
			r.Errors++
		}
	}

	log.Printf("Monitoring complete: %d checked, %d drifted, %d errors", r.Checked, r.Drifted, r.Errors)
	return r
}

// ShouldSendFollowUp decides whether a post earns a follow-up comment.
// Exactly one follow-up is ever sent per post.
func (m *Monitor) ShouldSendFollowUp(post *database.Post, hasReply bool) bool {
	if post.FollowUpSent {
		return false
	}
	if post.EngagementIncreased && post.Score > m.cfg.FollowUpScoreThreshold {
		return true
	}
	if post.NewCommentsSinceLastCheck > 0 && hasReply {
		return true
	}
	return false
}

// FollowUpContent builds the follow-up text. Deterministic three-way
// choice; follow-ups never go through the model.
func (m *Monitor) FollowUpContent(post *database.Post) string {
	switch {
	case post.Score > m.cfg.FollowUpScoreThreshold:
		return "Looks like this thread is getting a lot of attention. I'm still available if you'd like to discuss the project, feel free to DM me."
	case post.NewCommentsSinceLastCheck > 0:
		return "Saw there's been some new activity here. Just checking in, happy to answer any questions about my earlier offer."
	default:
		return "Just following up on this. Still happy to help if you're looking."
	}
}

// FollowUpResult holds the results of a follow-up pass.
type FollowUpResult struct {
	Sent    int
	Skipped int
	Errors  int
}

// SendFollowUps posts follow-up comments on eligible posts. The follow-up is
// recorded both on the post and as a reply row already in posted state with
// the follow-up flag set, so it shows in reply history without passing
// through approval.
func (m *Monitor) SendFollowUps(ctx context.Context, now time.Time) *FollowUpResult {
	r := &FollowUpResult{}

	posts, err := m.db.GetPostsNeedingFollowUp()
	if err != nil {
		log.Printf("Error getting posts needing follow-up: %v", err)
		r.Errors++
		return r
	}

	nowStr := now.UTC().Format(timeLayout)
	for i := range posts {
		post := &posts[i]
		hasReply, err := m.db.PostHasReply(post.ID)
		if err != nil {
			log.Printf("Error checking replies for post %d: %v", post.ID, err)
			r.Errors++
			continue
		}
		if !m.ShouldSendFollowUp(post, hasReply) {
			r.Skipped++
			continue
		}

		content := m.FollowUpContent(post)
		commentID, err := m.gateway.PostComment(ctx, post.RedditID, content)
		if err != nil {
			var gwErr *reddit.GatewayError
			if errors.As(err, &gwErr) {
				metrics.IncGatewayError(gwErr.Call)
			}
			log.Printf("Error posting follow-up on post %d: %v", post.ID, err)
			r.Errors++
			continue
		}

		if err := m.db.MarkFollowUpSent(post.ID, content, nowStr); err != nil {
			log.Printf("Error marking follow-up sent for post %d: %v", post.ID, err)
			r.Errors++
			continue
		}
		if _, err := m.db.InsertReply(&database.Reply{
			PostID:          post.ID,
			Content:         content,
			Status:          database.StatusPosted,
			RedditCommentID: &commentID,
			PostedAt:        &nowStr,
			IsFollowUp:      true,
		}); err != nil {
			log.Printf("Error recording follow-up reply for post %d: %v", post.ID, err)
			r.Errors++
			continue
		}

		r.Sent++
		metrics.FollowUpsSent.Inc()
		if err := m.db.BumpDailyMetrics(now.UTC().Format("2006-01-02"), 0, 0, 0, 1); err != nil {
			log.Printf("Error updating daily metrics: %v", err)
		}

		postID := post.ID
		m.notifier.Notify(ctx, notify.Event{
			Type:    notify.TypeFollowUpSent,
			Title:   "Follow-up sent on: " + truncate(post.Title, 100),
			Message: content,
			PostID:  &postID,
		})
		log.Printf("Sent follow-up on post %d as comment %s", post.ID, commentID)
	}

	log.Printf("Follow-up complete: %d sent, %d skipped, %d errors", r.Sent, r.Skipped, r.Errors)
	return r
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
