// Package notify defines the notification events the pipeline emits.
// Delivery transports (chat, push) live outside this repo; the Recorder
// persists events for external notifiers to drain.
package notify

import (
	"context"
	"log"

	"github.com/zubairkhawar/reddit-tool/internal/database"
)

// Event types emitted by the pipeline.
const (
	TypeHighPriority       = "high_priority"
	TypeReplyApproved      = "reply_approved"
	TypeReplyPosted        = "reply_posted"
	TypeEngagementIncrease = "engagement_increase"
	TypeFollowUpSent       = "follow_up_sent"
	TypeSuccessMarked      = "success_marked"
	TypeError              = "error"
)

// Event is a single notification event.
type Event struct {
	Type    string
	Title   string
	Message string
	PostID  *int64
}

// Notifier receives pipeline events.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Recorder persists events to the notifications table.
type Recorder struct {
	db *database.DB
}

// NewRecorder creates a DB-backed notifier.
func NewRecorder(db *database.DB) *Recorder {
	return &Recorder{db: db}
}

// Notify records the event. A failed insert is logged, never propagated:
// notification loss must not fail the pipeline step that emitted it.
func (r *Recorder) Notify(ctx context.Context, e Event) {
	if _, err := r.db.InsertNotification(e.Type, e.Title, e.Message, e.PostID); err != nil {
		log.Printf("Failed to record %s notification: %v", e.Type, err)
	}
}

// Discard is a no-op notifier for tests and read-only runs.
type Discard struct{}

func (Discard) Notify(context.Context, Event) {}
