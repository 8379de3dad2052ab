package database

import (
	"database/sql"
)

const replyColumns = `id, post_id, content, edited_content, status, reddit_comment_id,
	upvotes, downvotes, reply_count, posted_at, error_message,
	confidence_score, requires_manual_approval, approved_by, approved_at,
	marked_successful, marked_successful_at, marked_successful_by, success_notes,
	is_follow_up, created_at, updated_at`

// InsertReply persists a new reply and returns its ID.
func (db *DB) InsertReply(r *Reply) (int64, error) {
	status := r.Status
	if status == "" {
		status = StatusPending
	}
	result, err := db.conn.Exec(
		`INSERT INTO replies
		(post_id, content, status, reddit_comment_id, posted_at, confidence_score,
		 requires_manual_approval, is_follow_up)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.PostID, r.Content, status, r.RedditCommentID, r.PostedAt, r.ConfidenceScore,
		boolInt(r.RequiresManualApproval), boolInt(r.IsFollowUp),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetReplyByID returns a single reply, or nil if not found.
func (db *DB) GetReplyByID(replyID int64) (*Reply, error) {
	row := db.conn.QueryRow(`SELECT `+replyColumns+` FROM replies WHERE id = ?`, replyID)
	r, err := scanReplyRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetRepliesByStatus returns replies in the given status, oldest first.
func (db *DB) GetRepliesByStatus(status string) ([]Reply, error) {
	rows, err := db.conn.Query(
		`SELECT `+replyColumns+` FROM replies WHERE status = ? ORDER BY created_at ASC`, status,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReplies(rows)
}

// GetAutoApprovableReplies returns pending replies not flagged for manual
// approval, oldest first.
func (db *DB) GetAutoApprovableReplies() ([]Reply, error) {
	rows, err := db.conn.Query(
		`SELECT ` + replyColumns + ` FROM replies
		WHERE status = 'pending' AND requires_manual_approval = 0
		ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReplies(rows)
}

// GetPostedRepliesWithComment returns posted replies that have a remote
// comment ID, for engagement refresh.
func (db *DB) GetPostedRepliesWithComment() ([]Reply, error) {
	rows, err := db.conn.Query(
		`SELECT ` + replyColumns + ` FROM replies
		WHERE status = 'posted' AND reddit_comment_id IS NOT NULL
		ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReplies(rows)
}

// PostHasReply reports whether any reply exists for the post.
func (db *DB) PostHasReply(postID int64) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM replies WHERE post_id = ?", postID).Scan(&count)
	return count > 0, err
}

// ApproveReply transitions a reply from pending to approved, recording the
// actor and timestamp. The guarded single-statement UPDATE is the per-reply
// serialization point: of two concurrent approvals, exactly one matches the
// pending row; the loser gets ErrIllegalTransition.
func (db *DB) ApproveReply(replyID int64, actor, approvedAt string) error {
	return db.guardedUpdate(
		`UPDATE replies SET status = 'approved', approved_by = ?, approved_at = ?,
		updated_at = datetime('now')
		WHERE id = ? AND status = 'pending'`,
		actor, approvedAt, replyID,
	)
}

// RejectReply transitions a reply from pending to rejected.
func (db *DB) RejectReply(replyID int64, actor string) error {
	return db.guardedUpdate(
		`UPDATE replies SET status = 'rejected', approved_by = ?, updated_at = datetime('now')
		WHERE id = ? AND status = 'pending'`,
		actor, replyID,
	)
}

// MarkReplyPosted transitions a reply from approved to posted with the
// remote comment identifier.
func (db *DB) MarkReplyPosted(replyID int64, commentID, postedAt string) error {
	return db.guardedUpdate(
		`UPDATE replies SET status = 'posted', reddit_comment_id = ?, posted_at = ?,
		updated_at = datetime('now')
		WHERE id = ? AND status = 'approved'`,
		commentID, postedAt, replyID,
	)
}

// MarkReplyFailed transitions a reply from approved to failed, recording the
// posting error for operator review.
func (db *DB) MarkReplyFailed(replyID int64, errorMessage string) error {
	return db.guardedUpdate(
		`UPDATE replies SET status = 'failed', error_message = ?, updated_at = datetime('now')
		WHERE id = ? AND status = 'approved'`,
		errorMessage, replyID,
	)
}

// EditReplyContent sets edited_content. Legal only while pending.
func (db *DB) EditReplyContent(replyID int64, text string) error {
	return db.guardedUpdate(
		`UPDATE replies SET edited_content = ?, updated_at = datetime('now')
		WHERE id = ? AND status = 'pending'`,
		text, replyID,
	)
}

// PromoteEditedContent overwrites content with edited_content so the record
// reflects what is actually sent. No-op when nothing was edited.
func (db *DB) PromoteEditedContent(replyID int64) error {
	_, err := db.conn.Exec(
		`UPDATE replies SET content = edited_content, updated_at = datetime('now')
		WHERE id = ? AND edited_content IS NOT NULL AND edited_content != ''`,
		replyID,
	)
	return err
}

// MarkReplySuccessful sets the orthogonal success flag. Legal in any status;
// it records an outcome for analytics, not a state transition.
func (db *DB) MarkReplySuccessful(replyID int64, actor, notes, at string) error {
	result, err := db.conn.Exec(
		`UPDATE replies SET marked_successful = 1, marked_successful_by = ?,
		marked_successful_at = ?, success_notes = ?, updated_at = datetime('now')
		WHERE id = ?`,
		actor, at, notes, replyID,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateReplyEngagement refreshes post-time metrics on a posted reply.
func (db *DB) UpdateReplyEngagement(replyID int64, upvotes, replyCount int) error {
	_, err := db.conn.Exec(
		`UPDATE replies SET upvotes = ?, reply_count = ?, updated_at = datetime('now')
		WHERE id = ?`,
		upvotes, replyCount, replyID,
	)
	return err
}

func (db *DB) guardedUpdate(query string, args ...any) error {
	result, err := db.conn.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrIllegalTransition
	}
	return nil
}

func scanReplies(rows *sql.Rows) ([]Reply, error) {
	var replies []Reply
	for rows.Next() {
		r, err := scanReplyRow(rows)
		if err != nil {
			return nil, err
		}
		replies = append(replies, *r)
	}
	return replies, rows.Err()
}

func scanReplyRow(row rowScanner) (*Reply, error) {
	var r Reply
	var manual, successful, followUp int
	if err := row.Scan(&r.ID, &r.PostID, &r.Content, &r.EditedContent, &r.Status, &r.RedditCommentID,
		&r.Upvotes, &r.Downvotes, &r.ReplyCount, &r.PostedAt, &r.ErrorMessage,
		&r.ConfidenceScore, &manual, &r.ApprovedBy, &r.ApprovedAt,
		&successful, &r.MarkedSuccessfulAt, &r.MarkedSuccessfulBy, &r.SuccessNotes,
		&followUp, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.RequiresManualApproval = manual != 0
	r.MarkedSuccessful = successful != 0
	r.IsFollowUp = followUp != 0
	return &r, nil
}
