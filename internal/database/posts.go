package database

import (
	"database/sql"
)

const postColumns = `id, reddit_id, title, body, author, subreddit, url, score, comment_count,
	created_at, fetched_at, is_opportunity, priority,
	monitoring_enabled, last_monitored_at, engagement_increased, new_comments_since_last_check,
	follow_up_sent, follow_up_sent_at, follow_up_content`

// InsertPost inserts a post. Returns the ID on success, 0 if the reddit_id
// already exists (deduplication boundary).
func (db *DB) InsertPost(p *Post) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO posts (reddit_id, title, body, author, subreddit, url, score, comment_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.RedditID, p.Title, p.Body, p.Author, p.Subreddit, p.URL, p.Score, p.CommentCount, p.CreatedAt,
	)
	if err != nil {
		// Duplicate reddit_id constraint
		return 0, nil //nolint: nilerr
	}
	return result.LastInsertId()
}

// GetPostByID returns a single post by ID, or nil if not found.
func (db *DB) GetPostByID(postID int64) (*Post, error) {
	row := db.conn.QueryRow(`SELECT `+postColumns+` FROM posts WHERE id = ?`, postID)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPostByRedditID returns a post by its external identifier, or nil.
func (db *DB) GetPostByRedditID(redditID string) (*Post, error) {
	row := db.conn.QueryRow(`SELECT `+postColumns+` FROM posts WHERE reddit_id = ?`, redditID)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetUnclassifiedPosts returns posts with no classification record,
// newest first. A post stays here until a classification row exists,
// so transient classifier failures are retried on the next batch.
func (db *DB) GetUnclassifiedPosts() ([]Post, error) {
	rows, err := db.conn.Query(
		`SELECT ` + prefixedPostColumns + `
		FROM posts p LEFT JOIN classifications c ON p.id = c.post_id
		WHERE c.post_id IS NULL
		ORDER BY p.created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

// GetPostsNeedingReply returns opportunity posts that have a classification
// but no reply yet, newest first.
func (db *DB) GetPostsNeedingReply() ([]Post, error) {
	rows, err := db.conn.Query(
		`SELECT ` + prefixedPostColumns + `
		FROM posts p
		JOIN classifications c ON p.id = c.post_id
		LEFT JOIN replies r ON p.id = r.post_id
		WHERE c.is_opportunity = 1 AND r.id IS NULL
		ORDER BY p.created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

// GetPostsDueForMonitoring returns opportunity posts with monitoring enabled
// whose last check is older than the cutoff (or that were never checked).
func (db *DB) GetPostsDueForMonitoring(cutoff string) ([]Post, error) {
	rows, err := db.conn.Query(
		`SELECT `+prefixedPostColumns+`
		FROM posts p
		WHERE p.monitoring_enabled = 1 AND p.is_opportunity = 1
		AND (p.last_monitored_at IS NULL OR p.last_monitored_at < ?)
		ORDER BY p.created_at DESC`, cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

// GetPostsNeedingFollowUp returns posts with increased engagement where no
// follow-up has been sent yet.
func (db *DB) GetPostsNeedingFollowUp() ([]Post, error) {
	rows, err := db.conn.Query(
		`SELECT ` + prefixedPostColumns + `
		FROM posts p
		WHERE p.follow_up_sent = 0 AND p.engagement_increased = 1
		ORDER BY p.created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPosts(rows)
}

// SetPostOpportunity updates the denormalized opportunity flags on a post
// after classification.
func (db *DB) SetPostOpportunity(postID int64, isOpportunity bool, priority string) error {
	_, err := db.conn.Exec(
		"UPDATE posts SET is_opportunity = ?, priority = ? WHERE id = ?",
		boolInt(isOpportunity), priority, postID,
	)
	return err
}

// RecordEngagementDrift updates a post after the monitor detected a score or
// comment-count change. engagement_increased stays set once true; quiet
// passes never reset it.
func (db *DB) RecordEngagementDrift(postID int64, score, commentCount, newComments int) error {
	_, err := db.conn.Exec(
		`UPDATE posts SET engagement_increased = 1, new_comments_since_last_check = ?,
		score = ?, comment_count = ? WHERE id = ?`,
		newComments, score, commentCount, postID,
	)
	return err
}

// TouchLastMonitored advances last_monitored_at so a post is not rechecked
// before the next interval, drift or not.
func (db *DB) TouchLastMonitored(postID int64, now string) error {
	_, err := db.conn.Exec(
		"UPDATE posts SET last_monitored_at = ? WHERE id = ?", now, postID,
	)
	return err
}

// MarkFollowUpSent records that a follow-up was posted for this post.
func (db *DB) MarkFollowUpSent(postID int64, content, sentAt string) error {
	_, err := db.conn.Exec(
		`UPDATE posts SET follow_up_sent = 1, follow_up_sent_at = ?, follow_up_content = ?
		WHERE id = ?`,
		sentAt, content, postID,
	)
	return err
}

const prefixedPostColumns = `p.id, p.reddit_id, p.title, p.body, p.author, p.subreddit, p.url,
	p.score, p.comment_count, p.created_at, p.fetched_at, p.is_opportunity, p.priority,
	p.monitoring_enabled, p.last_monitored_at, p.engagement_increased, p.new_comments_since_last_check,
	p.follow_up_sent, p.follow_up_sent_at, p.follow_up_content`

func scanPosts(rows *sql.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		p, err := scanPostRow(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row *sql.Row) (*Post, error) {
	return scanPostRow(row)
}

func scanPostRow(row rowScanner) (*Post, error) {
	var p Post
	var isOpp, monitoring, engIncreased, followUpSent int
	if err := row.Scan(&p.ID, &p.RedditID, &p.Title, &p.Body, &p.Author, &p.Subreddit, &p.URL,
		&p.Score, &p.CommentCount, &p.CreatedAt, &p.FetchedAt, &isOpp, &p.Priority,
		&monitoring, &p.LastMonitoredAt, &engIncreased, &p.NewCommentsSinceLastCheck,
		&followUpSent, &p.FollowUpSentAt, &p.FollowUpContent); err != nil {
		return nil, err
	}
	p.IsOpportunity = isOpp != 0
	p.MonitoringEnabled = monitoring != 0
	p.EngagementIncreased = engIncreased != 0
	p.FollowUpSent = followUpSent != 0
	return &p, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
