package database

import (
	"database/sql"
)

// BumpDailyMetrics adds the given deltas to the rollup row for a date,
// creating it if needed.
func (db *DB) BumpDailyMetrics(date string, postsFetched, opportunities, repliesPosted, followUps int) error {
	_, err := db.conn.Exec(
		`INSERT INTO daily_metrics (date, posts_fetched, opportunities_found, replies_posted, follow_ups_sent)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			posts_fetched = posts_fetched + excluded.posts_fetched,
			opportunities_found = opportunities_found + excluded.opportunities_found,
			replies_posted = replies_posted + excluded.replies_posted,
			follow_ups_sent = follow_ups_sent + excluded.follow_ups_sent,
			updated_at = datetime('now')`,
		date, postsFetched, opportunities, repliesPosted, followUps,
	)
	return err
}

// GetDailyMetrics returns the rollup for a date, or nil if none exists.
func (db *DB) GetDailyMetrics(date string) (*DailyMetrics, error) {
	row := db.conn.QueryRow(
		`SELECT date, posts_fetched, opportunities_found, replies_posted, follow_ups_sent
		FROM daily_metrics WHERE date = ?`, date,
	)
	var m DailyMetrics
	if err := row.Scan(&m.Date, &m.PostsFetched, &m.OpportunitiesFound, &m.RepliesPosted, &m.FollowUpsSent); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// GetStats returns aggregate statistics for the status command.
func (db *DB) GetStats() (*Stats, error) {
	var s Stats
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM posts", &s.TotalPosts},
		{"SELECT COUNT(*) FROM classifications", &s.ClassifiedPosts},
		{"SELECT COUNT(*) FROM classifications WHERE is_opportunity = 1", &s.Opportunities},
		{"SELECT COUNT(*) FROM replies WHERE status = 'pending'", &s.PendingReplies},
		{"SELECT COUNT(*) FROM replies WHERE status = 'posted'", &s.PostedReplies},
		{"SELECT COUNT(*) FROM replies WHERE status = 'failed'", &s.FailedReplies},
		{"SELECT COUNT(*) FROM posts WHERE follow_up_sent = 1", &s.FollowUpsSent},
		{"SELECT COUNT(*) FROM reply_templates WHERE is_active = 1", &s.ActiveTemplates},
		{"SELECT COUNT(*) FROM notifications WHERE is_read = 0", &s.UnreadNotifs},
	}
	for _, q := range queries {
		if err := db.conn.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return &s, nil
}
