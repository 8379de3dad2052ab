package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    reddit_id TEXT UNIQUE NOT NULL,
    title TEXT NOT NULL,
    body TEXT NOT NULL DEFAULT '',
    author TEXT NOT NULL DEFAULT '',
    subreddit TEXT NOT NULL,
    url TEXT NOT NULL DEFAULT '',
    score INTEGER DEFAULT 0,
    comment_count INTEGER DEFAULT 0,
    created_at TEXT NOT NULL,
    fetched_at TEXT DEFAULT (datetime('now')),
    is_opportunity INTEGER DEFAULT 0,
    priority TEXT DEFAULT 'low',
    monitoring_enabled INTEGER DEFAULT 1,
    last_monitored_at TEXT,
    engagement_increased INTEGER DEFAULT 0,
    new_comments_since_last_check INTEGER DEFAULT 0,
    follow_up_sent INTEGER DEFAULT 0,
    follow_up_sent_at TEXT,
    follow_up_content TEXT
);

CREATE TABLE IF NOT EXISTS classifications (
    post_id INTEGER PRIMARY KEY REFERENCES posts(id),
    is_opportunity INTEGER NOT NULL,
    priority TEXT NOT NULL DEFAULT 'low'
        CHECK(priority IN ('low', 'medium', 'high', 'urgent')),
    confidence_score REAL DEFAULT 0.0,
    summary TEXT DEFAULT '',
    intent TEXT DEFAULT '',
    budget_mentioned INTEGER DEFAULT 0,
    budget_amount TEXT DEFAULT '',
    services_needed TEXT DEFAULT '',
    urgency_level TEXT DEFAULT '',
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS replies (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    post_id INTEGER NOT NULL REFERENCES posts(id),
    content TEXT NOT NULL,
    edited_content TEXT,
    status TEXT NOT NULL DEFAULT 'pending'
        CHECK(status IN ('pending', 'approved', 'rejected', 'posted', 'failed')),
    reddit_comment_id TEXT,
    upvotes INTEGER DEFAULT 0,
    downvotes INTEGER DEFAULT 0,
    reply_count INTEGER DEFAULT 0,
    posted_at TEXT,
    error_message TEXT,
    confidence_score REAL DEFAULT 0.0,
    requires_manual_approval INTEGER DEFAULT 0,
    approved_by TEXT,
    approved_at TEXT,
    marked_successful INTEGER DEFAULT 0,
    marked_successful_at TEXT,
    marked_successful_by TEXT,
    success_notes TEXT,
    is_follow_up INTEGER DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now')),
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS reply_templates (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    category TEXT NOT NULL DEFAULT 'general'
        CHECK(category IN ('ai_automation', 'web_development', 'data_analysis', 'mobile_app', 'general')),
    content TEXT NOT NULL,
    is_active INTEGER DEFAULT 1,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS personas (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    tone TEXT DEFAULT 'professional',
    style TEXT DEFAULT '',
    include_portfolio INTEGER DEFAULT 0,
    portfolio_url TEXT DEFAULT '',
    include_cta INTEGER DEFAULT 1,
    cta_text TEXT DEFAULT 'DM me if this sounds like a good fit!',
    is_active INTEGER DEFAULT 1,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS notifications (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    notification_type TEXT NOT NULL,
    title TEXT NOT NULL,
    message TEXT NOT NULL DEFAULT '',
    post_id INTEGER REFERENCES posts(id),
    is_read INTEGER DEFAULT 0,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS daily_metrics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    date TEXT UNIQUE NOT NULL,
    posts_fetched INTEGER DEFAULT 0,
    opportunities_found INTEGER DEFAULT 0,
    replies_posted INTEGER DEFAULT 0,
    follow_ups_sent INTEGER DEFAULT 0,
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_posts_reddit_id ON posts(reddit_id);
CREATE INDEX IF NOT EXISTS idx_posts_opportunity ON posts(is_opportunity);
CREATE INDEX IF NOT EXISTS idx_posts_monitored ON posts(last_monitored_at);
CREATE INDEX IF NOT EXISTS idx_replies_post ON replies(post_id);
CREATE INDEX IF NOT EXISTS idx_replies_status ON replies(status);
CREATE INDEX IF NOT EXISTS idx_templates_category ON reply_templates(category);
CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(is_read);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
