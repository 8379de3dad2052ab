package database

import (
	"database/sql"
	"strings"
)

// InsertClassification persists a classification. The primary key on post_id
// makes a second insert for the same post fail; that failure surfaces as
// ErrAlreadyClassified rather than overwriting the existing judgment.
// Confidence is clamped to [0, 1] and unknown priorities coerce to low.
func (db *DB) InsertClassification(c *Classification) error {
	if c.ConfidenceScore < 0 {
		c.ConfidenceScore = 0
	}
	if c.ConfidenceScore > 1 {
		c.ConfidenceScore = 1
	}
	if !ValidPriority(c.Priority) {
		c.Priority = PriorityLow
	}

	_, err := db.conn.Exec(
		`INSERT INTO classifications
		(post_id, is_opportunity, priority, confidence_score, summary, intent,
		 budget_mentioned, budget_amount, services_needed, urgency_level)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.PostID, boolInt(c.IsOpportunity), c.Priority, c.ConfidenceScore, c.Summary, c.Intent,
		boolInt(c.BudgetMentioned), c.BudgetAmount, c.ServicesNeeded, c.UrgencyLevel,
	)
	if err != nil {
		if strings.Contains(err.Error(), "constraint") {
			return ErrAlreadyClassified
		}
		return err
	}
	return nil
}

// GetClassification returns the classification for a post, or nil if the
// post is still unclassified.
func (db *DB) GetClassification(postID int64) (*Classification, error) {
	row := db.conn.QueryRow(
		`SELECT post_id, is_opportunity, priority, confidence_score, summary, intent,
		budget_mentioned, budget_amount, services_needed, urgency_level, created_at
		FROM classifications WHERE post_id = ?`, postID,
	)

	var c Classification
	var isOpp, budget int
	if err := row.Scan(&c.PostID, &isOpp, &c.Priority, &c.ConfidenceScore, &c.Summary, &c.Intent,
		&budget, &c.BudgetAmount, &c.ServicesNeeded, &c.UrgencyLevel, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	c.IsOpportunity = isOpp != 0
	c.BudgetMentioned = budget != 0
	return &c, nil
}
