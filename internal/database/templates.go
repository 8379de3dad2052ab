package database

import (
	"database/sql"
)

// InsertTemplate inserts a reply template. Returns the ID on success, 0 if a
// template with the same name already exists.
func (db *DB) InsertTemplate(name, category, content string) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO reply_templates (name, category, content) VALUES (?, ?, ?)`,
		name, category, content,
	)
	if err != nil {
		// Duplicate name constraint
		return 0, nil //nolint: nilerr
	}
	return result.LastInsertId()
}

// GetActiveTemplates returns active templates in a category.
func (db *DB) GetActiveTemplates(category string) ([]ReplyTemplate, error) {
	rows, err := db.conn.Query(
		`SELECT id, name, category, content, is_active, created_at
		FROM reply_templates WHERE category = ? AND is_active = 1
		ORDER BY name ASC`, category,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []ReplyTemplate
	for rows.Next() {
		var t ReplyTemplate
		var active int
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.Content, &active, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.IsActive = active != 0
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// GetAllTemplates returns every template, active or not.
func (db *DB) GetAllTemplates() ([]ReplyTemplate, error) {
	rows, err := db.conn.Query(
		`SELECT id, name, category, content, is_active, created_at
		FROM reply_templates ORDER BY category ASC, name ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []ReplyTemplate
	for rows.Next() {
		var t ReplyTemplate
		var active int
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.Content, &active, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.IsActive = active != 0
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// SetTemplateActive flips a template's active flag.
func (db *DB) SetTemplateActive(templateID int64, active bool) error {
	result, err := db.conn.Exec(
		"UPDATE reply_templates SET is_active = ? WHERE id = ?", boolInt(active), templateID,
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
