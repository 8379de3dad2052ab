package database

import (
	"database/sql"
)

// InsertPersona inserts a persona. Returns the ID on success, 0 if the name
// already exists.
func (db *DB) InsertPersona(p *Persona) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO personas (name, tone, style, include_portfolio, portfolio_url, include_cta, cta_text, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Tone, p.Style, boolInt(p.IncludePortfolio), p.PortfolioURL,
		boolInt(p.IncludeCTA), p.CTAText, boolInt(p.IsActive),
	)
	if err != nil {
		// Duplicate name constraint
		return 0, nil //nolint: nilerr
	}
	return result.LastInsertId()
}

// GetActivePersona returns the first active persona, or nil when none is
// configured. Resolved once per batch and passed into the composer
// explicitly, never queried as ambient state during composition.
func (db *DB) GetActivePersona() (*Persona, error) {
	row := db.conn.QueryRow(
		`SELECT id, name, tone, style, include_portfolio, portfolio_url, include_cta, cta_text, is_active
		FROM personas WHERE is_active = 1 ORDER BY id ASC LIMIT 1`,
	)

	var p Persona
	var portfolio, cta, active int
	if err := row.Scan(&p.ID, &p.Name, &p.Tone, &p.Style, &portfolio, &p.PortfolioURL,
		&cta, &p.CTAText, &active); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.IncludePortfolio = portfolio != 0
	p.IncludeCTA = cta != 0
	p.IsActive = active != 0
	return &p, nil
}
