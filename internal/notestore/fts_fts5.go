//go:build sqlite_fts5

package notestore

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS voice_notes_fts USING fts5(
			id UNINDEXED,
			title,
			transcript,
			summary,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, title, transcript, summary string) error {
	_, _ = tx.Exec(`DELETE FROM voice_notes_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO voice_notes_fts (id, title, transcript, summary) VALUES (?, ?, ?, ?)`,
		id, title, transcript, summary)
	if err != nil {
		return fmt.Errorf("notestore: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM voice_notes_fts WHERE id = ?`, id)
}

// Search performs an FTS5 full-text search over titles, transcripts, and
// summaries, returning matches with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id,
		       title,
		       snippet(voice_notes_fts, 2, '<b>', '</b>', '...', 64)
		FROM voice_notes_fts
		WHERE voice_notes_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("notestore: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
