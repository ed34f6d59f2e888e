package notestore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pcormier/voxnote/internal/apperr"
	"github.com/pcormier/voxnote/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

const noteColumns = `id, title, transcript, summary, audio_url, duration, has_summary, is_edited, created_at, updated_at`

func scanNote(row interface{ Scan(...any) error }) (*models.VoiceNote, error) {
	var n models.VoiceNote
	var summary sql.NullString
	err := row.Scan(&n.ID, &n.Title, &n.Transcript, &summary, &n.AudioURL,
		&n.Duration, &n.HasSummary, &n.IsEdited, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if summary.Valid {
		n.Summary = &summary.String
	}
	return &n, nil
}

// Insert persists a new note record.
func (db *DB) Insert(n *models.VoiceNote) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("notestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO voice_notes (id, title, transcript, summary, audio_url, duration, has_summary, is_edited, created_at, updated_at)
		VALUES (?, ?, ?, NULL, ?, ?, 0, 0, ?, ?)
	`, n.ID, n.Title, n.Transcript, n.AudioURL, n.Duration, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("notestore: insert note: %w", err)
	}
	if err := ftsUpsert(tx, n.ID, n.Title, n.Transcript, ""); err != nil {
		return err
	}
	return tx.Commit()
}

// Get returns the note with the given id, or apperr.ErrNotFound.
func (db *DB) Get(id string) (*models.VoiceNote, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM voice_notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("notestore: get note: %w", err)
	}
	return n, nil
}

// List returns all notes ordered by creation time, newest first.
func (db *DB) List() ([]models.VoiceNote, error) {
	rows, err := db.conn.Query(`SELECT ` + noteColumns + ` FROM voice_notes ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("notestore: list notes: %w", err)
	}
	defer rows.Close()

	out := []models.VoiceNote{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// ApplyTranscript writes a new transcript (and optionally a title) to the
// note. If the transcript value actually changes, the stored summary is
// cleared in the same statement so a stale summary can never survive a
// transcript write. userEdit marks the note as user-edited when the value
// changed; the background job passes false.
func (db *DB) ApplyTranscript(id, transcript, title string, userEdit bool) (*models.VoiceNote, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("notestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Column references on the right-hand side see the pre-update values,
	// so the CASE guards compare against the old transcript.
	res, err := tx.Exec(`
		UPDATE voice_notes SET
			transcript  = ?1,
			title       = CASE WHEN ?2 <> '' THEN ?2 ELSE title END,
			summary     = CASE WHEN transcript = ?1 THEN summary ELSE NULL END,
			has_summary = CASE WHEN transcript = ?1 THEN has_summary ELSE 0 END,
			is_edited   = CASE WHEN ?3 AND transcript <> ?1 THEN 1 ELSE is_edited END,
			updated_at  = ?4
		WHERE id = ?5
	`, transcript, title, userEdit, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("notestore: apply transcript: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, apperr.ErrNotFound
	}

	n, err := db.reloadAndIndex(tx, id)
	if err != nil {
		return nil, err
	}
	return n, tx.Commit()
}

// SetTitle updates only the display title.
func (db *DB) SetTitle(id, title string) (*models.VoiceNote, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("notestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`UPDATE voice_notes SET title = ?, updated_at = ? WHERE id = ?`,
		title, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("notestore: set title: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, apperr.ErrNotFound
	}

	n, err := db.reloadAndIndex(tx, id)
	if err != nil {
		return nil, err
	}
	return n, tx.Commit()
}

// SetSummary attaches a summary to the note, guarded by the transcript the
// summary was computed against. If the stored transcript no longer equals
// expectedTranscript the write is rejected with apperr.ErrTranscriptChanged
// and nothing is stored.
func (db *DB) SetSummary(id, summary, expectedTranscript string) (*models.VoiceNote, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("notestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`
		UPDATE voice_notes SET summary = ?, has_summary = 1, updated_at = ?
		WHERE id = ? AND transcript = ?
	`, summary, time.Now().UTC(), id, expectedTranscript)
	if err != nil {
		return nil, fmt.Errorf("notestore: set summary: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(1) FROM voice_notes WHERE id = ?`, id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("notestore: set summary recheck: %w", err)
		}
		if exists == 0 {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.ErrTranscriptChanged
	}

	n, err := db.reloadAndIndex(tx, id)
	if err != nil {
		return nil, err
	}
	return n, tx.Commit()
}

// Delete removes the note record. A second delete of the same id returns
// apperr.ErrNotFound.
func (db *DB) Delete(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("notestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`DELETE FROM voice_notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("notestore: delete note: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return apperr.ErrNotFound
	}
	ftsDelete(tx, id)
	return tx.Commit()
}

// reloadAndIndex re-reads the updated row inside the transaction and
// refreshes its search entry with the post-update values.
func (db *DB) reloadAndIndex(tx *sql.Tx, id string) (*models.VoiceNote, error) {
	row := tx.QueryRow(`SELECT `+noteColumns+` FROM voice_notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if err != nil {
		return nil, fmt.Errorf("notestore: reload note: %w", err)
	}
	summary := ""
	if n.Summary != nil {
		summary = *n.Summary
	}
	if err := ftsUpsert(tx, n.ID, n.Title, n.Transcript, summary); err != nil {
		return nil, err
	}
	return n, nil
}
