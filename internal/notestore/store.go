// Package notestore provides SQLite-backed persistence for voice notes
// with optional FTS5 full-text search over transcripts.
//
// Every transcript-changing write and the guarded summary write are single
// transactions, so a summary can never remain attached to a transcript it
// was not computed against. The schema enforces the flag/value pairing with
// a CHECK constraint as a last line of defense.
package notestore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pcormier/voxnote/internal/models"
)

// Store defines the persistence operations for voice notes. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with mocks.
type Store interface {
	Insert(n *models.VoiceNote) error
	Get(id string) (*models.VoiceNote, error)
	List() ([]models.VoiceNote, error)
	ApplyTranscript(id, transcript, title string, userEdit bool) (*models.VoiceNote, error)
	SetTitle(id, title string) (*models.VoiceNote, error)
	SetSummary(id, summary, expectedTranscript string) (*models.VoiceNote, error)
	Delete(id string) error
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS voice_notes (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL DEFAULT 'New Voice Note',
	transcript  TEXT NOT NULL CHECK (transcript <> ''),
	summary     TEXT,
	audio_url   TEXT NOT NULL,
	duration    REAL NOT NULL DEFAULT 0,
	has_summary INTEGER NOT NULL DEFAULT 0,
	is_edited   INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL,
	CHECK ((summary IS NULL) = (has_summary = 0))
);

CREATE INDEX IF NOT EXISTS idx_voice_notes_created ON voice_notes(created_at DESC);
`

// DB wraps a sql.DB with voice-note operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("notestore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notestore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notestore: apply schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notestore: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
