package client

import (
	"sync"

	"github.com/pcormier/voxnote/internal/models"
)

// EditorState tracks the local edit/summary state for one displayed note
// and mirrors server-side invalidation optimistically: saving a transcript
// edit clears the local summary and re-arms the generate-summary
// affordance before the server roundtrip confirms.
type EditorState struct {
	mu sync.Mutex

	note         models.VoiceNote
	polling      bool
	generating   bool
	hasGenerated bool
}

// NewEditorState seeds local state from an authoritative record.
func NewEditorState(n models.VoiceNote) *EditorState {
	return &EditorState{
		note:         n,
		hasGenerated: n.Summary != nil,
	}
}

// Note returns the current local copy of the note.
func (e *EditorState) Note() models.VoiceNote {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.note
}

// SetPolling records whether a Watcher is currently refreshing this note.
func (e *EditorState) SetPolling(polling bool) {
	e.mu.Lock()
	e.polling = polling
	e.mu.Unlock()
}

// Reconcile replaces local state with the authoritative record, e.g. from
// a watcher refresh or a confirmed roundtrip.
func (e *EditorState) Reconcile(n models.VoiceNote) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.note = n
	e.hasGenerated = n.Summary != nil
}

// CanEdit reports whether transcript editing is allowed. Editing is
// disabled while the transcript is still being polled for.
func (e *EditorState) CanEdit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.polling
}

// CanGenerateSummary reports whether the generate-summary affordance is
// enabled: not polling, not already generating, and no summary exists for
// the current transcript.
func (e *EditorState) CanGenerateSummary() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.polling && !e.generating && !e.hasGenerated
}

// ApplyEdit applies a transcript edit optimistically, before the server
// confirms: a changed transcript drops the local summary and resets the
// generated flag, matching the invalidation the server will perform.
func (e *EditorState) ApplyEdit(transcript string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if transcript == e.note.Transcript {
		return
	}
	e.note.Transcript = transcript
	e.note.Summary = nil
	e.note.HasSummary = false
	e.note.IsEdited = true
	e.hasGenerated = false
}

// BeginSummary marks a summary generation in flight.
func (e *EditorState) BeginSummary() {
	e.mu.Lock()
	e.generating = true
	e.mu.Unlock()
}

// FinishSummary records the outcome of a summary roundtrip. On success the
// local summary updates immediately; on failure the last-known-good state
// is kept.
func (e *EditorState) FinishSummary(summary string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generating = false
	if err != nil {
		return
	}
	e.note.Summary = &summary
	e.note.HasSummary = true
	e.hasGenerated = true
}
