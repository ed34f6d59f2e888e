package api

import (
	"github.com/pcormier/voxnote/internal/models"
	"github.com/pcormier/voxnote/internal/notestore"
)

// CreateNoteRequest is the JSON body for creating a note from base64 audio.
// The multipart path (field "audio") bypasses this type.
type CreateNoteRequest struct {
	AudioData string  `json:"audioData"`
	Duration  float64 `json:"duration"`
}

// UpdateNoteRequest is the JSON body for editing a note. Summary fields
// are accepted for wire compatibility but ignored: summary state is owned
// by the summary-generation path.
type UpdateNoteRequest struct {
	Transcript *string `json:"transcript"`
	Title      *string `json:"title"`
	Summary    *string `json:"summary"`
	HasSummary *bool   `json:"hasSummary"`
}

// NoteResponse wraps a single note.
type NoteResponse struct {
	Success bool              `json:"success"`
	Data    *models.VoiceNote `json:"data"`
	Message string            `json:"message,omitempty"`
}

// NoteListResponse wraps the full note listing.
type NoteListResponse struct {
	Success bool               `json:"success"`
	Count   int                `json:"count"`
	Data    []models.VoiceNote `json:"data"`
}

// SummaryResponse wraps a generated summary.
type SummaryResponse struct {
	Success bool   `json:"success"`
	Summary string `json:"summary"`
	Message string `json:"message,omitempty"`
}

// DeleteResponse acknowledges a delete.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Success bool                     `json:"success"`
	Results []notestore.SearchResult `json:"results"`
}
