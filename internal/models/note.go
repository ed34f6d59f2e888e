// Package models defines the domain types for Voxnote.
package models

import (
	"strings"
	"time"
)

// Transcript sentinel values. These exact literals are stored in the
// transcript column while a note is awaiting (or has failed) automatic
// transcription, so records written by older releases stay readable.
const (
	// TranscriptPending is written at creation time, before the
	// background transcription job has produced any text.
	TranscriptPending = "Processing transcription..."

	// TranscriptPendingLegacy is the pending placeholder written by
	// earlier releases. Readers treat it the same as TranscriptPending.
	TranscriptPendingLegacy = "Transcribing audio..."

	// TranscriptFallback is the terminal placeholder written when the
	// transcription gateway fails. No automatic retry follows it.
	TranscriptFallback = "automatic transcription unavailable — edit to add manually"
)

// TranscriptStatus classifies a transcript value.
type TranscriptStatus int

const (
	// TranscriptResolved means the transcript holds real text, either
	// produced by the gateway or typed by the user.
	TranscriptResolved TranscriptStatus = iota
	// TranscriptStatusPending means the background job has not written
	// back yet.
	TranscriptStatusPending
	// TranscriptStatusFallback means transcription failed and the note
	// carries the fallback placeholder.
	TranscriptStatusFallback
)

// StatusOf maps a stored transcript value to its status. Callers should
// branch on this instead of comparing sentinel literals.
func StatusOf(transcript string) TranscriptStatus {
	switch transcript {
	case TranscriptPending, TranscriptPendingLegacy:
		return TranscriptStatusPending
	case TranscriptFallback:
		return TranscriptStatusFallback
	default:
		return TranscriptResolved
	}
}

// VoiceNote is a recorded note with its transcript and derived summary.
//
// The summary is valid only for the transcript it was computed against:
// every write that changes the transcript clears Summary and HasSummary
// in the same store operation.
type VoiceNote struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Transcript string    `json:"transcript"`
	Summary    *string   `json:"summary"`
	AudioURL   string    `json:"audioUrl"`
	Duration   float64   `json:"duration"`
	HasSummary bool      `json:"hasSummary"`
	IsEdited   bool      `json:"isEdited"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TranscriptStatus returns the status of the note's current transcript.
func (n *VoiceNote) TranscriptStatus() TranscriptStatus {
	return StatusOf(n.Transcript)
}

// Summarizable reports whether the note carries real text a summary can
// be generated from.
func (n *VoiceNote) Summarizable() bool {
	return strings.TrimSpace(n.Transcript) != "" && n.TranscriptStatus() == TranscriptResolved
}
