// Package apperr defines the sentinel errors shared across Voxnote layers.
package apperr

import "errors"

var (
	// ErrNotFound is returned when a note id does not resolve to a record.
	ErrNotFound = errors.New("not found")
	// ErrNoTranscript is returned when a summary is requested for a note
	// whose transcript is empty or still a pending placeholder.
	ErrNoTranscript = errors.New("no transcript available")
	// ErrTranscriptChanged is returned when a summary write is rejected
	// because the transcript changed after the summarization call started.
	ErrTranscriptChanged = errors.New("transcript changed")
	// ErrInvalidInput is returned for malformed or missing request payloads.
	ErrInvalidInput = errors.New("invalid input")
)
