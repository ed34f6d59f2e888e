// Package ai wraps the external speech-to-text and summarization
// capability behind a small request/response interface with explicit
// failure signaling.
package ai

import (
	"context"
	"errors"
	"fmt"
)

// Gateway is the contract consumed by the transcription job runner and
// the summary path. Both calls have bounded latency (the implementation
// enforces a timeout) and no guaranteed availability.
type Gateway interface {
	// Transcribe converts raw audio bytes to text.
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
	// Summarize produces a concise summary of a transcript.
	Summarize(ctx context.Context, transcript string) (string, error)
}

// UpstreamError reports a failed gateway call: transport error, non-2xx
// response, or a response the caller could not interpret.
type UpstreamError struct {
	Op     string // "transcribe" or "summarize"
	Status int    // HTTP status, 0 for transport errors
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("ai: %s failed with status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("ai: %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsUpstream reports whether err is (or wraps) a gateway failure.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
