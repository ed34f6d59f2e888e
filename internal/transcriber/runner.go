// Package transcriber runs transcription jobs off the request path and
// reconciles their results into the note store.
package transcriber

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pcormier/voxnote/internal/ai"
	"github.com/pcormier/voxnote/internal/apperr"
	"github.com/pcormier/voxnote/internal/models"
	"github.com/pcormier/voxnote/internal/notestore"
)

// titleMaxLen caps derived note titles at 50 characters.
const titleMaxLen = 50

// fallbackTitle replaces the timestamp placeholder when transcription fails.
const fallbackTitle = "Voice Note"

// Notify is called after a job's outcome has been written back to the
// store. id is the note id; failed reports the fallback path.
type Notify func(id string, failed bool)

// Runner executes one detached transcription job per created note.
//
// A job has no cancellation path once started: it runs to completion and
// writes either the transcribed text or the fallback placeholder. A note
// deleted while its job is in flight makes the write-back a logged no-op
// instead of resurrecting the record.
type Runner struct {
	store   notestore.Store
	gateway ai.Gateway
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	notify Notify
	wg     sync.WaitGroup
}

// NewRunner creates a Runner. timeout bounds each gateway call; zero means
// a 90 second default.
func NewRunner(store notestore.Store, gateway ai.Gateway, logger *slog.Logger, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Runner{store: store, gateway: gateway, logger: logger, timeout: timeout}
}

// OnComplete registers a completion callback (e.g. an SSE broadcast).
func (r *Runner) OnComplete(fn Notify) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notify = fn
}

// Submit schedules a transcription job for the note and returns
// immediately. Exactly one job is submitted per created note.
func (r *Runner) Submit(id string, audio []byte, mimeType string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(id, audio, mimeType)
	}()
}

// Wait blocks until all submitted jobs have written their outcome. Used
// during shutdown and by tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(id string, audio []byte, mimeType string) {
	// Detached from the triggering request: the job owns its own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	text, err := r.gateway.Transcribe(ctx, audio, mimeType)
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = errors.New("gateway returned empty transcript")
	}

	failed := err != nil
	transcript, title := text, TitleFromTranscript(text)
	if failed {
		r.logger.Warn("transcription failed, writing fallback",
			slog.String("note_id", id), slog.String("error", err.Error()))
		transcript, title = models.TranscriptFallback, fallbackTitle
	}

	// Routed through the same invalidating transcript write as user edits,
	// so a racing edit-then-summarize cannot keep a stale summary.
	if _, werr := r.store.ApplyTranscript(id, transcript, title, false); werr != nil {
		if errors.Is(werr, apperr.ErrNotFound) {
			// Note deleted while the job was in flight. Nothing to do.
			r.logger.Debug("note deleted before transcription finished", slog.String("note_id", id))
			return
		}
		r.logger.Error("transcription write-back failed",
			slog.String("note_id", id), slog.String("error", werr.Error()))
		return
	}

	r.logger.Info("transcription job finished",
		slog.String("note_id", id), slog.Bool("fallback", failed))

	r.mu.Lock()
	fn := r.notify
	r.mu.Unlock()
	if fn != nil {
		fn(id, failed)
	}
}

// TitleFromTranscript derives a display title: the first line of the
// transcript capped at 50 characters, with an ellipsis when truncated.
func TitleFromTranscript(transcript string) string {
	title := strings.TrimSpace(transcript)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	if utf8.RuneCountInString(title) <= titleMaxLen {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:titleMaxLen])) + "..."
}
