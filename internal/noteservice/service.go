// Package noteservice implements the voice-note lifecycle: creation with
// deferred transcription, edits with summary invalidation, deletion, and
// on-demand summary generation.
package noteservice

import (
	"context"
	"encoding/base64"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pcormier/voxnote/internal/ai"
	"github.com/pcormier/voxnote/internal/apperr"
	"github.com/pcormier/voxnote/internal/audiostore"
	"github.com/pcormier/voxnote/internal/models"
	"github.com/pcormier/voxnote/internal/notestore"
	"github.com/pcormier/voxnote/internal/transcriber"
)

// EditRequest carries the optional fields of an edit. Nil means "leave
// unchanged".
type EditRequest struct {
	Transcript *string
	Title      *string
}

// Service coordinates the store, the blob store, the AI gateway, and the
// background transcription runner.
type Service struct {
	store   notestore.Store
	audio   *audiostore.FS
	gateway ai.Gateway
	runner  *transcriber.Runner
	logger  *slog.Logger
}

// NewService creates a new note service.
func NewService(store notestore.Store, audio *audiostore.FS, gateway ai.Gateway, runner *transcriber.Runner, logger *slog.Logger) *Service {
	return &Service{store: store, audio: audio, gateway: gateway, runner: runner, logger: logger}
}

// CreateFromBase64 persists a note for base64-encoded audio carried in the
// request body. The audio stays inline in the record as a data URL. The
// note is durable, with a pending transcript placeholder, before this
// returns; the transcription job runs detached.
func (s *Service) CreateFromBase64(_ context.Context, audioData string, duration float64) (*models.VoiceNote, error) {
	if strings.TrimSpace(audioData) == "" {
		return nil, apperr.ErrInvalidInput
	}
	raw, err := base64.StdEncoding.DecodeString(audioData)
	if err != nil {
		return nil, apperr.ErrInvalidInput
	}

	n := s.newNote("data:audio/webm;base64,"+audioData, duration)
	if err := s.store.Insert(n); err != nil {
		return nil, err
	}
	s.runner.Submit(n.ID, raw, "audio/webm")
	return n, nil
}

// CreateFromUpload persists a note for a multipart audio upload. The blob
// is written to the uploads directory first, and the note references it by
// URL. Uploaded files get the same automatic transcription as recordings.
func (s *Service) CreateFromUpload(_ context.Context, filename, mimeType string, data []byte, duration float64) (*models.VoiceNote, error) {
	if len(data) == 0 {
		return nil, apperr.ErrInvalidInput
	}
	audioURL, err := s.audio.Save(filepath.Ext(filename), data)
	if err != nil {
		return nil, err
	}

	n := s.newNote(audioURL, duration)
	if err := s.store.Insert(n); err != nil {
		// The note never existed; don't leave the blob behind.
		_ = s.audio.Release(audioURL)
		return nil, err
	}
	s.runner.Submit(n.ID, data, mimeType)
	return n, nil
}

func (s *Service) newNote(audioURL string, duration float64) *models.VoiceNote {
	if duration < 0 {
		duration = 0
	}
	now := time.Now().UTC()
	return &models.VoiceNote{
		ID:         uuid.NewString(),
		Title:      "Voice Note - " + now.Format("1/2/2006, 3:04:05 PM"),
		Transcript: models.TranscriptPending,
		AudioURL:   audioURL,
		Duration:   duration,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Get returns a single note by id.
func (s *Service) Get(_ context.Context, id string) (*models.VoiceNote, error) {
	return s.store.Get(id)
}

// List returns all notes, newest first.
func (s *Service) List(_ context.Context) ([]models.VoiceNote, error) {
	return s.store.List()
}

// Edit applies a user edit. A transcript change goes through the
// invalidating write path: the stored summary is cleared in the same store
// operation and the note is marked edited. A title-only edit leaves the
// summary untouched.
func (s *Service) Edit(_ context.Context, id string, req EditRequest) (*models.VoiceNote, error) {
	if req.Transcript == nil && req.Title == nil {
		return nil, apperr.ErrInvalidInput
	}
	if req.Transcript != nil {
		transcript := strings.TrimSpace(*req.Transcript)
		if transcript == "" {
			return nil, apperr.ErrInvalidInput
		}
		title := ""
		if req.Title != nil {
			title = *req.Title
		}
		return s.store.ApplyTranscript(id, transcript, title, true)
	}
	return s.store.SetTitle(id, *req.Title)
}

// Delete removes the note and releases its stored audio blob. A late
// transcription write for the id fails with NotFound inside the runner and
// never recreates the record.
func (s *Service) Delete(_ context.Context, id string) error {
	n, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}
	if err := s.audio.Release(n.AudioURL); err != nil {
		// The record is gone; a leaked blob is an operational concern,
		// not a caller error.
		s.logger.Warn("failed to release audio blob",
			slog.String("note_id", id), slog.String("error", err.Error()))
	}
	return nil
}

// GenerateSummary calls the summarization gateway with the current
// transcript and stores the result, keyed to the transcript observed at
// call start. If a concurrent edit changes the transcript before the
// write commits, the result is discarded and apperr.ErrTranscriptChanged
// is returned; no partial summary is ever stored.
func (s *Service) GenerateSummary(ctx context.Context, id string) (string, *models.VoiceNote, error) {
	n, err := s.store.Get(id)
	if err != nil {
		return "", nil, err
	}
	if !n.Summarizable() {
		return "", nil, apperr.ErrNoTranscript
	}

	observed := n.Transcript
	summary, err := s.gateway.Summarize(ctx, observed)
	if err != nil {
		return "", nil, err
	}
	summary = strings.TrimSpace(summary)

	updated, err := s.store.SetSummary(id, summary, observed)
	if err != nil {
		return "", nil, err
	}
	return summary, updated, nil
}

// Search runs full-text search over titles, transcripts, and summaries.
func (s *Service) Search(_ context.Context, query string, limit int) ([]notestore.SearchResult, error) {
	return s.store.Search(query, limit)
}

// WaitForJobs blocks until in-flight transcription jobs have completed.
// Exposed for graceful shutdown.
func (s *Service) WaitForJobs() {
	s.runner.Wait()
}
