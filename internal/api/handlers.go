package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pcormier/voxnote/internal/ai"
	"github.com/pcormier/voxnote/internal/apperr"
	"github.com/pcormier/voxnote/internal/noteservice"
	"github.com/pcormier/voxnote/internal/notestore"
	"github.com/pcormier/voxnote/internal/sse"
)

const maxAudioBytes = 50 << 20 // 50 MB

// Handler holds API route handlers.
type Handler struct {
	svc    *noteservice.Service
	events *sse.Broker // nil disables event broadcasting
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(svc *noteservice.Service, events *sse.Broker) *Handler {
	return &Handler{svc: svc, events: events}
}

func (h *Handler) publish(kind, id string) {
	if h.events != nil {
		h.events.Publish(kind, id)
	}
}

// CreateVoiceNote handles POST /api/voice-notes.
//
// Accepts either multipart/form-data with an "audio" file field, or a JSON
// body {audioData (base64), duration}. Both paths return 201 with a
// pending transcript placeholder; transcription runs in the background.
func (h *Handler) CreateVoiceNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		h.createFromUpload(w, r)
		return
	}

	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.AudioData == "" {
		writeJSON(w, http.StatusBadRequest, errorBodyDetailed("No audio data provided",
			"Either upload a file or provide audioData in request body"))
		return
	}

	note, err := h.svc.CreateFromBase64(r.Context(), req.AudioData, req.Duration)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorBody("audioData is not valid base64"))
			return
		}
		slog.Error("create voice note failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to create voice note"))
		return
	}

	h.publish(sse.EventNoteCreated, note.ID)
	writeJSON(w, http.StatusCreated, NoteResponse{
		Success: true,
		Data:    note,
		Message: "Voice note created successfully!",
	})
}

func (h *Handler) createFromUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBodyDetailed("No audio data provided",
			"Either upload a file or provide audioData in request body"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read uploaded file"))
		return
	}
	duration, _ := strconv.ParseFloat(r.FormValue("duration"), 64)

	note, err := h.svc.CreateFromUpload(r.Context(), header.Filename,
		header.Header.Get("Content-Type"), data, duration)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorBody("uploaded file is empty"))
			return
		}
		slog.Error("create voice note from upload failed",
			slog.String("filename", header.Filename), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to create voice note"))
		return
	}

	h.publish(sse.EventNoteCreated, note.ID)
	writeJSON(w, http.StatusCreated, NoteResponse{
		Success: true,
		Data:    note,
		Message: "Voice note created successfully!",
	})
}

// ListVoiceNotes handles GET /api/voice-notes. Returns every note, newest
// first, with no pagination.
func (h *Handler) ListVoiceNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.List(r.Context())
	if err != nil {
		slog.Error("list voice notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to fetch voice notes"))
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{
		Success: true,
		Count:   len(notes),
		Data:    notes,
	})
}

// GetVoiceNote handles GET /api/voice-notes/{id}. Used by polling clients
// to re-fetch a single note's authoritative state.
func (h *Handler) GetVoiceNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("Voice note not found"))
			return
		}
		slog.Error("get voice note failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to fetch voice note"))
		return
	}
	writeJSON(w, http.StatusOK, NoteResponse{Success: true, Data: note})
}

// UpdateVoiceNote handles PUT /api/voice-notes/{id}. A transcript change
// clears any stored summary atomically with the transcript write.
func (h *Handler) UpdateVoiceNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	note, err := h.svc.Edit(r.Context(), id, noteservice.EditRequest{
		Transcript: req.Transcript,
		Title:      req.Title,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("Voice note not found"))
		case errors.Is(err, apperr.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, errorBody("transcript or title is required"))
		default:
			slog.Error("update voice note failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("Failed to update voice note"))
		}
		return
	}

	h.publish(sse.EventNoteUpdated, id)
	writeJSON(w, http.StatusOK, NoteResponse{
		Success: true,
		Data:    note,
		Message: "Voice note updated successfully!",
	})
}

// DeleteVoiceNote handles DELETE /api/voice-notes/{id}.
func (h *Handler) DeleteVoiceNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("Voice note not found"))
			return
		}
		slog.Error("delete voice note failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to delete voice note"))
		return
	}

	h.publish(sse.EventNoteDeleted, id)
	writeJSON(w, http.StatusOK, DeleteResponse{
		Success: true,
		Message: "Voice note deleted successfully!",
	})
}

// GenerateSummary handles POST /api/ai/summary/{id}.
func (h *Handler) GenerateSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	summary, _, err := h.svc.GenerateSummary(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("Voice note not found"))
		case errors.Is(err, apperr.ErrNoTranscript):
			writeJSON(w, http.StatusBadRequest, errorBody("No transcript available to summarize"))
		case errors.Is(err, apperr.ErrTranscriptChanged):
			writeJSON(w, http.StatusConflict, errorBody("Transcript changed while generating summary"))
		case ai.IsUpstream(err):
			slog.Warn("summarization gateway failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadGateway, errorBody("Failed to generate summary"))
		default:
			slog.Error("generate summary failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("Failed to generate summary"))
		}
		return
	}

	h.publish(sse.EventNoteUpdated, id)
	writeJSON(w, http.StatusOK, SummaryResponse{
		Success: true,
		Summary: summary,
		Message: "Summary generated successfully!",
	})
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []notestore.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Success: true, Results: results})
}
