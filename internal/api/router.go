package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pcormier/voxnote/internal/noteservice"
	"github.com/pcormier/voxnote/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// events, if non-nil, is used for broadcasts and mounted at GET /events
// inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, events *sse.Broker) chi.Router {
	h := NewHandler(svc, events)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Voice notes CRUD.
	r.Route("/voice-notes", func(r chi.Router) {
		r.Post("/", h.CreateVoiceNote)
		r.Get("/", h.ListVoiceNotes)
		r.Get("/{id}", h.GetVoiceNote)
		r.Put("/{id}", h.UpdateVoiceNote)
		r.Delete("/{id}", h.DeleteVoiceNote)
	})

	// AI summary generation.
	r.Post("/ai/summary/{id}", h.GenerateSummary)

	// Transcript search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by the same auth middleware).
	if events != nil {
		r.Get("/events", http.HandlerFunc(events.ServeHTTP))
	}

	return r
}
