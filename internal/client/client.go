// Package client is a Go client for the Voxnote API. It carries the
// reconciliation logic a display surface needs: a polling watcher that
// tracks a note until its transcription resolves, and an editor state
// machine that mirrors server-side summary invalidation optimistically.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pcormier/voxnote/internal/apperr"
	"github.com/pcormier/voxnote/internal/models"
)

// Client talks to a Voxnote server over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the given base URL (e.g. "http://localhost:8080").
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// WithToken sets a Bearer token used on every request.
func (c *Client) WithToken(token string) *Client {
	c.token = token
	return c
}

type noteEnvelope struct {
	Success bool              `json:"success"`
	Data    *models.VoiceNote `json:"data"`
}

type listEnvelope struct {
	Success bool               `json:"success"`
	Count   int                `json:"count"`
	Data    []models.VoiceNote `json:"data"`
}

type summaryEnvelope struct {
	Success bool   `json:"success"`
	Summary string `json:"summary"`
}

type errEnvelope struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return apperr.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errEnvelope
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("client: %s %s: %s", method, path, e.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

// CreateNote submits base64-encoded audio and returns the placeholder
// record. The transcript resolves later; use a Watcher to track it.
func (c *Client) CreateNote(ctx context.Context, audioData string, duration float64) (*models.VoiceNote, error) {
	var env noteEnvelope
	err := c.do(ctx, http.MethodPost, "/api/voice-notes", map[string]any{
		"audioData": audioData,
		"duration":  duration,
	}, &env)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ListNotes fetches all notes, newest first.
func (c *Client) ListNotes(ctx context.Context) ([]models.VoiceNote, error) {
	var env listEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/voice-notes", nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// GetNote fetches one note's authoritative state.
func (c *Client) GetNote(ctx context.Context, id string) (*models.VoiceNote, error) {
	var env noteEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/voice-notes/"+id, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// UpdateNote edits a note's transcript and/or title.
func (c *Client) UpdateNote(ctx context.Context, id string, transcript, title *string) (*models.VoiceNote, error) {
	body := map[string]any{}
	if transcript != nil {
		body["transcript"] = *transcript
	}
	if title != nil {
		body["title"] = *title
	}
	var env noteEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/voice-notes/"+id, body, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/voice-notes/"+id, nil, nil)
}

// GenerateSummary asks the server to summarize the note's transcript.
func (c *Client) GenerateSummary(ctx context.Context, id string) (string, error) {
	var env summaryEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/ai/summary/"+id, nil, &env); err != nil {
		return "", err
	}
	return env.Summary, nil
}
