package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiConfig configures the Gemini gateway client.
type GeminiConfig struct {
	APIKey  string
	Model   string        // e.g. "gemini-2.5-flash"
	BaseURL string        // override for tests; defaults to the public endpoint
	Timeout time.Duration // per-call ceiling; defaults to 60s
}

// Gemini implements Gateway against the Gemini generateContent REST API.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// Verify Gemini satisfies Gateway at compile time.
var _ Gateway = (*Gemini)(nil)

// NewGemini creates a Gemini gateway client.
func NewGemini(cfg GeminiConfig) *Gemini {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gemini{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type generatePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *generateInline `json:"inline_data,omitempty"`
}

type generateInline struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateRequest struct {
	Contents []struct {
		Parts []generatePart `json:"parts"`
	} `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Transcribe sends the audio bytes inline and returns the model's text.
func (g *Gemini) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "audio/webm"
	}
	parts := []generatePart{
		{Text: "Transcribe this audio recording verbatim. Return only the spoken text, with no commentary."},
		{InlineData: &generateInline{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(audio),
		}},
	}
	return g.generate(ctx, "transcribe", parts)
}

// Summarize asks the model for a concise summary of the transcript.
func (g *Gemini) Summarize(ctx context.Context, transcript string) (string, error) {
	prompt := fmt.Sprintf("Please provide a concise and clear summary of the following transcript. "+
		"Focus on the main points and key information:\n\nTranscript: %q\n\nSummary:", transcript)
	return g.generate(ctx, "summarize", []generatePart{{Text: prompt}})
}

func (g *Gemini) generate(ctx context.Context, op string, parts []generatePart) (string, error) {
	var reqBody generateRequest
	reqBody.Contents = make([]struct {
		Parts []generatePart `json:"parts"`
	}, 1)
	reqBody.Contents[0].Parts = parts

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", &UpstreamError{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", &UpstreamError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &UpstreamError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(body)))}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &UpstreamError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", &UpstreamError{Op: op, Err: fmt.Errorf("empty candidates in response")}
	}

	text := strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", &UpstreamError{Op: op, Err: fmt.Errorf("blank text in response")}
	}
	return text, nil
}
