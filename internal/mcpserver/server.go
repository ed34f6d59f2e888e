// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes Voxnote tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pcormier/voxnote/internal/apperr"
	"github.com/pcormier/voxnote/internal/models"
	"github.com/pcormier/voxnote/internal/noteservice"
)

// Server wraps the MCP server with Voxnote tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all Voxnote tools registered.
func New(svc *noteservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Voxnote",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_voice_notes",
		mcp.WithDescription("List all voice notes, newest first, with transcript status."),
	), s.listVoiceNotes)

	s.mcp.AddTool(mcp.NewTool("read_transcript",
		mcp.WithDescription("Read the full transcript (and summary, if present) of a voice note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Voice note id")),
	), s.readTranscript)

	s.mcp.AddTool(mcp.NewTool("edit_transcript",
		mcp.WithDescription("Replace a voice note's transcript. Any previously generated summary "+
			"is invalidated because it no longer matches the text."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Voice note id")),
		mcp.WithString("transcript", mcp.Required(), mcp.Description("Replacement transcript text")),
	), s.editTranscript)

	s.mcp.AddTool(mcp.NewTool("generate_summary",
		mcp.WithDescription("Generate a summary of a voice note's current transcript. "+
			"Fails while transcription is still pending."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Voice note id")),
	), s.generateSummary)

	s.mcp.AddTool(mcp.NewTool("search_voice_notes",
		mcp.WithDescription("Full-text search across titles, transcripts, and summaries."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchVoiceNotes)

	s.mcp.AddTool(mcp.NewTool("delete_voice_note",
		mcp.WithDescription("Delete a voice note and release its audio."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Voice note id")),
	), s.deleteVoiceNote)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type noteSummaryView struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	HasSummary bool   `json:"hasSummary"`
	IsEdited   bool   `json:"isEdited"`
}

func statusLabel(s models.TranscriptStatus) string {
	switch s {
	case models.TranscriptStatusPending:
		return "pending"
	case models.TranscriptStatusFallback:
		return "transcription-failed"
	default:
		return "resolved"
	}
}

func (s *Server) listVoiceNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	views := make([]noteSummaryView, len(notes))
	for i, n := range notes {
		views[i] = noteSummaryView{
			ID:         n.ID,
			Title:      n.Title,
			Status:     statusLabel(n.TranscriptStatus()),
			HasSummary: n.HasSummary,
			IsEdited:   n.IsEdited,
		}
	}
	out, _ := json.MarshalIndent(views, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readTranscript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.Get(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	text := n.Transcript
	if n.Summary != nil {
		text += "\n\nSummary: " + *n.Summary
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) editTranscript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	transcript, err := req.RequireString("transcript")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.Edit(ctx, id, noteservice.EditRequest{Transcript: &transcript})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("transcript updated; title is now %q", n.Title)), nil
}

func (s *Server) generateSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary, _, err := s.svc.GenerateSummary(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		case errors.Is(err, apperr.ErrNoTranscript):
			return mcp.NewToolResultError("no transcript available to summarize yet"), nil
		default:
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return mcp.NewToolResultText(summary), nil
}

func (s *Server) searchVoiceNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) deleteVoiceNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Delete(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("deleted " + id), nil
}
