package mcpserver

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pcormier/voxnote/internal/noteservice"
	"github.com/pcormier/voxnote/internal/testutil"
	"github.com/pcormier/voxnote/internal/transcriber"
)

func testServer(t *testing.T) (*Server, *noteservice.Service) {
	t.Helper()

	store := testutil.TestStore(t)
	_, blobs := testutil.TestBlobs(t)
	gw := &testutil.FakeGateway{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := transcriber.NewRunner(store, gw, logger, 0)
	svc := noteservice.NewService(store, blobs, gw, runner, logger)

	return New(svc), svc
}

func createResolvedNote(t *testing.T, svc *noteservice.Service) string {
	t.Helper()
	audio := base64.StdEncoding.EncodeToString([]byte("fake-audio"))
	n, err := svc.CreateFromBase64(context.Background(), audio, 0)
	if err != nil {
		t.Fatal(err)
	}
	svc.WaitForJobs()
	return n.ID
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handler
	// functions are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_voice_notes":
		result, err = srv.listVoiceNotes(ctx, req)
	case "read_transcript":
		result, err = srv.readTranscript(ctx, req)
	case "edit_transcript":
		result, err = srv.editTranscript(ctx, req)
	case "generate_summary":
		result, err = srv.generateSummary(ctx, req)
	case "search_voice_notes":
		result, err = srv.searchVoiceNotes(ctx, req)
	case "delete_voice_note":
		result, err = srv.deleteVoiceNote(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListVoiceNotesTool(t *testing.T) {
	srv, svc := testServer(t)
	id := createResolvedNote(t, svc)

	result := callTool(t, srv, "list_voice_notes", nil)
	if result.IsError {
		t.Fatalf("tool error: %s", resultText(result))
	}
	text := resultText(result)
	if !strings.Contains(text, id) {
		t.Errorf("listing missing note id: %s", text)
	}
	if !strings.Contains(text, `"status": "resolved"`) {
		t.Errorf("listing missing status: %s", text)
	}
}

func TestReadTranscriptTool(t *testing.T) {
	srv, svc := testServer(t)
	id := createResolvedNote(t, svc)

	result := callTool(t, srv, "read_transcript", map[string]interface{}{"id": id})
	if result.IsError {
		t.Fatalf("tool error: %s", resultText(result))
	}
	if got := resultText(result); got != "Hello world" {
		t.Errorf("transcript = %q", got)
	}

	result = callTool(t, srv, "read_transcript", map[string]interface{}{"id": "missing"})
	if !result.IsError {
		t.Error("expected error for missing note")
	}
}

func TestEditTranscriptToolInvalidatesSummary(t *testing.T) {
	srv, svc := testServer(t)
	id := createResolvedNote(t, svc)

	result := callTool(t, srv, "generate_summary", map[string]interface{}{"id": id})
	if result.IsError {
		t.Fatalf("generate_summary: %s", resultText(result))
	}

	result = callTool(t, srv, "edit_transcript", map[string]interface{}{
		"id":         id,
		"transcript": "Replacement text",
	})
	if result.IsError {
		t.Fatalf("edit_transcript: %s", resultText(result))
	}

	n, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if n.Summary != nil || n.HasSummary {
		t.Error("edit must invalidate the stored summary")
	}
}

func TestGenerateSummaryToolUnsummarizable(t *testing.T) {
	// A note whose transcription failed carries the fallback placeholder,
	// which can never be summarized.
	store := testutil.TestStore(t)
	_, blobs := testutil.TestBlobs(t)
	gw := &testutil.FakeGateway{
		TranscribeFn: func(ctx context.Context, audio []byte, mimeType string) (string, error) {
			return "", errors.New("gateway down")
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := transcriber.NewRunner(store, gw, logger, 0)
	svc := noteservice.NewService(store, blobs, gw, runner, logger)
	srv := New(svc)

	audio := base64.StdEncoding.EncodeToString([]byte("x"))
	n, err := svc.CreateFromBase64(context.Background(), audio, 0)
	if err != nil {
		t.Fatal(err)
	}
	svc.WaitForJobs()

	result := callTool(t, srv, "generate_summary", map[string]interface{}{"id": n.ID})
	if !result.IsError {
		t.Error("expected error for unsummarizable transcript")
	}
	if !strings.Contains(resultText(result), "no transcript available") {
		t.Errorf("message = %s", resultText(result))
	}
}

func TestSearchVoiceNotesTool(t *testing.T) {
	srv, svc := testServer(t)
	createResolvedNote(t, svc)

	result := callTool(t, srv, "search_voice_notes", map[string]interface{}{"query": "Hello"})
	if result.IsError {
		t.Fatalf("tool error: %s", resultText(result))
	}
	if !strings.Contains(resultText(result), "Hello") {
		t.Errorf("results = %s", resultText(result))
	}
}

func TestDeleteVoiceNoteTool(t *testing.T) {
	srv, svc := testServer(t)
	id := createResolvedNote(t, svc)

	result := callTool(t, srv, "delete_voice_note", map[string]interface{}{"id": id})
	if result.IsError {
		t.Fatalf("tool error: %s", resultText(result))
	}

	result = callTool(t, srv, "delete_voice_note", map[string]interface{}{"id": id})
	if !result.IsError {
		t.Error("expected error deleting twice")
	}
}
