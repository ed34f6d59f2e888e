package client

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pcormier/voxnote/internal/api"
	"github.com/pcormier/voxnote/internal/apperr"
	"github.com/pcormier/voxnote/internal/models"
	"github.com/pcormier/voxnote/internal/noteservice"
	"github.com/pcormier/voxnote/internal/testutil"
	"github.com/pcormier/voxnote/internal/transcriber"
)

func newTestServer(t *testing.T) (*Client, *noteservice.Service) {
	t.Helper()
	store := testutil.TestStore(t)
	_, blobs := testutil.TestBlobs(t)
	gw := &testutil.FakeGateway{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := transcriber.NewRunner(store, gw, logger, 0)
	svc := noteservice.NewService(store, blobs, gw, runner, logger)

	root := chi.NewRouter()
	root.Mount("/api", api.NewRouter(svc, false, "", nil))
	srv := httptest.NewServer(root)
	t.Cleanup(srv.Close)

	return New(srv.URL), svc
}

func TestClientCreateAndGet(t *testing.T) {
	c, svc := newTestServer(t)
	ctx := context.Background()

	audio := base64.StdEncoding.EncodeToString([]byte("fake-audio"))
	n, err := c.CreateNote(ctx, audio, 5)
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if n.Transcript != models.TranscriptPending {
		t.Errorf("transcript = %q, want pending placeholder", n.Transcript)
	}

	svc.WaitForJobs()
	got, err := c.GetNote(ctx, n.ID)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Transcript != "Hello world" {
		t.Errorf("transcript = %q", got.Transcript)
	}
}

func TestClientListNewestFirst(t *testing.T) {
	c, svc := newTestServer(t)
	ctx := context.Background()
	audio := base64.StdEncoding.EncodeToString([]byte("x"))

	first, _ := c.CreateNote(ctx, audio, 0)
	second, _ := c.CreateNote(ctx, audio, 0)
	svc.WaitForJobs()

	notes, err := c.ListNotes(ctx)
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("len = %d", len(notes))
	}
	// Creation timestamps can collide within a second; both orders put the
	// two ids at the front, newest first when times differ.
	ids := map[string]bool{notes[0].ID: true, notes[1].ID: true}
	if !ids[first.ID] || !ids[second.ID] {
		t.Errorf("listing missing created notes: %v", ids)
	}
}

func TestClientUpdateAndSummary(t *testing.T) {
	c, svc := newTestServer(t)
	ctx := context.Background()
	audio := base64.StdEncoding.EncodeToString([]byte("x"))

	n, err := c.CreateNote(ctx, audio, 0)
	if err != nil {
		t.Fatal(err)
	}
	svc.WaitForJobs()

	summary, err := c.GenerateSummary(ctx, n.ID)
	if err != nil {
		t.Fatalf("GenerateSummary: %v", err)
	}
	if summary != "A short summary." {
		t.Errorf("summary = %q", summary)
	}

	transcript := "Edited transcript"
	updated, err := c.UpdateNote(ctx, n.ID, &transcript, nil)
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if updated.Summary != nil || updated.HasSummary {
		t.Error("transcript edit must clear the summary")
	}
}

func TestClientDeleteAndNotFound(t *testing.T) {
	c, svc := newTestServer(t)
	ctx := context.Background()
	audio := base64.StdEncoding.EncodeToString([]byte("x"))

	n, err := c.CreateNote(ctx, audio, 0)
	if err != nil {
		t.Fatal(err)
	}
	svc.WaitForJobs()

	if err := c.DeleteNote(ctx, n.ID); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if err := c.DeleteNote(ctx, n.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	if _, err := c.GetNote(ctx, n.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete err = %v, want ErrNotFound", err)
	}
}

func TestClientWatcherAgainstServer(t *testing.T) {
	c, svc := newTestServer(t)
	ctx := context.Background()
	audio := base64.StdEncoding.EncodeToString([]byte("x"))

	n, err := c.CreateNote(ctx, audio, 0)
	if err != nil {
		t.Fatal(err)
	}
	svc.WaitForJobs()

	var last models.VoiceNote
	w := NewWatcher(c, n.ID, WatcherOptions{
		Interval: 10 * time.Millisecond,
		Ceiling:  time.Second,
		Logger:   quietLogger(),
		OnUpdate: func(note models.VoiceNote) { last = note },
	})
	w.Start(ctx, n.Transcript)
	waitDone(t, w)

	if w.State() != Idle {
		t.Errorf("state = %v, want idle", w.State())
	}
	if last.Transcript != "Hello world" {
		t.Errorf("final transcript = %q", last.Transcript)
	}
}
