// Package testutil provides shared test helpers for setting up stores and
// fake AI gateways.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/pcormier/voxnote/internal/audiostore"
	"github.com/pcormier/voxnote/internal/notestore"
)

// TestStore creates a temporary SQLite note store that is automatically
// cleaned up.
func TestStore(t *testing.T) *notestore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "voxnote-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := notestore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestBlobs creates a temporary uploads directory with an audio blob store.
func TestBlobs(t *testing.T) (string, *audiostore.FS) {
	t.Helper()
	dir := t.TempDir()
	blobs, err := audiostore.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, blobs
}

// FakeGateway implements ai.Gateway with pluggable function hooks.
type FakeGateway struct {
	TranscribeFn func(ctx context.Context, audio []byte, mimeType string) (string, error)
	SummarizeFn  func(ctx context.Context, transcript string) (string, error)
}

func (f *FakeGateway) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if f.TranscribeFn == nil {
		return "Hello world", nil
	}
	return f.TranscribeFn(ctx, audio, mimeType)
}

func (f *FakeGateway) Summarize(ctx context.Context, transcript string) (string, error) {
	if f.SummarizeFn == nil {
		return "A short summary.", nil
	}
	return f.SummarizeFn(ctx, transcript)
}
