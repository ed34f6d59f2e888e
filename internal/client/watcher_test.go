package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/pcormier/voxnote/internal/models"
)

// fakeFetcher serves a scripted sequence of notes, holding the last one
// once the script runs out.
type fakeFetcher struct {
	mu    sync.Mutex
	notes []models.VoiceNote
	errs  []error
	calls int
}

func (f *fakeFetcher) GetNote(ctx context.Context, id string) (*models.VoiceNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.notes) {
		i = len(f.notes) - 1
	}
	n := f.notes[i]
	return &n, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func pendingNote(id string) models.VoiceNote {
	return models.VoiceNote{ID: id, Transcript: models.TranscriptPending}
}

func resolvedNote(id, transcript string) models.VoiceNote {
	return models.VoiceNote{ID: id, Transcript: transcript}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitDone(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not finish")
	}
}

func TestWatcherPollsUntilResolved(t *testing.T) {
	f := &fakeFetcher{notes: []models.VoiceNote{
		pendingNote("n1"),
		pendingNote("n1"),
		resolvedNote("n1", "Hello world"),
	}}

	var updates []models.VoiceNote
	var mu sync.Mutex
	w := NewWatcher(f, "n1", WatcherOptions{
		Interval: 10 * time.Millisecond,
		Ceiling:  time.Second,
		Logger:   quietLogger(),
		OnUpdate: func(n models.VoiceNote) {
			mu.Lock()
			updates = append(updates, n)
			mu.Unlock()
		},
	})
	w.Start(context.Background(), models.TranscriptPending)
	waitDone(t, w)

	if w.State() != Idle {
		t.Errorf("state = %v, want idle", w.State())
	}
	// Exactly three refreshes: two pending, one resolving. The cycle after
	// the resolving one cancels without fetching again.
	if got := f.callCount(); got != 3 {
		t.Errorf("fetch calls = %d, want 3", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(updates) != 3 {
		t.Fatalf("updates = %d, want 3", len(updates))
	}
	if updates[2].Transcript != "Hello world" {
		t.Errorf("final update transcript = %q", updates[2].Transcript)
	}
}

func TestWatcherCeiling(t *testing.T) {
	f := &fakeFetcher{notes: []models.VoiceNote{pendingNote("n1")}}
	w := NewWatcher(f, "n1", WatcherOptions{
		Interval: 10 * time.Millisecond,
		Ceiling:  55 * time.Millisecond,
		Logger:   quietLogger(),
	})
	w.Start(context.Background(), models.TranscriptPending)
	waitDone(t, w)

	if w.State() != Stopped {
		t.Errorf("state = %v, want stopped", w.State())
	}
	if f.callCount() == 0 {
		t.Error("expected at least one refresh before the ceiling")
	}
}

func TestWatcherAlreadyResolved(t *testing.T) {
	f := &fakeFetcher{notes: []models.VoiceNote{resolvedNote("n1", "done")}}
	w := NewWatcher(f, "n1", WatcherOptions{
		Interval: 10 * time.Millisecond,
		Ceiling:  time.Second,
		Logger:   quietLogger(),
	})
	w.Start(context.Background(), "already resolved text")
	waitDone(t, w)

	if w.State() != Idle {
		t.Errorf("state = %v, want idle", w.State())
	}
	if f.callCount() != 0 {
		t.Errorf("fetch calls = %d, want 0", f.callCount())
	}
}

func TestWatcherRetriesAfterError(t *testing.T) {
	f := &fakeFetcher{
		errs: []error{errors.New("transient")},
		notes: []models.VoiceNote{
			pendingNote("n1"),
			resolvedNote("n1", "recovered"),
		},
	}
	w := NewWatcher(f, "n1", WatcherOptions{
		Interval: 10 * time.Millisecond,
		Ceiling:  time.Second,
		Logger:   quietLogger(),
	})
	w.Start(context.Background(), models.TranscriptPending)
	waitDone(t, w)

	if w.State() != Idle {
		t.Errorf("state = %v, want idle after recovery", w.State())
	}
}

func TestWatcherContextCancel(t *testing.T) {
	f := &fakeFetcher{notes: []models.VoiceNote{pendingNote("n1")}}
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWatcher(f, "n1", WatcherOptions{
		Interval: 10 * time.Millisecond,
		Ceiling:  time.Minute,
		Logger:   quietLogger(),
	})
	w.Start(ctx, models.TranscriptPending)
	cancel()
	waitDone(t, w)

	if w.State() != Stopped {
		t.Errorf("state = %v, want stopped", w.State())
	}
}

func TestWatcherLegacyPendingSentinel(t *testing.T) {
	f := &fakeFetcher{notes: []models.VoiceNote{resolvedNote("n1", "text")}}
	w := NewWatcher(f, "n1", WatcherOptions{
		Interval: 10 * time.Millisecond,
		Ceiling:  time.Second,
		Logger:   quietLogger(),
	})
	// The older placeholder must still trigger polling.
	w.Start(context.Background(), models.TranscriptPendingLegacy)
	waitDone(t, w)

	if f.callCount() == 0 {
		t.Error("legacy pending sentinel should poll")
	}
}
