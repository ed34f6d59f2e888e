package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pcormier/voxnote/internal/models"
)

// State is the watcher's lifecycle state for one displayed note.
type State int

const (
	// Idle: the transcript is resolved; no refreshes are being issued.
	Idle State = iota
	// Polling: the transcript is pending and refreshes run on a fixed
	// interval.
	Polling
	// Stopped: the hard ceiling elapsed before the transcript resolved.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// NoteFetcher fetches a note's authoritative state. *Client implements it.
type NoteFetcher interface {
	GetNote(ctx context.Context, id string) (*models.VoiceNote, error)
}

// WatcherOptions tunes a Watcher. Zero values take the defaults the web
// client uses: refresh every 3s, give up after 30s.
type WatcherOptions struct {
	Interval time.Duration
	Ceiling  time.Duration
	OnUpdate func(models.VoiceNote) // called after every successful refresh
	Logger   *slog.Logger
}

// Watcher polls one note while its transcript is pending and reconciles
// local state from the authoritative record.
//
// Termination: when a refresh observes a resolved transcript the watcher
// goes Idle and cancels at the next cycle's check, so the resolving tick
// still delivers its update. Independently, the ceiling stops the watcher
// unconditionally, bounding refresh traffic for abandoned notes.
type Watcher struct {
	fetcher  NoteFetcher
	noteID   string
	interval time.Duration
	ceiling  time.Duration
	onUpdate func(models.VoiceNote)
	logger   *slog.Logger

	mu    sync.Mutex
	state State
	done  chan struct{}
}

// NewWatcher creates a watcher for the given note id.
func NewWatcher(fetcher NoteFetcher, noteID string, opts WatcherOptions) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = 3 * time.Second
	}
	if opts.Ceiling <= 0 {
		opts.Ceiling = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Watcher{
		fetcher:  fetcher,
		noteID:   noteID,
		interval: opts.Interval,
		ceiling:  opts.Ceiling,
		onUpdate: opts.OnUpdate,
		logger:   opts.Logger,
		done:     make(chan struct{}),
	}
}

// State returns the current watcher state.
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Watcher) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Done is closed when the watcher has finished, by resolution, ceiling,
// or context cancellation.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Start begins watching in a new goroutine if the transcript is pending.
// If it is already resolved the watcher stays Idle and finishes at once.
func (w *Watcher) Start(ctx context.Context, transcript string) {
	if models.StatusOf(transcript) != models.TranscriptStatusPending {
		close(w.done)
		return
	}
	w.setState(Polling)
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	deadline := time.NewTimer(w.ceiling)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			w.setState(Stopped)
			return

		case <-deadline.C:
			w.logger.Debug("watcher: ceiling elapsed", slog.String("note_id", w.noteID))
			w.setState(Stopped)
			return

		case <-ticker.C:
			// A previous cycle saw the transcript resolve; this cycle's
			// check cancels polling without another refresh call.
			if w.State() == Idle {
				return
			}

			n, err := w.fetcher.GetNote(ctx, w.noteID)
			if err != nil {
				// Keep last-known-good state and retry next tick.
				w.logger.Warn("watcher: refresh failed",
					slog.String("note_id", w.noteID), slog.String("error", err.Error()))
				continue
			}
			if w.onUpdate != nil {
				w.onUpdate(*n)
			}
			if n.TranscriptStatus() != models.TranscriptStatusPending {
				w.setState(Idle)
			}
		}
	}
}
