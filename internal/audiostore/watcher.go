package audiostore

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// RemoveCallback is called with the blob name when a stored audio file
// disappears from the uploads directory outside the application's control.
type RemoveCallback func(name string)

// Watch starts an fsnotify watcher on the uploads directory and reports
// audio blobs removed behind the application's back until ctx is cancelled.
// Notes referencing a vanished blob keep working (their transcript and
// summary are in the store); the callback lets the caller surface the loss.
func Watch(ctx context.Context, root string, logger *slog.Logger, cb RemoveCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("audiostore watcher: started", slog.String("root", root))

	for {
		select {
		case <-ctx.Done():
			logger.Info("audiostore watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Base(ev.Name)
			// Atomic Save goes through a temp file rename; ignore those.
			if strings.HasPrefix(name, ".voxnote-tmp-") {
				continue
			}
			logger.Warn("audiostore watcher: blob removed externally", slog.String("name", name))
			if cb != nil {
				cb(name)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("audiostore watcher: error", slog.String("error", err.Error()))
		}
	}
}
