package catalog

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc receives a freshly parsed catalog after the file changed.
type ReloadFunc func(*Catalog)

// Watch observes the catalog file at path and calls onReload with each
// valid new version until ctx is cancelled. Invalid edits are logged and
// the previous catalog stays in effect.
//
// The parent directory is watched rather than the file itself because most
// editors save by writing a temp file and renaming it over the original.
func Watch(ctx context.Context, path string, logger *slog.Logger, onReload ReloadFunc) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("catalog watcher: started", slog.String("path", abs))

	// debounce bursts of writes from a single save.
	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(200 * time.Millisecond)
			timerCh = timer.C
		} else {
			timer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("catalog watcher: stopped")
			return nil

		case <-timerCh:
			c, err := LoadFile(abs)
			if err != nil {
				logger.Warn("catalog watcher: reload rejected", slog.String("error", err.Error()))
				continue
			}
			logger.Info("catalog watcher: reloaded", slog.String("path", abs))
			onReload(c)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("catalog watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
