// Package watch triggers pipeline re-runs when files under the watched
// roots change. It is the local stand-in for a code-change event from a
// hosting platform.
package watch

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gantryci/gantry/internal/ctxlog"
)

// debounce collapses editor save bursts into one trigger.
const debounce = 500 * time.Millisecond

// Watch monitors the given roots (files or directory trees) and calls
// onChange after each settled burst of write/create/remove events. It
// runs until ctx is cancelled.
func Watch(ctx context.Context, roots []string, onChange func()) error {
	logger := ctxlog.FromContext(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, root := range roots {
		if err := addRecursive(watcher, root); err != nil {
			return err
		}
	}
	logger.Info("Watching for changes.", "roots", roots)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			logger.Debug("Change detected.", "path", event.Name, "op", event.Op.String())
			// New directories need watching too.
			if event.Has(fsnotify.Create) {
				_ = addRecursive(watcher, event.Name)
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Watcher error.", "error", err)
		}
	}
}

// addRecursive registers a path and, if it is a directory, all of its
// subdirectories.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// The path may have vanished between the event and the walk.
			return nil
		}
		if d.IsDir() || path == root {
			return watcher.Add(path)
		}
		return nil
	})
}
