package config

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"multiagents/internal/event"
	"multiagents/internal/logging"
)

// WatchSnapshotDir watches dir (the config snapshot directory an external
// validator writes into) and publishes a ConfigEvent on Bus() for every
// create/write/remove observed, until ctx is cancelled. It never blocks
// the caller: it starts its own goroutine and returns immediately.
func WatchSnapshotDir(ctx context.Context, dir string, logger *logging.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				changeType := changeTypeForOp(ev.Op)
				if changeType == "" {
					continue
				}
				Bus().Publish(event.NewConfigEvent("snapshot", ev.Name, changeType))
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if logger != nil {
					logger.Warn("config snapshot watch error", map[string]string{"error": watchErr.Error()})
				}
			}
		}
	}()

	return nil
}

func changeTypeForOp(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Create != 0:
		return "created"
	case op&fsnotify.Write != 0:
		return "modified"
	case op&fsnotify.Remove != 0, op&fsnotify.Rename != 0:
		return "removed"
	default:
		return ""
	}
}
