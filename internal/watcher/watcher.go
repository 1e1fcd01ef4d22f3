// Package watcher polls a repository for file changes and triggers
// re-indexing. Polling interval adapts to tree size.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/loupe-dev/loupe/internal/discover"
)

const (
	baseInterval = 1 * time.Second
	maxInterval  = 60 * time.Second
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// UpdateFunc is called when file changes are detected.
type UpdateFunc func(ctx context.Context) error

// Watcher polls one repository root for changes.
type Watcher struct {
	root     string
	opts     discover.Options
	updateFn UpdateFunc

	snapshot map[string]fileSnapshot
	interval time.Duration
}

func New(root string, opts discover.Options, updateFn UpdateFunc) *Watcher {
	return &Watcher{
		root:     root,
		opts:     opts,
		updateFn: updateFn,
		interval: baseInterval,
	}
}

// Run blocks until ctx is cancelled, polling whenever the adaptive
// interval elapses. The first poll captures a baseline without
// triggering an update.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		timer := time.NewTimer(w.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	if _, err := os.Stat(w.root); err != nil {
		slog.Warn("watcher.root_gone", "path", w.root)
		w.interval = maxInterval
		return
	}

	snap, err := w.captureSnapshot(ctx)
	if err != nil {
		slog.Warn("watcher.snapshot", "err", err)
		return
	}

	w.interval = pollInterval(len(snap))

	if w.snapshot == nil {
		slog.Debug("watcher.baseline", "files", len(snap))
		w.snapshot = snap
		return
	}

	if snapshotsEqual(w.snapshot, snap) {
		return
	}

	slog.Info("watcher.changed", "files", len(snap))
	if err := w.updateFn(ctx); err != nil {
		// Keep the old snapshot so the next cycle retries.
		slog.Warn("watcher.update", "err", err)
		return
	}
	w.snapshot = snap
}

// captureSnapshot records mtime and size for every discoverable file.
func (w *Watcher) captureSnapshot(ctx context.Context) (map[string]fileSnapshot, error) {
	files, err := discover.Discover(ctx, w.root, &w.opts)
	if err != nil {
		return nil, err
	}

	snap := make(map[string]fileSnapshot, len(files))
	for _, f := range files {
		info, statErr := os.Stat(f.Path)
		if statErr != nil {
			continue
		}
		snap[f.RelPath] = fileSnapshot{
			modTime: info.ModTime(),
			size:    info.Size(),
		}
	}
	return snap, nil
}

func snapshotsEqual(a, b map[string]fileSnapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for path, aSnap := range a {
		bSnap, ok := b[path]
		if !ok {
			return false
		}
		if !aSnap.modTime.Equal(bSnap.modTime) || aSnap.size != bSnap.size {
			return false
		}
	}
	return true
}

// pollInterval computes the adaptive interval from file count.
// 1s base + 1s per 500 files, capped at 60s.
func pollInterval(fileCount int) time.Duration {
	ms := 1000 + (fileCount/500)*1000
	if ms > 60000 {
		ms = 60000
	}
	return time.Duration(ms) * time.Millisecond
}
