package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loupe-dev/loupe/internal/discover"
)

func TestSnapshotsEqual(t *testing.T) {
	now := time.Now()

	a := map[string]fileSnapshot{
		"main.go": {modTime: now, size: 100},
		"util.go": {modTime: now, size: 200},
	}
	b := map[string]fileSnapshot{
		"main.go": {modTime: now, size: 100},
		"util.go": {modTime: now, size: 200},
	}
	if !snapshotsEqual(a, b) {
		t.Error("identical snapshots should be equal")
	}

	b["util.go"] = fileSnapshot{modTime: now, size: 201}
	if snapshotsEqual(a, b) {
		t.Error("size change should differ")
	}

	delete(b, "util.go")
	if snapshotsEqual(a, b) {
		t.Error("missing file should differ")
	}
}

func TestPollInterval(t *testing.T) {
	if got := pollInterval(0); got != time.Second {
		t.Errorf("empty tree interval = %v", got)
	}
	if got := pollInterval(1000); got != 3*time.Second {
		t.Errorf("1000-file interval = %v", got)
	}
	if got := pollInterval(1_000_000); got != 60*time.Second {
		t.Errorf("huge tree interval not capped: %v", got)
	}
}

func TestPollTriggersUpdateOnChange(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.go")
	if err := os.WriteFile(path, []byte("package a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	w := New(root, discover.Options{}, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	ctx := context.Background()

	// Baseline poll must not trigger.
	w.poll(ctx)
	if calls.Load() != 0 {
		t.Fatalf("baseline poll triggered update")
	}

	// No change: still no trigger.
	w.poll(ctx)
	if calls.Load() != 0 {
		t.Fatalf("unchanged poll triggered update")
	}

	// Modify the file with a distinct mtime.
	if err := os.WriteFile(path, []byte("package a\n\nfunc A() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	w.poll(ctx)
	if calls.Load() != 1 {
		t.Fatalf("change did not trigger update: %d calls", calls.Load())
	}
}

func TestFailedUpdateRetriesNextPoll(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.go")
	if err := os.WriteFile(path, []byte("package a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	w := New(root, discover.Options{}, func(context.Context) error {
		calls.Add(1)
		if calls.Load() == 1 {
			return context.DeadlineExceeded
		}
		return nil
	})

	ctx := context.Background()
	w.poll(ctx) // baseline

	if err := os.WriteFile(path, []byte("package a\n\nfunc A() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	w.poll(ctx) // fails, snapshot kept
	w.poll(ctx) // retries
	if calls.Load() != 2 {
		t.Fatalf("failed update not retried: %d calls", calls.Load())
	}
}
