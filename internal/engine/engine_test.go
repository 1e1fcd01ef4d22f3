package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loupe-dev/loupe/internal/index"
)

const goFileA = `package demo

// Add returns the sum of two ints.
func Add(a, b int) int {
	return a + b
}

func Sub(a, b int) int {
	return a - b
}
`

const goFileAModified = `package demo

// Add returns the sum of two ints.
func Add(a, b int) int {
	return a + b + 0
}

func Sub(a, b int) int {
	return a - b
}
`

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func newTestEngine(t *testing.T, root string) *Engine {
	t.Helper()
	s, err := index.Create(root)
	if err != nil {
		t.Fatalf("create index: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(root, s)
}

func TestRunIndexesFreshRepo(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/a.go", goFileA)

	e := newTestEngine(t, root)
	report, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if report.FilesScanned != 1 || report.FilesChanged != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	// module + Add + Sub
	if report.Entities.Added != 3 {
		t.Fatalf("expected 3 added entities, got %d", report.Entities.Added)
	}

	ents, err := e.Store.EntitiesForFile("pkg/a.go")
	if err != nil {
		t.Fatalf("entities: %v", err)
	}
	if len(ents) != 3 {
		t.Fatalf("expected 3 stored entities, got %d", len(ents))
	}
}

func TestRunIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/a.go", goFileA)

	e := newTestEngine(t, root)
	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	report, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.FilesChanged != 0 || report.Entities.Added != 0 || report.Entities.Modified != 0 {
		t.Fatalf("no-op run reported changes: %+v", report)
	}
}

func TestRunDetectsSemanticChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/a.go", goFileA)

	e := newTestEngine(t, root)
	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Force an mtime difference so the fast path cannot mask the edit.
	writeFile(t, root, "pkg/a.go", goFileAModified)
	bumpMtime(t, filepath.Join(root, "pkg/a.go"))

	report, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.FilesChanged != 1 {
		t.Fatalf("expected 1 changed file, got %d", report.FilesChanged)
	}
	// Add changed, module hash changed with it, Sub untouched.
	if report.Entities.Modified < 1 || report.Entities.Unchanged < 1 {
		t.Fatalf("unexpected entity delta: %+v", report.Entities)
	}
	if report.Entities.Added != 0 || report.Entities.Removed != 0 {
		t.Fatalf("unexpected adds/removes: %+v", report.Entities)
	}
}

func TestRunTouchWithoutEditIsUnchanged(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/a.go", goFileA)

	e := newTestEngine(t, root)
	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Same bytes, new mtime: the content hash must keep it out of re-extraction.
	bumpMtime(t, filepath.Join(root, "pkg/a.go"))

	report, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.FilesChanged != 0 {
		t.Fatalf("touch counted as change: %+v", report)
	}

	ents, err := e.Store.EntitiesForFile("pkg/a.go")
	if err != nil {
		t.Fatalf("entities: %v", err)
	}
	if len(ents) != 3 {
		t.Fatalf("entities lost on fingerprint refresh: %d", len(ents))
	}
}

func TestRunRemovesDeletedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/a.go", goFileA)
	writeFile(t, root, "pkg/b.go", "package demo\n\nfunc Only() {}\n")

	e := newTestEngine(t, root)
	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	if err := os.Remove(filepath.Join(root, "pkg/b.go")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	report, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.FilesRemoved != 1 {
		t.Fatalf("expected 1 removed file, got %d", report.FilesRemoved)
	}
	// module + Only
	if report.Entities.Removed != 2 {
		t.Fatalf("expected 2 removed entities, got %d", report.Entities.Removed)
	}
	if ents, _ := e.Store.EntitiesForFile("pkg/b.go"); len(ents) != 0 {
		t.Fatalf("deleted file still has entities: %d", len(ents))
	}
}

func TestRunFlagsDegradedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/a.go", goFileA)
	writeFile(t, root, "pkg/broken.go", "package demo\n\nfunc Broken( {\n")

	e := newTestEngine(t, root)
	report, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.FilesDegraded != 1 {
		t.Fatalf("expected 1 degraded file, got %d", report.FilesDegraded)
	}

	rec, err := e.Store.GetFile("pkg/broken.go")
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if rec == nil || !rec.Degraded {
		t.Fatalf("degraded flag not stored: %+v", rec)
	}
	// The healthy file still indexed fully.
	if ents, _ := e.Store.EntitiesForFile("pkg/a.go"); len(ents) != 3 {
		t.Fatalf("healthy file not indexed alongside degraded one")
	}
}

func TestRunSyntaxErrorKeepsEntities(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/a.go", goFileA)

	e := newTestEngine(t, root)
	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("initial run: %v", err)
	}

	ents, err := e.Store.EntitiesForFile("pkg/a.go")
	if err != nil || len(ents) != 3 {
		t.Fatalf("expected 3 indexed entities, got %d (%v)", len(ents), err)
	}
	var addID int64
	var addHash string
	for _, ent := range ents {
		if ent.Name == "Add" {
			addID, addHash = ent.ID, ent.StructuralHash
		}
	}
	if err := e.Store.RecordSummary(addID, "Adds two numbers.", addHash); err != nil {
		t.Fatalf("record summary: %v", err)
	}

	// A half-finished edit must not wipe what the last good parse indexed.
	writeFile(t, root, "pkg/a.go", "package demo\n\nfunc Add(a, b int {\n")
	bumpMtime(t, filepath.Join(root, "pkg/a.go"))

	report, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("degraded run: %v", err)
	}
	if report.FilesDegraded != 1 {
		t.Fatalf("expected 1 degraded file, got %d", report.FilesDegraded)
	}
	if report.Entities.Removed != 0 {
		t.Fatalf("syntax error removed %d entities", report.Entities.Removed)
	}
	if ents, _ := e.Store.EntitiesForFile("pkg/a.go"); len(ents) != 3 {
		t.Fatalf("entities lost on parse failure: %d left", len(ents))
	}
	if text, ok, err := e.Store.Summary(addID, addHash); err != nil || !ok || text != "Adds two numbers." {
		t.Fatalf("summary lost on parse failure: %q ok=%v err=%v", text, ok, err)
	}
	if rec, _ := e.Store.GetFile("pkg/a.go"); rec == nil || !rec.Degraded {
		t.Fatal("degraded flag not set")
	}

	// Once the file parses again the normal diff resumes.
	writeFile(t, root, "pkg/a.go", goFileA)
	bumpMtime(t, filepath.Join(root, "pkg/a.go"))
	if _, err := e.Run(context.Background()); err != nil {
		t.Fatalf("recovery run: %v", err)
	}
	if rec, _ := e.Store.GetFile("pkg/a.go"); rec == nil || rec.Degraded {
		t.Fatal("degraded flag not cleared after recovery")
	}
	if text, ok, err := e.Store.Summary(addID, addHash); err != nil || !ok || text != "Adds two numbers." {
		t.Fatalf("summary should survive recovery unchanged: %q ok=%v err=%v", text, ok, err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/a.go", goFileA)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEngine(t, root)
	if _, err := e.Run(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func bumpMtime(t *testing.T, path string) {
	t.Helper()
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}
