package discover

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/loupe-dev/loupe/internal/lang"
)

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

func TestDiscoverFindsSupportedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "pkg/util.py", "x = 1\n")
	writeFile(t, root, "web/app.ts", "const x = 1;\n")
	writeFile(t, root, "README.md", "# readme\n")

	files, err := Discover(context.Background(), root, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d: %+v", len(files), files)
	}

	byRel := map[string]lang.Language{}
	for _, f := range files {
		byRel[f.RelPath] = f.Language
	}
	if byRel["main.go"] != lang.Go {
		t.Errorf("main.go language = %s", byRel["main.go"])
	}
	if byRel["pkg/util.py"] != lang.Python {
		t.Errorf("pkg/util.py language = %s", byRel["pkg/util.py"])
	}
}

func TestDiscoverSkipsIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "node_modules/dep/index.js", "module.exports = {};\n")
	writeFile(t, root, ".git/hooks/sample.py", "x = 1\n")
	writeFile(t, root, ".loupe-cache/index.db", "not a db\n")

	files, err := Discover(context.Background(), root, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 1 || files[0].RelPath != "main.go" {
		t.Fatalf("expected only main.go, got %+v", files)
	}
}

func TestDiscoverHonorsIgnoreFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "gen/schema.go", "package gen\n")
	writeFile(t, root, ".loupeignore", "# generated code\ngen\n")

	files, err := Discover(context.Background(), root, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 1 || files[0].RelPath != "main.go" {
		t.Fatalf("expected only main.go, got %+v", files)
	}
}

func TestDiscoverIgnoresFileGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "schema_gen.go", "package main\n")
	writeFile(t, root, "api/types_gen.go", "package api\n")

	files, err := Discover(context.Background(), root, &Options{ExtraIgnore: []string{"*_gen.go"}})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 1 || files[0].RelPath != "main.go" {
		t.Fatalf("expected only main.go, got %+v", files)
	}
}

func TestDiscoverCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Discover(ctx, t.TempDir(), nil); err == nil {
		t.Fatal("expected context error")
	}
}
