package discover

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/loupe-dev/loupe/internal/lang"
)

// ignoreDirs are directory names skipped during discovery.
var ignoreDirs = map[string]bool{
	".cache": true, ".eggs": true, ".env": true, ".git": true,
	".gradle": true, ".hg": true, ".idea": true, ".loupe-cache": true,
	".mypy_cache": true, ".nox": true, ".npm": true, ".nyc_output": true,
	".pnpm-store": true, ".pytest_cache": true, ".ruff_cache": true,
	".svn": true, ".tox": true, ".venv": true, ".vscode": true,
	".yarn": true, "__pycache__": true, "bower_components": true,
	"build": true, "coverage": true, "dist": true, "env": true,
	"node_modules": true, "obj": true, "out": true, "target": true,
	"tmp": true, "vendor": true, "venv": true,
}

// ignoreSuffixes are file suffixes skipped during discovery.
var ignoreSuffixes = []string{
	".tmp", "~", ".pyc", ".pyo", ".o", ".a", ".so", ".dll", ".class",
	".min.js",
}

// FileInfo represents a discovered source file.
type FileInfo struct {
	Path     string        // absolute path
	RelPath  string        // relative to repo root, slash-separated
	Language lang.Language // detected language
}

// Options configures file discovery.
type Options struct {
	IgnoreFile string // path to .loupeignore file (optional)
	// ExtraIgnore holds additional glob patterns (from config).
	ExtraIgnore []string
}

// shouldSkipDir returns true if the directory should be skipped during discovery.
func shouldSkipDir(name, rel string, extraIgnore []string) bool {
	if ignoreDirs[name] {
		return true
	}
	return matchesIgnore(name, rel, extraIgnore)
}

// matchesIgnore matches a pattern list against both the base name and the
// repo-relative path, so "gen" and "pkg/gen" and "*_gen.go" all work.
func matchesIgnore(name, rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// Discover walks a repository and returns all source files in supported
// languages, ordered as encountered by the walk.
func Discover(ctx context.Context, repoPath string, opts *Options) ([]FileInfo, error) {
	repoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var extraIgnore []string
	ignPath := filepath.Join(repoPath, ".loupeignore")
	if opts != nil && opts.IgnoreFile != "" {
		ignPath = opts.IgnoreFile
	}
	extraIgnore, _ = loadIgnoreFile(ignPath)
	if opts != nil {
		extraIgnore = append(extraIgnore, opts.ExtraIgnore...)
	}

	var files []FileInfo

	err = filepath.Walk(repoPath, func(path string, info os.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			return filepath.SkipDir
		}

		rel, _ := filepath.Rel(repoPath, path)

		if info.IsDir() {
			if shouldSkipDir(info.Name(), rel, extraIgnore) {
				return filepath.SkipDir
			}
			return nil
		}

		for _, suffix := range ignoreSuffixes {
			if strings.HasSuffix(path, suffix) {
				return nil
			}
		}
		if matchesIgnore(info.Name(), filepath.ToSlash(rel), extraIgnore) {
			return nil
		}

		ext := filepath.Ext(path)
		l, ok := lang.LanguageForExtension(ext)
		if !ok {
			return nil
		}
		files = append(files, FileInfo{
			Path:     path,
			RelPath:  filepath.ToSlash(rel),
			Language: l,
		})
		return nil
	})

	return files, err
}

func loadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, scanner.Err()
}
