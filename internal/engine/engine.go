// Package engine drives indexing runs: discovering source files,
// detecting what changed since the last run, extracting entities from
// changed files, and committing the result in a single transaction.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/loupe-dev/loupe/internal/discover"
	"github.com/loupe-dev/loupe/internal/extract"
	"github.com/loupe-dev/loupe/internal/index"
)

// Engine runs init and update passes over one repository.
type Engine struct {
	Root     string
	Store    *index.Store
	Discover discover.Options
}

// Report summarizes one indexing run.
type Report struct {
	FilesScanned  int           `json:"files_scanned"`
	FilesChanged  int           `json:"files_changed"`
	FilesRemoved  int           `json:"files_removed"`
	FilesDegraded int           `json:"files_degraded"`
	Entities      index.Delta   `json:"entities"`
	Elapsed       time.Duration `json:"-"`
	ElapsedMS     int64         `json:"elapsed_ms"`
}

func New(root string, store *index.Store) *Engine {
	return &Engine{Root: root, Store: store}
}

// Run discovers files, classifies them against stored fingerprints,
// extracts entities from changed files in parallel, and commits all
// writes atomically. On a fresh index every file classifies as changed.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	slog.Info("engine.start", "root", e.Root)

	files, err := discover.Discover(ctx, e.Root, &e.Discover)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	slog.Info("engine.discovered", "files", len(files))

	stored, err := e.Store.Files()
	if err != nil {
		return nil, fmt.Errorf("load file records: %w", err)
	}

	changed, refreshed := classifyFiles(ctx, files, stored)
	removed := deletedPaths(files, stored)
	slog.Info("engine.classified",
		"changed", len(changed), "unchanged", len(files)-len(changed),
		"removed", len(removed))

	report := &Report{FilesScanned: len(files), FilesChanged: len(changed), FilesRemoved: len(removed)}

	if len(changed) == 0 && len(refreshed) == 0 && len(removed) == 0 {
		report.Elapsed = time.Since(start)
		report.ElapsedMS = report.Elapsed.Milliseconds()
		slog.Info("engine.noop")
		return report, nil
	}

	results := extractFiles(ctx, changed)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err = e.Store.WithTransaction(func(tx *index.Store) error {
		for _, r := range results {
			if r.record.Degraded {
				// Unparseable content yields no entity set to diff
				// against; keep the stored entities and summaries until
				// the file parses again.
				if err := tx.TouchFile(r.record); err != nil {
					return err
				}
				report.FilesDegraded++
				continue
			}
			delta, err := tx.UpsertFile(r.record, r.entities)
			if err != nil {
				return err
			}
			report.Entities.Added += delta.Added
			report.Entities.Removed += delta.Removed
			report.Entities.Modified += delta.Modified
			report.Entities.Unchanged += delta.Unchanged
		}
		// Content proved identical; only the fingerprint moved.
		for _, rec := range refreshed {
			if err := tx.TouchFile(rec); err != nil {
				return err
			}
		}
		for _, path := range removed {
			n, err := countFileEntities(tx, path)
			if err != nil {
				return err
			}
			if err := tx.RemoveFile(path); err != nil {
				return err
			}
			report.Entities.Removed += n
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("commit index: %w", err)
	}

	report.Elapsed = time.Since(start)
	report.ElapsedMS = report.Elapsed.Milliseconds()
	slog.Info("engine.done",
		"changed", report.FilesChanged, "removed", report.FilesRemoved,
		"degraded", report.FilesDegraded,
		"added", report.Entities.Added, "modified", report.Entities.Modified,
		"elapsed", report.Elapsed)
	return report, nil
}

type extraction struct {
	record   index.FileRecord
	entities []extract.Entity
}

// classifyFiles splits discovered files into those needing re-extraction
// and those whose fingerprint moved but whose content hash is unchanged.
// The size+mtime comparison is the fast path; the content hash decides.
func classifyFiles(ctx context.Context, files []discover.FileInfo, stored map[string]index.FileRecord) (changed []discover.FileInfo, refreshed []index.FileRecord) {
	type verdict struct {
		changed bool
		refresh *index.FileRecord
	}
	verdicts := make([]verdict, len(files))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(len(files)))
	for i, f := range files {
		g.Go(func() error {
			old, known := stored[f.RelPath]
			st, err := os.Stat(f.Path)
			if err != nil {
				verdicts[i] = verdict{changed: true}
				return nil
			}
			if known && st.Size() == old.Size && st.ModTime().UnixNano() == old.MtimeNS {
				return nil // fast path: fingerprint identical
			}
			hash, err := hashFile(f.Path)
			if err != nil {
				verdicts[i] = verdict{changed: true}
				return nil
			}
			if known && hash == old.ContentHash {
				rec := old
				rec.Size = st.Size()
				rec.MtimeNS = st.ModTime().UnixNano()
				verdicts[i] = verdict{refresh: &rec}
				return nil
			}
			verdicts[i] = verdict{changed: true}
			return nil
		})
	}
	_ = g.Wait()

	for i, f := range files {
		switch {
		case verdicts[i].changed:
			changed = append(changed, f)
		case verdicts[i].refresh != nil:
			refreshed = append(refreshed, *verdicts[i].refresh)
		}
	}
	return changed, refreshed
}

// extractFiles parses and extracts changed files in parallel. Extraction
// is pure per file; all database writes happen later in one transaction.
func extractFiles(ctx context.Context, files []discover.FileInfo) []extraction {
	results := make([]*extraction, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(len(files)))
	for i, f := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			ex, err := extractOne(f)
			if err != nil {
				slog.Warn("engine.file.err", "path", f.RelPath, "err", err)
				return nil
			}
			results[i] = ex
			return nil
		})
	}
	_ = g.Wait()

	out := make([]extraction, 0, len(files))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func extractOne(f discover.FileInfo) (*extraction, error) {
	st, err := os.Stat(f.Path)
	if err != nil {
		return nil, err
	}
	source, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}

	rec := index.FileRecord{
		Path:        f.RelPath,
		Size:        st.Size(),
		MtimeNS:     st.ModTime().UnixNano(),
		ContentHash: hashBytes(source),
	}

	res, err := extract.File(source, f.RelPath, f.Language)
	if err != nil {
		// Syntax errors degrade the file but never abort the run.
		slog.Warn("engine.file.degraded", "path", f.RelPath, "err", err)
		rec.Degraded = true
		return &extraction{record: rec}, nil
	}
	return &extraction{record: rec, entities: res.Entities}, nil
}

func deletedPaths(files []discover.FileInfo, stored map[string]index.FileRecord) []string {
	current := make(map[string]bool, len(files))
	for _, f := range files {
		current[f.RelPath] = true
	}
	var removed []string
	for path := range stored {
		if !current[path] {
			removed = append(removed, path)
		}
	}
	return removed
}

func countFileEntities(s *index.Store, path string) (int, error) {
	ents, err := s.EntitiesForFile(path)
	if err != nil {
		return 0, err
	}
	return len(ents), nil
}

func workerCount(jobs int) int {
	n := runtime.NumCPU()
	if n > jobs {
		n = jobs
	}
	if n < 1 {
		n = 1
	}
	return n
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func hashBytes(b []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(b))
}
