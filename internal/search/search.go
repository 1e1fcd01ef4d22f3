// Package search ranks indexed entities against a keyword query using
// BM25 over summaries and docs.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/loupe-dev/loupe/internal/config"
	"github.com/loupe-dev/loupe/internal/extract"
	"github.com/loupe-dev/loupe/internal/index"
	"github.com/loupe-dev/loupe/internal/lang"
)

// Engine searches one repository's index.
type Engine struct {
	Root  string
	Store *index.Store
	Cfg   config.Search
}

func New(root string, store *index.Store, cfg config.Search) *Engine {
	return &Engine{Root: root, Store: store, Cfg: cfg}
}

// Result is one ranked hit.
type Result struct {
	EntityID      string  `json:"entity_id"`
	Path          string  `json:"path"`
	Name          string  `json:"name"`
	QualifiedName string  `json:"qualified_name"`
	Kind          string  `json:"kind"`
	Score         float64 `json:"score"`
	// Snippet is the text that matched: the entity's summary or docs.
	Snippet string `json:"snippet,omitempty"`
}

// Search ranks every indexed entity against the query. Each entity's
// document is its valid summary when one exists, otherwise the docs
// extracted live from the file. Zero-score entities are dropped.
func (e *Engine) Search(ctx context.Context, query string) ([]Result, error) {
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	records, err := e.Store.AllEntities()
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	docs, err := e.buildCorpus(ctx, records)
	if err != nil {
		return nil, err
	}

	corpus := make([][]string, len(records))
	for i, rec := range records {
		// The entity's own name always participates in matching.
		corpus[i] = append(Tokenize(rec.QualifiedName), Tokenize(docs[i])...)
	}

	model := newBM25(corpus, e.Cfg.K1, e.Cfg.B)
	ranked := model.rank(terms, e.Cfg.MaxResults)

	results := make([]Result, 0, len(ranked))
	for _, hit := range ranked {
		rec := records[hit.Index]
		results = append(results, Result{
			EntityID:      rec.EntityID(),
			Path:          rec.Path,
			Name:          rec.Name,
			QualifiedName: rec.QualifiedName,
			Kind:          rec.Kind,
			Score:         hit.Score,
			Snippet:       docs[hit.Index],
		})
	}
	return results, nil
}

// buildCorpus collects one document per entity: the valid summary from
// the cache, else docs re-extracted from the live file. Files are
// parsed once each, in parallel.
func (e *Engine) buildCorpus(ctx context.Context, records []index.EntityRecord) ([]string, error) {
	docs := make([]string, len(records))

	needFile := make(map[string][]int) // path -> record indexes missing a summary
	for i, rec := range records {
		text, ok, err := e.Store.Summary(rec.ID, rec.StructuralHash)
		if err != nil {
			return nil, err
		}
		if ok {
			docs[i] = text
			continue
		}
		needFile[rec.Path] = append(needFile[rec.Path], i)
	}

	paths := make([]string, 0, len(needFile))
	for path := range needFile {
		paths = append(paths, path)
	}

	liveDocs := make([]map[string]string, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			byQN, err := e.extractDocs(path)
			if err != nil {
				slog.Warn("search.parse.err", "path", path, "err", err)
				return nil
			}
			liveDocs[i] = byQN
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, path := range paths {
		if liveDocs[i] == nil {
			continue
		}
		for _, recIdx := range needFile[path] {
			docs[recIdx] = liveDocs[i][records[recIdx].QualifiedName]
		}
	}
	return docs, nil
}

func (e *Engine) extractDocs(relPath string) (map[string]string, error) {
	l, ok := lang.LanguageForExtension(filepath.Ext(relPath))
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", relPath)
	}
	source, err := os.ReadFile(filepath.Join(e.Root, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, err
	}
	res, err := extract.File(source, relPath, l)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(res.Entities))
	for _, ent := range res.Entities {
		out[ent.QualifiedName] = ent.Docs
	}
	return out, nil
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
