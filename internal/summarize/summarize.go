// Package summarize generates and caches entity summaries. Each entity
// is recorded independently so a failed or interrupted run never loses
// results already produced.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/loupe-dev/loupe/internal/config"
	"github.com/loupe-dev/loupe/internal/extract"
	"github.com/loupe-dev/loupe/internal/index"
	"github.com/loupe-dev/loupe/internal/lang"
)

// Runner drives one summarise run over the index.
type Runner struct {
	Root    string
	Store   *index.Store
	Gen     Generator
	Cfg     config.Summarize
	limiter *rate.Limiter
}

// Stats reports the outcome of one run.
type Stats struct {
	Selected  int `json:"selected"`
	Generated int `json:"generated"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

func NewRunner(root string, store *index.Store, gen Generator, cfg config.Summarize) *Runner {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &Runner{
		Root:    root,
		Store:   store,
		Gen:     gen,
		Cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Run summarizes every entity lacking a valid summary, or every entity
// when force is set. Items are processed in batches under a bounded
// worker window and a request rate limit; each result commits on its
// own so siblings and prior batches survive any single failure.
func (r *Runner) Run(ctx context.Context, force bool) (*Stats, error) {
	var (
		records []index.EntityRecord
		err     error
	)
	if force {
		records, err = r.Store.AllEntities()
	} else {
		records, err = r.Store.EntitiesNeedingSummary()
	}
	if err != nil {
		return nil, fmt.Errorf("select entities: %w", err)
	}

	stats := &Stats{Selected: len(records)}
	slog.Info("summarize.start", "selected", len(records), "force", force)

	batchSize := r.Cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 8
	}
	concurrency := r.Cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	for start := 0; start < len(records); start += batchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		r.runBatch(ctx, records[start:end], concurrency, stats)
	}

	slog.Info("summarize.done",
		"generated", stats.Generated, "failed", stats.Failed, "skipped", stats.Skipped)
	return stats, nil
}

type outcome int

const (
	outcomeGenerated outcome = iota
	outcomeFailed
	outcomeSkipped
)

func (r *Runner) runBatch(ctx context.Context, batch []index.EntityRecord, concurrency int, stats *Stats) {
	outcomes := make([]outcome, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, rec := range batch {
		g.Go(func() error {
			outcomes[i] = r.summarizeOne(gctx, rec)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		switch o {
		case outcomeGenerated:
			stats.Generated++
		case outcomeFailed:
			stats.Failed++
		case outcomeSkipped:
			stats.Skipped++
		}
	}
}

func (r *Runner) summarizeOne(ctx context.Context, rec index.EntityRecord) outcome {
	text, err := r.entityText(rec)
	if err != nil {
		slog.Warn("summarize.entity.skip", "entity", rec.EntityID(), "err", err)
		return outcomeSkipped
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return outcomeSkipped
	}

	summary, err := r.Gen.Summarize(ctx, rec.EntityID(), text)
	if err != nil {
		slog.Warn("summarize.entity.err", "entity", rec.EntityID(), "err", err)
		if recErr := r.Store.RecordSummaryFailure(rec.ID, rec.StructuralHash); recErr != nil {
			slog.Error("summarize.record.err", "entity", rec.EntityID(), "err", recErr)
		}
		return outcomeFailed
	}

	summary = strings.TrimSpace(summary)
	if err := r.Store.RecordSummary(rec.ID, summary, rec.StructuralHash); err != nil {
		slog.Error("summarize.record.err", "entity", rec.EntityID(), "err", err)
		return outcomeFailed
	}
	return outcomeGenerated
}

// entityText builds the canonical text for one entity from the live
// file: the source lines of its current extent. The entity must still
// exist on disk with the stored structural hash, otherwise the run is
// working from a stale index and the item is skipped.
func (r *Runner) entityText(rec index.EntityRecord) (string, error) {
	l, ok := lang.LanguageForExtension(filepath.Ext(rec.Path))
	if !ok {
		return "", fmt.Errorf("unsupported file type: %s", rec.Path)
	}
	source, err := os.ReadFile(filepath.Join(r.Root, filepath.FromSlash(rec.Path)))
	if err != nil {
		return "", err
	}
	res, err := extract.File(source, rec.Path, l)
	if err != nil {
		return "", err
	}
	for _, ent := range res.Entities {
		if ent.QualifiedName != rec.QualifiedName {
			continue
		}
		if ent.StructuralHash != rec.StructuralHash {
			return "", fmt.Errorf("entity changed on disk since last update")
		}
		return sliceLines(source, ent.StartLine, ent.EndLine), nil
	}
	return "", fmt.Errorf("entity no longer present in file")
}

// sliceLines returns the 1-based inclusive line range of source.
func sliceLines(source []byte, start, end int) string {
	lines := strings.Split(string(source), "\n")
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}
