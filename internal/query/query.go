// Package query answers lookups against a committed index. Identity
// and summaries come from the index; extents, signatures, and docs are
// always re-derived from the file on disk at query time.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/loupe-dev/loupe/internal/extract"
	"github.com/loupe-dev/loupe/internal/index"
	"github.com/loupe-dev/loupe/internal/lang"
)

// Engine resolves queries for one repository.
type Engine struct {
	Root  string
	Store *index.Store
}

func New(root string, store *index.Store) *Engine {
	return &Engine{Root: root, Store: store}
}

// Location is one resolved entity with live extents.
type Location struct {
	EntityID      string `json:"entity_id"`
	Path          string `json:"path"`
	Name          string `json:"name"`
	QualifiedName string `json:"qualified_name"`
	Kind          string `json:"kind"`
	StartLine     int    `json:"start_line,omitempty"`
	EndLine       int    `json:"end_line,omitempty"`
	Sig           string `json:"sig,omitempty"`
	// PendingUpdate marks entities whose file on disk no longer carries
	// them; the index has not caught up yet.
	PendingUpdate bool `json:"pending_update,omitempty"`
}

// Locate returns all entities matching name, best match first. The name
// may be a simple name, a qualified name, or a path:qualified_name id.
func (e *Engine) Locate(ctx context.Context, name string) ([]Location, error) {
	records, err := e.Store.LookupByName(name)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", name, err)
	}
	if len(records) == 0 {
		return nil, e.notFound(name)
	}

	sortCandidates(records, name)

	locations := make([]Location, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		locations = append(locations, e.resolveLocation(rec))
	}
	return locations, nil
}

// LocateOne resolves name to exactly one entity, failing with
// AmbiguousError when several match.
func (e *Engine) LocateOne(ctx context.Context, name string) (*Location, error) {
	locations, err := e.Locate(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(locations) > 1 {
		return nil, &AmbiguousError{Name: name, Candidates: locations}
	}
	return &locations[0], nil
}

// sortCandidates orders matches: exact path-qualified id, exact
// qualified name, then closest qualified name by edit distance. Ties
// break on path then document order for stable output.
func sortCandidates(records []index.EntityRecord, name string) {
	rank := func(r index.EntityRecord) int {
		switch {
		case r.EntityID() == name:
			return 0
		case r.QualifiedName == name:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		ri, rj := rank(records[i]), rank(records[j])
		if ri != rj {
			return ri < rj
		}
		if ri == 2 {
			si := normalizedLevenshtein(records[i].QualifiedName, name)
			sj := normalizedLevenshtein(records[j].QualifiedName, name)
			if si != sj {
				return si > sj
			}
		}
		if records[i].Path != records[j].Path {
			return records[i].Path < records[j].Path
		}
		return records[i].DocOrder < records[j].DocOrder
	})
}

// resolveLocation fills live extents for a stored record. A record whose
// entity vanished from the file (or whose file is unreadable) comes back
// flagged pending_update with no extents.
func (e *Engine) resolveLocation(rec index.EntityRecord) Location {
	loc := Location{
		EntityID:      rec.EntityID(),
		Path:          rec.Path,
		Name:          rec.Name,
		QualifiedName: rec.QualifiedName,
		Kind:          rec.Kind,
	}
	live, err := e.liveEntity(rec.Path, rec.QualifiedName)
	if err != nil || live == nil {
		loc.PendingUpdate = true
		return loc
	}
	loc.StartLine = live.StartLine
	loc.EndLine = live.EndLine
	loc.Sig = live.Sig
	return loc
}

// parseLive re-parses one repository file from disk.
func (e *Engine) parseLive(relPath string) (*extract.FileResult, error) {
	l, ok := lang.LanguageForExtension(filepath.Ext(relPath))
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", relPath)
	}
	source, err := os.ReadFile(filepath.Join(e.Root, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", relPath, err)
	}
	res, err := extract.File(source, relPath, l)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", relPath, err)
	}
	return res, nil
}

func (e *Engine) liveEntity(relPath, qualifiedName string) (*extract.Entity, error) {
	res, err := e.parseLive(relPath)
	if err != nil {
		return nil, err
	}
	for i := range res.Entities {
		if res.Entities[i].QualifiedName == qualifiedName {
			return &res.Entities[i], nil
		}
	}
	return nil, nil
}

// notFound builds a NotFoundError carrying the nearest indexed names.
func (e *Engine) notFound(name string) error {
	nf := &NotFoundError{Name: name}
	records, err := e.Store.AllEntities()
	if err != nil {
		slog.Warn("query.suggest.err", "err", err)
		return nf
	}
	nf.Suggestions = nearestNames(records, name, 5)
	return nf
}

// nearestNames ranks indexed entity names by normalized edit distance
// to the query and returns up to limit distinct suggestions.
func nearestNames(records []index.EntityRecord, name string, limit int) []string {
	type scored struct {
		name  string
		score float64
	}
	lower := strings.ToLower(name)
	seen := make(map[string]bool, len(records))
	candidates := make([]scored, 0, len(records))
	for _, rec := range records {
		for _, cand := range []string{rec.Name, rec.QualifiedName} {
			if seen[cand] {
				continue
			}
			seen[cand] = true
			score := normalizedLevenshtein(strings.ToLower(cand), lower)
			if score < 0.3 {
				continue
			}
			candidates = append(candidates, scored{cand, score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].name < candidates[j].name
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.name
	}
	return out
}
