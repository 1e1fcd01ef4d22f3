package query

import (
	"context"
	"strings"

	"github.com/loupe-dev/loupe/internal/extract"
)

// Description fallback sources, best first.
const (
	SourceSummary = "summary"
	SourceDocs    = "docs"
	SourceSig     = "sig"
)

// EntityInfo is the full answer for one entity: live location, the live
// docs, the cached summary (null unless valid for the current hash), and
// the best available description.
type EntityInfo struct {
	Location
	StructuralHash    string  `json:"structural_hash"`
	Docs              string  `json:"docs,omitempty"`
	Summary           *string `json:"summary"`
	Description       string  `json:"description,omitempty"`
	DescriptionSource string  `json:"description_source,omitempty"`
}

// Info resolves a reference of the form "path:entity", a bare indexed
// file path, or an entity name, and returns its description. The
// description falls back summary, then live docs, then live signature.
func (e *Engine) Info(ctx context.Context, ref string) (*EntityInfo, error) {
	if path, entity, ok := splitRef(ref); ok {
		return e.infoInFile(ctx, path, entity)
	}

	// A bare indexed path means the file's module entity.
	if rec, err := e.Store.GetFile(ref); err != nil {
		return nil, err
	} else if rec != nil {
		return e.moduleInfo(ctx, ref)
	}

	loc, err := e.LocateOne(ctx, ref)
	if err != nil {
		return nil, err
	}
	return e.describe(loc)
}

func (e *Engine) infoInFile(ctx context.Context, path, entity string) (*EntityInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := e.Store.EntitiesForFile(path)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, e.notFound(path + ":" + entity)
	}
	for _, rec := range records {
		if rec.QualifiedName == entity || rec.Name == entity {
			loc := e.resolveLocation(rec)
			return e.describe(&loc)
		}
	}
	return nil, e.notFound(path + ":" + entity)
}

func (e *Engine) moduleInfo(ctx context.Context, path string) (*EntityInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := e.Store.EntitiesForFile(path)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Kind == "module" {
			loc := e.resolveLocation(rec)
			return e.describe(&loc)
		}
	}
	return nil, e.notFound(path)
}

// describe attaches the structural hash and the best description to a
// resolved location.
func (e *Engine) describe(loc *Location) (*EntityInfo, error) {
	records, err := e.Store.LookupByName(loc.EntityID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, e.notFound(loc.EntityID)
	}
	rec := records[0]

	info := &EntityInfo{Location: *loc, StructuralHash: rec.StructuralHash}

	live, liveErr := e.liveEntity(rec.Path, rec.QualifiedName)
	if liveErr == nil && live != nil {
		info.Docs = live.Docs
	}

	if text, ok, err := e.Store.Summary(rec.ID, rec.StructuralHash); err != nil {
		return nil, err
	} else if ok {
		info.Summary = &text
		info.Description = text
		info.DescriptionSource = SourceSummary
		return info, nil
	}

	if info.Docs != "" {
		info.Description = info.Docs
		info.DescriptionSource = SourceDocs
		return info, nil
	}
	if liveErr == nil && live != nil && live.Sig != "" {
		info.Description = live.Sig
		info.DescriptionSource = SourceSig
	}
	return info, nil
}

// splitRef splits "path:entity" on the last colon. A ref without a
// colon, or whose path part does not look like a file path, is not a
// file reference.
func splitRef(ref string) (path, entity string, ok bool) {
	i := strings.LastIndex(ref, ":")
	if i <= 0 || i == len(ref)-1 {
		return "", "", false
	}
	path, entity = ref[:i], ref[i+1:]
	if !strings.ContainsAny(path, "/.") {
		return "", "", false
	}
	return path, entity, true
}

// FileEntity is one entity of a file report.
type FileEntity struct {
	Location
	Status string `json:"status"`
}

// FileReport describes a file's indexed state against its live content.
type FileReport struct {
	Path     string       `json:"path"`
	Language string       `json:"language"`
	Degraded bool         `json:"degraded,omitempty"`
	Entities []FileEntity `json:"entities"`
}

// Entity statuses in a file report.
const (
	StatusIndexed       = "indexed"
	StatusPendingUpdate = "pending_update"
)

// FileInfo re-parses one file and reports every live entity with its
// index status. Entities absent from the index, or whose stored hash
// no longer matches, show as pending_update.
func (e *Engine) FileInfo(ctx context.Context, path string) (*FileReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	live, err := e.parseLive(path)
	if err != nil {
		return nil, err
	}

	stored := make(map[string]string)
	records, err := e.Store.EntitiesForFile(path)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		stored[rec.QualifiedName] = rec.StructuralHash
	}

	report := &FileReport{
		Path:     path,
		Language: string(live.Language),
		Entities: make([]FileEntity, 0, len(live.Entities)),
	}
	if rec, err := e.Store.GetFile(path); err != nil {
		return nil, err
	} else if rec != nil {
		report.Degraded = rec.Degraded
	}

	for _, ent := range live.Entities {
		fe := FileEntity{
			Location: Location{
				EntityID:      extract.EntityID(path, ent.QualifiedName),
				Path:          path,
				Name:          ent.Name,
				QualifiedName: ent.QualifiedName,
				Kind:          string(ent.Kind),
				StartLine:     ent.StartLine,
				EndLine:       ent.EndLine,
				Sig:           ent.Sig,
			},
			Status: StatusPendingUpdate,
		}
		if hash, ok := stored[ent.QualifiedName]; ok && hash == ent.StructuralHash {
			fe.Status = StatusIndexed
		}
		report.Entities = append(report.Entities, fe)
	}
	return report, nil
}
