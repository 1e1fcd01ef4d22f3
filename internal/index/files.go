package index

import (
	"database/sql"
	"fmt"

	"github.com/loupe-dev/loupe/internal/extract"
)

// FileRecord is the stored fingerprint of one indexed source file.
type FileRecord struct {
	ID          int64
	Path        string
	Size        int64
	MtimeNS     int64
	ContentHash string
	Degraded    bool
}

// EntityRecord is the durable identity of one entity. Extents and
// signatures are deliberately absent.
type EntityRecord struct {
	ID             int64
	FileID         int64
	Path           string
	Name           string
	QualifiedName  string
	Kind           string
	StructuralHash string
	DocOrder       int
}

// EntityID returns the stable public identifier of the record.
func (e *EntityRecord) EntityID() string {
	return extract.EntityID(e.Path, e.QualifiedName)
}

// Delta reports how one file's entity set changed during an upsert.
type Delta struct {
	Added     int
	Removed   int
	Modified  int
	Unchanged int
}

// Files returns all file records keyed by path.
func (s *Store) Files() (map[string]FileRecord, error) {
	rows, err := s.q.Query(`SELECT id, path, size, mtime_ns, content_hash, degraded FROM files`)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	out := make(map[string]FileRecord)
	for rows.Next() {
		var f FileRecord
		var degraded int
		if err := rows.Scan(&f.ID, &f.Path, &f.Size, &f.MtimeNS, &f.ContentHash, &degraded); err != nil {
			return nil, err
		}
		f.Degraded = degraded != 0
		out[f.Path] = f
	}
	return out, rows.Err()
}

// GetFile returns one file record, or nil when the path is not indexed.
func (s *Store) GetFile(path string) (*FileRecord, error) {
	var f FileRecord
	var degraded int
	err := s.q.QueryRow(
		`SELECT id, path, size, mtime_ns, content_hash, degraded FROM files WHERE path = ?`, path).
		Scan(&f.ID, &f.Path, &f.Size, &f.MtimeNS, &f.ContentHash, &degraded)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", path, err)
	}
	f.Degraded = degraded != 0
	return &f, nil
}

// UpsertFile replaces the entity set for a path, rewiring identity for
// entities that still match by qualified name. Surviving entities keep
// their summaries; a changed structural hash flips the summary stale.
// Entities that disappeared are deleted, cascading to their summaries.
func (s *Store) UpsertFile(rec FileRecord, entities []extract.Entity) (Delta, error) {
	var delta Delta

	fileID, err := s.upsertFileRow(rec)
	if err != nil {
		return delta, err
	}

	existing, err := s.entitiesByQN(fileID)
	if err != nil {
		return delta, err
	}

	seen := make(map[string]bool, len(entities))
	for order, e := range entities {
		seen[e.QualifiedName] = true
		old, ok := existing[e.QualifiedName]
		if !ok {
			_, err := s.q.Exec(
				`INSERT INTO entities (file_id, path, name, qualified_name, kind, structural_hash, doc_order)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				fileID, rec.Path, e.Name, e.QualifiedName, string(e.Kind), e.StructuralHash, order)
			if err != nil {
				return delta, fmt.Errorf("insert entity %s: %w", e.QualifiedName, err)
			}
			delta.Added++
			continue
		}

		if old.StructuralHash == e.StructuralHash {
			if old.DocOrder != order || old.Kind != string(e.Kind) {
				_, err := s.q.Exec(`UPDATE entities SET doc_order = ?, kind = ? WHERE id = ?`,
					order, string(e.Kind), old.ID)
				if err != nil {
					return delta, fmt.Errorf("update entity %s: %w", e.QualifiedName, err)
				}
			}
			delta.Unchanged++
			continue
		}

		_, err := s.q.Exec(
			`UPDATE entities SET structural_hash = ?, kind = ?, name = ?, doc_order = ? WHERE id = ?`,
			e.StructuralHash, string(e.Kind), e.Name, order, old.ID)
		if err != nil {
			return delta, fmt.Errorf("update entity %s: %w", e.QualifiedName, err)
		}
		if err := s.markSummaryStale(old.ID); err != nil {
			return delta, err
		}
		delta.Modified++
	}

	for qn, old := range existing {
		if seen[qn] {
			continue
		}
		if _, err := s.q.Exec(`DELETE FROM entities WHERE id = ?`, old.ID); err != nil {
			return delta, fmt.Errorf("delete entity %s: %w", qn, err)
		}
		delta.Removed++
	}

	return delta, nil
}

// TouchFile updates a file's fingerprint without touching its entities.
// Used when content proved identical but size or mtime moved.
func (s *Store) TouchFile(rec FileRecord) error {
	_, err := s.upsertFileRow(rec)
	return err
}

func (s *Store) upsertFileRow(rec FileRecord) (int64, error) {
	degraded := 0
	if rec.Degraded {
		degraded = 1
	}
	_, err := s.q.Exec(
		`INSERT INTO files (path, size, mtime_ns, content_hash, degraded)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   size = excluded.size,
		   mtime_ns = excluded.mtime_ns,
		   content_hash = excluded.content_hash,
		   degraded = excluded.degraded`,
		rec.Path, rec.Size, rec.MtimeNS, rec.ContentHash, degraded)
	if err != nil {
		return 0, fmt.Errorf("upsert file %s: %w", rec.Path, err)
	}
	var id int64
	if err := s.q.QueryRow(`SELECT id FROM files WHERE path = ?`, rec.Path).Scan(&id); err != nil {
		return 0, fmt.Errorf("file id %s: %w", rec.Path, err)
	}
	return id, nil
}

func (s *Store) entitiesByQN(fileID int64) (map[string]*EntityRecord, error) {
	rows, err := s.q.Query(
		`SELECT id, file_id, path, name, qualified_name, kind, structural_hash, doc_order
		 FROM entities WHERE file_id = ?`, fileID)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*EntityRecord)
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out[e.QualifiedName] = e
	}
	return out, rows.Err()
}

// RemoveFile deletes the file record, its entities, and their summaries.
func (s *Store) RemoveFile(path string) error {
	if _, err := s.q.Exec(`DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("remove file %s: %w", path, err)
	}
	return nil
}

// EntitiesForFile returns the stored entities of a path in document order.
func (s *Store) EntitiesForFile(path string) ([]EntityRecord, error) {
	return s.queryEntities(
		`SELECT id, file_id, path, name, qualified_name, kind, structural_hash, doc_order
		 FROM entities WHERE path = ? ORDER BY doc_order`, path)
}

// AllEntities returns every stored entity ordered by path then document order.
func (s *Store) AllEntities() ([]EntityRecord, error) {
	return s.queryEntities(
		`SELECT id, file_id, path, name, qualified_name, kind, structural_hash, doc_order
		 FROM entities ORDER BY path, doc_order`)
}

// LookupByName returns entities whose simple name, qualified name, or
// path-qualified id matches. Callers must re-derive extents live.
func (s *Store) LookupByName(name string) ([]EntityRecord, error) {
	return s.queryEntities(
		`SELECT id, file_id, path, name, qualified_name, kind, structural_hash, doc_order
		 FROM entities
		 WHERE name = ? OR qualified_name = ? OR path || ':' || qualified_name = ?
		 ORDER BY path, doc_order`, name, name, name)
}

// CountEntities returns the number of stored entities.
func (s *Store) CountEntities() (int, error) {
	var n int
	err := s.q.QueryRow(`SELECT COUNT(*) FROM entities`).Scan(&n)
	return n, err
}

func (s *Store) queryEntities(query string, args ...any) ([]EntityRecord, error) {
	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var out []EntityRecord
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEntity(rows *sql.Rows) (*EntityRecord, error) {
	var e EntityRecord
	if err := rows.Scan(&e.ID, &e.FileID, &e.Path, &e.Name, &e.QualifiedName,
		&e.Kind, &e.StructuralHash, &e.DocOrder); err != nil {
		return nil, fmt.Errorf("scan entity: %w", err)
	}
	return &e, nil
}
