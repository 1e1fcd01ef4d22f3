package index

import (
	"database/sql"
	"fmt"
)

// Summary lifecycle states. A summary is only ever served while valid
// and its generated_hash still matches the entity's structural hash.
const (
	SummaryPending = "pending"
	SummaryValid   = "valid"
	SummaryStale   = "stale"
	SummaryFailed  = "failed"
)

// SummaryRecord is one cached summary keyed by entity.
type SummaryRecord struct {
	EntityID      int64
	Text          string
	GeneratedHash string
	State         string
	UpdatedAt     string
}

// Summary returns the cached summary text for an entity, or ok=false
// when no valid summary matching the current structural hash exists.
func (s *Store) Summary(entityID int64, structuralHash string) (string, bool, error) {
	var text, generatedHash, state string
	err := s.q.QueryRow(
		`SELECT text, generated_hash, state FROM summaries WHERE entity_id = ?`, entityID).
		Scan(&text, &generatedHash, &state)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get summary: %w", err)
	}
	if state != SummaryValid || generatedHash != structuralHash {
		return "", false, nil
	}
	return text, true, nil
}

// RecordSummary stores a freshly generated summary as valid.
func (s *Store) RecordSummary(entityID int64, text, structuralHash string) error {
	return s.writeSummary(entityID, text, structuralHash, SummaryValid)
}

// RecordSummaryFailure marks a generation attempt failed. Any previous
// text is kept so a later inspection can see what was last produced.
func (s *Store) RecordSummaryFailure(entityID int64, structuralHash string) error {
	_, err := s.q.Exec(
		`INSERT INTO summaries (entity_id, text, generated_hash, state, updated_at)
		 VALUES (?, '', ?, ?, ?)
		 ON CONFLICT(entity_id) DO UPDATE SET
		   generated_hash = excluded.generated_hash,
		   state = excluded.state,
		   updated_at = excluded.updated_at`,
		entityID, structuralHash, SummaryFailed, Now())
	if err != nil {
		return fmt.Errorf("record summary failure: %w", err)
	}
	return nil
}

func (s *Store) writeSummary(entityID int64, text, structuralHash, state string) error {
	_, err := s.q.Exec(
		`INSERT INTO summaries (entity_id, text, generated_hash, state, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(entity_id) DO UPDATE SET
		   text = excluded.text,
		   generated_hash = excluded.generated_hash,
		   state = excluded.state,
		   updated_at = excluded.updated_at`,
		entityID, text, structuralHash, state, Now())
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func (s *Store) markSummaryStale(entityID int64) error {
	_, err := s.q.Exec(
		`UPDATE summaries SET state = ?, updated_at = ? WHERE entity_id = ? AND state = ?`,
		SummaryStale, Now(), entityID, SummaryValid)
	if err != nil {
		return fmt.Errorf("mark summary stale: %w", err)
	}
	return nil
}

// EntitiesNeedingSummary returns entities with no valid summary for
// their current structural hash, ordered by path then document order.
func (s *Store) EntitiesNeedingSummary() ([]EntityRecord, error) {
	return s.queryEntities(
		`SELECT e.id, e.file_id, e.path, e.name, e.qualified_name, e.kind, e.structural_hash, e.doc_order
		 FROM entities e
		 LEFT JOIN summaries s ON s.entity_id = e.id
		 WHERE s.entity_id IS NULL
		    OR s.state != ?
		    OR s.generated_hash != e.structural_hash
		 ORDER BY e.path, e.doc_order`, SummaryValid)
}

// SummaryStates returns a count of summaries per state.
func (s *Store) SummaryStates() (map[string]int, error) {
	rows, err := s.q.Query(`SELECT state, COUNT(*) FROM summaries GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("summary states: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		out[state] = n
	}
	return out, rows.Err()
}
