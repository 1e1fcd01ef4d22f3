// Package index persists the durable record of a repository: file
// fingerprints, entity identities with structural hashes, and cached
// summaries. Extents, signatures, and documentation are never stored;
// queries re-derive them from a live parse.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

// CacheDirName is the per-repository directory holding the index database.
const CacheDirName = ".loupe-cache"

var (
	// ErrIndexMissing means no index exists for the repository; the caller
	// should run init.
	ErrIndexMissing = errors.New("index missing: run `loupe init` to build it")
	// ErrIndexCorrupt means the index exists but is unreadable or from an
	// incompatible schema; the caller should rebuild with init.
	ErrIndexCorrupt = errors.New("index corrupt: re-run `loupe init` to rebuild it")
)

// Querier abstracts *sql.DB and *sql.Tx so store methods work in both contexts.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store wraps a SQLite connection for one repository's index.
type Store struct {
	db     *sql.DB
	q      Querier // active querier: db or tx
	dbPath string
}

// DBPath returns the index database path for a repository root.
func DBPath(repoRoot string) string {
	return filepath.Join(repoRoot, CacheDirName, "index.db")
}

// Create opens the index for writing, building the database and schema if
// absent. Used by init.
func Create(repoRoot string) (*Store, error) {
	dbPath := DBPath(repoRoot)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir cache: %w", err)
	}
	return openPath(dbPath, true)
}

// Open opens an existing index read-write. A missing database reports
// ErrIndexMissing; an unreadable or incompatible one reports ErrIndexCorrupt.
func Open(repoRoot string) (*Store, error) {
	dbPath := DBPath(repoRoot)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("%w (%s)", ErrIndexMissing, repoRoot)
	}
	return openPath(dbPath, false)
}

// OpenMemory opens an in-memory index (for testing).
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	// Every pooled connection to :memory: would get its own database.
	db.SetMaxOpenConns(1)
	s := &Store{db: db, dbPath: ":memory:"}
	s.q = s.db
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func openPath(dbPath string, create bool) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &Store{db: db, dbPath: dbPath}
	s.q = s.db

	if create {
		if err := s.initSchema(); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
		return s, nil
	}

	if err := s.checkSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// WithTransaction executes fn within a single SQLite transaction.
// The callback receives a transaction-scoped Store; the receiver's q field
// is never mutated, so concurrent readers keep seeing the last committed
// snapshot until Commit.
func (s *Store) WithTransaction(fn func(txStore *Store) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txStore := &Store{db: s.db, q: tx, dbPath: s.dbPath}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		size INTEGER NOT NULL,
		mtime_ns INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		degraded INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS entities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		name TEXT NOT NULL,
		qualified_name TEXT NOT NULL,
		kind TEXT NOT NULL,
		structural_hash TEXT NOT NULL,
		doc_order INTEGER NOT NULL DEFAULT 0,
		UNIQUE(path, qualified_name)
	);

	CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name);
	CREATE INDEX IF NOT EXISTS idx_entities_file ON entities(file_id);

	CREATE TABLE IF NOT EXISTS summaries (
		entity_id INTEGER PRIMARY KEY REFERENCES entities(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		generated_hash TEXT NOT NULL,
		state TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		fmt.Sprint(schemaVersion))
	return err
}

// checkSchema distinguishes a healthy index from a corrupt or incompatible one.
func (s *Store) checkSchema() error {
	var version string
	err := s.q.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}
	if version != fmt.Sprint(schemaVersion) {
		return fmt.Errorf("%w: schema version %s, want %d", ErrIndexCorrupt, version, schemaVersion)
	}
	var result string
	if err := s.q.QueryRow(`PRAGMA quick_check`).Scan(&result); err != nil || result != "ok" {
		return fmt.Errorf("%w: quick_check=%s err=%v", ErrIndexCorrupt, result, err)
	}
	return nil
}

// Now returns the current time in ISO 8601 format.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
