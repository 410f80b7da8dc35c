package store

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/pkg/errors"
	l "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

var log = l.WithFields(l.Fields{"pkg": "store"})

// pragmas applied on every new connection, per spec.md §4.D.
var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA cache_size = -20000", // ~20MB page cache
	"PRAGMA temp_store = MEMORY",
}

// DB wraps a *sql.DB opened against the cache's SQLite file, with the
// pragmas and schema policy already applied.
type DB struct {
	*sql.DB
	path string
}

// Open opens (creating if absent) the SQLite database at path, applies the
// pragma set, and ensures the schema is present and at the expected
// version. A version mismatch triggers a full rebuild: the existing file is
// removed and recreated from scratch, per spec.md §4.D ("the cache is never
// migrated").
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open cache database")
	}
	// the pool is capped at one connection, so the per-connection pragmas
	// below apply to every statement; the orchestrator, its scan workers
	// and the query surface all share it.
	sqlDB.SetMaxOpenConns(1)

	if err := applyPragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	db := &DB{DB: sqlDB, path: path}
	rebuild, err := db.ensureSchema()
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	if rebuild {
		return Open(path)
	}
	return db, nil
}

// OpenReadOnly opens a second connection to the same database file for
// worker metadata lookups that must never touch write state (spec.md §4.D
// connection policy, option (b)).
func OpenReadOnly(path string) (*DB, error) {
	dsn := fmt.Sprintf("%s?mode=ro", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open read-only cache connection")
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "cannot apply pragmas to read-only connection")
	}
	return &DB{DB: sqlDB, path: path}, nil
}

func applyPragmas(db *sql.DB) error {
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return errors.Wrapf(err, "cannot apply pragma %q", p)
		}
	}
	return nil
}

// ensureSchema applies the schema to a fresh database, or signals that a
// stale one must be rebuilt. When it returns (true, nil), db has already
// been closed and the caller must reopen path from scratch.
func (db *DB) ensureSchema() (rebuild bool, err error) {
	var current int
	row := db.QueryRow("PRAGMA user_version")
	if err := row.Scan(&current); err != nil {
		return false, errors.Wrap(err, "cannot read schema version")
	}

	if current == schemaVersion {
		return false, nil
	}
	if current != 0 {
		log.WithFields(l.Fields{"have": current, "want": schemaVersion}).
			Warn("cache schema version mismatch, rebuilding")
		if err := db.Close(); err != nil {
			return false, errors.Wrap(err, "cannot close stale database before rebuild")
		}
		if err := os.Remove(db.path); err != nil && !os.IsNotExist(err) {
			return false, errors.Wrap(err, "cannot remove stale cache database")
		}
		return true, nil
	}

	for _, stmt := range schemaStatements() {
		if _, err := db.Exec(stmt); err != nil {
			return false, errors.Wrapf(err, "cannot apply schema statement: %.60s", stmt)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return false, errors.Wrap(err, "cannot stamp schema version")
	}
	return false, nil
}
