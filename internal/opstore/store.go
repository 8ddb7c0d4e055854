// Package opstore persists regrid operators in SQLite so that an operator
// built once can be reapplied by later runs.
package opstore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store is an operator database.
type Store struct {
	*sql.DB
}

// Open opens the SQLite database at path without changing its schema. Call
// MigrateUp before first use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps in-memory databases shared across queries.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", p, err)
		}
	}
	return &Store{db}, nil
}
