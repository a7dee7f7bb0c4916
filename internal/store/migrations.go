package store

import (
	"database/sql"
	"fmt"

	"pathing/internal/logging"
)

// Migration adds a column that older databases lack.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists the column additions applied on open.
// The base tables are created without these columns.
var pendingMigrations = []Migration{
	// Write timestamps (debugging stale hides)
	{"filter_records", "updated_ms", "INTEGER NOT NULL DEFAULT 0"},
	{"category_states", "updated_ms", "INTEGER NOT NULL DEFAULT 0"},
}

// runMigrations applies pending column additions. It is safe to run on
// every open.
func runMigrations(db *sql.DB) error {
	applied := 0
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			logging.StoreDebug("table missing, skipping migration: %s.%s", m.Table, m.Column)
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			continue
		}

		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("migration %s.%s: %w", m.Table, m.Column, err)
		}
		logging.Store("migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}
	if applied > 0 {
		logging.Store("schema migrations complete: applied=%d", applied)
	}
	return nil
}

// columnExists checks if a column exists in a table using PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		logging.StoreDebug("PRAGMA table_info(%s) failed: %v", table, err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid         int
			name, ctype string
			notnull, pk int
			dfltValue   interface{}
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

// tableExists checks if a table exists in the database.
func tableExists(db *sql.DB, table string) bool {
	var count int
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?"
	if err := db.QueryRow(query, table).Scan(&count); err != nil {
		logging.StoreDebug("table existence check failed for %s: %v", table, err)
		return false
	}
	return count > 0
}
