package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pathing/internal/behavior"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names registered by the two SQLite implementations.
const (
	DriverPureGo = "sqlite"  // modernc.org/sqlite
	DriverCgo    = "sqlite3" // github.com/mattn/go-sqlite3
)

// SQLite persists filter records and category toggles.
type SQLite struct {
	db     *sql.DB
	dbPath string
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// OpenSQLite creates or opens the database at path with the given driver.
func OpenSQLite(driver, path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	var dsn string
	switch driver {
	case DriverPureGo:
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	case DriverCgo:
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	default:
		return nil, fmt.Errorf("unsupported sqlite driver %q", driver)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single writer; also keeps ":memory:" databases on one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &SQLite{db: db, dbPath: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.dbPath
}

func (s *SQLite) initSchema() error {
	schema := `
	-- Timed visibility records
	CREATE TABLE IF NOT EXISTS filter_records (
		key TEXT PRIMARY KEY,
		mode INTEGER NOT NULL,
		expiry_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_filter_records_expiry ON filter_records(expiry_ms);

	-- Category toggles by namespace
	CREATE TABLE IF NOT EXISTS category_states (
		namespace TEXT PRIMARY KEY,
		inactive INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return runMigrations(s.db)
}

// LoadRecords returns every timed record still hidden at now.
func (s *SQLite) LoadRecords(ctx context.Context, now time.Time) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, mode, expiry_ms FROM filter_records WHERE expiry_ms > ?`, toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("query filter records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rawKey   string
			mode     int
			expiryMS int64
		)
		if err := rows.Scan(&rawKey, &mode, &expiryMS); err != nil {
			return nil, fmt.Errorf("scan filter record: %w", err)
		}
		key, err := uuid.Parse(rawKey)
		if err != nil {
			return nil, fmt.Errorf("filter record key %q: %w", rawKey, err)
		}
		out = append(out, Record{Key: key, Mode: behavior.Mode(mode), Expiry: fromMillis(expiryMS)})
	}
	return out, rows.Err()
}

// UpsertRecord writes a timed record, replacing any record for the same key.
func (s *SQLite) UpsertRecord(ctx context.Context, rec Record) error {
	if rec.Permanent {
		return fmt.Errorf("permanent records are not persisted")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO filter_records (key, mode, expiry_ms, updated_ms) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET mode = excluded.mode, expiry_ms = excluded.expiry_ms, updated_ms = excluded.updated_ms`,
		rec.Key.String(), int(rec.Mode), toMillis(rec.Expiry), toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert filter record: %w", err)
	}
	return nil
}

// SweepRecords deletes records expired at now.
func (s *SQLite) SweepRecords(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM filter_records WHERE expiry_ms <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("sweep filter records: %w", err)
	}
	return res.RowsAffected()
}

// LoadCategoryStates returns the inactive flag of every stored namespace.
func (s *SQLite) LoadCategoryStates(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT namespace, inactive FROM category_states`)
	if err != nil {
		return nil, fmt.Errorf("query category states: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var (
			ns       string
			inactive bool
		)
		if err := rows.Scan(&ns, &inactive); err != nil {
			return nil, fmt.Errorf("scan category state: %w", err)
		}
		out[ns] = inactive
	}
	return out, rows.Err()
}

// SaveCategoryState stores the inactive flag for one namespace.
func (s *SQLite) SaveCategoryState(ctx context.Context, namespace string, inactive bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO category_states (namespace, inactive, updated_ms) VALUES (?, ?, ?)
		ON CONFLICT(namespace) DO UPDATE SET inactive = excluded.inactive, updated_ms = excluded.updated_ms`,
		namespace, inactive, toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("save category state: %w", err)
	}
	return nil
}
