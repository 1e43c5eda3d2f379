package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - initial schema (pre-migration)
// 1 - (key, version) primary key with created_at index
const currentSchemaVersion = 1

// SQLiteBacking persists cache entries across runs in a SQLite database.
//
// Every row is stamped with a caller-supplied version string (e.g. the
// strategy set's version). Reads filter on that version, so entries written
// by incompatible strategy versions are never trusted; they simply miss.
type SQLiteBacking struct {
	db      *sql.DB
	version string
}

// OpenSQLite creates or opens the durable cache at path. The version string
// scopes all reads and writes; changing it orphans old entries without
// deleting them.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// Idempotent: safe to call on an existing database.
func OpenSQLite(path, version string) (*SQLiteBacking, error) {
	if version == "" {
		return nil, fmt.Errorf("cache version must not be empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to cache database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteBacking{db: db, version: version}, nil
}

// Get implements Backing. Returns (nil, nil) when no entry exists for the
// key under the configured version.
func (b *SQLiteBacking) Get(ctx context.Context, key string) (*Entry, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT key, output, created_at, generations
		FROM entries
		WHERE key = ? AND version = ?
	`, key, b.version)

	var (
		entry     Entry
		createdMs int64
	)
	err := row.Scan(&entry.Key, &entry.Output, &createdMs, &entry.Generations)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache entry: %w", err)
	}
	if entry.Key != key {
		// Never trust a row that does not match the requested fingerprint.
		return nil, fmt.Errorf("cache entry key mismatch: want %s, got %s", key, entry.Key)
	}
	entry.CreatedAt = time.UnixMilli(createdMs)
	return &entry, nil
}

// Put implements Backing. Duplicate (key, version) writes are silently
// ignored: entries are immutable once written.
func (b *SQLiteBacking) Put(ctx context.Context, entry Entry) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO entries (key, version, output, created_at, generations)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key, version) DO NOTHING
	`, entry.Key, b.version, entry.Output, entry.CreatedAt.UnixMilli(), entry.Generations)
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (b *SQLiteBacking) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist and records the schema
// version via user_version. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("cache database schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
