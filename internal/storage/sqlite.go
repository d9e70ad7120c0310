package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv(
  key          TEXT PRIMARY KEY,
  value        BLOB NOT NULL,
  updated_unix INTEGER NOT NULL
);`

type sqliteSlot struct{ db *sql.DB }

// OpenSQLite opens (and migrates) a kv table. driver is "sqlite" for
// modernc.org/sqlite or "sqlite3" for mattn/go-sqlite3.
func OpenSQLite(ctx context.Context, driver, dbPath string) (Slot, error) {
	db, err := OpenDB(driver, dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, kvSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return &sqliteSlot{db: db}, nil
}

// OpenDB opens a SQLite database with the pragmas every store here uses,
// creating the parent directory if needed.
func OpenDB(driver, dbPath string) (*sql.DB, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
	}

	// busy timeout + WAL so a second process reading the cart does not fail
	var dsn string
	switch driver {
	case "sqlite3":
		dsn = dbPath + "?_busy_timeout=5000&_journal_mode=WAL"
	case "sqlite", "":
		driver = "sqlite"
		dsn = dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	default:
		return nil, fmt.Errorf("storage: unknown sqlite driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxIdleTime(2 * time.Minute)
	db.SetMaxOpenConns(1)
	return db, nil
}

func (s *sqliteSlot) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *sqliteSlot) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv(key, value, updated_unix) VALUES (?, ?, ?)
		ON CONFLICT(key)
		DO UPDATE SET value = excluded.value, updated_unix = excluded.updated_unix
	`, key, value, time.Now().Unix())
	return err
}

func (s *sqliteSlot) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key=?`, key)
	return err
}

func (s *sqliteSlot) Close() error { return s.db.Close() }
