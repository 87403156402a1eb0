package writer

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"HttpSpectra/internal/config"
	"HttpSpectra/internal/factory"
	"HttpSpectra/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const createHostTrafficTable = `
CREATE TABLE IF NOT EXISTS host_traffic (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    host TEXT,
    out_messages INTEGER,
    in_messages INTEGER,
    out_bytes INTEGER,
    in_bytes INTEGER,
    timestamp INTEGER
);
`

func init() {
	factory.RegisterWriter("sqlite", func(def config.WriterDef, interval time.Duration) (model.Writer, error) {
		return NewSQLiteWriter(def.SQLite.Path, interval)
	})
}

// SQLiteWriter stores one row per host and snapshot in a local database.
type SQLiteWriter struct {
	db       *sql.DB
	interval time.Duration
}

// NewSQLiteWriter opens the database at path and creates the table.
func NewSQLiteWriter(path string, interval time.Duration) (*SQLiteWriter, error) {
	if path == "" {
		path = "data/traffic.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if _, err := db.Exec(createHostTrafficTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLiteWriter{db: db, interval: interval}, nil
}

func (w *SQLiteWriter) Name() string { return "sqlite" }

// GetInterval returns the configured snapshot interval for this writer.
func (w *SQLiteWriter) GetInterval() time.Duration {
	return w.interval
}

// Write inserts all hosts of the snapshot in one transaction.
func (w *SQLiteWriter) Write(snapshot model.Snapshot, timestamp time.Time) error {
	rows := hostRows(snapshot, timestamp)
	if len(rows) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	stmt, err := tx.Prepare(`
        INSERT INTO host_traffic (
            host, out_messages, in_messages, out_bytes, in_bytes, timestamp
        ) VALUES (?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.Host, int64(r.OutMessages), int64(r.InMessages), int64(r.OutBytes), int64(r.InBytes), r.Timestamp.Unix()); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert %s: %w", r.Host, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	return nil
}

func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
