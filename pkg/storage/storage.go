package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS slots (
  key        TEXT PRIMARY KEY,
  value      TEXT NOT NULL,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS jar_events (
  id          INTEGER PRIMARY KEY,
  occurred_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  op          TEXT NOT NULL CHECK (op IN ('push','undo','redo')),
  jar_size    INTEGER NOT NULL,
  history_len INTEGER NOT NULL,
  cursor      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_time ON jar_events(occurred_at);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// Get reads one slot. A missing slot is reported through found, not err.
func (d *DB) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := d.sql.QueryRowContext(ctx, "SELECT value FROM slots WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetMany writes every value in a single transaction.
func (d *DB) SetMany(ctx context.Context, values map[string]string) (err error) {
	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, key := range sortedKeys(values) {
		_, err = tx.ExecContext(ctx, `INSERT INTO slots(key, value, updated_at) VALUES(?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, key, values[key])
		if err != nil {
			return fmt.Errorf("writing slot %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// Delete removes slots. Missing keys are ignored.
func (d *DB) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := d.sql.ExecContext(ctx, "DELETE FROM slots WHERE key = ?", key); err != nil {
			return err
		}
	}
	return nil
}

// Stats lists every slot with its size and last write time.
func (d *DB) Stats(ctx context.Context) ([]SlotStats, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT key, LENGTH(value), updated_at FROM slots ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []SlotStats
	for rows.Next() {
		var s SlotStats
		var updatedAt string
		if err := rows.Scan(&s.Key, &s.Size, &updatedAt); err != nil {
			return nil, err
		}
		s.UpdatedAt = parseTimestamp(updatedAt)
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

// RecordEvent appends one jar transition to the audit log.
func (d *DB) RecordEvent(ctx context.Context, e Event) error {
	_, err := d.sql.ExecContext(ctx, "INSERT INTO jar_events(op, jar_size, history_len, cursor) VALUES(?,?,?,?)", e.Op, e.JarSize, e.HistoryLen, e.Cursor)
	return err
}

// ListRecentEvents returns the most recent N transitions, newest first.
func (d *DB) ListRecentEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT occurred_at, op, jar_size, history_len, cursor FROM jar_events ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		var occurredAtStr string
		if err := rows.Scan(&occurredAtStr, &e.Op, &e.JarSize, &e.HistoryLen, &e.Cursor); err != nil {
			return nil, err
		}
		e.OccurredAt = parseTimestamp(occurredAtStr)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// SQLite CURRENT_TIMESTAMP format first, then RFC3339.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
