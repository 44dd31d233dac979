// Package store persists the dynamically discovered Telegram group ids.
// The table survives restarts so a relay can route IRC traffic to groups
// it has not yet seen a message from in the current process.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ChatIDStore is a durable group-title → chat-id table backed by SQLite.
type ChatIDStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func Open(dbPath string, logger *slog.Logger) (*ChatIDStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection: SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &ChatIDStore{db: db, logger: logger}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return s, nil
}

func (s *ChatIDStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_ids (
		group_title TEXT PRIMARY KEY,
		chat_id     INTEGER NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load returns the full identity table. An empty database yields an
// empty, non-nil map.
func (s *ChatIDStore) Load(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_title, chat_id FROM chat_ids`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var title string
		var id int64
		if err := rows.Scan(&title, &id); err != nil {
			return nil, err
		}
		ids[title] = id
	}
	return ids, rows.Err()
}

// Save records one discovered group id. Saving the same title again is
// a no-op; an entry is never changed once written.
func (s *ChatIDStore) Save(ctx context.Context, group string, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO chat_ids (group_title, chat_id) VALUES (?, ?)`,
		group, id,
	)
	return err
}

func (s *ChatIDStore) Close() error {
	return s.db.Close()
}
