package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store keeps the client's local state: admin sessions and attempt history.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would get its own empty in-memory database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS admin_sessions (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		token TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		exam_id INTEGER NOT NULL,
		correct INTEGER NOT NULL,
		wrong INTEGER NOT NULL,
		total INTEGER NOT NULL,
		finished_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attempt_answers (
		attempt_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		selected TEXT NOT NULL,
		is_correct INTEGER NOT NULL,
		PRIMARY KEY (attempt_id, position),
		FOREIGN KEY (attempt_id) REFERENCES attempts(id)
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_exam ON attempts(exam_id);
	`
	_, err := s.db.Exec(schema)
	return err
}
