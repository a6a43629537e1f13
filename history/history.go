// Package history persists completed transcriptions to a local SQLite
// database.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Record struct {
	ID               string
	CreatedAt        time.Time
	Provider         string
	Model            string
	Fallback         bool
	Text             string
	AudioSeconds     float64
	ElapsedMs        int64
	PromptTokens     int
	CompletionTokens int
}

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS transcriptions (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	provider TEXT NOT NULL,
	model TEXT NOT NULL,
	fallback INTEGER NOT NULL DEFAULT 0,
	text TEXT NOT NULL,
	audio_seconds REAL NOT NULL,
	elapsed_ms INTEGER NOT NULL,
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_transcriptions_created_at ON transcriptions(created_at);
`

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts a record, filling ID and CreatedAt when unset. Returns
// the stored ID.
func (s *Store) Add(r Record) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO transcriptions
			(id, created_at, provider, model, fallback, text,
			 audio_seconds, elapsed_ms, prompt_tokens, completion_tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.CreatedAt.Unix(), r.Provider, r.Model, boolToInt(r.Fallback), r.Text,
		r.AudioSeconds, r.ElapsedMs, r.PromptTokens, r.CompletionTokens)
	if err != nil {
		return "", fmt.Errorf("insert transcription: %w", err)
	}
	return r.ID, nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, provider, model, fallback, text,
		       audio_seconds, elapsed_ms, prompt_tokens, completion_tokens
		FROM transcriptions
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transcriptions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var createdAt int64
		var fallback int
		if err := rows.Scan(&r.ID, &createdAt, &r.Provider, &r.Model, &fallback, &r.Text,
			&r.AudioSeconds, &r.ElapsedMs, &r.PromptTokens, &r.CompletionTokens); err != nil {
			return nil, fmt.Errorf("scan transcription: %w", err)
		}
		r.CreatedAt = time.Unix(createdAt, 0)
		r.Fallback = fallback != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
