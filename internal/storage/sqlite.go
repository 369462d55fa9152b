// Package storage provides SQLite-based persistence for finished match
// results. Uses the pure-Go modernc.org/sqlite driver to avoid CGO
// dependencies.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/arcade-online/internal/session"
)

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// MatchRecord is one persisted match result.
type MatchRecord struct {
	ID        int64
	SessionID string
	Game      string
	Winner    string
	EndReason string
	TopScore  int
	Players   int
	CreatedAt time.Time
}

// Open creates or opens the database at the given path, creating parent
// directories and running migrations.
func Open(dbPath string) (*Store, error) {
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			game TEXT NOT NULL,
			winner TEXT,
			end_reason TEXT NOT NULL,
			top_score INTEGER NOT NULL DEFAULT 0,
			players INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_matches_game ON matches(game);
		CREATE INDEX IF NOT EXISTS idx_matches_top ON matches(game, top_score DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveMatchResult implements session.MatchResultSaver.
func (s *Store) SaveMatchResult(result session.MatchResult) error {
	_, err := s.db.Exec(
		`INSERT INTO matches (session_id, game, winner, end_reason, top_score, players)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(result.SessionID),
		string(result.Game),
		result.Winner,
		result.EndReason,
		result.TopScore,
		result.Players,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save match result: %w", err)
	}
	return nil
}

// Ensure Store implements MatchResultSaver.
var _ session.MatchResultSaver = (*Store)(nil)

// TopScores retrieves the best scores for a game, highest first.
func (s *Store) TopScores(game string, limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, session_id, game, winner, end_reason, top_score, players, created_at
		 FROM matches
		 WHERE game = ?
		 ORDER BY top_score DESC
		 LIMIT ?`,
		game, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query top scores: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// RecentMatches retrieves the latest finished matches.
func (s *Store) RecentMatches(limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, session_id, game, winner, end_reason, top_score, players, created_at
		 FROM matches
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query recent matches: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

func scanMatches(rows *sql.Rows) ([]MatchRecord, error) {
	var records []MatchRecord
	for rows.Next() {
		var r MatchRecord
		var winner sql.NullString
		var createdAt any
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Game, &winner, &r.EndReason, &r.TopScore, &r.Players, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		if winner.Valid {
			r.Winner = winner.String
		}
		switch v := createdAt.(type) {
		case time.Time:
			r.CreatedAt = v
		case string:
			if parsed, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
				r.CreatedAt = parsed
			}
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return records, nil
}
