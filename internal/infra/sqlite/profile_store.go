package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"pack-quiz/internal/domain"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
	user_id    TEXT NOT NULL,
	pack_id    TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, pack_id)
)`

type attemptRow struct {
	PackID string `db:"pack_id"`
	Data   string `db:"data"`
}

// ProfileStore keeps one row per (user, pack), which makes every write a
// merge at the results-map level. Used for local single-user play.
type ProfileStore struct {
	db *sqlx.DB
}

// Open connects to the database file at path (":memory:" for tests) and
// creates the schema.
func Open(path string) (*ProfileStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create attempts table: %w", err)
	}
	return &ProfileStore{db: db}, nil
}

func (s *ProfileStore) Close() error {
	return s.db.Close()
}

func (s *ProfileStore) Read(ctx context.Context, userID string) (domain.Profile, error) {
	var rows []attemptRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT pack_id, data FROM attempts WHERE user_id = ?`, userID); err != nil {
		return domain.Profile{}, fmt.Errorf("read profile: %w", err)
	}
	if len(rows) == 0 {
		return domain.Profile{}, domain.ErrProfileNotFound
	}

	profile := domain.Profile{UserID: userID, Results: make(map[string]domain.RawAttempt, len(rows))}
	for _, row := range rows {
		var raw domain.RawAttempt
		if err := json.Unmarshal([]byte(row.Data), &raw); err != nil {
			return domain.Profile{}, fmt.Errorf("decode attempt %s: %w", row.PackID, err)
		}
		profile.Results[row.PackID] = raw
	}
	return profile, nil
}

func (s *ProfileStore) MergeResults(ctx context.Context, userID string, results map[string]domain.RawAttempt) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for packID, raw := range results {
		data, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("encode attempt %s: %w", packID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO attempts (user_id, pack_id, data, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (user_id, pack_id) DO UPDATE
			SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`, userID, packID, string(data))
		if err != nil {
			return fmt.Errorf("merge attempt %s: %w", packID, err)
		}
	}
	return tx.Commit()
}
