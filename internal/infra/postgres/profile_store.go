package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pack-quiz/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ProfileStore keeps each user's results map in a JSONB column. Writes use
// jsonb concatenation so only the written pack keys change.
type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

func (s *ProfileStore) Read(ctx context.Context, userID string) (domain.Profile, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT results FROM profiles WHERE user_id=$1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("read profile: %w", err)
	}

	profile := domain.Profile{UserID: userID}
	if err := json.Unmarshal(raw, &profile.Results); err != nil {
		return domain.Profile{}, fmt.Errorf("unmarshal profile: %w", err)
	}
	return profile, nil
}

func (s *ProfileStore) MergeResults(ctx context.Context, userID string, results map[string]domain.RawAttempt) error {
	patch, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO profiles (user_id, results, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (user_id) DO UPDATE
		SET results = profiles.results || EXCLUDED.results,
		    updated_at = now()`, userID, string(patch))
	if err != nil {
		return fmt.Errorf("merge profile: %w", err)
	}
	return nil
}
