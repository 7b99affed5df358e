package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"pack-quiz/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ProfileStore keeps one hash per user with a field per pack, so HSET is a
// merge write by construction:
//
//	HSET profile:{userID}:results {packID} {attempt json}
type ProfileStore struct {
	client *redis.Client
}

func NewProfileStore(client *redis.Client) *ProfileStore {
	return &ProfileStore{client: client}
}

func (s *ProfileStore) Read(ctx context.Context, userID string) (domain.Profile, error) {
	fields, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return domain.Profile{}, fmt.Errorf("read profile: %w", err)
	}
	if len(fields) == 0 {
		return domain.Profile{}, domain.ErrProfileNotFound
	}

	profile := domain.Profile{UserID: userID, Results: make(map[string]domain.RawAttempt, len(fields))}
	for packID, data := range fields {
		var raw domain.RawAttempt
		if err := json.Unmarshal([]byte(data), &raw); err != nil {
			return domain.Profile{}, fmt.Errorf("decode attempt %s: %w", packID, err)
		}
		profile.Results[packID] = raw
	}
	return profile, nil
}

func (s *ProfileStore) MergeResults(ctx context.Context, userID string, results map[string]domain.RawAttempt) error {
	if len(results) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(results)*2)
	for packID, raw := range results {
		data, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("encode attempt %s: %w", packID, err)
		}
		values = append(values, packID, data)
	}
	if err := s.client.HSet(ctx, s.key(userID), values...).Err(); err != nil {
		return fmt.Errorf("merge profile: %w", err)
	}
	return nil
}

func (s *ProfileStore) key(userID string) string {
	return "profile:" + userID + ":results"
}
