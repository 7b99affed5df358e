package memory

import (
	"context"
	"sync"

	"pack-quiz/internal/domain"
)

// ProfileStore is an in-memory implementation of app.ProfileStore.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]map[string]domain.RawAttempt
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles: make(map[string]map[string]domain.RawAttempt),
	}
}

func (s *ProfileStore) Read(_ context.Context, userID string) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results, ok := s.profiles[userID]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	profile := domain.Profile{UserID: userID, Results: make(map[string]domain.RawAttempt, len(results))}
	for packID, raw := range results {
		profile.Results[packID] = copyRaw(raw)
	}
	return profile, nil
}

// MergeResults replaces only the given pack entries.
func (s *ProfileStore) MergeResults(_ context.Context, userID string, results map[string]domain.RawAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.profiles[userID]
	if !ok {
		existing = make(map[string]domain.RawAttempt)
		s.profiles[userID] = existing
	}
	for packID, raw := range results {
		existing[packID] = copyRaw(raw)
	}
	return nil
}

func copyRaw(raw domain.RawAttempt) domain.RawAttempt {
	out := make(domain.RawAttempt, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}
