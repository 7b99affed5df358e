package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"pack-quiz/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	// NoticeHistoryUnavailable is shown when the profile could not be read.
	NoticeHistoryUnavailable = "Your previous results are unavailable right now. Try again later."
	// NoticeRetryLater is shown when a finished attempt could not be saved.
	NoticeRetryLater = "We could not save your result. Try again later."
)

// ProfileStore abstracts the remote per-user document (Postgres, Redis, SQLite, memory).
type ProfileStore interface {
	// Read returns domain.ErrProfileNotFound when the user has no document.
	Read(ctx context.Context, userID string) (domain.Profile, error)
	// MergeResults writes the given pack entries, keeping every other pack entry.
	MergeResults(ctx context.Context, userID string, results map[string]domain.RawAttempt) error
}

// ProfileSynchronizer keeps the signed-in user's attempt history in step with
// the remote profile document.
type ProfileSynchronizer struct {
	store ProfileStore
	log   logrus.FieldLogger
	now   func() time.Time

	mu      sync.RWMutex
	userID  string
	results domain.ResultsByPack
	notice  string
}

func NewProfileSynchronizer(store ProfileStore, log logrus.FieldLogger) *ProfileSynchronizer {
	return NewProfileSynchronizerWithClock(store, log, time.Now)
}

// NewProfileSynchronizerWithClock allows deterministic timestamps in tests.
func NewProfileSynchronizerWithClock(store ProfileStore, log logrus.FieldLogger, now func() time.Time) *ProfileSynchronizer {
	return &ProfileSynchronizer{
		store:   store,
		log:     log,
		now:     now,
		results: make(domain.ResultsByPack),
	}
}

// Load rebuilds ResultsByPack from the user's remote document. On failure the
// history is emptied and a notice is recorded; the error is a *domain.SyncError.
func (p *ProfileSynchronizer) Load(ctx context.Context, userID string) error {
	profile, err := p.store.Read(ctx, userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		profile, err = domain.Profile{UserID: userID}, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.userID = userID
	p.results = make(domain.ResultsByPack)
	if err != nil {
		p.notice = NoticeHistoryUnavailable
		p.log.WithError(err).WithField("user_id", userID).Warn("profile history unavailable")
		return &domain.SyncError{Op: domain.SyncLoad, UserID: userID, Err: err}
	}

	now := p.now()
	for packID, raw := range profile.Results {
		attempt := NormalizeAt(raw, now)
		attempt.PackID = packID
		p.results[packID] = attempt
	}
	p.notice = ""
	p.log.WithFields(logrus.Fields{"user_id": userID, "packs": len(p.results)}).Info("profile history loaded")
	return nil
}

// Persist merge-writes attempt under packID. Local history changes only after
// the store confirms the write.
func (p *ProfileSynchronizer) Persist(ctx context.Context, userID, packID string, attempt domain.Attempt) (domain.Attempt, error) {
	if userID == "" {
		return domain.Attempt{}, domain.ErrNotSignedIn
	}

	normalized := NormalizeAt(attempt.Fields(), p.now())
	normalized.PackID = packID

	err := p.store.MergeResults(ctx, userID, map[string]domain.RawAttempt{packID: normalized.Fields()})

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.notice = NoticeRetryLater
		p.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "pack_id": packID}).Warn("attempt not saved")
		return domain.Attempt{}, &domain.SyncError{Op: domain.SyncPersist, UserID: userID, Err: err}
	}

	// A write for a user who signed out meanwhile must not leak into the
	// next user's history.
	if p.userID == userID {
		p.results[packID] = normalized
		p.notice = ""
	}
	p.log.WithFields(logrus.Fields{"user_id": userID, "pack_id": packID, "score": normalized.Score}).Info("attempt saved")
	return normalized, nil
}

// Clear forgets the user and their history.
func (p *ProfileSynchronizer) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userID = ""
	p.results = make(domain.ResultsByPack)
	p.notice = ""
}

func (p *ProfileSynchronizer) UserID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.userID
}

// Notice returns the pending sync message, if any.
func (p *ProfileSynchronizer) Notice() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.notice
}

// DismissNotice clears the pending sync message.
func (p *ProfileSynchronizer) DismissNotice() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notice = ""
}

// Results returns a copy of the history.
func (p *ProfileSynchronizer) Results() domain.ResultsByPack {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(domain.ResultsByPack, len(p.results))
	for k, v := range p.results {
		out[k] = v
	}
	return out
}

// StatusFor derives the display status of a pack.
func (p *ProfileSynchronizer) StatusFor(packID string) domain.PackStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := domain.PackStatus{PackID: packID}
	attempt, ok := p.results[packID]
	switch {
	case p.userID == "":
		status.Kind = domain.StatusLocked
		status.Detail = "Sign in to keep track of your results."
		status.Action = "Sign in"
	case !ok:
		status.Kind = domain.StatusPending
		status.Detail = "You have not taken this test yet."
		status.Action = "Start test"
	case attempt.Passed:
		status.Kind = domain.StatusPass
		status.Detail = fmt.Sprintf("Passed with %d of %d on %s.", attempt.Score, attempt.TotalQuestions, attempt.UpdatedAt.Format("2006-01-02"))
		status.Action = "Retake test"
	default:
		status.Kind = domain.StatusFail
		status.Detail = fmt.Sprintf("Scored %d of %d on %s. You need %d to pass.", attempt.Score, attempt.TotalQuestions, attempt.UpdatedAt.Format("2006-01-02"), domain.MinimumPassScore)
		status.Action = "Try again"
	}
	return status
}

// LatestHighlight picks the most recent attempt and counts passed packs.
func (p *ProfileSynchronizer) LatestHighlight() domain.Highlight {
	p.mu.RLock()
	attempts := make([]domain.Attempt, 0, len(p.results))
	for _, attempt := range p.results {
		attempts = append(attempts, attempt)
	}
	p.mu.RUnlock()

	var highlight domain.Highlight
	if len(attempts) == 0 {
		return highlight
	}

	sort.Slice(attempts, func(i, j int) bool { return attempts[i].PackID < attempts[j].PackID })
	sort.SliceStable(attempts, func(i, j int) bool { return attempts[i].UpdatedAt.After(attempts[j].UpdatedAt) })

	for _, attempt := range attempts {
		if attempt.Passed {
			highlight.PassedCount++
		}
	}
	latest := attempts[0]
	highlight.Latest = &latest
	return highlight
}
