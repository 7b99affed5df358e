package app_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"pack-quiz/internal/app"
	"pack-quiz/internal/domain"
	"pack-quiz/internal/infra/memory"
	"github.com/sirupsen/logrus"
)

type failingStore struct {
	readErr  error
	writeErr error
	profile  domain.Profile
}

func (s *failingStore) Read(_ context.Context, userID string) (domain.Profile, error) {
	if s.readErr != nil {
		return domain.Profile{}, s.readErr
	}
	return s.profile, nil
}

func (s *failingStore) MergeResults(_ context.Context, _ string, _ map[string]domain.RawAttempt) error {
	return s.writeErr
}

func TestPersistFailureKeepsLocalResults(t *testing.T) {
	ctx := context.Background()
	previous := domain.Attempt{Score: 2, TotalQuestions: 5, UpdatedAt: fixedClock()}
	store := &failingStore{
		writeErr: errors.New("unavailable"),
		profile:  domain.Profile{UserID: "u1", Results: map[string]domain.RawAttempt{"pack1": previous.Fields()}},
	}
	syncer := app.NewProfileSynchronizerWithClock(store, quietLogger(), fixedClock)
	if err := syncer.Load(ctx, "u1"); err != nil {
		t.Fatalf("load: %v", err)
	}

	_, err := syncer.Persist(ctx, "u1", "pack1", domain.Attempt{Score: 5, TotalQuestions: 5, Passed: true, UpdatedAt: fixedClock().Add(time.Hour)})
	var syncErr *domain.SyncError
	if !errors.As(err, &syncErr) || syncErr.Op != domain.SyncPersist {
		t.Fatalf("expected persist sync error, got %v", err)
	}
	got := syncer.Results()["pack1"]
	if got.Score != 2 || got.Passed {
		t.Fatalf("local results mutated on failed write: %+v", got)
	}
	if syncer.Notice() != app.NoticeRetryLater {
		t.Fatalf("expected retry notice, got %q", syncer.Notice())
	}
}

func TestLoadFailureEmptiesHistory(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{profile: domain.Profile{Results: map[string]domain.RawAttempt{"pack1": {"score": 4}}}}
	syncer := app.NewProfileSynchronizerWithClock(store, quietLogger(), fixedClock)
	_ = syncer.Load(ctx, "u1")
	if len(syncer.Results()) != 1 {
		t.Fatalf("expected one result")
	}

	store.readErr = errors.New("boom")
	err := syncer.Load(ctx, "u1")
	var syncErr *domain.SyncError
	if !errors.As(err, &syncErr) || syncErr.Op != domain.SyncLoad {
		t.Fatalf("expected load sync error, got %v", err)
	}
	if len(syncer.Results()) != 0 {
		t.Fatalf("expected empty history after failure")
	}
	if syncer.Notice() != app.NoticeHistoryUnavailable {
		t.Fatalf("expected history notice, got %q", syncer.Notice())
	}

	store.readErr = nil
	if err := syncer.Load(ctx, "u1"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if syncer.Notice() != "" {
		t.Fatalf("expected notice cleared after successful load")
	}
}

func TestMergeWriteKeepsOtherPacks(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	syncer := app.NewProfileSynchronizerWithClock(store, quietLogger(), fixedClock)
	_ = syncer.Load(ctx, "u1")

	if _, err := syncer.Persist(ctx, "u1", "packA", domain.Attempt{Score: 4, TotalQuestions: 5, Passed: true, UpdatedAt: fixedClock()}); err != nil {
		t.Fatalf("persist packA: %v", err)
	}
	if _, err := syncer.Persist(ctx, "u1", "packB", domain.Attempt{Score: 1, TotalQuestions: 5, UpdatedAt: fixedClock().Add(time.Minute)}); err != nil {
		t.Fatalf("persist packB: %v", err)
	}

	fresh := app.NewProfileSynchronizerWithClock(store, quietLogger(), fixedClock)
	if err := fresh.Load(ctx, "u1"); err != nil {
		t.Fatalf("reload: %v", err)
	}
	results := fresh.Results()
	if a := results["packA"]; a.Score != 4 || !a.Passed || a.PackID != "packA" {
		t.Fatalf("packA lost or changed: %+v", a)
	}
	if b := results["packB"]; b.Score != 1 || b.Passed {
		t.Fatalf("unexpected packB: %+v", b)
	}
}

func TestStatusAndHighlight(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	syncer := app.NewProfileSynchronizerWithClock(store, quietLogger(), fixedClock)

	if s := syncer.StatusFor("packA"); s.Kind != domain.StatusLocked || s.Action == "" {
		t.Fatalf("expected locked status, got %+v", s)
	}
	if h := syncer.LatestHighlight(); h.Latest != nil || h.PassedCount != 0 {
		t.Fatalf("expected empty highlight, got %+v", h)
	}

	_ = syncer.Load(ctx, "u1")
	if s := syncer.StatusFor("packA"); s.Kind != domain.StatusPending {
		t.Fatalf("expected pending status, got %+v", s)
	}

	_, _ = syncer.Persist(ctx, "u1", "packA", domain.Attempt{Score: 3, TotalQuestions: 5, Passed: true, UpdatedAt: fixedClock()})
	_, _ = syncer.Persist(ctx, "u1", "packB", domain.Attempt{Score: 2, TotalQuestions: 5, UpdatedAt: fixedClock().Add(time.Hour)})
	_, _ = syncer.Persist(ctx, "u1", "packC", domain.Attempt{Score: 5, TotalQuestions: 5, Passed: true, UpdatedAt: fixedClock().Add(-time.Hour)})

	if s := syncer.StatusFor("packA"); s.Kind != domain.StatusPass || s.Detail != "Passed with 3 of 5 on 2024-11-22." {
		t.Fatalf("unexpected pass status %+v", s)
	}
	if s := syncer.StatusFor("packB"); s.Kind != domain.StatusFail {
		t.Fatalf("unexpected fail status %+v", s)
	}

	h := syncer.LatestHighlight()
	if h.Latest == nil || h.Latest.PackID != "packB" {
		t.Fatalf("expected packB as latest, got %+v", h.Latest)
	}
	if h.PassedCount != 2 {
		t.Fatalf("expected 2 passed packs, got %d", h.PassedCount)
	}

	syncer.Clear()
	if s := syncer.StatusFor("packA"); s.Kind != domain.StatusLocked {
		t.Fatalf("expected locked after clear, got %+v", s)
	}
}

func TestPersistAfterSignOutDoesNotLeak(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()
	syncer := app.NewProfileSynchronizerWithClock(store, quietLogger(), fixedClock)
	_ = syncer.Load(ctx, "u1")
	syncer.Clear()
	_ = syncer.Load(ctx, "u2")

	if _, err := syncer.Persist(ctx, "u1", "packA", domain.Attempt{Score: 4, TotalQuestions: 5, Passed: true}); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if _, ok := syncer.Results()["packA"]; ok {
		t.Fatalf("late write for u1 leaked into u2 history")
	}
	if _, err := syncer.Persist(ctx, "", "packA", domain.Attempt{}); !errors.Is(err, domain.ErrNotSignedIn) {
		t.Fatalf("expected not signed in, got %v", err)
	}
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
