package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"pack-quiz/internal/app"
	"pack-quiz/internal/auth"
	"pack-quiz/internal/domain"
	"pack-quiz/internal/infra/memory"
)

func newTestApp(t *testing.T, profiles app.ProfileStore) *app.QuizApp {
	t.Helper()
	users := memory.NewUserDirectory()
	if _, err := users.AddUser("ana@packquiz.local", "secret1"); err != nil {
		t.Fatalf("add user: %v", err)
	}
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("token issuer: %v", err)
	}
	pack := fivePack()
	packs := memory.NewPackRepository(memory.NewStaticPackLoader(map[string]domain.Pack{pack.ID: pack}), time.Minute)
	return app.NewQuizApp(app.Options{
		Catalog:  []domain.CatalogEntry{{ID: pack.ID, Name: pack.Title}},
		Packs:    packs,
		Auth:     memory.NewAuthenticator(users, tokens),
		Profiles: profiles,
		Logger:   quietLogger(),
		Clock:    fixedClock,
	})
}

func playAll(t *testing.T, quiz *app.QuizApp, answers []int) *domain.Summary {
	t.Helper()
	var summary *domain.Summary
	for _, answer := range answers {
		if err := quiz.Session().SelectAnswer(answer); err != nil {
			t.Fatalf("select: %v", err)
		}
		var err error
		if summary, err = quiz.Advance(context.Background()); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if summary == nil {
		t.Fatalf("expected the last advance to finish the session")
	}
	return summary
}

func TestSignedInFinishPersistsAttempt(t *testing.T) {
	ctx := context.Background()
	profiles := memory.NewProfileStore()
	quiz := newTestApp(t, profiles)

	user, err := quiz.SignIn(ctx, "ana", "secret1")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if user.Email != "ana@packquiz.local" {
		t.Fatalf("expected normalized email, got %s", user.Email)
	}
	if err := quiz.StartPack(ctx, "pack-5"); err != nil {
		t.Fatalf("start: %v", err)
	}
	summary := playAll(t, quiz, []int{0, 1, 2, 0, 0})
	if summary.Score != 3 || !summary.Passed {
		t.Fatalf("expected a pass with 3, got %+v", summary)
	}

	profile, err := profiles.Read(ctx, user.ID)
	if err != nil {
		t.Fatalf("read profile: %v", err)
	}
	if got := app.Normalize(profile.Results["pack-5"]); got.Score != 3 || !got.UpdatedAt.Equal(fixedClock()) {
		t.Fatalf("unexpected stored attempt %+v", got)
	}
	if status := quiz.Status("pack-5"); status.Kind != domain.StatusPass {
		t.Fatalf("expected pass status, got %+v", status)
	}
}

func TestAnonymousFinishIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	profiles := memory.NewProfileStore()
	quiz := newTestApp(t, profiles)

	if err := quiz.StartPack(ctx, "pack-5"); err != nil {
		t.Fatalf("start: %v", err)
	}
	playAll(t, quiz, []int{0, 1, 2, 3, 4})
	if status := quiz.Status("pack-5"); status.Kind != domain.StatusLocked {
		t.Fatalf("expected locked status, got %+v", status)
	}
}

func TestPersistFailureLeavesNotice(t *testing.T) {
	ctx := context.Background()
	quiz := newTestApp(t, &failingStore{writeErr: errors.New("offline")})

	if _, err := quiz.SignIn(ctx, "ana@packquiz.local", "secret1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if err := quiz.StartPack(ctx, "pack-5"); err != nil {
		t.Fatalf("start: %v", err)
	}
	summary := playAll(t, quiz, []int{0, 1, 2, 3, 4})
	if summary.Score != 5 {
		t.Fatalf("expected the summary despite the failed save, got %+v", summary)
	}
	if quiz.Profile().Notice() != app.NoticeRetryLater {
		t.Fatalf("expected retry notice, got %q", quiz.Profile().Notice())
	}
	if status := quiz.Status("pack-5"); status.Kind != domain.StatusPending {
		t.Fatalf("unsaved attempt must not show as taken, got %+v", status)
	}
}

func TestStartUnknownPackIsLoadError(t *testing.T) {
	quiz := newTestApp(t, memory.NewProfileStore())

	err := quiz.StartPack(context.Background(), "missing")
	var loadErr *domain.LoadError
	if !errors.As(err, &loadErr) || !errors.Is(err, domain.ErrPackNotFound) {
		t.Fatalf("expected load error for unknown pack, got %v", err)
	}
	if quiz.Session().State() != app.NotStarted {
		t.Fatalf("session must stay idle, got %s", quiz.Session().State())
	}
}

func TestSignOutResetsSessionAndHistory(t *testing.T) {
	ctx := context.Background()
	quiz := newTestApp(t, memory.NewProfileStore())

	if _, err := quiz.SignIn(ctx, "ana", "secret1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if err := quiz.StartPack(ctx, "pack-5"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := quiz.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if _, ok := quiz.User(); ok {
		t.Fatalf("expected no user after sign out")
	}
	if quiz.Session().State() != app.NotStarted {
		t.Fatalf("expected session reset, got %s", quiz.Session().State())
	}
	if len(quiz.Profile().Results()) != 0 || quiz.Profile().UserID() != "" {
		t.Fatalf("expected cleared history")
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	quiz := newTestApp(t, memory.NewProfileStore())

	_, err := quiz.SignIn(context.Background(), "ana", "nope")
	if got := app.AuthMessage(err); got != "Incorrect email or password." {
		t.Fatalf("unexpected message %q for %v", got, err)
	}
	if _, ok := quiz.User(); ok {
		t.Fatalf("expected no user after a failed sign in")
	}
}

func TestStartPackRejectsMalformedPack(t *testing.T) {
	broken := domain.Pack{ID: "broken", Title: "Broken", Questions: []domain.Question{
		{Question: "Q", Options: []string{"a", "b"}, CorrectOption: 2},
	}}
	quiz := app.NewQuizApp(app.Options{
		Packs:    memory.NewPackRepository(memory.NewStaticPackLoader(map[string]domain.Pack{"broken": broken}), 0),
		Profiles: memory.NewProfileStore(),
	})

	err := quiz.StartPack(context.Background(), "broken")
	var loadErr *domain.LoadError
	if !errors.As(err, &loadErr) || loadErr.Message != "question 1 is malformed" {
		t.Fatalf("expected malformed question error, got %v", err)
	}
	if quiz.Session().State() != app.NotStarted {
		t.Fatalf("session must stay idle, got %s", quiz.Session().State())
	}
}
