package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"pack-quiz/internal/app"
	"pack-quiz/internal/config"
	"pack-quiz/internal/domain"
	"pack-quiz/internal/infra/memory"
	"github.com/sirupsen/logrus"
)

func testInfra(t *testing.T) (*infra, config.Config) {
	t.Helper()
	cfg := config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.Users = []config.User{{Email: "ana@packquiz.local", Password: "secret1"}}
	cfg.Packs = []domain.CatalogEntry{{ID: "pack1", Name: "Road basics", Source: "packs/pack1.json"}}
	cfg.Quiz.DataDir = "../../data"

	log := logrus.New()
	log.SetOutput(io.Discard)
	in, err := openInfra(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("open infra: %v", err)
	}
	t.Cleanup(in.Close)
	return in, cfg
}

func TestTerminalPlaysSamplePack(t *testing.T) {
	in, cfg := testInfra(t)
	log := logrus.New()
	log.SetOutput(io.Discard)
	quiz := in.appFactory(cfg)(log)

	script := strings.Join([]string{
		"start pack1",
		"next",
		"1", "next",
		"3", "next",
		"2", "next",
		"2", "prev", "next", "next",
		"finish",
		"3", "finish",
		"quit",
	}, "\n")
	var out bytes.Buffer
	if err := newTerminal(quiz, strings.NewReader(script), &out).run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"Question 1 of 5",
		"Select an option to continue.",
		"Select an option before finishing.",
		"Road basics: you answered 5 of 5 questions and got 5 right.",
		"Passed!",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
}

func TestTerminalLoginAndStatus(t *testing.T) {
	in, cfg := testInfra(t)
	quiz := in.appFactory(cfg)(logrus.New())

	script := "status\nlogin ana wrong\nlogin ana secret1\nstart pack1\n1\nnext\n1\nnext\n1\nnext\n1\nnext\n1\nnext\nstatus\nlogout\nquit\n"
	var out bytes.Buffer
	if err := newTerminal(quiz, strings.NewReader(script), &out).run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"Sign in to keep track of your results.",
		"Incorrect email or password.",
		"Signed in as ana@packquiz.local.",
		"You have not taken this test yet.",
		"Scored 1 of 5 on",
		"Try again",
		"Signed out.",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
}

// offlineStore accepts reads and rejects every write.
type offlineStore struct{}

func (offlineStore) Read(_ context.Context, _ string) (domain.Profile, error) {
	return domain.Profile{}, domain.ErrProfileNotFound
}

func (offlineStore) MergeResults(_ context.Context, _ string, _ map[string]domain.RawAttempt) error {
	return errors.New("store offline")
}

func TestTerminalDismissesSaveNotice(t *testing.T) {
	in, cfg := testInfra(t)
	in.profiles = offlineStore{}
	log := logrus.New()
	log.SetOutput(io.Discard)
	quiz := in.appFactory(cfg)(log)

	script := "login ana secret1\nstart pack1\n1\nnext\n1\nnext\n1\nnext\n1\nnext\n1\nnext\ndismiss\nquit\n"
	var out bytes.Buffer
	if err := newTerminal(quiz, strings.NewReader(script), &out).run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "Note: "+app.NoticeRetryLater) || !strings.Contains(text, "Notice dismissed.") {
		t.Fatalf("expected retry notice and dismissal in output:\n%s", text)
	}
	if notice := quiz.Profile().Notice(); notice != "" {
		t.Fatalf("expected notice cleared, got %q", notice)
	}
}

func TestChainLoaderFallsThroughOnNotFound(t *testing.T) {
	first := memory.NewStaticPackLoader(map[string]domain.Pack{"a": {ID: "a", Questions: []domain.Question{{Question: "q", Options: []string{"x", "y"}}}}})
	second := memory.NewStaticPackLoader(map[string]domain.Pack{"b": {ID: "b", Questions: []domain.Question{{Question: "q", Options: []string{"x", "y"}}}}})
	chain := chainLoader{first, second}

	if pack, err := chain.LoadPack(context.Background(), "b"); err != nil || pack.ID != "b" {
		t.Fatalf("expected pack b from the second loader, got %+v %v", pack, err)
	}
	if _, err := chain.LoadPack(context.Background(), "c"); !errors.Is(err, domain.ErrPackNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMergeCatalogPrefersPrimary(t *testing.T) {
	merged := mergeCatalog(
		[]domain.CatalogEntry{{ID: "a", Name: "from db"}},
		[]domain.CatalogEntry{{ID: "a", Name: "from yaml"}, {ID: "b", Name: "yaml only"}},
	)
	if len(merged) != 2 || merged[0].Name != "from db" || merged[1].ID != "b" {
		t.Fatalf("unexpected merge %+v", merged)
	}
}
