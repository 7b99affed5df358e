package packsource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"pack-quiz/internal/domain"
)

const packJSON = `{
  "meta": {"title": "Road basics", "description": "Signs and right of way"},
  "questions": [
    {"question": "Red light?", "options": ["Stop", "Go"], "correctOption": 0, "explanation": "Red means stop."},
    {"question": "Yield sign shape?", "options": ["Circle", "Triangle", "Square"], "correctOption": 1}
  ]
}`

func TestLoaderReadsFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pack1.json"), []byte(packJSON), 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bare.json"), []byte(`{"questions":[{"question":"Q","options":["a","b"],"correctOption":1}]}`), 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}
	loader := NewLoader([]domain.CatalogEntry{
		{ID: "pack1", Name: "Pack 1", Source: "pack1.json"},
		{ID: "bare", Name: "Bare pack", Description: "From catalog", Source: "bare.json"},
		{ID: "gone", Name: "Missing", Source: "missing.json"},
	}, dir, nil)

	pack, err := loader.LoadPack(context.Background(), "pack1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if pack.ID != "pack1" || pack.Title != "Road basics" || len(pack.Questions) != 2 {
		t.Fatalf("unexpected pack %+v", pack)
	}
	if pack.Questions[0].Explanation != "Red means stop." {
		t.Fatalf("expected explanation, got %+v", pack.Questions[0])
	}

	bare, err := loader.LoadPack(context.Background(), "bare")
	if err != nil {
		t.Fatalf("load bare: %v", err)
	}
	if bare.Title != "Bare pack" || bare.Description != "From catalog" {
		t.Fatalf("expected catalog fallback meta, got %+v", bare)
	}

	_, err = loader.LoadPack(context.Background(), "gone")
	var loadErr *domain.LoadError
	if !errors.As(err, &loadErr) || loadErr.PackID != "gone" {
		t.Fatalf("expected load error for missing file, got %v", err)
	}

	if _, err := loader.LoadPack(context.Background(), "unknown"); !errors.Is(err, domain.ErrPackNotFound) {
		t.Fatalf("expected pack not found, got %v", err)
	}
}

func TestLoaderFetchesOverHTTP(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pack1.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(packJSON))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	loader := NewLoader([]domain.CatalogEntry{
		{ID: "pack1", Source: server.URL + "/pack1.json"},
		{ID: "pack2", Source: server.URL + "/pack2.json"},
	}, "", server.Client())

	if _, err := loader.LoadPack(context.Background(), "pack1"); err != nil {
		t.Fatalf("load over http: %v", err)
	}
	_, err := loader.LoadPack(context.Background(), "pack2")
	var loadErr *domain.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected load error on 404, got %v", err)
	}
}

func TestDecodeRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"not json":        `{`,
		"no questions":    `{"meta":{"title":"x"}}`,
		"empty questions": `{"questions":[]}`,
		"not an array":    `{"questions":{"a":1}}`,
		"one option":      `{"questions":[{"question":"Q","options":["a"],"correctOption":0}]}`,
		"bad correct":     `{"questions":[{"question":"Q","options":["a","b"],"correctOption":2}]}`,
		"missing correct": `{"questions":[{"question":"Q","options":["a","b"]}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode("p", []byte(doc), domain.PackMeta{})
			var loadErr *domain.LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("expected load error, got %v", err)
			}
		})
	}
}
