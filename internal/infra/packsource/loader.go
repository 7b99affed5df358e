package packsource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"pack-quiz/internal/domain"
)

// maxPackSize bounds how much of a pack resource is read.
const maxPackSize = 4 << 20

// Loader resolves catalog entries to pack documents on disk or over HTTP.
type Loader struct {
	catalog map[string]domain.CatalogEntry
	baseDir string
	client  *http.Client
}

// NewLoader builds a loader; relative file sources are resolved against baseDir.
func NewLoader(catalog []domain.CatalogEntry, baseDir string, client *http.Client) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	entries := make(map[string]domain.CatalogEntry, len(catalog))
	for _, entry := range catalog {
		entries[entry.ID] = entry
	}
	return &Loader{catalog: entries, baseDir: baseDir, client: client}
}

func (l *Loader) LoadPack(ctx context.Context, packID string) (domain.Pack, error) {
	entry, ok := l.catalog[packID]
	if !ok {
		return domain.Pack{}, &domain.LoadError{PackID: packID, Message: "select a valid question pack", Err: domain.ErrPackNotFound}
	}

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(entry.Source, "http://") || strings.HasPrefix(entry.Source, "https://") {
		data, err = l.fetch(ctx, entry.Source)
	} else {
		data, err = l.readFile(entry.Source)
	}
	if err != nil {
		return domain.Pack{}, &domain.LoadError{PackID: packID, Message: "could not load the question pack", Err: err}
	}
	return Decode(packID, data, domain.PackMeta{Title: entry.Name, Description: entry.Description})
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPackSize))
}

func (l *Loader) readFile(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("no source configured")
	}
	if !filepath.IsAbs(path) && l.baseDir != "" {
		path = filepath.Join(l.baseDir, path)
	}
	return os.ReadFile(path)
}
