package postgres

import (
	"context"
	"errors"
	"fmt"

	"pack-quiz/internal/domain"
	"pack-quiz/internal/infra/packsource"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// PackLoader loads pack documents stored as JSONB in Postgres.
type PackLoader struct {
	pool *pgxpool.Pool
}

func NewPackLoader(pool *pgxpool.Pool) *PackLoader {
	return &PackLoader{pool: pool}
}

func (l *PackLoader) LoadPack(ctx context.Context, packID string) (domain.Pack, error) {
	var (
		name, description string
		raw               []byte
	)
	err := l.pool.QueryRow(ctx, `SELECT name, description, data FROM packs WHERE id=$1`, packID).Scan(&name, &description, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Pack{}, &domain.LoadError{PackID: packID, Message: "select a valid question pack", Err: domain.ErrPackNotFound}
	}
	if err != nil {
		return domain.Pack{}, &domain.LoadError{PackID: packID, Message: "could not load the question pack", Err: fmt.Errorf("load pack: %w", err)}
	}
	return packsource.Decode(packID, raw, domain.PackMeta{Title: name, Description: description})
}

// Catalog lists the packs stored in the database.
func (l *PackLoader) Catalog(ctx context.Context) ([]domain.CatalogEntry, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, name, description FROM packs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list packs: %w", err)
	}
	defer rows.Close()

	var entries []domain.CatalogEntry
	for rows.Next() {
		var entry domain.CatalogEntry
		if err := rows.Scan(&entry.ID, &entry.Name, &entry.Description); err != nil {
			return nil, fmt.Errorf("scan pack: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SavePack upserts a pack document so LoadPack can serve it.
func (l *PackLoader) SavePack(ctx context.Context, entry domain.CatalogEntry, document []byte) error {
	if _, err := packsource.Decode(entry.ID, document, domain.PackMeta{Title: entry.Name}); err != nil {
		return err
	}
	_, err := l.pool.Exec(ctx, `
		INSERT INTO packs (id, name, description, data)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description, data = EXCLUDED.data`,
		entry.ID, entry.Name, entry.Description, string(document))
	if err != nil {
		return fmt.Errorf("save pack: %w", err)
	}
	return nil
}
