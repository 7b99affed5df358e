package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"pack-quiz/internal/config"
	"pack-quiz/internal/domain"
	"pack-quiz/internal/infra/excel"
	pgstore "pack-quiz/internal/infra/postgres"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

type importOptions struct {
	id          string
	name        string
	description string
	sheet       string
	out         string
}

// NewImportCmd converts an xlsx sheet into a pack document.
func NewImportCmd(configPath *string) *cobra.Command {
	opts := importOptions{}
	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import a question pack from an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			config.InitLogger(cfg.Log)
			return runImport(cmd, cfg, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.id, "id", "", "pack id (required)")
	cmd.Flags().StringVar(&opts.name, "name", "", "pack title")
	cmd.Flags().StringVar(&opts.description, "description", "", "pack description")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "Sheet1", "sheet holding the questions")
	cmd.Flags().StringVar(&opts.out, "out", "", "output file (default <data_dir>/packs/<id>.json)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func runImport(cmd *cobra.Command, cfg config.Config, path string, opts importOptions) error {
	ctx := cmd.Context()
	log := config.WithContext(ctx).WithField("pack_id", opts.id)

	importCfg := excel.DefaultImportConfig()
	importCfg.FilePath = path
	importCfg.SheetName = opts.sheet
	importCfg.Title = opts.name
	importCfg.Description = opts.description
	result, err := excel.ImportPack(importCfg)
	if err != nil {
		return err
	}
	for _, problem := range result.Errors {
		log.Warn(problem)
	}
	document, err := result.Document()
	if err != nil {
		return err
	}

	out := opts.out
	if out == "" {
		dataDir := cfg.Quiz.DataDir
		if dataDir == "" {
			dataDir = defaultDataDir
		}
		out = filepath.Join(dataDir, "packs", opts.id+".json")
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(out, document, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d questions (%d rows skipped) into %s\n", len(result.Questions), result.Skipped, out)

	if cfg.Postgres.URL == "" {
		return nil
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	entry := domain.CatalogEntry{ID: opts.id, Name: opts.name, Description: opts.description}
	if err := pgstore.NewPackLoader(pool).SavePack(ctx, entry, document); err != nil {
		return err
	}
	log.Info("pack stored in postgres")
	return nil
}
