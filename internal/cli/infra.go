package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"pack-quiz/internal/app"
	"pack-quiz/internal/auth"
	"pack-quiz/internal/config"
	"pack-quiz/internal/domain"
	"pack-quiz/internal/infra/memory"
	pgstore "pack-quiz/internal/infra/postgres"
	"pack-quiz/internal/infra/packsource"
	redisstore "pack-quiz/internal/infra/redis"
	"pack-quiz/internal/infra/sqlite"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultDataDir = "data"

// infra holds the backing services selected by the config.
type infra struct {
	catalog  []domain.CatalogEntry
	packs    app.PackRepository
	profiles app.ProfileStore
	users    *memory.UserDirectory
	tokens   *auth.TokenIssuer
	closers  []func()
}

func (i *infra) Close() {
	for n := len(i.closers) - 1; n >= 0; n-- {
		i.closers[n]()
	}
}

// appFactory returns a builder for one QuizApp per client. Every client has
// its own sign-in state over the shared directory and stores.
func (i *infra) appFactory(cfg config.Config) func(log logrus.FieldLogger) *app.QuizApp {
	return func(log logrus.FieldLogger) *app.QuizApp {
		return app.NewQuizApp(app.Options{
			Catalog:     i.catalog,
			Packs:       i.packs,
			Auth:        memory.NewAuthenticator(i.users, i.tokens),
			Profiles:    i.profiles,
			EmailDomain: cfg.Auth.Domain,
			Logger:      log,
		})
	}
}

// openInfra connects the configured stores. Profile storage prefers
// Postgres, then Redis, then SQLite, then memory. Packs load from Postgres
// first and the YAML catalog second, cached in Redis or in process.
func openInfra(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*infra, error) {
	in := &infra{catalog: cfg.Packs}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		in.closers = append(in.closers, func() { _ = redisClient.Close() })
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			in.Close()
			return nil, err
		}
		in.closers = append(in.closers, pool.Close)
	}

	dataDir := cfg.Quiz.DataDir
	if dataDir == "" {
		dataDir = defaultDataDir
	}
	loaders := chainLoader{}
	if pool != nil {
		pgLoader := pgstore.NewPackLoader(pool)
		stored, err := pgLoader.Catalog(ctx)
		if err != nil {
			in.Close()
			return nil, err
		}
		in.catalog = mergeCatalog(stored, cfg.Packs)
		loaders = append(loaders, pgLoader)
	}
	loaders = append(loaders, packsource.NewLoader(cfg.Packs, dataDir, &http.Client{Timeout: 10 * time.Second}))

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if redisClient != nil {
		in.packs = redisstore.NewPackRepository(redisClient, loaders, quizTTL)
	} else {
		in.packs = memory.NewPackRepository(loaders, quizTTL)
	}

	switch {
	case pool != nil:
		in.profiles = pgstore.NewProfileStore(pool)
	case redisClient != nil:
		in.profiles = redisstore.NewProfileStore(redisClient)
	case cfg.SQLite.Path != "":
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			in.Close()
			return nil, err
		}
		in.closers = append(in.closers, func() { _ = store.Close() })
		in.profiles = store
	default:
		log.Warn("no profile store configured; results are kept in memory only")
		in.profiles = memory.NewProfileStore()
	}

	users, err := seedUsers(cfg.Auth.Users)
	if err != nil {
		in.Close()
		return nil, err
	}
	in.users = users

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		log.Warn("auth.jwt_secret not set; issued tokens will not survive a restart")
		secret = uuid.NewString()
	}
	in.tokens, err = auth.NewTokenIssuer(secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	if err != nil {
		in.Close()
		return nil, err
	}
	return in, nil
}

func seedUsers(users []config.User) (*memory.UserDirectory, error) {
	dir := memory.NewUserDirectory()
	for _, u := range users {
		if _, err := dir.AddUser(u.Email, u.Password); err != nil {
			return nil, err
		}
	}
	return dir, nil
}

// mergeCatalog lists primary entries first, then secondary ones not already present.
func mergeCatalog(primary, secondary []domain.CatalogEntry) []domain.CatalogEntry {
	seen := make(map[string]bool, len(primary))
	out := make([]domain.CatalogEntry, 0, len(primary)+len(secondary))
	for _, entry := range primary {
		seen[entry.ID] = true
		out = append(out, entry)
	}
	for _, entry := range secondary {
		if !seen[entry.ID] {
			out = append(out, entry)
		}
	}
	return out
}

// chainLoader asks each loader in turn until one knows the pack.
type chainLoader []memory.PackLoader

func (c chainLoader) LoadPack(ctx context.Context, packID string) (domain.Pack, error) {
	err := error(&domain.LoadError{PackID: packID, Message: "select a valid question pack", Err: domain.ErrPackNotFound})
	for _, loader := range c {
		var pack domain.Pack
		pack, err = loader.LoadPack(ctx, packID)
		if err == nil {
			return pack, nil
		}
		if !errors.Is(err, domain.ErrPackNotFound) {
			return domain.Pack{}, err
		}
	}
	return domain.Pack{}, err
}
