package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/k8ika0s/optimizer-api/internal/archive"
	"github.com/k8ika0s/optimizer-api/internal/config"
	"github.com/k8ika0s/optimizer-api/internal/journal"
	"github.com/k8ika0s/optimizer-api/internal/privilege"
	"github.com/k8ika0s/optimizer-api/internal/stats"
	"github.com/k8ika0s/optimizer-api/internal/store"
)

// openJournal selects the upload journal backend named by cfg.JournalBackend.
func openJournal(cfg config.Config) (journal.Backend, func() error, error) {
	switch cfg.JournalBackend {
	case "", "none":
		return journal.NullJournal{}, nil, nil
	case "file":
		return journal.NewFileJournal(cfg.JournalFile), nil, nil
	case "redis":
		j := journal.NewRedisJournal(cfg.RedisURL, cfg.RedisKey)
		return j, j.Close, nil
	case "kafka":
		j := journal.NewKafkaJournal(cfg.KafkaBrokers, cfg.KafkaTopic)
		return j, j.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown journal backend %q", cfg.JournalBackend)
	}
}

func openArchive(ctx context.Context, cfg config.Config) (archive.Store, error) {
	if cfg.ArchiveEndpoint == "" {
		return archive.NullStore{}, nil
	}
	return archive.NewMinIOStore(ctx, cfg.ArchiveEndpoint, cfg.ArchiveAccessKey, cfg.ArchiveSecretKey, cfg.ArchiveBucket, cfg.ArchiveUseSSL)
}

// openStore connects the document and grant store, migrates it and seeds
// grants from cfg.GrantsDir. It returns nil when no DSN is configured.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*store.PostgresStore, error) {
	if cfg.PostgresDSN == "" {
		return nil, nil
	}
	st, err := store.OpenPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if !cfg.SkipMigrate {
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	if cfg.GrantsDir != "" {
		res, err := privilege.SeedGrantsFromDir(ctx, afero.NewOsFs(), st, cfg.GrantsDir)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("seed grants: %w", err)
		}
		logger.Info("grants seeded", "dir", cfg.GrantsDir, "files", res.Files, "loaded", res.Loaded, "skipped", res.Skipped)
		for _, msg := range res.Errors {
			logger.Warn("grant seed problem", "detail", msg)
		}
	}
	return st, nil
}

// openStats connects the statistics provider. STATS_DSN falls back to the
// document store DSN.
func openStats(ctx context.Context, cfg config.Config) (*stats.PgxProvider, error) {
	dsn := cfg.StatsDSN
	if dsn == "" {
		dsn = cfg.PostgresDSN
	}
	if dsn == "" {
		return nil, nil
	}
	return stats.OpenPgxProvider(ctx, dsn)
}
