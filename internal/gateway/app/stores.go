package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	artifactcache "pagecopy/internal/cache/artifact"
	"pagecopy/internal/gateway/config"
	artifactrepo "pagecopy/internal/gateway/repository/artifact"
	"pagecopy/internal/logger"
)

type runStores struct {
	archive *artifactrepo.Archive
	db      *sql.DB
}

func (s *runStores) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// initStores picks the artifact origin: S3 when fully configured, else
// Postgres when DATABASE_URL is set, else process memory.
func initStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*runStores, error) {
	if cfg.Artifact.CanUseS3() {
		store, err := newArtifactS3Store(cfg)
		if err != nil {
			return nil, err
		}
		log.Info("artifact store: s3", "bucket", cfg.Artifact.Bucket, "endpoint", cfg.Artifact.Endpoint)
		return &runStores{archive: newArchive(store)}, nil
	}
	if cfg.Artifact.Enabled {
		log.Warn("artifact store: s3 config incomplete, falling back")
	}
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		db, err := artifactrepo.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		log.Info("artifact store: postgres")
		return &runStores{archive: newArchive(artifactrepo.NewPostgresStore(db)), db: db}, nil
	}
	log.Info("artifact store: in-memory")
	return &runStores{archive: newArchive(artifactrepo.NewMemoryStore())}, nil
}

func newArchive(origin artifactrepo.Store) *artifactrepo.Archive {
	return artifactrepo.NewArchive(artifactcache.NewCachedStore(origin, artifactcache.DefaultCacheConfig()))
}

func newArtifactS3Store(cfg *config.Config) (artifactrepo.Store, error) {
	store, err := artifactrepo.NewS3Store(artifactrepo.S3Config{
		Endpoint:  cfg.Artifact.Endpoint,
		Region:    cfg.Artifact.Region,
		AccessKey: cfg.Artifact.AccessKey,
		SecretKey: cfg.Artifact.SecretKey,
		Bucket:    cfg.Artifact.Bucket,
		UseSSL:    cfg.Artifact.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact s3 store: %w", err)
	}
	return store, nil
}
