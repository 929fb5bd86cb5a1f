package app

import (
	"context"
	"fmt"
	"log"

	"archigen/internal/gateway/config"
	"archigen/internal/gateway/repository/archive"
)

// initArchive opens the configured origin store and fronts it with the LRU
// cache. The returned closer may be nil.
func initArchive(ctx context.Context, cfg config.ArchiveConfig) (archive.Store, func(context.Context) error, error) {
	origin, closer, err := chooseArchiveOrigin(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return archive.NewCachedStore(origin, archive.DefaultCacheConfig()), closer, nil
}

func chooseArchiveOrigin(ctx context.Context, cfg config.ArchiveConfig) (archive.Store, func(context.Context) error, error) {
	switch cfg.Backend {
	case config.BackendS3:
		s3Cfg := cfg.S3()
		if !s3Cfg.Complete() {
			log.Printf("archive store: using in-memory fallback (s3 config incomplete)")
			return archive.NewMemoryStore(), nil, nil
		}
		s3Store, err := archive.NewS3Store(s3Cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize archive s3 store: %w", err)
		}
		log.Printf("archive store: s3 bucket=%s endpoint=%s", s3Cfg.Bucket, s3Cfg.Endpoint)
		return s3Store, nil, nil
	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("archive backend postgres requires ARCHIVE_DATABASE_URL")
		}
		pg, err := archive.OpenPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open archive db: %w", err)
		}
		log.Printf("archive store: postgres")
		return pg, func(context.Context) error { pg.Close(); return nil }, nil
	case config.BackendMemory, "":
		log.Printf("archive store: in-memory")
		return archive.NewMemoryStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}
