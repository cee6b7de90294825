package app

import (
	"context"
	"fmt"

	"github.com/yungbote/articleforge-backend/internal/modules/articles/artifacts"
	"github.com/yungbote/articleforge-backend/internal/platform/gcp"
	"github.com/yungbote/articleforge-backend/internal/platform/logger"
	"github.com/yungbote/articleforge-backend/internal/platform/rediscache"
	"github.com/yungbote/articleforge-backend/internal/services"
)

var (
	newArtifactBucket          = gcp.NewArtifactBucket
	resolveObjectStorageConfig = gcp.ResolveObjectStorageConfigFromEnv
	newRedisClient             = rediscache.NewClient
)

// storageProvider is where charts are written and uploads are listed.
type storageProvider struct {
	Store  artifacts.Store
	Lister services.FileLister
	// UploadURL is nil for local storage; uploads are then served from
	// UPLOADS_URL_PREFIX.
	UploadURL func(scope, name string) string
	closers   []func() error
}

func resolveStorageProvider(ctx context.Context, log *logger.Logger, cfg Config) (*storageProvider, error) {
	log.Info("Selecting artifact store", "mode", cfg.ArtifactStoreMode)

	switch cfg.ArtifactStoreMode {
	case ArtifactStoreLocal:
		store, err := artifacts.NewLocalStore(cfg.ArtifactLocalDir, cfg.ArtifactURLPrefix)
		if err != nil {
			return nil, &BootstrapError{Stage: BootstrapStageArtifactStore, Code: BootstrapErrorInvalidConfig, Mode: cfg.ArtifactStoreMode, Cause: err}
		}
		return &storageProvider{
			Store:  store,
			Lister: services.NewDirLister(cfg.UploadsDir),
		}, nil

	case ArtifactStoreGCS:
		storageCfg, err := resolveObjectStorageConfig()
		if err != nil {
			classified := classifyObjectStorageError(string(storageCfg.Mode), err)
			log.Error("Object storage config invalid", "mode", storageCfg.Mode, "error_code", classified.Code, "error", err)
			return nil, classified
		}
		bucket, err := newArtifactBucket(ctx, log, storageCfg)
		if err != nil {
			classified := classifyObjectStorageError(string(storageCfg.Mode), err)
			log.Error(
				"Object storage provider bootstrap failed",
				"mode", storageCfg.Mode,
				"mode_source", storageCfg.ModeSource(),
				"emulator_host", storageCfg.EmulatorHost,
				"error_code", classified.Code,
				"error", err,
			)
			return nil, classified
		}
		return &storageProvider{
			Store:     bucket,
			Lister:    services.ListerFunc(bucket.ListNames),
			UploadURL: bucket.URLForScope,
			closers:   []func() error{bucket.Close},
		}, nil

	default:
		return nil, &BootstrapError{
			Stage: BootstrapStageArtifactStore,
			Code:  BootstrapErrorInvalidMode,
			Mode:  cfg.ArtifactStoreMode,
			Cause: fmt.Errorf("unsupported artifact store mode %q", cfg.ArtifactStoreMode),
		}
	}
}

// withListingCache wraps the lister in a Redis cache when REDIS_ADDR is
// set. An unreachable Redis is logged and the lister is used uncached.
func (p *storageProvider) withListingCache(ctx context.Context, log *logger.Logger, cfg Config) {
	if cfg.RedisAddr == "" || p.Lister == nil {
		return
	}
	rdb, err := newRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		log.Warn("listing cache disabled", "redis_addr", cfg.RedisAddr, "error", err)
		return
	}
	p.Lister = rediscache.NewListingCache(log, rdb, p.Lister, cfg.ListingCacheTTL)
	p.closers = append(p.closers, rdb.Close)
	log.Info("listing cache enabled", "redis_addr", cfg.RedisAddr, "ttl", cfg.ListingCacheTTL.String())
}

func (p *storageProvider) Close() error {
	var first error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	p.closers = nil
	return first
}
