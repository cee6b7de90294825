package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/articleforge-backend/internal/data/db"
	"github.com/yungbote/articleforge-backend/internal/modules/articles/charts"
	"github.com/yungbote/articleforge-backend/internal/observability"
	"github.com/yungbote/articleforge-backend/internal/platform/envutil"
	"github.com/yungbote/articleforge-backend/internal/platform/rediscache"
)

const (
	ArtifactStoreLocal = "local"
	ArtifactStoreGCS   = "gcs"
)

type Config struct {
	LogMode     string
	Environment string

	ArtifactStoreMode string
	ArtifactLocalDir  string
	ArtifactURLPrefix string
	UploadsDir        string
	UploadsURLPrefix  string

	ChartFormat       charts.Format
	ChartThemePath    string
	RenderConcurrency int
	ListingTimeout    time.Duration
	PersistTimeout    time.Duration

	RedisAddr       string
	ListingCacheTTL time.Duration

	DatabaseDriver string
	DatabaseDSN    string

	Otel observability.OtelConfig
}

// LoadConfig reads the environment. Object storage settings are read
// separately, and only when ARTIFACT_STORE_MODE=gcs.
func LoadConfig() (Config, error) {
	cfg := Config{
		LogMode:     envutil.String("LOG_MODE", "development"),
		Environment: envutil.String("APP_ENV", "local"),

		ArtifactStoreMode: strings.ToLower(envutil.String("ARTIFACT_STORE_MODE", ArtifactStoreLocal)),
		ArtifactLocalDir:  envutil.String("ARTIFACT_LOCAL_DIR", "./data/charts"),
		ArtifactURLPrefix: envutil.String("ARTIFACT_URL_PREFIX", "/charts"),
		UploadsDir:        envutil.String("UPLOADS_DIR", "./data/uploads"),
		UploadsURLPrefix:  envutil.String("UPLOADS_URL_PREFIX", "/uploads"),

		ChartThemePath:    envutil.String("CHART_THEME_PATH", ""),
		RenderConcurrency: envutil.Int("CHART_RENDER_CONCURRENCY", 4),
		ListingTimeout:    envutil.Millis("LISTING_TIMEOUT_MS", 5*time.Second),
		PersistTimeout:    envutil.Millis("PERSIST_TIMEOUT_MS", 15*time.Second),

		RedisAddr:       envutil.String("REDIS_ADDR", ""),
		ListingCacheTTL: time.Duration(envutil.Int("LISTING_CACHE_TTL_SECONDS", 5)) * time.Second,

		DatabaseDriver: strings.ToLower(envutil.String("DATABASE_DRIVER", db.DriverSQLite)),
		DatabaseDSN:    envutil.String("DATABASE_DSN", ""),
	}
	cfg.Otel = observability.OtelConfigFromEnv("articleforge", cfg.Environment)

	rawFormat := envutil.String("CHART_FORMAT", "")
	format, ok := charts.ParseFormat(rawFormat)
	if !ok {
		return cfg, fmt.Errorf("invalid CHART_FORMAT=%q (allowed: svg, png)", rawFormat)
	}
	cfg.ChartFormat = format

	switch cfg.ArtifactStoreMode {
	case ArtifactStoreLocal, ArtifactStoreGCS:
	default:
		return cfg, fmt.Errorf("invalid ARTIFACT_STORE_MODE=%q (allowed: %s, %s)", cfg.ArtifactStoreMode, ArtifactStoreLocal, ArtifactStoreGCS)
	}
	if cfg.RenderConcurrency <= 0 {
		cfg.RenderConcurrency = 4
	}
	if cfg.ListingCacheTTL <= 0 {
		cfg.ListingCacheTTL = rediscache.DefaultTTL
	}
	return cfg, nil
}

// RegistryEnabled reports whether chart artifacts are recorded in a database.
func (c Config) RegistryEnabled() bool {
	return strings.TrimSpace(c.DatabaseDSN) != ""
}
