package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/articleforge-backend/internal/data/db"
	articlerepos "github.com/yungbote/articleforge-backend/internal/data/repos/articles"
	"github.com/yungbote/articleforge-backend/internal/modules/articles/charts"
	"github.com/yungbote/articleforge-backend/internal/modules/articles/tags"
	"github.com/yungbote/articleforge-backend/internal/observability"
	"github.com/yungbote/articleforge-backend/internal/platform/logger"
	"github.com/yungbote/articleforge-backend/internal/services"
)

type Repos struct {
	ChartArtifact articlerepos.ChartArtifactRepo
}

type Services struct {
	ArticleFigures services.ArticleFiguresService
}

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Engine   *tags.Engine
	Repos    Repos
	Services Services

	storage      *storageProvider
	registry     *db.Service
	otelShutdown func(context.Context) error
}

// New loads configuration from the environment and wires the app.
func New() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, &BootstrapError{Stage: BootstrapStageConfig, Code: BootstrapErrorInvalidConfig, Cause: err}
	}
	return NewWithConfig(context.Background(), cfg)
}

func NewWithConfig(ctx context.Context, cfg Config) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, &BootstrapError{Stage: BootstrapStageLogger, Code: BootstrapErrorInvalidConfig, Cause: fmt.Errorf("init logger: %w", err)}
	}
	a := &App{Log: log, Cfg: cfg}

	a.otelShutdown = observability.InitOTel(ctx, log, cfg.Otel)

	theme, err := charts.LoadTheme(cfg.ChartThemePath)
	if err != nil {
		a.Close()
		return nil, &BootstrapError{Stage: BootstrapStageTheme, Code: BootstrapErrorInvalidConfig, Cause: err}
	}

	storage, err := resolveStorageProvider(ctx, log, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	storage.withListingCache(ctx, log, cfg)
	a.storage = storage

	if cfg.RegistryEnabled() {
		reg, err := db.Open(log, cfg.DatabaseDriver, cfg.DatabaseDSN)
		if err != nil {
			a.Close()
			return nil, &BootstrapError{Stage: BootstrapStageRegistry, Code: BootstrapErrorConnectFailed, Mode: cfg.DatabaseDriver, Cause: err}
		}
		a.registry = reg
		if err := db.AutoMigrateAll(reg.DB()); err != nil {
			a.Close()
			return nil, &BootstrapError{Stage: BootstrapStageRegistry, Code: BootstrapErrorConnectFailed, Mode: cfg.DatabaseDriver, Cause: err}
		}
		a.DB = reg.DB()
		a.Repos.ChartArtifact = articlerepos.NewChartArtifactRepo(a.DB, log)
	} else {
		log.Info("chart artifact registry disabled (DATABASE_DSN not set)")
	}

	a.Engine = tags.NewEngine(log, storage.Store)
	a.Services.ArticleFigures = services.NewArticleFiguresService(
		log,
		a.Engine,
		storage.Lister,
		a.Repos.ChartArtifact,
		services.ArticleFiguresConfig{
			Render: charts.RenderConfig{
				Format:         cfg.ChartFormat,
				Theme:          theme,
				PersistTimeout: cfg.PersistTimeout,
			},
			ListingTimeout:   cfg.ListingTimeout,
			MaxWorkers:       cfg.RenderConcurrency,
			UploadURL:        storage.UploadURL,
			UploadsURLPrefix: cfg.UploadsURLPrefix,
		},
	)
	return a, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil && a.Log != nil {
			a.Log.Warn("storage close failed", "error", err)
		}
		a.storage = nil
	}
	if a.registry != nil {
		if err := a.registry.Close(); err != nil && a.Log != nil {
			a.Log.Warn("registry close failed", "error", err)
		}
		a.registry = nil
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
		a.otelShutdown = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
