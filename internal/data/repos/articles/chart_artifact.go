package articles

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/articleforge-backend/internal/domain/articles"
	"github.com/yungbote/articleforge-backend/internal/platform/dbctx"
	"github.com/yungbote/articleforge-backend/internal/platform/logger"
)

type ChartArtifactRepo interface {
	// Create inserts rows, skipping any whose (article_id, storage_key)
	// is already registered.
	Create(dbc dbctx.Context, rows []*types.ChartArtifact) ([]*types.ChartArtifact, error)

	GetByArticle(dbc dbctx.Context, articleID string) ([]*types.ChartArtifact, error)
	GetByStorageKeys(dbc dbctx.Context, articleID string, storageKeys []string) ([]*types.ChartArtifact, error)

	DeleteByArticle(dbc dbctx.Context, articleID string) error
}

type chartArtifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChartArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ChartArtifactRepo {
	return &chartArtifactRepo{db: db, log: baseLog.With("repo", "ChartArtifactRepo")}
}

func (r *chartArtifactRepo) Create(dbc dbctx.Context, rows []*types.ChartArtifact) ([]*types.ChartArtifact, error) {
	t := dbc.DB(r.db)
	if len(rows) == 0 {
		return []*types.ChartArtifact{}, nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
	}
	err := t.WithContext(dbc.Context()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "article_id"}, {Name: "storage_key"}},
			DoNothing: true,
		}).
		Create(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *chartArtifactRepo) GetByArticle(dbc dbctx.Context, articleID string) ([]*types.ChartArtifact, error) {
	t := dbc.DB(r.db)
	var out []*types.ChartArtifact
	if articleID == "" {
		return out, nil
	}
	if err := t.WithContext(dbc.Context()).
		Where("article_id = ?", articleID).
		Order("created_at ASC, storage_key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chartArtifactRepo) GetByStorageKeys(dbc dbctx.Context, articleID string, storageKeys []string) ([]*types.ChartArtifact, error) {
	t := dbc.DB(r.db)
	var out []*types.ChartArtifact
	if articleID == "" || len(storageKeys) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Context()).
		Where("article_id = ? AND storage_key IN ?", articleID, storageKeys).
		Order("storage_key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chartArtifactRepo) DeleteByArticle(dbc dbctx.Context, articleID string) error {
	t := dbc.DB(r.db)
	if articleID == "" {
		return nil
	}
	return t.WithContext(dbc.Context()).
		Where("article_id = ?", articleID).
		Delete(&types.ChartArtifact{}).Error
}
