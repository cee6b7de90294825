package articles

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ChartArtifact records a raster chart persisted for an article. The
// artifact itself lives in object storage under StorageKey.
type ChartArtifact struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ArticleID      string         `gorm:"column:article_id;not null;uniqueIndex:idx_chart_artifact_article_key,priority:1" json:"article_id"`
	ChartID        string         `gorm:"column:chart_id;not null" json:"chart_id"`
	StorageKey     string         `gorm:"column:storage_key;not null;uniqueIndex:idx_chart_artifact_article_key,priority:2" json:"storage_key"`
	URL            string         `gorm:"column:url" json:"url"`
	Format         string         `gorm:"column:format;not null" json:"format"` // png
	DescriptorHash string         `gorm:"column:descriptor_hash;not null;index" json:"descriptor_hash"`
	Reused         bool           `gorm:"column:reused" json:"reused"`
	Metadata       datatypes.JSON `gorm:"column:metadata" json:"metadata"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ChartArtifact) TableName() string { return "chart_artifact" }
