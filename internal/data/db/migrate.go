package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/articleforge-backend/internal/domain/articles"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&articles.ChartArtifact{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
