package db

import (
	"gorm.io/gorm"

	"github.com/friendsincode/armory_media/internal/models"
)

// AutoMigrate applies the schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Weapon{},
		&models.MediaAsset{},
	)
}
