package database

import (
	"fmt"

	"gorm.io/gorm"
)

// MigrateSchema creates the listings table and its indexes.
func MigrateSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&listingRecord{}); err != nil {
		return fmt.Errorf("failed to migrate listings table: %w", err)
	}

	// Create spatial index on coordinates
	err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_listings_coordinates
		ON listings(latitude, longitude);
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create coordinates index: %w", err)
	}

	return nil
}

func (d *Database) RunMigrations() error {
	return MigrateSchema(d.db)
}
