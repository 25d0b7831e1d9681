package db

import (
	"gorm.io/gorm"

	"github.com/platewise/platewise-backend/internal/types"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Restaurant core
		// =========================
		&types.Restaurant{},
		&types.RestaurantCuisine{},
		&types.ProviderRef{},
		&types.MenuCategory{},
		&types.MenuItem{},

		// =========================
		// Diet catalog + results
		// =========================
		&types.DietTag{},
		&types.DietInferenceResult{},
		&types.DietManualOverride{},

		// =========================
		// Sync infrastructure
		// =========================
		&types.ProviderFetchCache{},
		&types.ProviderCredential{},
		&types.SyncJob{},
		&types.SyncAlert{},
	)
}

func (s *PostgresService) AutoMigrateAll() error {
	return AutoMigrateAll(s.db)
}
