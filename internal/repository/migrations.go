package repository

import (
	"github.com/fdk/resource-service/internal/models"
	"gorm.io/gorm"
)

// registerModels returns all models that need migration
func registerModels() []interface{} {
	return []interface{}{
		&models.Resource{},
		&models.UnionGraphOrder{},
	}
}

// Migrate creates or updates the schema and the indexes AutoMigrate can't express.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(registerModels()...); err != nil {
		return err
	}
	migrations := []func(*gorm.DB) error{
		addResourceIndexes,
		addOrderIndexes,
		dropResourceJSONIndex,
	}
	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}
	return nil
}

// addResourceIndexes covers the paged type scan of the graph builder and URI lookups.
func addResourceIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_resources_type_id_active
		ON resources(resource_type, id)
		WHERE deleted = false
	`).Error; err != nil {
		return err
	}
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_resources_uri_active
		ON resources(uri, "timestamp")
		WHERE deleted = false
	`).Error
}

// addOrderIndexes keeps claims, stale sweeps and dedup lookups off full scans.
func addOrderIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_union_graphs_pending
		ON union_graphs(created_at)
		WHERE status = 'PENDING'`,
		`CREATE INDEX IF NOT EXISTS idx_union_graphs_processing_locked
		ON union_graphs(locked_at)
		WHERE status = 'PROCESSING'`,
		`CREATE INDEX IF NOT EXISTS idx_union_graphs_config_status
		ON union_graphs(config_key, status)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// dropResourceJSONIndex removes the GIN index on resource_json from older schemas. Filters
// are evaluated in the builder, so no query reads it.
func dropResourceJSONIndex(db *gorm.DB) error {
	return db.Exec(`DROP INDEX IF EXISTS idx_resources_json_gin`).Error
}
