package database

import (
	"github.com/devportal/engine/internal/models"
	"gorm.io/gorm"
)

// registerModels returns all models that need migration
func registerModels() []interface{} {
	return []interface{}{
		// Catalog (owned by the CMS, mirrored here)
		&models.Workspace{},
		&models.Application{},
		&models.ServiceAccount{},
		&models.Topic{},

		// Lineage
		&models.LineageEdge{},
	}
}

// Migrate executes all schema migrations.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(registerModels()...); err != nil {
		return err
	}
	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		enableUUIDExtension,
		addActiveEdgeIndex,
		addCrossWorkspaceIndexes,
	}

	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}

	return nil
}

func enableUUIDExtension(db *gorm.DB) error {
	if db.Dialector.Name() != DriverPostgres {
		return nil
	}
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error
}

// addActiveEdgeIndex backs the stale-edge sweep.
func addActiveEdgeIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_lineage_edges_active_last_seen
		ON lineage_edges(last_seen)
		WHERE is_active = true
	`).Error
}

// addCrossWorkspaceIndexes backs the inbound and outbound cross-workspace queries,
// which are issued separately.
func addCrossWorkspaceIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_lineage_edges_cross_inbound
		ON lineage_edges(target_workspace_id, last_seen)
		WHERE is_cross_workspace = true
	`).Error; err != nil {
		return err
	}
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_lineage_edges_cross_outbound
		ON lineage_edges(source_workspace_id, last_seen)
		WHERE is_cross_workspace = true
	`).Error
}
