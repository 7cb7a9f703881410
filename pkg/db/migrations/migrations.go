package migrations

import (
	"context"
	"fmt"

	"github.com/heroku-miraheze/ed2kd/pkg/db/models"
	"gorm.io/gorm"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	Up          func(*gorm.DB) error
	Down        func(*gorm.DB) error
}

// migrationHistory tracks applied migrations
type migrationHistory struct {
	ID          uint   `gorm:"primaryKey"`
	Version     int    `gorm:"uniqueIndex;not null"`
	Description string `gorm:"type:text"`
	AppliedAt   int64  `gorm:"autoCreateTime"`
}

// Migrator handles database migrations
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

// NewMigrator creates a new migrator instance
func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{
		db:         db,
		migrations: allMigrations(),
	}
}

// Migrate runs all pending migrations
func (m *Migrator) Migrate(ctx context.Context) error {
	// Ensure migration history table exists
	if err := m.db.WithContext(ctx).AutoMigrate(&migrationHistory{}); err != nil {
		return fmt.Errorf("failed to create migration history table: %w", err)
	}

	// Get applied migrations
	var applied []migrationHistory
	if err := m.db.WithContext(ctx).Find(&applied).Error; err != nil {
		return fmt.Errorf("failed to query migration history: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for _, a := range applied {
		appliedVersions[a.Version] = true
	}

	// Run pending migrations
	for _, migration := range m.migrations {
		if appliedVersions[migration.Version] {
			continue
		}

		if err := m.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Description, err)
		}
	}

	return nil
}

// Rollback rolls back the last applied migration
func (m *Migrator) Rollback(ctx context.Context) error {
	// Get last applied migration
	var last migrationHistory
	if err := m.db.WithContext(ctx).Order("version DESC").First(&last).Error; err != nil {
		return fmt.Errorf("no migrations to rollback: %w", err)
	}

	// Find migration
	var migration *Migration
	for _, m := range m.migrations {
		if m.Version == last.Version {
			migration = &m
			break
		}
	}

	if migration == nil {
		return fmt.Errorf("migration %d not found", last.Version)
	}

	// Run down migration
	if err := migration.Down(m.db.WithContext(ctx)); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	// Remove from history
	if err := m.db.WithContext(ctx).Delete(&last).Error; err != nil {
		return fmt.Errorf("failed to update migration history: %w", err)
	}

	return nil
}

// Status returns migration status
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	var applied []migrationHistory
	if err := m.db.WithContext(ctx).Find(&applied).Error; err != nil {
		return nil, fmt.Errorf("failed to query migration history: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for _, a := range applied {
		appliedVersions[a.Version] = true
	}

	var statuses []MigrationStatus
	for _, migration := range m.migrations {
		statuses = append(statuses, MigrationStatus{
			Version:     migration.Version,
			Description: migration.Description,
			Applied:     appliedVersions[migration.Version],
		})
	}

	return statuses, nil
}

// MigrationStatus represents the status of a migration
type MigrationStatus struct {
	Version     int
	Description string
	Applied     bool
}

func (m *Migrator) runMigration(ctx context.Context, migration Migration) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Run migration
		if err := migration.Up(tx); err != nil {
			return err
		}

		// Record in history
		history := migrationHistory{
			Version:     migration.Version,
			Description: migration.Description,
		}
		return tx.Create(&history).Error
	})
}

// catalogTriggers holds the derived-state maintenance the catalog
// delegates to the storage engine: counter adjustment on source
// insert/delete, pruning of files that lose their last source, and
// keeping the full-text name index in step with the files table.
const catalogTriggers = `
CREATE VIRTUAL TABLE IF NOT EXISTS fnames USING fts5 (
    name, content='files', content_rowid='fid', tokenize='unicode61'
);

CREATE TRIGGER IF NOT EXISTS sources_ai AFTER INSERT ON sources BEGIN
    UPDATE files SET srcavail=srcavail+1, srccomplete=srccomplete+new.complete,
        rating=rating+new.rating,
        rated_count=CASE WHEN new.rating<>0 THEN rated_count+1 ELSE rated_count END
    WHERE fid=new.fid;
END;

CREATE TRIGGER IF NOT EXISTS sources_bd BEFORE DELETE ON sources BEGIN
    UPDATE files SET srcavail=srcavail-1, srccomplete=srccomplete-old.complete,
        rating=rating-old.rating,
        rated_count=CASE WHEN old.rating<>0 THEN rated_count-1 ELSE rated_count END
    WHERE fid=old.fid;
END;

CREATE TRIGGER IF NOT EXISTS files_prune AFTER UPDATE ON files WHEN new.srcavail=0 BEGIN
    DELETE FROM files WHERE fid=new.fid;
END;

CREATE TRIGGER IF NOT EXISTS fnames_ai AFTER INSERT ON files BEGIN
    INSERT INTO fnames(rowid, name) VALUES (new.fid, new.name);
END;

CREATE TRIGGER IF NOT EXISTS fnames_ad AFTER DELETE ON files BEGIN
    INSERT INTO fnames(fnames, rowid, name) VALUES ('delete', old.fid, old.name);
END;

CREATE TRIGGER IF NOT EXISTS fnames_au AFTER UPDATE OF name ON files WHEN new.name<>old.name BEGIN
    INSERT INTO fnames(fnames, rowid, name) VALUES ('delete', old.fid, old.name);
    INSERT INTO fnames(rowid, name) VALUES (new.fid, new.name);
END;
`

const dropCatalogTriggers = `
DROP TRIGGER IF EXISTS fnames_au;
DROP TRIGGER IF EXISTS fnames_ad;
DROP TRIGGER IF EXISTS fnames_ai;
DROP TRIGGER IF EXISTS files_prune;
DROP TRIGGER IF EXISTS sources_bd;
DROP TRIGGER IF EXISTS sources_ai;
DROP TABLE IF EXISTS fnames;
`

// allMigrations returns all migrations in order
func allMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Catalog tables",
			Up: func(db *gorm.DB) error {
				return db.AutoMigrate(
					&models.FileRecord{},
					&models.SourceRecord{},
				)
			},
			Down: func(db *gorm.DB) error {
				return db.Migrator().DropTable(
					&models.SourceRecord{},
					&models.FileRecord{},
				)
			},
		},
		{
			Version:     2,
			Description: "Name index and consistency triggers",
			Up: func(db *gorm.DB) error {
				return db.Exec(catalogTriggers).Error
			},
			Down: func(db *gorm.DB) error {
				return db.Exec(dropCatalogTriggers).Error
			},
		},
	}
}
