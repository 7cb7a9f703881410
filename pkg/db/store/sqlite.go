package store

import (
	"context"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/heroku-miraheze/ed2kd/pkg/db/migrations"
	"github.com/heroku-miraheze/ed2kd/pkg/db/models"
	"github.com/heroku-miraheze/ed2kd/pkg/ed2k"
	"github.com/heroku-miraheze/ed2kd/pkg/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultDSN is the shared-cache in-memory catalog database. Every
// pooled connection sees the same store, and the catalog disappears
// with the process, which is all the lifetime it needs.
const DefaultDSN = "file:ed2kd-catalog?mode=memory&cache=shared" + DSNPragmas

// DSNPragmas configure the engine per connection: journaling off (the
// data is rebuilt from live announcements), trigger cascades on for
// counter maintenance and pruning, and a busy timeout for writer
// contention. Appended to file-backed DSNs as well so tests and
// tooling get the same engine behavior.
const DSNPragmas = "&_pragma=synchronous(0)&_pragma=journal_mode(off)&_pragma=recursive_triggers(1)&_pragma=busy_timeout(10000)"

// SQLiteStore implements CatalogStore using SQLite
type SQLiteStore struct {
	db  *gorm.DB
	dsn string
	log log.LoggerService
}

// DB returns the underlying GORM database instance
func (s *SQLiteStore) DB() *gorm.DB {
	return s.db
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	DSN          string
	MaxOpenConns int
	Logger       log.LoggerService
	LogLevel     logger.LogLevel
}

// NewSQLiteStore creates a new SQLite-backed catalog store
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.DSN == "" {
		cfg.DSN = DefaultDSN
	}

	// Default to silent logging
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Silent
	}

	db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(cfg.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	store := &SQLiteStore{
		db:  db,
		dsn: cfg.DSN,
		log: cfg.Logger,
	}
	store.configurePool(cfg.MaxOpenConns)
	return store, nil
}

func (s *SQLiteStore) configurePool(maxOpen int) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}

	if maxOpen <= 0 {
		maxOpen = 1 // SQLite only supports 1 writer
	}
	sqlDB.SetMaxOpenConns(maxOpen)

	// An in-memory shared-cache database lives only while at least
	// one connection stays open, so connections are never idled out
	// or recycled.
	sqlDB.SetMaxIdleConns(maxOpen)
	sqlDB.SetConnMaxLifetime(0)
}

// Connect initializes the database connection
func (s *SQLiteStore) Connect(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return migrations.NewMigrator(s.db).Migrate(ctx)
}

// Health checks database connectivity
func (s *SQLiteStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Reset wipes the catalog. Sources go first; their delete triggers
// reverse the counters and prune the file records together with the
// name index entries.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Exec("DELETE FROM sources").Error; err != nil {
		return fmt.Errorf("reset sources: %w: %v", ErrStorageEngine, err)
	}
	if err := s.db.WithContext(ctx).Exec("DELETE FROM files").Error; err != nil {
		return fmt.Errorf("reset files: %w: %v", ErrStorageEngine, err)
	}
	return nil
}

// Catalog mutations

// ShareFiles registers owner as a source for each named input. Every
// record runs as one atomic unit: update-or-insert the file, then
// insert the source row whose trigger applies the counter deltas.
func (s *SQLiteStore) ShareFiles(ctx context.Context, owner Endpoint, inputs []FileShareInput) error {
	sid := int64(owner.Key())

	for i := range inputs {
		in := &inputs[i]
		if in.Name == "" {
			// Placeholder entry, not an error.
			continue
		}

		fid := int64(ed2k.FileKey(in.Hash))
		ext := ed2k.FileExtension(in.Name)

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.FileRecord{}).Where("fid = ?", fid).Updates(map[string]any{
				"name":     in.Name,
				"ext":      ext,
				"size":     in.Size,
				"type":     uint8(in.Type),
				"mlength":  in.MediaLength,
				"mbitrate": in.MediaBitrate,
				"mcodec":   in.MediaCodec,
			})
			if res.Error != nil {
				return res.Error
			}

			if res.RowsAffected == 0 {
				record := models.FileRecord{
					FID:          fid,
					Hash:         in.Hash[:],
					Name:         in.Name,
					Ext:          ext,
					Size:         in.Size,
					Type:         uint8(in.Type),
					MediaLength:  in.MediaLength,
					MediaBitrate: in.MediaBitrate,
					MediaCodec:   in.MediaCodec,
				}
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
			}

			source := models.SourceRecord{
				FID:    fid,
				SID:    sid,
				Rating: int(in.Rating),
			}
			if in.Complete {
				source.Complete = 1
			}
			return tx.Create(&source).Error
		})
		if err != nil {
			if s.log != nil {
				s.log.Error("failed to share file (fid=%#x sid=%#x): %v", uint64(fid), uint64(sid), err)
			}
			return fmt.Errorf("share file %#x: %w: %v", uint64(fid), ErrStorageEngine, err)
		}
	}

	return nil
}

// RemoveSourcesForOwner deletes every source row announced by owner.
// The delete trigger reverses the counter deltas per row and prunes
// files left without sources.
func (s *SQLiteStore) RemoveSourcesForOwner(ctx context.Context, owner Endpoint) error {
	sid := int64(owner.Key())

	err := s.db.WithContext(ctx).Where("sid = ?", sid).Delete(&models.SourceRecord{}).Error
	if err != nil {
		if s.log != nil {
			s.log.Error("failed to remove sources (sid=%#x): %v", uint64(sid), err)
		}
		return fmt.Errorf("remove sources %#x: %w: %v", uint64(sid), ErrStorageEngine, err)
	}
	return nil
}

// SourcesForFile returns up to limit live sources for the file with
// the given content hash, in the engine's natural order.
func (s *SQLiteStore) SourcesForFile(ctx context.Context, hash [ed2k.HashSize]byte, limit int) ([]Endpoint, error) {
	if limit <= 0 {
		return nil, nil
	}

	fid := int64(ed2k.FileKey(hash))

	var sids []int64
	err := s.db.WithContext(ctx).
		Model(&models.SourceRecord{}).
		Where("fid = ?", fid).
		Limit(limit).
		Pluck("sid", &sids).Error
	if err != nil {
		return nil, fmt.Errorf("get sources %#x: %w: %v", uint64(fid), ErrStorageEngine, err)
	}

	endpoints := make([]Endpoint, len(sids))
	for i, sid := range sids {
		endpoints[i] = EndpointFromKey(uint64(sid))
	}
	return endpoints, nil
}
