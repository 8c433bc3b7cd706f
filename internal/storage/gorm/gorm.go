// Package gormstorage implements the storage.Backend interface on any GORM
// dialect. The sqlite and postgres backends wrap it.
package gormstorage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tropicly/labeler/internal/database"
	"github.com/tropicly/labeler/internal/logging"
	"github.com/tropicly/labeler/internal/model"
	"github.com/tropicly/labeler/internal/storage"
	"github.com/tropicly/labeler/pkg/core"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	Manager    *database.Manager
	LogManager *logging.SlogManager
}

// Backend implements storage.Backend using GORM.
type Backend struct {
	deps Dependencies
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("database not set")
	}
	return b.deps.Manager.Setup(b.deps.DB)
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	if b.deps.DB == nil {
		return nil
	}
	sqlDB, err := b.deps.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save replaces the stored session for the snapshot's file in one transaction.
func (b *Backend) Save(snap core.Snapshot) error {
	if b.deps.DB == nil {
		return fmt.Errorf("database not set")
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}

	session, err := model.SessionFromSnapshot(snap)
	if err != nil {
		return err
	}

	err = b.deps.DB.Transaction(func(tx *gorm.DB) error {
		var existing model.LabelSession
		if err := tx.Select("id").Where("file_name = ?", snap.FileName).Limit(1).Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to look up session: %w", err)
		}
		if existing.ID != 0 {
			if err := tx.Where("session_id = ?", existing.ID).Delete(&model.LabeledSample{}).Error; err != nil {
				return fmt.Errorf("failed to delete samples: %w", err)
			}
			if err := tx.Delete(&model.LabelSession{}, existing.ID).Error; err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
		}
		if err := tx.Create(&session).Error; err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.deps.LogManager.WriteLog("gorm:Save",
		fmt.Sprintf("Saved %d samples of %s (%d validated)", session.Total, session.FileName, session.Validated), "DEBUG")
	return nil
}

// Restore loads the session saved for fileName.
func (b *Backend) Restore(fileName string) (core.Snapshot, error) {
	if b.deps.DB == nil {
		return core.Snapshot{}, fmt.Errorf("database not set")
	}

	var session model.LabelSession
	err := b.deps.DB.
		Preload("Samples", func(db *gorm.DB) *gorm.DB {
			return db.Order("sample_index ASC")
		}).
		Where("file_name = ?", fileName).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.Snapshot{}, storage.ErrNotFound
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("failed to load session: %w", err)
	}
	return session.Snapshot()
}
