// Package postgres implements the storage.Backend interface on a PostgreSQL
// server through the shared GORM backend.
package postgres

import (
	"fmt"

	"github.com/tropicly/labeler/internal/config"
	"github.com/tropicly/labeler/internal/database"
	"github.com/tropicly/labeler/internal/logging"
	gormstorage "github.com/tropicly/labeler/internal/storage/gorm"
	"github.com/tropicly/labeler/pkg/core"
)

// Backend connects lazily on Init and then delegates to the GORM backend.
type Backend struct {
	cfg  config.PostgresConfig
	mgr  *database.Manager
	log  *logging.SlogManager
	gorm *gormstorage.Backend
}

// New creates a new Postgres storage backend.
func New(cfg config.PostgresConfig, mgr *database.Manager, logManager *logging.SlogManager) *Backend {
	return &Backend{
		cfg: cfg,
		mgr: mgr,
		log: logManager,
	}
}

// Init connects and migrates the schema.
func (b *Backend) Init() error {
	db, err := b.mgr.OpenPostgres(b.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}

	g := gormstorage.New(gormstorage.Dependencies{
		DB:         db,
		Manager:    b.mgr,
		LogManager: b.log,
	})
	if err := g.Init(); err != nil {
		_ = g.Close()
		return err
	}
	b.gorm = g

	b.log.WriteLog("postgres:Init", fmt.Sprintf("Storing sessions in %s@%s", b.cfg.Database, b.cfg.Host), "INFO")
	return nil
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	if b.gorm == nil {
		return nil
	}
	return b.gorm.Close()
}

// Save persists the snapshot.
func (b *Backend) Save(snap core.Snapshot) error {
	if b.gorm == nil {
		return fmt.Errorf("postgres backend not initialized")
	}
	return b.gorm.Save(snap)
}

// Restore loads the session saved for fileName.
func (b *Backend) Restore(fileName string) (core.Snapshot, error) {
	if b.gorm == nil {
		return core.Snapshot{}, fmt.Errorf("postgres backend not initialized")
	}
	return b.gorm.Restore(fileName)
}
