package main

import (
	"fmt"

	"github.com/tropicly/labeler/internal/config"
	"github.com/tropicly/labeler/internal/database"
	"github.com/tropicly/labeler/internal/storage"
	"github.com/tropicly/labeler/internal/storage/memory"
	pgstorage "github.com/tropicly/labeler/internal/storage/postgres"
	sqlitestorage "github.com/tropicly/labeler/internal/storage/sqlite"
)

// initStorage creates and initializes the configured backend. It returns nil
// when storage is disabled.
func initStorage(storageCfg config.StorageConfig) (storage.Backend, error) {
	backend, err := createStorageBackend(storageCfg)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if backend == nil {
		return nil, nil
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		return nil, err
	}
	return backend, nil
}

func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "none":
		Logger.Info("Session storage disabled")
		return nil, nil

	case "postgres":
		Logger.Info("Postgres storage backend initialized")
		return pgstorage.New(storageCfg.Postgres, database.NewManager(SlogManager.Zerolog("database")), SlogManager), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, database.NewManager(SlogManager.Zerolog("database")), SlogManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend initialized", "dumpPath", storageCfg.SQLite.DumpPath)
		return backend, nil

	case "memory", "":
		Logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", storageCfg.Type)
	}
}
