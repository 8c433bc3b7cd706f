package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicly/labeler/internal/config"
	"github.com/tropicly/labeler/internal/model"
)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.PostgresConfig{
		Host:     "db",
		Port:     "5433",
		Username: "u",
		Password: "p",
		Database: "labels",
	})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=labels sslmode=disable", dsn)
}

func TestOpenSqlite_FileAndSetup(t *testing.T) {
	m := NewManager(zerolog.Nop())
	path := filepath.Join(t.TempDir(), "labels.db")

	db, err := m.OpenSqlite(path)
	require.NoError(t, err)
	require.NoError(t, m.Setup(db))

	assert.True(t, db.Migrator().HasTable(&model.LabelSession{}))
	assert.True(t, db.Migrator().HasTable(&model.LabeledSample{}))
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	m := NewManager(zerolog.Nop())
	db, err := m.OpenSqlite(filepath.Join(t.TempDir(), "source.db"))
	require.NoError(t, err)
	require.NoError(t, m.Setup(db))

	out := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0644))

	require.NoError(t, m.DumpMemoryDBToDisk(db, out))

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(len("stale")))

	dumped, err := m.OpenSqlite(out)
	require.NoError(t, err)
	assert.True(t, dumped.Migrator().HasTable(&model.LabelSession{}))
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	m := NewManager(zerolog.Nop())
	err := m.DumpMemoryDBToDisk(nil, "")
	assert.Error(t, err)
}
