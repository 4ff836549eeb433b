package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/OCAP2/dockyard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     "5432",
		Username: "postgres",
		Password: "secret",
		Database: "dockyard",
	}
	assert.Equal(t, "host=localhost port=5432 user=postgres password=secret dbname=dockyard sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func TestSetup_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	db, err := OpenSQLite(path)
	require.NoError(t, err)

	require.NoError(t, Setup(db, "Test Station", nil))
	// second run must not insert a second info row
	require.NoError(t, Setup(db, "Test Station", nil))

	var infos []model.StationInfo
	require.NoError(t, db.Find(&infos).Error)
	require.Len(t, infos, 1)
	assert.Equal(t, "Test Station", infos[0].StationName)

	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	dir := t.TempDir()
	src, err := OpenSQLite(filepath.Join(dir, "src.db"))
	require.NoError(t, err)
	require.NoError(t, Setup(src, "Dump Station", nil))

	out := filepath.Join(dir, "out.db")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0o644))
	require.NoError(t, DumpMemoryDBToDisk(src, out))

	dumped, err := OpenSQLite(out)
	require.NoError(t, err)
	var info model.StationInfo
	require.NoError(t, dumped.First(&info).Error)
	assert.Equal(t, "Dump Station", info.StationName)

	assert.Error(t, DumpMemoryDBToDisk(src, ""))
}

func TestJournalFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.db", "b.DB", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.db"), 0o755))

	files, err := JournalFiles(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.db"), filepath.Join(dir, "b.DB")}, files)

	_, err = JournalFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
