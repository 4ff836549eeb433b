package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/dockyard/internal/database"
	"github.com/OCAP2/dockyard/internal/model"
	"github.com/OCAP2/dockyard/internal/storage"
	"github.com/OCAP2/dockyard/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface checks
var (
	_ storage.Backend    = (*Backend)(nil)
	_ storage.Uploadable = (*Backend)(nil)
)

func TestBackend_DumpOnClose(t *testing.T) {
	dir := t.TempDir()
	dump := filepath.Join(dir, "journal.db")

	b, err := New(Config{
		Path:          filepath.Join(dir, "live.db"),
		DumpPath:      dump,
		FlushInterval: time.Hour,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())

	start := time.Now().Add(-time.Minute)
	s := &core.Session{UUID: "sqlite-session", Name: "dump test", StartTime: start}
	require.NoError(t, b.StartSession(s))

	for _, id := range []string{"m-1", "m-1", "m-2"} {
		require.NoError(t, b.RecordModuleEvent(&core.ModuleEvent{Type: core.EventLaunched, ModuleID: id}))
	}
	require.NoError(t, b.RecordModuleEvent(&core.ModuleEvent{Type: core.EventRejected}))
	require.NoError(t, b.EndSession())
	require.NoError(t, b.Close())

	_, err = os.Stat(dump)
	require.NoError(t, err)
	assert.Equal(t, dump, b.GetExportedFilePath())

	meta := b.GetExportMetadata()
	assert.Equal(t, "dump test", meta.SessionName)
	assert.Equal(t, "sqlite-session", meta.SessionUUID)
	assert.Equal(t, 4, meta.EventCount)
	assert.Equal(t, 2, meta.ModuleCount)
	assert.Greater(t, meta.Duration, 59.0)

	dumped, err := database.OpenSQLite(dump)
	require.NoError(t, err)
	var count int64
	require.NoError(t, dumped.Model(&model.ModuleEvent{}).Count(&count).Error)
	assert.Equal(t, int64(4), count)
}

func TestBackend_NoDumpPath(t *testing.T) {
	b, err := New(Config{Path: filepath.Join(t.TempDir(), "live.db")}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())

	assert.Empty(t, b.GetExportedFilePath())
	assert.Equal(t, storage.UploadMetadata{}, b.GetExportMetadata())
}
