package postgres

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/dockyard/internal/database"
	"github.com/OCAP2/dockyard/internal/model"
	"github.com/OCAP2/dockyard/internal/storage"
	"github.com/OCAP2/dockyard/pkg/core"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func TestInit_InjectedDB(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "pg.db")), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())

	s := &core.Session{UUID: "pg-session", StartTime: time.Now()}
	require.NoError(t, b.StartSession(s))
	require.NoError(t, b.RecordModuleEvent(&core.ModuleEvent{Type: core.EventHubChanged, Name: "Central Station"}))
	require.NoError(t, b.Close())

	var count int64
	require.NoError(t, db.Model(&model.ModuleEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// the injected connection stays usable
	require.NoError(t, sqlDB.Ping())
}

func TestInit_ConnectFailure(t *testing.T) {
	b := New(Dependencies{Config: database.PostgresConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "nobody",
		Database: "none",
	}})
	err := b.Init()
	assert.Error(t, err)
	assert.NoError(t, b.Close())
}
