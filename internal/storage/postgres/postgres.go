// Package postgres implements the storage.Backend interface on PostgreSQL
// with PostGIS. It connects on Init and hands writing to the GORM backend.
package postgres

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/OCAP2/dockyard/internal/database"
	gormstorage "github.com/OCAP2/dockyard/internal/storage/gorm"
	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the Postgres storage backend.
type Dependencies struct {
	DB            *gorm.DB // injected connection, connects from Config when nil
	Config        database.PostgresConfig
	StationName   string
	FlushInterval time.Duration
	Logger        *slog.Logger
}

// Backend implements storage.Backend using GORM/PostgreSQL.
type Backend struct {
	*gormstorage.Backend
	deps Dependencies
}

// New creates a new Postgres storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Backend{deps: deps}
}

// Init connects (unless a DB was injected), validates the connection and
// starts the embedded GORM writer.
func (b *Backend) Init() error {
	db := b.deps.DB
	if db == nil {
		b.deps.Logger.Debug("Connecting to Postgres", "host", b.deps.Config.Host, "database", b.deps.Config.Database)

		var err error
		db, err = database.OpenPostgres(b.deps.Config)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.Logger.Info("Connected to database")
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:            db,
		StationName:   b.deps.StationName,
		FlushInterval: b.deps.FlushInterval,
		Logger:        b.deps.Logger,
	})
	return b.Backend.Init()
}

// Close stops the writer and releases the connection.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.deps.DB != nil {
		// injected connections belong to the caller
		return nil
	}
	sqlDB, err := b.Backend.DB().DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
