// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend via composition; the SQLite-specific concerns are
// creating the in-memory DB and the periodic disk dump.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/OCAP2/dockyard/internal/database"
	"github.com/OCAP2/dockyard/internal/model"
	"github.com/OCAP2/dockyard/internal/storage"
	gormstorage "github.com/OCAP2/dockyard/internal/storage/gorm"
	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path          string // database file, empty for in-memory
	DumpInterval  time.Duration
	DumpPath      string // Path for periodic VACUUM INTO dumps
	StationName   string
	FlushInterval time.Duration
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	log      *slog.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new SQLite storage backend.
func New(cfg Config, log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := database.OpenSQLite(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite DB: %w", err)
	}
	if cfg.Path == "" {
		log.Info("Using local SQLite DB in memory with periodic disk dump", "dumpPath", cfg.DumpPath)
	} else {
		log.Info("Using local SQLite DB", "path", cfg.Path)
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:            db,
		StationName:   cfg.StationName,
		FlushInterval: cfg.FlushInterval,
		Logger:        log,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	} else {
		close(b.done)
	}

	return nil
}

// Close stops the dump goroutine, closes the embedded GORM backend and
// writes a final dump.
func (b *Backend) Close() error {
	close(b.stopChan)
	<-b.done
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.cfg.DumpPath != "" {
		return b.Dump()
	}
	return nil
}

// Dump writes a point-in-time copy of the database to DumpPath.
func (b *Backend) Dump() error {
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.log.Debug("Dumped journal to disk", "path", b.cfg.DumpPath, "duration", time.Since(start))
	return nil
}

// GetExportedFilePath implements storage.Uploadable.
func (b *Backend) GetExportedFilePath() string {
	return b.cfg.DumpPath
}

// GetExportMetadata implements storage.Uploadable. It describes the most
// recent session in the journal.
func (b *Backend) GetExportMetadata() storage.UploadMetadata {
	var session model.Session
	if err := b.db.Order("id desc").First(&session).Error; err != nil {
		return storage.UploadMetadata{}
	}

	meta := storage.UploadMetadata{
		SessionName: session.Name,
		SessionUUID: session.UUID,
	}
	if session.EndTime != nil {
		meta.Duration = session.EndTime.Sub(session.StartTime).Seconds()
	}

	var events, modules int64
	b.db.Model(&model.ModuleEvent{}).Where("session_id = ?", session.ID).Count(&events)
	b.db.Model(&model.ModuleEvent{}).Where("session_id = ? AND module_id <> ''", session.ID).
		Distinct("module_id").Count(&modules)
	meta.EventCount = int(events)
	meta.ModuleCount = int(modules)
	return meta
}

// dumpLoop periodically dumps the SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.Flush()
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}
