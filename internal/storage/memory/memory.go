// internal/storage/memory/memory.go
package memory

import (
	"sync"
	"time"

	"github.com/OCAP2/dockyard/internal/config"
	"github.com/OCAP2/dockyard/internal/storage"
	v1 "github.com/OCAP2/dockyard/internal/storage/memory/export/v1"
	"github.com/OCAP2/dockyard/pkg/core"
)

// Backend stores the session journal in memory and exports it to JSON
// when the session ends.
type Backend struct {
	cfg         config.MemoryConfig
	stationName string
	session     *core.Session
	endTime     time.Time

	modules map[string]*v1.ModuleRecord // keyed by module ID
	order   []*v1.ModuleRecord

	events        []core.ModuleEvent
	topology      []core.TopologySnapshot
	notifications []core.Notification

	lastExportPath string
	lastExportMeta storage.UploadMetadata
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		modules: make(map[string]*v1.ModuleRecord),
	}
}

// SetStationName labels exports with the station they came from.
func (b *Backend) SetStationName(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stationName = name
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports a session that was never ended
func (b *Backend) Close() error {
	b.mu.RLock()
	open := b.session != nil && b.endTime.IsZero()
	b.mu.RUnlock()
	if open {
		return b.EndSession()
	}
	return nil
}

// StartSession begins recording a new session
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = s
	b.endTime = time.Time{}

	// Reset all collections
	b.modules = make(map[string]*v1.ModuleRecord)
	b.order = nil
	b.events = nil
	b.topology = nil
	b.notifications = nil

	return nil
}

// EndSession finalizes and exports the session data
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	b.endTime = time.Now()
	return b.exportJSON()
}

// record returns the module record for id, creating it on first sight.
// Caller must hold the write lock.
func (b *Backend) record(id, name string, kind core.ModuleKind, frame uint) *v1.ModuleRecord {
	rec, ok := b.modules[id]
	if !ok {
		rec = &v1.ModuleRecord{ID: id, Name: name, Kind: kind, FirstFrame: frame}
		b.modules[id] = rec
		b.order = append(b.order, rec)
	}
	if rec.Name == "" {
		rec.Name = name
	}
	if rec.Kind == "" {
		rec.Kind = kind
	}
	return rec
}

// RecordModuleEvent appends a lifecycle event
func (b *Backend) RecordModuleEvent(e *core.ModuleEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, *e)
	if e.ModuleID != "" {
		b.record(e.ModuleID, e.Name, e.Kind, e.Frame)
	}
	return nil
}

// RecordApproachSample appends a sample to its module
func (b *Backend) RecordApproachSample(s *core.ApproachSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := b.record(s.ModuleID, "", "", s.Frame)
	rec.Samples = append(rec.Samples, *s)
	return nil
}

// RecordApproachTrack attaches the finished path to its module
func (b *Backend) RecordApproachTrack(t *core.ApproachTrack) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := b.record(t.ModuleID, t.Name, "", 0)
	track := *t
	rec.Track = &track
	return nil
}

// RecordTopology appends a topology snapshot
func (b *Backend) RecordTopology(t *core.TopologySnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.topology = append(b.topology, *t)
	return nil
}

// RecordNotification appends an operator notification
func (b *Backend) RecordNotification(n *core.Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.notifications = append(b.notifications, *n)
	return nil
}

// GetExportedFilePath returns the path of the last exported file
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last exported session
func (b *Backend) GetExportMetadata() storage.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMeta
}
