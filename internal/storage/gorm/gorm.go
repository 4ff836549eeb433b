// Package gormstorage implements the storage.Backend interface on top of
// GORM with internal queues and a background writer goroutine. The
// Postgres and SQLite backends embed it and only differ in how the
// connection is made.
package gormstorage

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/dockyard/internal/database"
	"github.com/OCAP2/dockyard/internal/model"
	"github.com/OCAP2/dockyard/internal/model/convert"
	"github.com/OCAP2/dockyard/internal/queue"
	"github.com/OCAP2/dockyard/pkg/core"
	"gorm.io/gorm"
)

// DefaultFlushInterval is how often the writer drains the queues.
const DefaultFlushInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB // nil runs the backend in queue-only mode
	StationName   string
	FlushInterval time.Duration
	Logger        *slog.Logger
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	ModuleEvents    *queue.Queue[model.ModuleEvent]
	ApproachSamples *queue.Queue[model.ApproachSample]
	ApproachTracks  *queue.Queue[model.ApproachTrack]
	Topology        *queue.Queue[model.TopologySnapshot]
	Notifications   *queue.Queue[model.Notification]
}

func newQueues() *queues {
	return &queues{
		ModuleEvents:    queue.New[model.ModuleEvent](),
		ApproachSamples: queue.New[model.ApproachSample](),
		ApproachTracks:  queue.New[model.ApproachTrack](),
		Topology:        queue.New[model.TopologySnapshot](),
		Notifications:   queue.New[model.Notification](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	log    *slog.Logger
	queues *queues

	sessionID atomic.Uint64
	lastWrite atomic.Int64 // nanoseconds

	flushMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.StationName == "" {
		deps.StationName = "Dockyard"
	}
	return &Backend{
		deps: deps,
		log:  deps.Logger,
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init creates internal queues, runs schema migration, and starts the DB writer goroutine.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})

	if b.deps.DB != nil {
		if err := database.Setup(b.deps.DB, b.deps.StationName, b.log); err != nil {
			return fmt.Errorf("failed to setup DB: %w", err)
		}
	}

	go b.writeLoop()
	return nil
}

// Close stops the writer goroutine and flushes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	select {
	case <-b.stopChan:
		return nil
	default:
	}
	close(b.stopChan)
	<-b.done
	b.Flush()
	return nil
}

// StartSession inserts the session row and stamps its ID back onto s.
func (b *Backend) StartSession(s *core.Session) error {
	if b.deps.DB == nil {
		return nil
	}

	row := convert.SessionToGorm(*s)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	s.ID = row.ID
	b.sessionID.Store(uint64(row.ID))
	b.log.Info("Session started", "id", row.ID, "uuid", row.UUID)
	return nil
}

// SetSessionID points the writer at an existing session row.
func (b *Backend) SetSessionID(id uint) {
	b.sessionID.Store(uint64(id))
}

// SessionID returns the session rows are currently stamped with.
func (b *Backend) SessionID() uint {
	return uint(b.sessionID.Load())
}

// EndSession flushes the queues and stamps the session end time.
func (b *Backend) EndSession() error {
	id := b.SessionID()
	if b.deps.DB == nil || id == 0 {
		return nil
	}

	b.Flush()
	if err := b.deps.DB.Model(&model.Session{}).Where("id = ?", id).
		Update("end_time", time.Now()).Error; err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	b.sessionID.Store(0)
	return nil
}

// RecordModuleEvent converts and queues a module event.
func (b *Backend) RecordModuleEvent(e *core.ModuleEvent) error {
	b.queues.ModuleEvents.Push(convert.ModuleEventToGorm(0, *e))
	return nil
}

// RecordApproachSample converts and queues an approach sample.
func (b *Backend) RecordApproachSample(s *core.ApproachSample) error {
	b.queues.ApproachSamples.Push(convert.ApproachSampleToGorm(0, *s))
	return nil
}

// RecordApproachTrack converts and queues a finished approach path.
func (b *Backend) RecordApproachTrack(t *core.ApproachTrack) error {
	b.queues.ApproachTracks.Push(convert.ApproachTrackToGorm(0, *t))
	return nil
}

// RecordTopology converts and queues a topology snapshot.
func (b *Backend) RecordTopology(t *core.TopologySnapshot) error {
	b.queues.Topology.Push(convert.TopologyToGorm(0, *t))
	return nil
}

// RecordNotification converts and queues an operator notification.
func (b *Backend) RecordNotification(n *core.Notification) error {
	b.queues.Notifications.Push(convert.NotificationToGorm(0, *n))
	return nil
}

// QueueLengths reports the current backlog of each write queue.
func (b *Backend) QueueLengths() model.QueueLengths {
	if b.queues == nil {
		return model.QueueLengths{}
	}
	return model.QueueLengths{
		ModuleEvents:    b.queues.ModuleEvents.Len(),
		ApproachSamples: b.queues.ApproachSamples.Len(),
		ApproachTracks:  b.queues.ApproachTracks.Len(),
		Topology:        b.queues.Topology.Len(),
		Notifications:   b.queues.Notifications.Len(),
	}
}

// LastWriteDuration is how long the most recent flush took.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items go back to the head of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger, stamp func(*T)) int {
	if q.Empty() {
		return 0
	}

	items := q.GetAndEmpty()
	for i := range items {
		stamp(&items[i])
	}

	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Error writing "+name, "error", err, "count", len(items))
		tx.Rollback()
		q.Requeue(items...)
		return 0
	}
	if err := tx.Commit().Error; err != nil {
		log.Error("Error committing "+name, "error", err)
		q.Requeue(items...)
		return 0
	}
	return len(items)
}

// Flush drains every queue into the database. Rows stay queued until a
// session has been started.
func (b *Backend) Flush() int {
	if b.deps.DB == nil || b.queues == nil {
		return 0
	}
	sessionID := b.SessionID()
	if sessionID == 0 {
		return 0
	}

	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	backlog := b.QueueLengths()
	start := time.Now()
	db := b.deps.DB

	written := writeQueue(db, b.queues.ModuleEvents, "module events", b.log, func(r *model.ModuleEvent) { r.SessionID = sessionID })
	written += writeQueue(db, b.queues.ApproachSamples, "approach samples", b.log, func(r *model.ApproachSample) { r.SessionID = sessionID })
	written += writeQueue(db, b.queues.ApproachTracks, "approach tracks", b.log, func(r *model.ApproachTrack) { r.SessionID = sessionID })
	written += writeQueue(db, b.queues.Topology, "topology snapshots", b.log, func(r *model.TopologySnapshot) { r.SessionID = sessionID })
	written += writeQueue(db, b.queues.Notifications, "notifications", b.log, func(r *model.Notification) { r.SessionID = sessionID })

	if written == 0 {
		return 0
	}

	elapsed := time.Since(start)
	b.lastWrite.Store(int64(elapsed))

	perf := model.JournalPerformance{
		Time:                time.Now(),
		SessionID:           sessionID,
		QueueLengths:        backlog,
		LastWriteDurationMs: float32(elapsed.Seconds() * 1000),
	}
	if err := db.Create(&perf).Error; err != nil {
		b.log.Warn("Error writing journal performance", "error", err)
	}

	b.log.Debug("Journal flushed", "rows", written, "duration", elapsed)
	return written
}

// writeLoop periodically drains queues into the DB until Close.
func (b *Backend) writeLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.Flush()
		}
	}
}
