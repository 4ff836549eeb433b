// Package station drives the frame loop. One goroutine owns the
// orchestrator, the approach loop, the exit tweener and the graph; every
// other goroutine submits commands and reads published snapshots.
package station

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/OCAP2/dockyard/internal/docking"
	"github.com/OCAP2/dockyard/internal/motion"
	"github.com/OCAP2/dockyard/internal/notify"
	"github.com/OCAP2/dockyard/internal/queue"
	"github.com/OCAP2/dockyard/internal/session"
	"github.com/OCAP2/dockyard/internal/simulation"
	"github.com/OCAP2/dockyard/internal/topology"
	"github.com/OCAP2/dockyard/pkg/core"
)

const (
	DefaultFrameRate   = 60
	DefaultSampleEvery = 10

	// maxFrameDelta caps dt after a stall so tweens and production do not jump.
	maxFrameDelta = 250 * time.Millisecond
)

// Journal is the write side of the event journal. storage.Backend satisfies it.
type Journal interface {
	RecordModuleEvent(e *core.ModuleEvent) error
	RecordApproachSample(s *core.ApproachSample) error
	RecordApproachTrack(t *core.ApproachTrack) error
	RecordTopology(t *core.TopologySnapshot) error
	RecordNotification(n *core.Notification) error
}

// Config tunes the frame loop.
type Config struct {
	FrameRate   int // frames per second
	Substeps    int // physics ticks per frame
	SampleEvery int // frames between journaled approach samples, 0 disables
	MaxTicks    int
	TrackEvery  int
	Seed        int64 // fault selection seed, 0 for time-based
}

// Dependencies holds all dependencies for the station.
type Dependencies struct {
	Journal  Journal          // optional
	Notifier *notify.Notifier // optional
	Catalog  *docking.Catalog // optional, default catalog when nil
	Session  *session.Context // optional
	Logger   *slog.Logger
}

// Station is the frame driver.
type Station struct {
	cfg  Config
	deps Dependencies
	log  *slog.Logger

	orch    *docking.Orchestrator
	loop    *simulation.Loop
	tweener *motion.Tweener
	graph   *topology.Graph

	inbox *queue.Queue[pending]
	snap  atomic.Pointer[Snapshot]

	frame    uint64
	now      time.Time
	lastTopo *core.TopologySnapshot
	recent   []core.Notification
	notesSeq uint64

	running atomic.Bool
	stopped atomic.Bool
}

// mover sends descents to the approach loop and departures to the tweener.
type mover struct{ s *Station }

func (m mover) Descend(mod core.Module, slot core.DockingSlot, onArrival func()) {
	m.s.loop.Descend(mod, slot, onArrival)
}

func (m mover) Depart(mod core.Module, to core.Position, d time.Duration, onDone func()) {
	m.s.tweener.Depart(mod, to, d, onDone)
}

// clock exposes the frame counter to the orchestrator's journal.
type clock struct{ s *Station }

func (c clock) Frame() uint    { return uint(c.s.frame) }
func (c clock) Now() time.Time { return c.s.now }

type discardJournal struct{}

func (discardJournal) RecordModuleEvent(*core.ModuleEvent) error       { return nil }
func (discardJournal) RecordApproachSample(*core.ApproachSample) error { return nil }
func (discardJournal) RecordApproachTrack(*core.ApproachTrack) error   { return nil }
func (discardJournal) RecordTopology(*core.TopologySnapshot) error     { return nil }
func (discardJournal) RecordNotification(*core.Notification) error     { return nil }

// New builds a station with the central hub registered and publishes the
// first snapshot.
func New(cfg Config, deps Dependencies) (*Station, error) {
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = DefaultFrameRate
	}
	if cfg.Substeps <= 0 {
		cfg.Substeps = 1
	}
	if cfg.SampleEvery < 0 {
		cfg.SampleEvery = 0
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Journal == nil {
		deps.Journal = discardJournal{}
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.New(deps.Logger)
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}

	s := &Station{
		cfg:     cfg,
		deps:    deps,
		log:     deps.Logger,
		tweener: motion.NewTweener(),
		inbox:   queue.New[pending](),
		now:     time.Now(),
	}
	s.loop = simulation.NewLoop(simulation.Config{
		MaxTicks:   cfg.MaxTicks,
		TrackEvery: cfg.TrackEvery,
		Logger:     deps.Logger,
	})

	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}

	orch, err := docking.New(docking.Dependencies{
		Mover:    mover{s},
		Notifier: deps.Notifier,
		Journal:  deps.Journal,
		Catalog:  deps.Catalog,
		Clock:    clock{s},
		Rand:     rng,
		Logger:   deps.Logger,
	})
	if err != nil {
		return nil, err
	}
	s.orch = orch
	s.orch.Bootstrap()

	s.rebuildGraph()
	s.publish()
	return s, nil
}

// Submit queues cmd for the next frame. The returned channel receives
// exactly one Result.
func (s *Station) Submit(cmd Command) <-chan Result {
	return s.SubmitContext(context.Background(), cmd)
}

// SubmitContext is Submit for a caller that may give up. A command whose
// ctx is done by the time its frame drains it is answered with ctx.Err()
// and never applied.
func (s *Station) SubmitContext(ctx context.Context, cmd Command) <-chan Result {
	reply := make(chan Result, 1)
	if s.stopped.Load() {
		reply <- Result{Err: ErrStopped}
		return reply
	}
	s.inbox.Push(pending{ctx: ctx, cmd: cmd, reply: reply})
	if s.stopped.Load() {
		s.failPending()
	}
	return reply
}

// Do submits cmd and waits for its result.
func (s *Station) Do(ctx context.Context, cmd Command) (any, error) {
	select {
	case r := <-s.SubmitContext(ctx, cmd):
		return r.Value, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Snapshot returns the latest published snapshot.
func (s *Station) Snapshot() *Snapshot {
	return s.snap.Load()
}

// Stats returns the overlay readout of the latest snapshot.
func (s *Station) Stats() Stats {
	return s.Snapshot().Stats
}

// Catalog returns the blueprint catalog. Safe for concurrent reads.
func (s *Station) Catalog() *docking.Catalog {
	return s.orch.Catalog()
}

// Run drives frames at the configured rate until ctx is cancelled.
// Pending commands are failed with ErrStopped on return.
func (s *Station) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("station already running")
	}
	defer s.stop()

	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.FrameRate))
	defer ticker.Stop()

	s.log.Info("Station running",
		"frameRate", s.cfg.FrameRate,
		"substeps", s.cfg.Substeps,
		"session", s.deps.Session.Name())

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Station stopped", "frame", s.frame)
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last)
			if dt > maxFrameDelta {
				dt = maxFrameDelta
			}
			last = now
			s.Frame(now, dt)
		}
	}
}

func (s *Station) stop() {
	s.stopped.Store(true)
	s.failPending()
}

func (s *Station) failPending() {
	for {
		p, ok := s.inbox.Pop()
		if !ok {
			return
		}
		p.reply <- Result{Err: ErrStopped}
	}
}

// Frame advances the station by one frame of length dt. It must only be
// called from the goroutine that owns the station (Run, or a test).
func (s *Station) Frame(now time.Time, dt time.Duration) {
	s.frame++
	s.now = now
	s.deps.Session.SetFrame(s.frame)

	// registry mutations land before physics so a launch is ticked this frame
	for _, p := range s.inbox.Drain(0) {
		if err := p.ctx.Err(); err != nil {
			p.reply <- Result{Err: err}
			continue
		}
		p.reply <- s.apply(p.cmd)
	}

	for i := 0; i < s.cfg.Substeps; i++ {
		arrivals := s.loop.Tick(now)
		s.orch.SyncPositions(s.loop.Positions())
		for j := range arrivals {
			arrivals[j].Complete()
			s.recordTrack(arrivals[j].Track)
		}
	}

	s.tweener.Advance(dt)
	s.orch.Produce(dt)
	s.rebuildGraph()

	if s.cfg.SampleEvery > 0 && s.frame%uint64(s.cfg.SampleEvery) == 0 {
		s.recordSamples()
	}
	s.recordTopology()
	s.collectNotifications()

	s.publish()
}

func (s *Station) rebuildGraph() {
	s.graph = topology.Build(s.orch.GraphHubID(), s.orch.Modules())
}

func (s *Station) isSolid(id string) bool {
	return s.loop.IsDocked(id) || id == s.orch.RootID()
}

func (s *Station) recordTrack(t core.ApproachTrack) {
	if err := s.deps.Journal.RecordApproachTrack(&t); err != nil {
		s.log.Error("Failed to journal approach track", "module", t.Name, "error", err)
	}
}

func (s *Station) recordSamples() {
	for _, a := range s.loop.Agents() {
		sample := &core.ApproachSample{
			Frame:    uint(s.frame),
			Time:     s.now,
			ModuleID: a.TargetID,
			Position: a.Position,
			Distance: a.Distance,
			Speed:    a.Speed,
			Progress: a.Progress,
		}
		if err := s.deps.Journal.RecordApproachSample(sample); err != nil {
			s.log.Error("Failed to journal approach sample", "module", a.Name, "error", err)
		}
	}
}

// recordTopology journals the graph whenever its hub or adjacency changes.
func (s *Station) recordTopology() {
	adj := s.graph.Adjacency()
	if s.lastTopo != nil && s.lastTopo.HubID == s.graph.HubID() && reflect.DeepEqual(s.lastTopo.Adjacency, adj) {
		return
	}

	t := &core.TopologySnapshot{
		Frame:       uint(s.frame),
		Time:        s.now,
		HubID:       s.graph.HubID(),
		Adjacency:   adj,
		Connections: s.graph.CountConnections(),
	}
	s.lastTopo = t
	if err := s.deps.Journal.RecordTopology(t); err != nil {
		s.log.Error("Failed to journal topology", "error", err)
	}
}

func (s *Station) collectNotifications() {
	for _, n := range s.deps.Notifier.Drain() {
		if err := s.deps.Journal.RecordNotification(&n); err != nil {
			s.log.Error("Failed to journal notification", "error", err)
		}
		s.recent = append(s.recent, n)
		s.notesSeq++
	}
	if over := len(s.recent) - recentNotifications; over > 0 {
		s.recent = append([]core.Notification(nil), s.recent[over:]...)
	}
}

func (s *Station) publish() {
	modules := s.orch.Modules()
	agents := s.loop.Agents()

	snap := &Snapshot{
		Frame:           s.frame,
		Time:            s.now,
		Session:         s.deps.Session.Name(),
		RootID:          s.orch.RootID(),
		GraphHubID:      s.graph.HubID(),
		Launching:       s.orch.IsLaunching(),
		LaunchingID:     s.orch.LaunchingID(),
		Modules:         modules,
		Departing:       s.tweener.Departing(),
		Agents:          agents,
		Completed:       s.loop.Completed(),
		Edges:           s.graph.Edges(s.isSolid),
		Adjacency:       s.graph.Adjacency(),
		Notifications:   append([]core.Notification(nil), s.recent...),
		NotificationSeq: s.notesSeq,
		Stats: Stats{
			Nodes:   len(modules),
			Links:   s.graph.CountConnections(),
			EnRoute: s.loop.InFlight(),
		},
		graph: s.graph,
	}
	if hub, ok := s.orch.Hub(); ok {
		snap.Hub = &hub
	}
	for _, a := range agents {
		if a.TargetID == snap.LaunchingID {
			snap.HUD = simulation.HUD(a, float64(s.cfg.FrameRate*s.cfg.Substeps))
			break
		}
	}

	s.snap.Store(snap)
}
