package station

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/dockyard/internal/docking"
	"github.com/OCAP2/dockyard/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frameDt = time.Second / 60

type recordingJournal struct {
	mu            sync.Mutex
	events        []core.ModuleEvent
	samples       []core.ApproachSample
	tracks        []core.ApproachTrack
	topology      []core.TopologySnapshot
	notifications []core.Notification
}

func (j *recordingJournal) RecordModuleEvent(e *core.ModuleEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, *e)
	return nil
}

func (j *recordingJournal) RecordApproachSample(s *core.ApproachSample) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.samples = append(j.samples, *s)
	return nil
}

func (j *recordingJournal) RecordApproachTrack(t *core.ApproachTrack) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.tracks = append(j.tracks, *t)
	return nil
}

func (j *recordingJournal) RecordTopology(t *core.TopologySnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.topology = append(j.topology, *t)
	return nil
}

func (j *recordingJournal) RecordNotification(n *core.Notification) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.notifications = append(j.notifications, *n)
	return nil
}

type harness struct {
	*Station
	journal *recordingJournal
	now     time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	j := &recordingJournal{}
	s, err := New(Config{SampleEvery: 10, MaxTicks: 6000, Seed: 1}, Dependencies{Journal: j})
	require.NoError(t, err)
	return &harness{Station: s, journal: j, now: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
}

func (h *harness) step() {
	h.now = h.now.Add(frameDt)
	h.Frame(h.now, frameDt)
}

// exec submits cmd and runs the frame that applies it.
func (h *harness) exec(t *testing.T, cmd Command) Result {
	t.Helper()
	reply := h.Submit(cmd)
	h.step()
	select {
	case r := <-reply:
		return r
	default:
		t.Fatal("command not applied by the next frame")
		return Result{}
	}
}

// land runs frames until no launch is in flight.
func (h *harness) land(t *testing.T) {
	t.Helper()
	for i := 0; i < 7000; i++ {
		if !h.Snapshot().Launching {
			return
		}
		h.step()
	}
	t.Fatal("module never docked")
}

func (h *harness) launch(t *testing.T, blueprint string) core.Module {
	t.Helper()
	r := h.exec(t, Command{Kind: CmdLaunch, Blueprint: blueprint})
	require.NoError(t, r.Err)
	res := r.Value.(docking.LaunchResult)
	h.land(t)
	return res.Module
}

func TestNew_BootstrapsHub(t *testing.T) {
	h := newHarness(t)

	snap := h.Snapshot()
	require.Len(t, snap.Modules, 1)
	assert.Equal(t, docking.CentralStationName, snap.Modules[0].Name)
	assert.Equal(t, snap.RootID, snap.GraphHubID)
	require.NotNil(t, snap.Hub)
	assert.Equal(t, Stats{Nodes: 1}, snap.Stats)

	h.step()
	snap = h.Snapshot()
	require.NotEmpty(t, snap.Notifications)
	assert.Equal(t, "System Initialized. Hub Connectivity: 100%", snap.Notifications[0].Message)
	assert.Equal(t, uint64(1), snap.Frame)
}

func TestLaunchDocksAndLinks(t *testing.T) {
	h := newHarness(t)

	r := h.exec(t, Command{Kind: CmdLaunch, Blueprint: "Graphene"})
	require.NoError(t, r.Err)
	res := r.Value.(docking.LaunchResult)
	assert.True(t, res.OK())

	snap := h.Snapshot()
	assert.True(t, snap.Launching)
	assert.Equal(t, res.Module.ID, snap.LaunchingID)
	assert.Equal(t, 1, snap.Stats.EnRoute)
	assert.True(t, snap.HUD.Visible)
	assert.Equal(t, "Graphene", snap.HUD.Name)

	for i := 0; i < 30; i++ {
		h.step()
	}
	assert.Greater(t, h.Snapshot().HUD.ETA, 0.0, "ETA follows the agent's speed once it moves")

	h.land(t)

	snap = h.Snapshot()
	assert.False(t, snap.Launching)
	assert.Equal(t, Stats{Nodes: 2, Links: 1, EnRoute: 0}, snap.Stats)
	assert.False(t, snap.HUD.Visible)

	m, ok := snap.Module(res.Module.ID)
	require.True(t, ok)
	assert.InDelta(t, res.Slot.Position.X, m.Position.X, 1e-9)
	assert.InDelta(t, res.Slot.Position.Z, m.Position.Z, 1e-9)

	assert.Equal(t, []string{snap.RootID, m.ID}, snap.Path(m.ID))
	require.Len(t, snap.Edges, 1)
	assert.True(t, snap.Edges[0].Solid)
	assert.Contains(t, snap.Adjacency[snap.RootID], m.ID)
}

func TestLaunchJournal(t *testing.T) {
	h := newHarness(t)
	m := h.launch(t, "Graphene")

	h.journal.mu.Lock()
	defer h.journal.mu.Unlock()

	require.Len(t, h.journal.tracks, 1)
	track := h.journal.tracks[0]
	assert.Equal(t, m.ID, track.ModuleID)
	assert.False(t, track.Forced)
	assert.Greater(t, len(track.Points), 2)

	assert.NotEmpty(t, h.journal.samples)
	for _, s := range h.journal.samples {
		assert.Zero(t, s.Frame%10)
		assert.Equal(t, m.ID, s.ModuleID)
	}

	// hub alone, then the in-flight module appears, then it links
	require.GreaterOrEqual(t, len(h.journal.topology), 2)
	last := h.journal.topology[len(h.journal.topology)-1]
	assert.Equal(t, 1, last.Connections)

	var types []core.ModuleEventType
	for _, e := range h.journal.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []core.ModuleEventType{core.EventHubChanged, core.EventLaunched, core.EventDocked}, types)
	assert.NotEmpty(t, h.journal.notifications)
}

func TestLaunch_SecondRejectedWhileInFlight(t *testing.T) {
	h := newHarness(t)

	first := h.Submit(Command{Kind: CmdLaunch, Blueprint: "Graphene"})
	second := h.Submit(Command{Kind: CmdLaunch, Blueprint: "Ti-Al Alloy"})
	h.step()

	assert.NoError(t, (<-first).Err)
	r := <-second
	assert.ErrorIs(t, r.Err, docking.ErrLaunchInProgress)
	assert.Len(t, h.Snapshot().Modules, 2)
}

func TestSubmitContext_AbandonedCommandNotApplied(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	reply := h.SubmitContext(ctx, Command{Kind: CmdLaunch, Blueprint: "Graphene"})
	cancel()
	h.step()

	r := <-reply
	assert.ErrorIs(t, r.Err, context.Canceled)
	assert.False(t, h.Snapshot().Launching)
	assert.Len(t, h.Snapshot().Modules, 1)

	// a live context still goes through
	r = h.exec(t, Command{Kind: CmdLaunch, Blueprint: "Graphene"})
	require.NoError(t, r.Err)
	assert.True(t, h.Snapshot().Launching)
}

func TestDo_TimedOutCommandDropped(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	_, err := h.Do(ctx, Command{Kind: CmdLaunch, Blueprint: "Graphene"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	h.step()
	assert.False(t, h.Snapshot().Launching)
	assert.Len(t, h.Snapshot().Modules, 1)
}

func TestLaunch_UnknownBlueprint(t *testing.T) {
	h := newHarness(t)
	r := h.exec(t, Command{Kind: CmdLaunch, Blueprint: "Warp Core"})
	assert.ErrorIs(t, r.Err, docking.ErrUnknownBlueprint)
}

func TestFaultRepairRoundTrip(t *testing.T) {
	h := newHarness(t)

	r := h.exec(t, Command{Kind: CmdFault})
	assert.ErrorIs(t, r.Err, ErrNoEligible)

	m := h.launch(t, "Graphene")

	r = h.exec(t, Command{Kind: CmdFault})
	require.NoError(t, r.Err)
	faulted := r.Value.(core.Module)
	assert.Equal(t, m.ID, faulted.ID)
	assert.Equal(t, core.StatusCritical, faulted.Status)

	r = h.exec(t, Command{Kind: CmdRepair})
	require.NoError(t, r.Err)
	assert.Equal(t, 1, r.Value)

	got, _ := h.Snapshot().Module(m.ID)
	assert.Equal(t, core.StatusNominal, got.Status)
}

func TestRepairModule(t *testing.T) {
	h := newHarness(t)
	m := h.launch(t, "Graphene")

	r := h.exec(t, Command{Kind: CmdRepairModule, ModuleID: m.ID})
	assert.ErrorIs(t, r.Err, ErrNotCritical)

	h.exec(t, Command{Kind: CmdFault})
	r = h.exec(t, Command{Kind: CmdRepairModule, ModuleID: m.ID})
	require.NoError(t, r.Err)
	assert.Equal(t, core.StatusNominal, r.Value.(core.Module).Status)

	r = h.exec(t, Command{Kind: CmdRepairModule, ModuleID: "missing"})
	assert.ErrorIs(t, r.Err, docking.ErrUnknownModule)
}

func TestUndock(t *testing.T) {
	h := newHarness(t)
	m := h.launch(t, "Graphene")

	r := h.exec(t, Command{Kind: CmdUndock, ModuleID: h.Snapshot().RootID})
	assert.ErrorIs(t, r.Err, ErrCannotUndock)

	r = h.exec(t, Command{Kind: CmdUndock, ModuleID: "missing"})
	assert.ErrorIs(t, r.Err, docking.ErrUnknownModule)

	r = h.exec(t, Command{Kind: CmdUndock, ModuleID: m.ID})
	require.NoError(t, r.Err)

	snap := h.Snapshot()
	_, ok := snap.Module(m.ID)
	assert.False(t, ok)
	require.Len(t, snap.Departing, 1)
	assert.Equal(t, Stats{Nodes: 1}, snap.Stats)

	for i := 0; i < 3*60; i++ {
		h.step()
	}
	assert.Empty(t, h.Snapshot().Departing)
}

func TestSetHub(t *testing.T) {
	h := newHarness(t)
	node := h.launch(t, "Expansion Node")

	r := h.exec(t, Command{Kind: CmdSetHub, ModuleID: node.ID})
	require.NoError(t, r.Err)
	assert.Equal(t, node.ID, r.Value.(docking.HubRef).ModuleID)
	assert.Equal(t, node.ID, h.Snapshot().GraphHubID)

	r = h.exec(t, Command{Kind: CmdSetHub, ModuleID: "missing"})
	assert.ErrorIs(t, r.Err, docking.ErrUnknownModule)

	pos := core.Position{X: 10, Z: -4}
	r = h.exec(t, Command{Kind: CmdSetHubPosition, Position: pos})
	require.NoError(t, r.Err)
	assert.Equal(t, pos, r.Value.(docking.HubRef).Position)
	assert.Equal(t, h.Snapshot().RootID, h.Snapshot().GraphHubID)
}

func TestAddBlueprint(t *testing.T) {
	h := newHarness(t)

	r := h.exec(t, Command{Kind: CmdAddBlueprint, Blueprint: "Solar Wing", Color: "#ffcc00"})
	require.NoError(t, r.Err)
	_, ok := h.Catalog().Lookup("solar wing")
	assert.True(t, ok)

	r = h.exec(t, Command{Kind: CmdAddBlueprint, Blueprint: "Bad", Color: "yellow"})
	assert.ErrorIs(t, r.Err, docking.ErrInvalidBlueprint)

	r = h.exec(t, Command{Kind: "warp"})
	assert.ErrorIs(t, r.Err, ErrUnknownAction)
}

func TestNotificationsSince(t *testing.T) {
	s := &Snapshot{
		Notifications: []core.Notification{
			{Message: "a"}, {Message: "b"}, {Message: "c"},
		},
		NotificationSeq: 10,
	}

	assert.Nil(t, s.NotificationsSince(10))
	assert.Equal(t, []core.Notification{{Message: "c"}}, s.NotificationsSince(9))
	assert.Len(t, s.NotificationsSince(0), 3)
}

func TestRun(t *testing.T) {
	j := &recordingJournal{}
	s, err := New(Config{FrameRate: 200}, Dependencies{Journal: j})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cmdCtx, cmdCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cmdCancel()
	v, err := s.Do(cmdCtx, Command{Kind: CmdLaunch, Blueprint: "Graphene"})
	require.NoError(t, err)
	assert.True(t, v.(docking.LaunchResult).OK())

	assert.Error(t, s.Run(ctx), "second Run must fail")

	cancel()
	require.NoError(t, <-done)

	_, err = s.Do(context.Background(), Command{Kind: CmdRepair})
	assert.True(t, errors.Is(err, ErrStopped))
}
