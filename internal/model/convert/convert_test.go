package convert

import (
	"testing"
	"time"

	"github.com/OCAP2/dockyard/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleEventToGorm(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := core.ModuleEvent{
		Type:     core.EventLaunched,
		Frame:    42,
		Time:     now,
		ModuleID: "m-1",
		Name:     "Graphene",
		Kind:     core.KindStandard,
		Status:   core.StatusNominal,
		Position: core.Position{X: 1, Y: 15, Z: 2},
		Detail:   map[string]any{"slotAngle": 30.0},
	}

	g := ModuleEventToGorm(7, e)
	assert.Equal(t, uint(7), g.SessionID)
	assert.Equal(t, "module_launched", g.Type)
	assert.Equal(t, "STANDARD", g.Kind)
	assert.JSONEq(t, `{"slotAngle":30}`, string(g.Detail))

	back := ModuleEventToCore(g)
	assert.Equal(t, e, back)
}

func TestModuleEventToGorm_NoDetail(t *testing.T) {
	g := ModuleEventToGorm(1, core.ModuleEvent{Type: core.EventRejected})
	assert.Nil(t, g.Detail)
	assert.Nil(t, ModuleEventToCore(g).Detail)
}

func TestApproachTrackToGorm(t *testing.T) {
	track := core.ApproachTrack{
		ModuleID: "m-2",
		Name:     "Polymer",
		Ticks:    3681,
		Points: []core.Position{
			{X: 0, Y: 15, Z: 10},
			{X: 0, Y: 6, Z: 10},
			{X: 0, Y: 0, Z: 10},
		},
	}

	g := ApproachTrackToGorm(3, track)
	assert.InDelta(t, 15.0, g.Length, 1e-9)
	assert.NotEmpty(t, g.PathWKT)
	require.False(t, g.Path.IsEmpty())

	back := ApproachTrackToCore(g)
	assert.Equal(t, track.Points, back.Points)
	assert.Equal(t, 3681, back.Ticks)
}

func TestApproachTrackToGorm_SinglePoint(t *testing.T) {
	g := ApproachTrackToGorm(3, core.ApproachTrack{Points: []core.Position{{X: 1}}})
	assert.True(t, g.Path.IsEmpty())
	assert.Empty(t, g.PathWKT)
	assert.Zero(t, g.Length)
}

func TestTopologyRoundTrip(t *testing.T) {
	snap := core.TopologySnapshot{
		Frame:       10,
		HubID:       "hub",
		Adjacency:   map[string][]string{"hub": {"a", "b"}, "a": {"hub"}, "b": {"hub"}},
		Connections: 2,
	}
	back := TopologyToCore(TopologyToGorm(1, snap))
	assert.Equal(t, snap, back)
}

func TestSessionAndNotification(t *testing.T) {
	s := core.Session{UUID: "u", Name: "run", FrameRate: 60, Version: "dev"}
	g := SessionToGorm(s)
	g.ID = 9
	assert.Equal(t, core.Session{ID: 9, UUID: "u", Name: "run", FrameRate: 60, Version: "dev"}, SessionToCore(g))

	n := core.Notification{Message: "Graphene docked", Severity: core.SeveritySuccess}
	assert.Equal(t, n, NotificationToCore(NotificationToGorm(9, n)))
}
