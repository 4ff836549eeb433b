package v1

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/OCAP2/dockyard/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.23456, 1.235},
		{-0.0004, 0},
		{15, 15},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, round(tt.in))
	}
}

func TestBuild(t *testing.T) {
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	data := &SessionData{
		Session: &core.Session{
			UUID:      "abc",
			Name:      "Shift 1",
			StartTime: start,
			FrameRate: 60,
			Version:   "1.0.0",
		},
		StationName: "Dockyard Station",
		EndTime:     start.Add(time.Hour),
		Modules: []*ModuleRecord{{
			ID:         "m-1",
			Name:       "Graphene",
			Kind:       core.KindStandard,
			FirstFrame: 5,
			Samples: []core.ApproachSample{
				{Frame: 10, Position: core.Position{X: 1.00049, Y: 12}, Distance: 12.3456, Progress: 0.17},
			},
			Track: &core.ApproachTrack{
				Ticks:  3681,
				Points: []core.Position{{Y: 15}, {Y: 0}},
			},
		}},
		Events: []core.ModuleEvent{
			{Frame: 5, Type: core.EventLaunched, ModuleID: "m-1", Name: "Graphene", Status: core.StatusNominal, Detail: map[string]any{"slotAngle": 30.0}},
			{Frame: 3700, Type: core.EventDocked, ModuleID: "m-1", Name: "Graphene", Status: core.StatusNominal},
		},
		Topology: []core.TopologySnapshot{
			{Frame: 3700, HubID: "hub", Connections: 1, Adjacency: map[string][]string{"hub": {"m-1"}, "m-1": {"hub"}}},
		},
		Notifications: []core.Notification{
			{Time: start, Severity: core.SeverityInfo, Message: "Launching Graphene..."},
		},
	}

	export := Build(data)

	assert.Equal(t, FormatVersion, export.FormatVersion)
	assert.Equal(t, "Shift 1", export.SessionName)
	assert.Equal(t, "2026-05-01T10:00:00Z", export.StartTime)
	assert.Equal(t, "2026-05-01T11:00:00Z", export.EndTime)
	assert.Equal(t, uint(3700), export.EndFrame)

	require.Len(t, export.Modules, 1)
	mod := export.Modules[0]
	require.Len(t, mod.Samples, 1)
	assert.Equal(t, []any{uint(10), []float64{1, 12, 0}, 12.346, 0.17}, mod.Samples[0])
	require.NotNil(t, mod.Track)
	assert.Equal(t, 15.0, mod.Track.Length)
	assert.NotEmpty(t, mod.Track.WKT)

	require.Len(t, export.Events, 2)
	assert.Equal(t, "module_launched", export.Events[0][1])
	assert.Equal(t, map[string]any{}, export.Events[1][5])

	require.Len(t, export.Notifications, 1)
	assert.Equal(t, "info", export.Notifications[0].Severity)

	_, err := json.Marshal(export)
	require.NoError(t, err)
}

func TestBuild_Empty(t *testing.T) {
	export := Build(&SessionData{})
	assert.Empty(t, export.SessionName)
	assert.Empty(t, export.EndTime)
	assert.NotNil(t, export.Modules)
	assert.NotNil(t, export.Events)

	b, err := json.Marshal(export)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"modules":[]`)
}
