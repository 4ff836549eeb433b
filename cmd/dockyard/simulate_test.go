package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/dockyard/internal/docking"
	"github.com/OCAP2/dockyard/internal/station"
)

func newTestStation(t *testing.T) *station.Station {
	t.Helper()
	st, err := station.New(station.Config{Seed: 1, MaxTicks: 6000}, station.Dependencies{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return st
}

func TestRunSimulation(t *testing.T) {
	st := newTestStation(t)
	start := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	res, err := runSimulation(st, simPlan{
		Launches:   3,
		Blueprints: []string{"Graphene", "Protein Crystal"},
		Faults:     1,
		Repair:     true,
		FrameRate:  60,
	}, start)
	require.NoError(t, err)

	require.Len(t, res.Launched, 3)
	assert.Equal(t, "Graphene", res.Launched[0].Module.Name)
	assert.Equal(t, "Protein Crystal", res.Launched[1].Module.Name)
	assert.Equal(t, "Graphene", res.Launched[2].Module.Name)
	assert.Empty(t, res.Rejected)

	require.Len(t, res.Faulted, 1)
	assert.NotEqual(t, docking.CentralStationName, res.Faulted[0].Name)
	assert.Equal(t, 1, res.Repaired)

	assert.False(t, res.Final.Launching)
	assert.Equal(t, station.Stats{Nodes: 4, Links: 3}, res.Final.Stats)
	assert.Equal(t, res.Final.Frame, res.Frames)
	assert.Equal(t, time.Duration(res.Frames)*(time.Second/60), res.Elapsed)
}

func TestRunSimulation_UnknownBlueprintIsCounted(t *testing.T) {
	st := newTestStation(t)

	res, err := runSimulation(st, simPlan{Launches: 2, Blueprints: []string{"Unobtainium"}}, time.Now())
	require.NoError(t, err)

	assert.Empty(t, res.Launched)
	assert.Equal(t, 2, res.Rejected[docking.OutcomeUnknownBlueprint])
	assert.Equal(t, station.Stats{Nodes: 1}, res.Final.Stats)
}

func TestRunSimulation_FrameLimit(t *testing.T) {
	st := newTestStation(t)

	_, err := runSimulation(st, simPlan{Launches: 1, Blueprints: []string{"Graphene"}, MaxFrames: 2}, time.Now())
	assert.ErrorIs(t, err, errApproachStalled)
}
