package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderStats(t *testing.T) {
	st := newTestStation(t)
	out := renderStats(st.Stats())

	for _, label := range []string{"NODES", "LINKS", "EN ROUTE"} {
		assert.Contains(t, out, label)
	}
}

func TestRenderModules_HubFirst(t *testing.T) {
	st := newTestStation(t)
	res, err := runSimulation(st, simPlan{Launches: 2, Blueprints: []string{"Bio-Printed Tissue"}}, time.Now())
	require.NoError(t, err)

	lines := strings.Split(renderModules(res.Final), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[1], "Central Station")
	assert.Contains(t, lines[1], "*")
	assert.Contains(t, lines[2], "Bio-Printed Tissue")
	assert.Contains(t, lines[2], "NOMINAL")
}

func TestRenderSimulation(t *testing.T) {
	st := newTestStation(t)
	res, err := runSimulation(st, simPlan{Launches: 1, Blueprints: []string{"Graphene", "Nope"}, Faults: 1}, time.Now())
	require.NoError(t, err)

	out := renderSimulation(res)
	assert.Contains(t, out, "Simulation complete")
	assert.Contains(t, out, "launched")
	assert.Contains(t, out, "faulted")
	assert.Contains(t, out, "Graphene")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Bio-Pr…", truncate("Bio-Printed Tissue", 7))
}

func TestVersionCmd(t *testing.T) {
	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "dockyard "+Version)
}

func TestControlCmds_Registered(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "simulate", "status", "launch", "fault", "repair", "undock", "hub", "catalog", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	fault, _, err := root.Find([]string{"fault"})
	require.NoError(t, err)
	assert.NotNil(t, fault.Flags().Lookup("queued"))
}

func TestHopsFromHub(t *testing.T) {
	st := newTestStation(t)
	res, err := runSimulation(st, simPlan{Launches: 1, Blueprints: []string{"Graphene"}}, time.Now())
	require.NoError(t, err)

	snap := res.Final
	assert.Equal(t, "0", hopsFromHub(snap, snap.GraphHubID))
	assert.Equal(t, "1", hopsFromHub(snap, res.Launched[0].Module.ID))
	assert.Equal(t, "-", hopsFromHub(snap, "missing"))
}
