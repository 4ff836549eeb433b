package motion

import (
	"testing"
	"time"

	"github.com/OCAP2/dockyard/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTweener_Depart(t *testing.T) {
	tw := NewTweener()
	m := core.Module{ID: "a", Name: "Graphene", Position: core.Position{X: 2.6}}
	calls := 0

	tw.Depart(m, core.Position{X: 2.6, Y: 20}, 2*time.Second, func() { calls++ })
	require.Equal(t, 1, tw.Len())

	tw.Advance(500 * time.Millisecond)
	dep := tw.Departing()
	require.Len(t, dep, 1)
	assert.InDelta(t, 5, dep[0].Position.Y, 1e-9)
	assert.InDelta(t, 2.6, dep[0].Position.X, 1e-9)
	assert.Equal(t, 0, calls)

	tw.Advance(time.Second)
	assert.InDelta(t, 15, tw.Departing()[0].Position.Y, 1e-9)

	tw.Advance(time.Second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, tw.Len())
	assert.Empty(t, tw.Departing())

	tw.Advance(time.Second)
	assert.Equal(t, 1, calls)
}

func TestTweener_IndependentTweens(t *testing.T) {
	tw := NewTweener()
	var order []string

	tw.Depart(core.Module{ID: "slow"}, core.Position{Y: 20}, 2*time.Second, func() { order = append(order, "slow") })
	tw.Depart(core.Module{ID: "fast"}, core.Position{Y: 20}, time.Second, func() { order = append(order, "fast") })

	tw.Advance(time.Second)
	assert.Equal(t, []string{"fast"}, order)
	require.Len(t, tw.Departing(), 1)
	assert.Equal(t, "slow", tw.Departing()[0].ID)

	tw.Advance(time.Second)
	assert.Equal(t, []string{"fast", "slow"}, order)
}

func TestTweener_ZeroDurationCompletesOnFirstAdvance(t *testing.T) {
	tw := NewTweener()
	done := false
	tw.Depart(core.Module{ID: "a"}, core.Position{Y: 20}, 0, func() { done = true })

	tw.Advance(0)
	assert.True(t, done)
}

func TestTweener_CallbackMayStartNewTween(t *testing.T) {
	tw := NewTweener()
	tw.Depart(core.Module{ID: "a"}, core.Position{Y: 1}, time.Second, func() {
		tw.Depart(core.Module{ID: "b"}, core.Position{Y: 1}, time.Second, nil)
	})

	tw.Advance(time.Second)
	require.Len(t, tw.Departing(), 1)
	assert.Equal(t, "b", tw.Departing()[0].ID)
}
