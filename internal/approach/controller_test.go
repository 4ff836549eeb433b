package approach

import (
	"math"
	"testing"

	"github.com/OCAP2/dockyard/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var origin = core.Vec2{}

func TestNatural(t *testing.T) {
	a := Natural(State{
		Position: core.Vec2{X: 2, Y: 1},
		Velocity: core.Vec2{X: 0.5, Y: -0.4},
	})

	assert.InDelta(t, -0.025, a.X, 1e-12)
	assert.InDelta(t, -0.05, a.Y, 1e-12)
}

func TestControl_Unsaturated(t *testing.T) {
	u := Control(State{Position: core.Vec2{X: 0.01}}, origin)

	assert.InDelta(t, -0.009075, u.X, 1e-12)
	assert.InDelta(t, 0, u.Y, 1e-12)
}

func TestControl_SaturatesAndKeepsDirection(t *testing.T) {
	s := State{Position: core.Vec2{X: 3, Y: 4}}
	u := Control(s, origin)

	assert.InDelta(t, MaxThrust(5), u.Length(), 1e-12)
	assert.InDelta(t, 0.17, u.Length(), 1e-12)

	// requested (−2.7225, −3.6) before clamping
	assert.InDelta(t, 3.6/2.7225, u.Y/u.X, 1e-9)
	assert.Less(t, u.X, 0.0)
	assert.Less(t, u.Y, 0.0)
}

func TestControl_TracksNonZeroTarget(t *testing.T) {
	target := core.Vec2{X: 1, Y: 1}
	u := Control(State{Position: target}, target)

	// on target at rest only the coupling cancellation remains
	assert.InDelta(t, -3*N*N*1, u.X, 1e-12)
	assert.InDelta(t, 0, u.Y, 1e-12)
}

func TestStep_SemiImplicitEuler(t *testing.T) {
	s := State{Position: core.Vec2{X: 0.01}}
	next := Step(s, origin)

	a := Natural(s).Add(Control(s, origin))
	wantV := a.Scale(DT)
	wantP := s.Position.Add(wantV.Scale(DT))

	assert.InDelta(t, wantV.X, next.Velocity.X, 1e-15)
	assert.InDelta(t, wantV.Y, next.Velocity.Y, 1e-15)
	// position uses the updated velocity
	assert.InDelta(t, wantP.X, next.Position.X, 1e-15)
	assert.InDelta(t, wantP.Y, next.Position.Y, 1e-15)
}

func TestDocked(t *testing.T) {
	tests := []struct {
		name string
		s    State
		want bool
	}{
		{"at rest on target", State{}, true},
		{"inside radius slow", State{Position: core.Vec2{X: 0.1}, Velocity: core.Vec2{Y: 0.05}}, true},
		{"on radius boundary", State{Position: core.Vec2{X: DockRadius}}, false},
		{"inside radius too fast", State{Velocity: core.Vec2{X: 0.1}}, false},
		{"slow but far", State{Position: core.Vec2{X: 1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Docked(tt.s, origin))
		})
	}
}

func TestStep_DocksFromCloseRange(t *testing.T) {
	s := Step(State{Position: core.Vec2{X: 0.1}}, origin)
	assert.True(t, Docked(s, origin))
}

func TestStep_ConvergesFromSpawnAltitude(t *testing.T) {
	s := State{Position: core.Vec2{X: 15}}

	ticks := 0
	for ; ticks < 5000; ticks++ {
		s = Step(s, origin)
		if Docked(s, origin) {
			break
		}
	}

	require.Less(t, ticks, 5000, "approach did not converge")
	assert.False(t, math.IsNaN(s.Position.X))
}

func TestFrame_RoundTrip(t *testing.T) {
	slot := core.DockingSlot{Position: core.Position{X: 0, Y: 0, Z: 2.6}, ApproachAngle: 90}
	f := NewFrame(slot)

	spawn := f.ToWorld(core.Vec2{X: 15})
	assert.InDelta(t, 0, spawn.X, 1e-9)
	assert.InDelta(t, 15, spawn.Y, 1e-9)
	assert.InDelta(t, 2.6, spawn.Z, 1e-9)

	p := core.Vec2{X: 3.5, Y: -1.25}
	back := f.FromWorld(f.ToWorld(p))
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)
}

func TestFrame_AlongTrackIsHorizontalUnit(t *testing.T) {
	for _, angle := range []float64{30, 90, 150, 210, 270, 330} {
		f := NewFrame(core.DockingSlot{ApproachAngle: angle})
		assert.InDelta(t, 1, f.AlongTrack.Length(), 1e-12)
		assert.Equal(t, 0.0, f.AlongTrack.Y)
	}
}
