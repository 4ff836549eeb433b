// Package motion animates modules that have left the registry.
package motion

import (
	"time"

	"github.com/OCAP2/dockyard/pkg/core"
)

type tween struct {
	module   core.Module
	from, to core.Position
	duration time.Duration
	elapsed  time.Duration
	onDone   func()
}

// Tweener moves departing modules along straight exit trajectories.
// It is not safe for concurrent use.
type Tweener struct {
	tweens []*tween
}

// NewTweener creates an idle tweener.
func NewTweener() *Tweener {
	return &Tweener{}
}

// Depart starts moving m from its current position to `to` over duration.
func (t *Tweener) Depart(m core.Module, to core.Position, duration time.Duration, onDone func()) {
	t.tweens = append(t.tweens, &tween{
		module:   m,
		from:     m.Position,
		to:       to,
		duration: duration,
		onDone:   onDone,
	})
}

// Advance moves every tween forward by dt and completes the finished ones.
func (t *Tweener) Advance(dt time.Duration) {
	var done []*tween
	live := t.tweens[:0]

	for _, tw := range t.tweens {
		tw.elapsed += dt
		if tw.elapsed >= tw.duration {
			tw.module.Position = tw.to
			done = append(done, tw)
			continue
		}
		tw.module.Position = tw.from.Lerp(tw.to, float64(tw.elapsed)/float64(tw.duration))
		live = append(live, tw)
	}

	for i := len(live); i < len(t.tweens); i++ {
		t.tweens[i] = nil
	}
	t.tweens = live

	for _, tw := range done {
		if tw.onDone != nil {
			tw.onDone()
		}
	}
}

// Departing returns the modules still on their exit trajectory.
func (t *Tweener) Departing() []core.Module {
	out := make([]core.Module, len(t.tweens))
	for i, tw := range t.tweens {
		out[i] = tw.module
	}
	return out
}

// Len returns the number of active tweens.
func (t *Tweener) Len() int {
	return len(t.tweens)
}
