// Package simulation runs the per-tick approach of launched modules and
// the 2D viewport used to inspect it.
package simulation

import (
	"log/slog"
	"math"
	"time"

	"github.com/OCAP2/dockyard/internal/approach"
	"github.com/OCAP2/dockyard/pkg/core"
)

const (
	// CompletedGrace is how long a finished approach stays in Completed.
	CompletedGrace = 3 * time.Second
	// DefaultMaxTicks force-docks an agent that never meets the docking predicate.
	DefaultMaxTicks = 6000
	// DefaultTrackEvery is the tick interval between recorded track points.
	DefaultTrackEvery = 10
)

var target = core.Vec2{}

// Config tunes the loop.
type Config struct {
	MaxTicks   int // 0 disables the fallback dock
	TrackEvery int
	Logger     *slog.Logger
}

// Agent is the virtual counterpart of one module on approach.
type Agent struct {
	TargetID        string
	Name            string
	State           approach.State
	Frame           approach.Frame
	InitialDistance float64
	MaxProgress     float64
	Docked          bool
	Ticks           int

	track     []core.Position
	onArrival func()
}

// Distance returns the distance to the slot.
func (a *Agent) Distance() float64 {
	return a.State.Position.Length()
}

// AgentView is a read-only copy of an agent for rendering.
type AgentView struct {
	TargetID string        `json:"targetId"`
	Name     string        `json:"name"`
	Position core.Position `json:"position"`
	Planar   core.Vec2     `json:"planar"`
	Velocity core.Vec2     `json:"velocity"`
	Distance float64       `json:"distance"`
	Speed    float64       `json:"speed"`
	Progress float64       `json:"progress"`
	Ticks    int           `json:"ticks"`
}

// Completed marks a finished approach.
type Completed struct {
	TargetID string    `json:"targetId"`
	At       time.Time `json:"at"`
}

// Arrival is returned by Tick for every agent that docked on that tick.
type Arrival struct {
	Track     core.ApproachTrack
	onArrival func()
}

// Complete runs the arrival callback. Subsequent calls do nothing.
func (a *Arrival) Complete() {
	if a.onArrival == nil {
		return
	}
	fn := a.onArrival
	a.onArrival = nil
	fn()
}

// Loop owns every live agent. It is not safe for concurrent use.
type Loop struct {
	cfg Config
	log *slog.Logger

	agents    []*Agent
	completed []Completed
	docked    map[string]struct{}
}

// NewLoop creates an empty loop.
func NewLoop(cfg Config) *Loop {
	if cfg.TrackEvery <= 0 {
		cfg.TrackEvery = DefaultTrackEvery
	}
	if cfg.MaxTicks < 0 {
		cfg.MaxTicks = 0
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Loop{
		cfg:    cfg,
		log:    log,
		docked: make(map[string]struct{}),
	}
}

// Descend starts the approach of m onto slot. The module's current
// position, expressed in the slot frame, is the agent's starting state.
func (l *Loop) Descend(m core.Module, slot core.DockingSlot, onArrival func()) {
	frame := approach.NewFrame(slot)
	p0 := frame.FromWorld(m.Position)

	a := &Agent{
		TargetID:        m.ID,
		Name:            m.Name,
		State:           approach.State{Position: p0},
		Frame:           frame,
		InitialDistance: p0.Length(),
		track:           []core.Position{m.Position},
		onArrival:       onArrival,
	}
	l.agents = append(l.agents, a)

	l.log.Debug("Approach started",
		"module", m.Name,
		"id", m.ID,
		"slotAngle", slot.ApproachAngle,
		"distance", a.InitialDistance)
}

// Tick advances every live agent by one physics step. Docked agents are
// removed from the live set in the same tick and returned in agent order;
// the caller runs Complete on each once the registry is in sync.
func (l *Loop) Tick(now time.Time) []Arrival {
	var arrivals []Arrival
	live := l.agents[:0]

	for _, a := range l.agents {
		a.State = approach.Step(a.State, target)
		a.Ticks++
		a.MaxProgress = math.Max(a.MaxProgress, Progress(a.InitialDistance, a.Distance()))

		if a.Ticks%l.cfg.TrackEvery == 0 {
			a.track = append(a.track, a.Frame.ToWorld(a.State.Position))
		}

		docked := approach.Docked(a.State, target)
		forced := false
		if !docked && l.cfg.MaxTicks > 0 && a.Ticks >= l.cfg.MaxTicks {
			docked, forced = true, true
			l.log.Warn("Approach did not converge, forcing dock",
				"module", a.Name,
				"ticks", a.Ticks,
				"distance", a.Distance(),
				"speed", a.State.Velocity.Length())
		}

		if !docked {
			live = append(live, a)
			continue
		}

		a.Docked = true
		a.track = append(a.track, a.Frame.Origin)
		l.completed = append(l.completed, Completed{TargetID: a.TargetID, At: now})
		l.docked[a.TargetID] = struct{}{}

		arrivals = append(arrivals, Arrival{
			Track: core.ApproachTrack{
				ModuleID: a.TargetID,
				Name:     a.Name,
				Time:     now,
				Ticks:    a.Ticks,
				Forced:   forced,
				Points:   a.track,
			},
			onArrival: a.onArrival,
		})
	}

	for i := len(live); i < len(l.agents); i++ {
		l.agents[i] = nil
	}
	l.agents = live
	l.prune(now)

	return arrivals
}

func (l *Loop) prune(now time.Time) {
	kept := l.completed[:0]
	for _, c := range l.completed {
		if now.Sub(c.At) < CompletedGrace {
			kept = append(kept, c)
		}
	}
	l.completed = kept
}

// Progress converts a distance into approach progress in [0,100].
func Progress(initial, dist float64) float64 {
	if initial <= 0 {
		return 0
	}
	p := (initial - dist) / initial * 100
	return math.Max(0, math.Min(100, p))
}

// Positions returns the station position of every live agent.
func (l *Loop) Positions() map[string]core.Position {
	out := make(map[string]core.Position, len(l.agents))
	for _, a := range l.agents {
		out[a.TargetID] = a.Frame.ToWorld(a.State.Position)
	}
	return out
}

// Agents returns views of the live agents.
func (l *Loop) Agents() []AgentView {
	out := make([]AgentView, len(l.agents))
	for i, a := range l.agents {
		out[i] = AgentView{
			TargetID: a.TargetID,
			Name:     a.Name,
			Position: a.Frame.ToWorld(a.State.Position),
			Planar:   a.State.Position,
			Velocity: a.State.Velocity,
			Distance: a.Distance(),
			Speed:    a.State.Velocity.Length(),
			Progress: a.MaxProgress,
			Ticks:    a.Ticks,
		}
	}
	return out
}

// Completed returns approaches finished within the grace window.
func (l *Loop) Completed() []Completed {
	return append([]Completed(nil), l.completed...)
}

// IsDocked reports whether id ever completed an approach.
func (l *Loop) IsDocked(id string) bool {
	_, ok := l.docked[id]
	return ok
}

// DockedCount returns the size of the permanent docked set.
func (l *Loop) DockedCount() int {
	return len(l.docked)
}

// InFlight returns the number of live agents.
func (l *Loop) InFlight() int {
	return len(l.agents)
}
