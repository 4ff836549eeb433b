package docking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/OCAP2/dockyard/pkg/core"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SpawnAltitude is how far above its slot a launched module appears.
	SpawnAltitude = 15.0
	// ExitRise is how far an undocking module climbs before disposal.
	ExitRise = 20.0
	// ExitDuration is the length of the undocking trajectory.
	ExitDuration = 2 * time.Second

	// CentralStationName is the name of the hub registered by Bootstrap.
	CentralStationName = "Central Station"

	baseRotation = math.Pi / 6
)

var (
	ErrLaunchInProgress = errors.New("launch already in progress")
	ErrNoHub            = errors.New("no active hub")
	ErrHubFull          = errors.New("hub full")
	ErrUnknownBlueprint = errors.New("unknown blueprint")
	ErrUnknownModule    = errors.New("unknown module")
)

// Mover animates modules for the orchestrator. Both callbacks must be
// invoked exactly once.
type Mover interface {
	Descend(m core.Module, slot core.DockingSlot, onArrival func())
	Depart(m core.Module, to core.Position, duration time.Duration, onDone func())
}

// Notifier receives operator-facing messages.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Success(msg string)
}

// Journal records module lifecycle events.
type Journal interface {
	RecordModuleEvent(e *core.ModuleEvent) error
}

// Clock supplies the current frame number and time.
type Clock interface {
	Frame() uint
	Now() time.Time
}

type nopNotifier struct{}

func (nopNotifier) Info(string)    {}
func (nopNotifier) Warn(string)    {}
func (nopNotifier) Success(string) {}

type wallClock struct{}

func (wallClock) Frame() uint    { return 0 }
func (wallClock) Now() time.Time { return time.Now() }

// Dependencies holds all dependencies for the orchestrator.
type Dependencies struct {
	Mover    Mover
	Notifier Notifier
	Journal  Journal // optional
	Catalog  *Catalog
	Clock    Clock      // optional, wall clock when nil
	Rand     *rand.Rand // optional
	Logger   *slog.Logger
}

// Outcome is the result class of a launch request.
type Outcome string

const (
	OutcomeLaunched         Outcome = "launched"
	OutcomeBusy             Outcome = "launch_in_progress"
	OutcomeNoHub            Outcome = "no_active_hub"
	OutcomeHubFull          Outcome = "hub_full"
	OutcomeUnknownBlueprint Outcome = "unknown_blueprint"
)

// LaunchResult reports what happened to a launch request.
type LaunchResult struct {
	Outcome Outcome          `json:"outcome"`
	Module  core.Module      `json:"module"`
	Slot    core.DockingSlot `json:"slot"`
}

// OK reports whether the module was launched.
func (r LaunchResult) OK() bool {
	return r.Outcome == OutcomeLaunched
}

// Err maps a rejected outcome to its sentinel error.
func (r LaunchResult) Err() error {
	switch r.Outcome {
	case OutcomeLaunched:
		return nil
	case OutcomeBusy:
		return ErrLaunchInProgress
	case OutcomeNoHub:
		return ErrNoHub
	case OutcomeHubFull:
		return ErrHubFull
	case OutcomeUnknownBlueprint:
		return ErrUnknownBlueprint
	default:
		return fmt.Errorf("unexpected outcome %q", r.Outcome)
	}
}

// HubRef is the active hub. ModuleID is empty when the hub is a raw position.
type HubRef struct {
	ModuleID string        `json:"moduleId,omitempty"`
	Name     string        `json:"name"`
	Position core.Position `json:"position"`
}

type record struct {
	core.Module
	profile  Profile
	yieldAcc time.Duration
}

// Orchestrator owns the module registry and the launch lifecycle.
// It is not safe for concurrent use; the station frame loop is its only caller.
type Orchestrator struct {
	deps Dependencies
	log  *slog.Logger
	rng  *rand.Rand

	modules []*record
	index   map[string]*record
	rootID  string
	hub     *HubRef

	isLaunching bool
	launchingID string

	launches metric.Int64Counter
	faults   metric.Int64Counter
	repairs  metric.Int64Counter
}

// New creates an orchestrator with an empty registry.
// Call Bootstrap to register the central station.
func New(deps Dependencies) (*Orchestrator, error) {
	if deps.Mover == nil {
		return nil, errors.New("docking: mover is required")
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Catalog == nil {
		deps.Catalog = DefaultCatalog()
	}
	if deps.Clock == nil {
		deps.Clock = wallClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	o := &Orchestrator{
		deps:  deps,
		log:   deps.Logger,
		rng:   rng,
		index: make(map[string]*record),
	}

	m := meter()
	var err error

	o.launches, err = m.Int64Counter(
		"docking.launches",
		metric.WithDescription("Launch requests by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating launch counter: %w", err)
	}

	o.faults, err = m.Int64Counter(
		"docking.faults",
		metric.WithDescription("Faults injected"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fault counter: %w", err)
	}

	o.repairs, err = m.Int64Counter(
		"docking.repairs",
		metric.WithDescription("Modules returned to nominal"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating repair counter: %w", err)
	}

	return o, nil
}

// Bootstrap registers the central station at the origin and makes it the active hub.
func (o *Orchestrator) Bootstrap() core.Module {
	if o.rootID != "" {
		return o.index[o.rootID].Module
	}

	prof := ProfileFor(core.VariantHubExpansion)
	root := &record{
		Module: core.Module{
			ID:        uuid.NewString(),
			Name:      CentralStationName,
			Kind:      core.KindHubNode,
			Variant:   core.VariantHubExpansion,
			Color:     "#e2e8f0",
			Rotation:  baseRotation,
			Status:    core.StatusNominal,
			IsHub:     true,
			Telemetry: prof.Telemetry,
		},
		profile: prof,
	}
	o.add(root)
	o.rootID = root.ID
	o.hub = &HubRef{ModuleID: root.ID, Name: root.Name, Position: root.Position}

	o.journal(core.EventHubChanged, root, nil)
	o.deps.Notifier.Success("System Initialized. Hub Connectivity: 100%")
	o.log.Info("Central hub registered", "id", root.ID)
	return root.Module
}

// Launch looks up a blueprint by name and launches it.
func (o *Orchestrator) Launch(name string) LaunchResult {
	bp, ok := o.deps.Catalog.Lookup(name)
	if !ok {
		o.log.Warn("Launch requested for unknown blueprint", "blueprint", name)
		o.deps.Notifier.Warn(fmt.Sprintf("Unknown module type: %s", name))
		o.countLaunch(OutcomeUnknownBlueprint)
		return LaunchResult{Outcome: OutcomeUnknownBlueprint}
	}
	return o.LaunchBlueprint(bp)
}

// LaunchBlueprint allocates a slot around the active hub and sends a new
// module on its approach. Rejections leave the registry untouched.
func (o *Orchestrator) LaunchBlueprint(bp Blueprint) LaunchResult {
	if o.isLaunching {
		o.deps.Notifier.Warn("Wait for the previous module to land")
		return o.reject(OutcomeBusy, bp)
	}

	hub, ok := o.Hub()
	if !ok {
		o.log.Error("No active hub selected")
		o.deps.Notifier.Warn("No active hub selected")
		return o.reject(OutcomeNoHub, bp)
	}

	slot, ok := FindFreeSlot(hub.Position, o.positions())
	if !ok {
		o.deps.Notifier.Warn("HUB FULL. Activate another node.")
		return o.reject(OutcomeHubFull, bp)
	}

	bp = normalize(bp)
	prof := ProfileFor(bp.Variant)
	rec := &record{
		Module: core.Module{
			ID:        uuid.NewString(),
			Name:      bp.Name,
			Kind:      bp.Kind,
			Variant:   bp.Variant,
			Color:     bp.Color,
			Position:  slot.Position.Add(core.Position{Y: SpawnAltitude}),
			Rotation:  core.Radians(slot.ApproachAngle+180) + baseRotation,
			Status:    core.StatusNominal,
			IsHub:     bp.Kind.CanBeHub(),
			Telemetry: prof.Telemetry,
		},
		profile: prof,
	}

	o.isLaunching = true
	o.launchingID = rec.ID
	o.add(rec)

	o.journal(core.EventLaunched, rec, map[string]any{
		"slotAngle": slot.ApproachAngle,
		"hub":       hub.Name,
	})
	o.deps.Notifier.Info(fmt.Sprintf("Launching %s...", rec.Name))
	o.countLaunch(OutcomeLaunched)

	id := rec.ID
	o.deps.Mover.Descend(rec.Module, slot, func() { o.arrive(id, slot) })

	return LaunchResult{Outcome: OutcomeLaunched, Module: rec.Module, Slot: slot}
}

func (o *Orchestrator) reject(outcome Outcome, bp Blueprint) LaunchResult {
	o.countLaunch(outcome)
	o.journal(core.EventRejected, nil, map[string]any{
		"blueprint": bp.Name,
		"outcome":   string(outcome),
	})
	return LaunchResult{Outcome: outcome}
}

func (o *Orchestrator) arrive(id string, slot core.DockingSlot) {
	if o.launchingID == id {
		o.isLaunching = false
		o.launchingID = ""
	}

	rec, ok := o.index[id]
	if !ok {
		o.log.Warn("Arrival for unregistered module", "id", id)
		return
	}
	rec.Position = slot.Position

	o.journal(core.EventDocked, rec, map[string]any{"slotAngle": slot.ApproachAngle})
	o.deps.Notifier.Success(fmt.Sprintf("%s docked", rec.Name))
}

// TriggerRandomFault sends one random operational standard module into CRITICAL.
func (o *Orchestrator) TriggerRandomFault() (core.Module, bool) {
	var eligible []*record
	for _, rec := range o.modules {
		if rec.Status == core.StatusNominal && rec.Kind.CanFault() && !rec.IsHub {
			eligible = append(eligible, rec)
		}
	}

	if len(eligible) == 0 {
		o.deps.Notifier.Warn("No operational modules to simulate fault")
		return core.Module{}, false
	}

	rec := eligible[o.rng.Intn(len(eligible))]
	rec.Status = core.StatusCritical

	o.faults.Add(context.Background(), 1)
	o.journal(core.EventFault, rec, nil)
	o.deps.Notifier.Warn(fmt.Sprintf("CRITICAL FAULT detected in %s!", rec.Name))
	return rec.Module, true
}

// RepairFault returns every CRITICAL module to NOMINAL and reports how many were repaired.
func (o *Orchestrator) RepairFault() int {
	fixed := 0
	for _, rec := range o.modules {
		if rec.Status != core.StatusCritical {
			continue
		}
		rec.Status = core.StatusNominal
		o.journal(core.EventRepaired, rec, nil)
		fixed++
	}

	if fixed > 0 {
		o.repairs.Add(context.Background(), int64(fixed))
		o.deps.Notifier.Success(fmt.Sprintf("System restored: %d module(s) repaired", fixed))
	} else {
		o.deps.Notifier.Info("No faults detected in the system")
	}
	return fixed
}

// RepairModule returns a single CRITICAL module to NOMINAL.
func (o *Orchestrator) RepairModule(id string) bool {
	rec, ok := o.index[id]
	if !ok || rec.Status != core.StatusCritical {
		return false
	}
	rec.Status = core.StatusNominal

	o.repairs.Add(context.Background(), 1)
	o.journal(core.EventRepaired, rec, nil)
	o.deps.Notifier.Success(fmt.Sprintf("Module repaired: %s", rec.Name))
	return true
}

// UndockModule removes a docked module from the registry and sends it on
// its exit trajectory. The central station, the active hub and a module
// still on approach cannot be undocked.
func (o *Orchestrator) UndockModule(id string) bool {
	rec, ok := o.index[id]
	if !ok {
		o.log.Warn("undockModule: invalid module", "id", id)
		return false
	}

	switch {
	case id == o.rootID:
		o.deps.Notifier.Warn(fmt.Sprintf("%s cannot be undocked", rec.Name))
		return false
	case o.hub != nil && o.hub.ModuleID == id:
		o.deps.Notifier.Warn(fmt.Sprintf("%s is the active hub", rec.Name))
		return false
	case id == o.launchingID:
		o.deps.Notifier.Warn(fmt.Sprintf("%s is still on approach", rec.Name))
		return false
	}

	o.remove(id)
	rec.Status = core.StatusDeparting

	o.journal(core.EventUndocking, rec, nil)
	o.deps.Notifier.Info(fmt.Sprintf("Undocking %s...", rec.Name))

	exit := rec.Position.Add(core.Position{Y: ExitRise})
	departed := rec
	o.deps.Mover.Depart(rec.Module, exit, ExitDuration, func() {
		departed.Position = exit
		o.journal(core.EventUndocked, departed, nil)
		o.deps.Notifier.Success(fmt.Sprintf("%s undocked.", departed.Name))
	})
	return true
}

// SetActiveHub points the hub reference at a registered module.
func (o *Orchestrator) SetActiveHub(id string) bool {
	rec, ok := o.index[id]
	if !ok {
		o.log.Warn("setActiveHub: invalid module", "id", id)
		return false
	}

	o.hub = &HubRef{ModuleID: rec.ID, Name: rec.Name, Position: rec.Position}
	o.journal(core.EventHubChanged, rec, nil)
	o.deps.Notifier.Info(fmt.Sprintf("ACTIVE HUB: %s", rec.Name))
	return true
}

// SetActiveHubPosition points the hub reference at a raw position.
func (o *Orchestrator) SetActiveHubPosition(pos core.Position) {
	o.hub = &HubRef{Name: "Expansion Node", Position: pos}
	o.journal(core.EventHubChanged, nil, map[string]any{"position": pos})
	o.deps.Notifier.Info("ACTIVE HUB: Expansion Node")
}

// Hub returns the active hub with its current position.
func (o *Orchestrator) Hub() (HubRef, bool) {
	if o.hub == nil {
		return HubRef{}, false
	}
	ref := *o.hub
	if ref.ModuleID != "" {
		rec, ok := o.index[ref.ModuleID]
		if !ok {
			return HubRef{}, false
		}
		ref.Position = rec.Position
		ref.Name = rec.Name
	}
	return ref, true
}

// GraphHubID is the module the topology graph is rooted at: the active
// hub module, or the central station when the hub is a raw position.
func (o *Orchestrator) GraphHubID() string {
	if o.hub != nil && o.hub.ModuleID != "" {
		if _, ok := o.index[o.hub.ModuleID]; ok {
			return o.hub.ModuleID
		}
	}
	return o.rootID
}

// SyncPositions copies live positions from the motion pipeline into the registry.
func (o *Orchestrator) SyncPositions(positions map[string]core.Position) {
	for id, pos := range positions {
		if rec, ok := o.index[id]; ok {
			rec.Position = pos
		}
	}
}

// Produce advances periodic resource generation. Only NOMINAL modules produce.
func (o *Orchestrator) Produce(elapsed time.Duration) {
	for _, rec := range o.modules {
		interval := rec.profile.YieldInterval
		if interval <= 0 || rec.Status != core.StatusNominal {
			continue
		}
		rec.yieldAcc += elapsed
		for rec.yieldAcc >= interval {
			rec.ResourcesGenerated += rec.profile.ResourceYield
			rec.yieldAcc -= interval
		}
	}
}

// Modules returns a snapshot of the registry in registration order.
func (o *Orchestrator) Modules() []core.Module {
	out := make([]core.Module, len(o.modules))
	for i, rec := range o.modules {
		out[i] = rec.Module
	}
	return out
}

// Module returns a snapshot of one module.
func (o *Orchestrator) Module(id string) (core.Module, bool) {
	rec, ok := o.index[id]
	if !ok {
		return core.Module{}, false
	}
	return rec.Module, true
}

// IsLaunching reports whether a module is in flight.
func (o *Orchestrator) IsLaunching() bool {
	return o.isLaunching
}

// LaunchingID returns the id of the module in flight, if any.
func (o *Orchestrator) LaunchingID() string {
	return o.launchingID
}

// RootID returns the central station id.
func (o *Orchestrator) RootID() string {
	return o.rootID
}

// Catalog returns the blueprint catalog.
func (o *Orchestrator) Catalog() *Catalog {
	return o.deps.Catalog
}

func (o *Orchestrator) add(rec *record) {
	o.modules = append(o.modules, rec)
	o.index[rec.ID] = rec
}

func (o *Orchestrator) remove(id string) {
	delete(o.index, id)
	for i, rec := range o.modules {
		if rec.ID == id {
			o.modules = append(o.modules[:i], o.modules[i+1:]...)
			return
		}
	}
}

func (o *Orchestrator) positions() []core.Position {
	out := make([]core.Position, len(o.modules))
	for i, rec := range o.modules {
		out[i] = rec.Position
	}
	return out
}

func (o *Orchestrator) countLaunch(outcome Outcome) {
	o.launches.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("outcome", string(outcome))))
}

func (o *Orchestrator) journal(t core.ModuleEventType, rec *record, detail map[string]any) {
	if o.deps.Journal == nil {
		return
	}

	e := &core.ModuleEvent{
		Type:   t,
		Frame:  o.deps.Clock.Frame(),
		Time:   o.deps.Clock.Now(),
		Detail: detail,
	}
	if rec != nil {
		e.ModuleID = rec.ID
		e.Name = rec.Name
		e.Kind = rec.Kind
		e.Status = rec.Status
		e.Position = rec.Position
	}

	if err := o.deps.Journal.RecordModuleEvent(e); err != nil {
		o.log.Debug("Failed to journal module event", "type", t, "error", err)
	}
}
