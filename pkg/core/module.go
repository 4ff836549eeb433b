// pkg/core/module.go
package core

// ModuleKind is the closed set of module kinds.
type ModuleKind string

const (
	KindStandard ModuleKind = "STANDARD"
	KindHubNode  ModuleKind = "HUB_NODE"
)

// CanBeHub reports whether modules of this kind can act as a docking hub.
func (k ModuleKind) CanBeHub() bool {
	return k == KindHubNode
}

// CanFault reports whether modules of this kind are eligible for fault injection.
func (k ModuleKind) CanFault() bool {
	return k == KindStandard
}

// Status is the operational state of a module.
type Status string

const (
	StatusNominal   Status = "NOMINAL"
	StatusCritical  Status = "CRITICAL"
	StatusDeparting Status = "DEPARTING"
)

// Variant selects the production profile of a module.
type Variant string

const (
	VariantGraphene     Variant = "graphene"
	VariantPolymer      Variant = "polymer"
	VariantAerogel      Variant = "aerogel"
	VariantHubExpansion Variant = "hub_expansion"
)

// Telemetry is the per-module readout shown in the inspector.
type Telemetry struct {
	Temperature float64 `json:"temperature"`
	CPULoad     float64 `json:"cpuLoad"`
	Efficiency  float64 `json:"efficiency"`
	PowerDraw   float64 `json:"powerDraw"`
	Energy      int     `json:"energy"`
	Production  int     `json:"production"`
}

// Module is a read-only snapshot of a registered module.
type Module struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Kind               ModuleKind `json:"kind"`
	Variant            Variant    `json:"variant"`
	Color              string     `json:"color"`
	Position           Position   `json:"position"`
	Rotation           float64    `json:"rotation"` // radians about Y
	Status             Status     `json:"status"`
	IsHub              bool       `json:"isHub"`
	ResourcesGenerated int        `json:"resourcesGenerated"`
	Telemetry          Telemetry  `json:"telemetry"`
}

// IsHubLike reports whether the module renders and hit-tests as a hub.
func (m Module) IsHubLike() bool {
	return m.IsHub || m.Kind == KindHubNode
}
