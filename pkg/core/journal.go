// pkg/core/journal.go
package core

import "time"

// Severity classifies a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeveritySuccess Severity = "success"
)

// Notification is a plain-text event for the operator.
type Notification struct {
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
	Time     time.Time `json:"time"`
}

// Session describes one recording of the station.
type Session struct {
	ID        uint      `json:"id"`
	UUID      string    `json:"uuid"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"startTime"`
	FrameRate int       `json:"frameRate"`
	Version   string    `json:"version"`
}

// ModuleEventType names a module lifecycle transition.
type ModuleEventType string

const (
	EventLaunched   ModuleEventType = "module_launched"
	EventDocked     ModuleEventType = "module_docked"
	EventFault      ModuleEventType = "module_fault"
	EventRepaired   ModuleEventType = "module_repaired"
	EventUndocking  ModuleEventType = "module_undocking"
	EventUndocked   ModuleEventType = "module_undocked"
	EventHubChanged ModuleEventType = "hub_changed"
	EventRejected   ModuleEventType = "launch_rejected"
)

// ModuleEvent records a lifecycle transition of one module.
type ModuleEvent struct {
	Type     ModuleEventType `json:"type"`
	Frame    uint            `json:"frame"`
	Time     time.Time       `json:"time"`
	ModuleID string          `json:"moduleId,omitempty"`
	Name     string          `json:"name,omitempty"`
	Kind     ModuleKind      `json:"kind,omitempty"`
	Status   Status          `json:"status,omitempty"`
	Position Position        `json:"position"`
	Detail   map[string]any  `json:"detail,omitempty"`
}

// ApproachSample is one sampled tick of an in-flight approach.
type ApproachSample struct {
	Frame    uint      `json:"frame"`
	Time     time.Time `json:"time"`
	ModuleID string    `json:"moduleId"`
	Position Position  `json:"position"`
	Distance float64   `json:"distance"`
	Speed    float64   `json:"speed"`
	Progress float64   `json:"progress"`
}

// ApproachTrack is the full path of a completed approach.
type ApproachTrack struct {
	ModuleID string     `json:"moduleId"`
	Name     string     `json:"name"`
	Time     time.Time  `json:"time"`
	Ticks    int        `json:"ticks"`
	Forced   bool       `json:"forced"`
	Points   []Position `json:"points"`
}

// TopologySnapshot records the connectivity graph at a point in time.
type TopologySnapshot struct {
	Frame       uint                `json:"frame"`
	Time        time.Time           `json:"time"`
	HubID       string              `json:"hubId"`
	Adjacency   map[string][]string `json:"adjacency"`
	Connections int                 `json:"connections"`
}
