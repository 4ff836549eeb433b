// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/OCAP2/dockyard/internal/geo"
	"github.com/OCAP2/dockyard/internal/model"
	"github.com/OCAP2/dockyard/pkg/core"
)

// SessionToCore converts a GORM Session to a core.Session
func SessionToCore(s model.Session) core.Session {
	return core.Session{
		ID:        s.ID,
		UUID:      s.UUID,
		Name:      s.Name,
		StartTime: s.StartTime,
		FrameRate: s.FrameRate,
		Version:   s.Version,
	}
}

// ModuleEventToCore converts a GORM ModuleEvent to a core.ModuleEvent
func ModuleEventToCore(e model.ModuleEvent) core.ModuleEvent {
	var detail map[string]any
	if len(e.Detail) > 0 {
		_ = json.Unmarshal(e.Detail, &detail)
	}
	pos, _ := geo.PositionFromPoint(e.Position)

	return core.ModuleEvent{
		Type:     core.ModuleEventType(e.Type),
		Frame:    e.Frame,
		Time:     e.Time,
		ModuleID: e.ModuleID,
		Name:     e.Name,
		Kind:     core.ModuleKind(e.Kind),
		Status:   core.Status(e.Status),
		Position: pos,
		Detail:   detail,
	}
}

// ApproachSampleToCore converts a GORM ApproachSample to a core.ApproachSample
func ApproachSampleToCore(s model.ApproachSample) core.ApproachSample {
	pos, _ := geo.PositionFromPoint(s.Position)
	return core.ApproachSample{
		Frame:    s.Frame,
		Time:     s.Time,
		ModuleID: s.ModuleID,
		Position: pos,
		Distance: s.Distance,
		Speed:    s.Speed,
		Progress: s.Progress,
	}
}

// ApproachTrackToCore converts a GORM ApproachTrack to a core.ApproachTrack
func ApproachTrackToCore(t model.ApproachTrack) core.ApproachTrack {
	return core.ApproachTrack{
		ModuleID: t.ModuleID,
		Name:     t.Name,
		Time:     t.Time,
		Ticks:    t.Ticks,
		Forced:   t.Forced,
		Points:   geo.TrackPositions(t.Path),
	}
}

// TopologyToCore converts a GORM TopologySnapshot to a core.TopologySnapshot
func TopologyToCore(t model.TopologySnapshot) core.TopologySnapshot {
	var adj map[string][]string
	if len(t.Adjacency) > 0 {
		_ = json.Unmarshal(t.Adjacency, &adj)
	}
	return core.TopologySnapshot{
		Frame:       t.Frame,
		Time:        t.Time,
		HubID:       t.HubID,
		Adjacency:   adj,
		Connections: t.Connections,
	}
}

// NotificationToCore converts a GORM Notification to a core.Notification
func NotificationToCore(n model.Notification) core.Notification {
	return core.Notification{
		Message:  n.Message,
		Severity: core.Severity(n.Severity),
		Time:     n.Time,
	}
}
