package v1

import (
	"math"
	"time"

	"github.com/OCAP2/dockyard/internal/geo"
	"github.com/OCAP2/dockyard/pkg/core"
)

// SessionData contains all the data needed to build an export
type SessionData struct {
	Session     *core.Session
	StationName string
	EndTime     time.Time
	Modules     []*ModuleRecord // in order of first appearance

	Events        []core.ModuleEvent
	Topology      []core.TopologySnapshot
	Notifications []core.Notification
}

// ModuleRecord groups a module with all its time-series data
type ModuleRecord struct {
	ID         string
	Name       string
	Kind       core.ModuleKind
	FirstFrame uint
	Samples    []core.ApproachSample
	Track      *core.ApproachTrack
}

// Build creates an Export from the session data
func Build(data *SessionData) Export {
	export := Export{
		FormatVersion: FormatVersion,
		StationName:   data.StationName,
		Modules:       make([]Module, 0, len(data.Modules)),
		Events:        make([][]any, 0, len(data.Events)),
		Topology:      make([]Topology, 0, len(data.Topology)),
		Notifications: make([]Notification, 0, len(data.Notifications)),
	}
	if s := data.Session; s != nil {
		export.Version = s.Version
		export.SessionName = s.Name
		export.SessionUUID = s.UUID
		export.FrameRate = s.FrameRate
		export.StartTime = formatTime(s.StartTime)
	}
	if !data.EndTime.IsZero() {
		export.EndTime = formatTime(data.EndTime)
	}

	var maxFrame uint

	// Modules
	// Sample format: [frame, [x, y, z], distance, progress]
	for _, rec := range data.Modules {
		mod := Module{
			ID:         rec.ID,
			Name:       rec.Name,
			Kind:       string(rec.Kind),
			FirstFrame: rec.FirstFrame,
			Samples:    make([][]any, 0, len(rec.Samples)),
		}
		for _, s := range rec.Samples {
			mod.Samples = append(mod.Samples, []any{
				s.Frame,
				[]float64{round(s.Position.X), round(s.Position.Y), round(s.Position.Z)},
				round(s.Distance),
				round(s.Progress),
			})
			maxFrame = max(maxFrame, s.Frame)
		}
		if rec.Track != nil {
			mod.Track = &Track{
				Ticks:  rec.Track.Ticks,
				Forced: rec.Track.Forced,
				Length: round(geo.TrackLength(rec.Track.Points)),
			}
			if ls := geo.TrackLineString(rec.Track.Points); !ls.IsEmpty() {
				mod.Track.WKT = ls.AsText()
			}
		}
		export.Modules = append(export.Modules, mod)
	}

	// Events
	// Format: [frame, type, moduleId, name, status, detail]
	for _, evt := range data.Events {
		var detail any = map[string]any{}
		if evt.Detail != nil {
			detail = evt.Detail
		}
		export.Events = append(export.Events, []any{
			evt.Frame,
			string(evt.Type),
			evt.ModuleID,
			evt.Name,
			string(evt.Status),
			detail,
		})
		maxFrame = max(maxFrame, evt.Frame)
	}

	for _, t := range data.Topology {
		export.Topology = append(export.Topology, Topology{
			Frame:       t.Frame,
			HubID:       t.HubID,
			Connections: t.Connections,
			Adjacency:   t.Adjacency,
		})
		maxFrame = max(maxFrame, t.Frame)
	}

	for _, n := range data.Notifications {
		export.Notifications = append(export.Notifications, Notification{
			Time:     formatTime(n.Time),
			Severity: string(n.Severity),
			Message:  n.Message,
		})
	}

	export.EndFrame = maxFrame
	return export
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// round trims coordinates to millimetres to keep exports small.
func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
