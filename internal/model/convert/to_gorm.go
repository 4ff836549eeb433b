package convert

import (
	"encoding/json"

	"github.com/OCAP2/dockyard/internal/geo"
	"github.com/OCAP2/dockyard/internal/model"
	"github.com/OCAP2/dockyard/pkg/core"
	"gorm.io/datatypes"
)

// SessionToGorm converts a core.Session to a GORM Session.
// The GORM primary key is assigned by the database.
func SessionToGorm(s core.Session) model.Session {
	return model.Session{
		UUID:      s.UUID,
		Name:      s.Name,
		StartTime: s.StartTime,
		FrameRate: s.FrameRate,
		Version:   s.Version,
	}
}

// ModuleEventToGorm converts a core.ModuleEvent to a GORM ModuleEvent
func ModuleEventToGorm(sessionID uint, e core.ModuleEvent) model.ModuleEvent {
	return model.ModuleEvent{
		Time:      e.Time,
		SessionID: sessionID,
		Frame:     e.Frame,
		Type:      string(e.Type),
		ModuleID:  e.ModuleID,
		Name:      e.Name,
		Kind:      string(e.Kind),
		Status:    string(e.Status),
		Position:  geo.PointFromPosition(e.Position),
		Detail:    toJSON(e.Detail),
	}
}

// ApproachSampleToGorm converts a core.ApproachSample to a GORM ApproachSample
func ApproachSampleToGorm(sessionID uint, s core.ApproachSample) model.ApproachSample {
	return model.ApproachSample{
		Time:      s.Time,
		SessionID: sessionID,
		Frame:     s.Frame,
		ModuleID:  s.ModuleID,
		Position:  geo.PointFromPosition(s.Position),
		Distance:  s.Distance,
		Speed:     s.Speed,
		Progress:  s.Progress,
	}
}

// ApproachTrackToGorm converts a core.ApproachTrack to a GORM ApproachTrack.
// PathWKT mirrors Path so SQLite journals stay readable without spatial support.
func ApproachTrackToGorm(sessionID uint, t core.ApproachTrack) model.ApproachTrack {
	path := geo.TrackLineString(t.Points)
	var wkt string
	if !path.IsEmpty() {
		wkt = path.AsText()
	}
	return model.ApproachTrack{
		Time:      t.Time,
		SessionID: sessionID,
		ModuleID:  t.ModuleID,
		Name:      t.Name,
		Ticks:     t.Ticks,
		Forced:    t.Forced,
		Path:      path,
		PathWKT:   wkt,
		Length:    geo.TrackLength(t.Points),
	}
}

// TopologyToGorm converts a core.TopologySnapshot to a GORM TopologySnapshot
func TopologyToGorm(sessionID uint, t core.TopologySnapshot) model.TopologySnapshot {
	return model.TopologySnapshot{
		Time:        t.Time,
		SessionID:   sessionID,
		Frame:       t.Frame,
		HubID:       t.HubID,
		Connections: t.Connections,
		Adjacency:   toJSON(t.Adjacency),
	}
}

// NotificationToGorm converts a core.Notification to a GORM Notification
func NotificationToGorm(sessionID uint, n core.Notification) model.Notification {
	return model.Notification{
		Time:      n.Time,
		SessionID: sessionID,
		Severity:  string(n.Severity),
		Message:   n.Message,
	}
}

func toJSON[T any](v T) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return nil
	}
	return datatypes.JSON(b)
}
