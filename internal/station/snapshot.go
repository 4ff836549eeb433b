package station

import (
	"time"

	"github.com/OCAP2/dockyard/internal/docking"
	"github.com/OCAP2/dockyard/internal/simulation"
	"github.com/OCAP2/dockyard/internal/topology"
	"github.com/OCAP2/dockyard/pkg/core"
)

// recentNotifications bounds Snapshot.Notifications.
const recentNotifications = 32

// Stats is the station overlay readout.
type Stats struct {
	Nodes   int `json:"nodes"`
	Links   int `json:"links"`
	EnRoute int `json:"enRoute"`
}

// Snapshot is an immutable view of the station published after every
// frame. Callers must not modify it.
type Snapshot struct {
	Frame       uint64          `json:"frame"`
	Time        time.Time       `json:"time"`
	Session     string          `json:"session"`
	RootID      string          `json:"rootId"`
	GraphHubID  string          `json:"graphHubId"`
	Hub         *docking.HubRef `json:"hub,omitempty"`
	Launching   bool            `json:"launching"`
	LaunchingID string          `json:"launchingId,omitempty"`

	Modules   []core.Module            `json:"modules"`
	Departing []core.Module            `json:"departing"`
	Agents    []simulation.AgentView   `json:"agents"`
	Completed []simulation.Completed   `json:"completed"`
	HUD       simulation.LaunchReadout `json:"hud"`
	Edges     []topology.Edge          `json:"edges"`
	Adjacency map[string][]string      `json:"adjacency"`
	Stats     Stats                    `json:"stats"`

	// Notifications holds the most recent messages, oldest first.
	// NotificationSeq counts every message ever posted.
	Notifications   []core.Notification `json:"notifications"`
	NotificationSeq uint64              `json:"notificationSeq"`

	graph *topology.Graph
}

// Path returns the shortest hub path to id, or nil when unreachable.
func (s *Snapshot) Path(id string) []string {
	if s.graph == nil {
		return nil
	}
	return s.graph.ShortestPath(id)
}

// Module finds a registered module by id.
func (s *Snapshot) Module(id string) (core.Module, bool) {
	for _, m := range s.Modules {
		if m.ID == id {
			return m, true
		}
	}
	return core.Module{}, false
}

// NotificationsSince returns the messages posted after seq that are still
// held by the snapshot.
func (s *Snapshot) NotificationsSince(seq uint64) []core.Notification {
	if seq >= s.NotificationSeq {
		return nil
	}
	n := s.NotificationSeq - seq
	if n > uint64(len(s.Notifications)) {
		n = uint64(len(s.Notifications))
	}
	return s.Notifications[len(s.Notifications)-int(n):]
}
