package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&StationInfo{},
	&Session{},
	&ModuleEvent{},
	&ApproachSample{},
	&ApproachTrack{},
	&TopologySnapshot{},
	&Notification{},
	&JournalPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// StationInfo identifies the station instance that owns the journal
type StationInfo struct {
	gorm.Model
	StationName string `json:"stationName" gorm:"size:127"`
	Description string `json:"description" gorm:"size:255"`
}

func (*StationInfo) TableName() string {
	return "station_infos"
}

// JournalPerformance records writer health for a session
type JournalPerformance struct {
	Time                time.Time    `json:"time" gorm:"index:idx_perf_time"`
	SessionID           uint         `json:"sessionId" gorm:"index:idx_perf_session_id"`
	Session             Session      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	QueueLengths        QueueLengths `json:"queueLengths" gorm:"embedded;embeddedPrefix:queue_"`
	LastWriteDurationMs float32      `json:"lastWriteDurationMs"`
}

func (*JournalPerformance) TableName() string {
	return "journal_performances"
}

// QueueLengths is the backlog of each write queue
type QueueLengths struct {
	ModuleEvents    int `json:"moduleEvents"`
	ApproachSamples int `json:"approachSamples"`
	ApproachTracks  int `json:"approachTracks"`
	Topology        int `json:"topology"`
	Notifications   int `json:"notifications"`
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Session is one recording of the station
type Session struct {
	gorm.Model
	UUID      string     `json:"uuid" gorm:"size:36;uniqueIndex"`
	Name      string     `json:"name" gorm:"size:127"`
	StartTime time.Time  `json:"startTime" gorm:"index:idx_session_start_time"`
	EndTime   *time.Time `json:"endTime"`
	FrameRate int        `json:"frameRate"`
	Version   string     `json:"version" gorm:"size:32"`
}

func (*Session) TableName() string {
	return "sessions"
}

// ModuleEvent is a module lifecycle transition
type ModuleEvent struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time      `json:"time" gorm:"index:idx_module_event_time"`
	SessionID uint           `json:"sessionId" gorm:"index:idx_module_event_session_id"`
	Session   Session        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Frame     uint           `json:"frame" gorm:"index:idx_module_event_frame"`
	Type      string         `json:"type" gorm:"size:32;index:idx_module_event_type"`
	ModuleID  string         `json:"moduleId" gorm:"size:36;index:idx_module_event_module_id"`
	Name      string         `json:"name" gorm:"size:127"`
	Kind      string         `json:"kind" gorm:"size:16"`
	Status    string         `json:"status" gorm:"size:16"`
	Position  geom.Point     `json:"position"`
	Detail    datatypes.JSON `json:"detail"`
}

func (*ModuleEvent) TableName() string {
	return "module_events"
}

// ApproachSample is one sampled tick of an approach
type ApproachSample struct {
	Time      time.Time  `json:"time" gorm:"type:timestamptz;index:idx_sample_time"`
	SessionID uint       `json:"sessionId" gorm:"index:idx_sample_session_id"`
	Session   Session    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Frame     uint       `json:"frame" gorm:"index:idx_sample_frame"`
	ModuleID  string     `json:"moduleId" gorm:"size:36;index:idx_sample_module_id"`
	Position  geom.Point `json:"position"`
	Distance  float64    `json:"distance"`
	Speed     float64    `json:"speed"`
	Progress  float64    `json:"progress"`
}

func (*ApproachSample) TableName() string {
	return "approach_samples"
}

// ApproachTrack is the full path flown by a docked module
type ApproachTrack struct {
	ID        uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time       `json:"time"`
	SessionID uint            `json:"sessionId" gorm:"index:idx_track_session_id"`
	Session   Session         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	ModuleID  string          `json:"moduleId" gorm:"size:36;index:idx_track_module_id"`
	Name      string          `json:"name" gorm:"size:127"`
	Ticks     int             `json:"ticks"`
	Forced    bool            `json:"forced"`
	Path      geom.LineString `json:"path"`
	PathWKT   string          `json:"pathWkt"`
	Length    float64         `json:"length"`
}

func (*ApproachTrack) TableName() string {
	return "approach_tracks"
}

// TopologySnapshot is the connectivity graph at a point in time
type TopologySnapshot struct {
	ID          uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time      `json:"time"`
	SessionID   uint           `json:"sessionId" gorm:"index:idx_topology_session_id"`
	Session     Session        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Frame       uint           `json:"frame"`
	HubID       string         `json:"hubId" gorm:"size:36"`
	Connections int            `json:"connections"`
	Adjacency   datatypes.JSON `json:"adjacency"`
}

func (*TopologySnapshot) TableName() string {
	return "topology_snapshots"
}

// Notification is an operator message
type Notification struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_notification_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Severity  string    `json:"severity" gorm:"size:16"`
	Message   string    `json:"message" gorm:"size:255"`
}

func (*Notification) TableName() string {
	return "notifications"
}
