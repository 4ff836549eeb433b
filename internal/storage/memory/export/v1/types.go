// Package v1 contains the v1 journal export format.
package v1

// FormatVersion is written into every export.
const FormatVersion = 1

// Export is the root JSON structure for v1 format
type Export struct {
	FormatVersion int            `json:"formatVersion"`
	Version       string         `json:"version"`
	SessionName   string         `json:"sessionName"`
	SessionUUID   string         `json:"sessionUuid"`
	StationName   string         `json:"stationName,omitempty"`
	StartTime     string         `json:"startTime"`
	EndTime       string         `json:"endTime,omitempty"`
	EndFrame      uint           `json:"endFrame"`
	FrameRate     int            `json:"frameRate"`
	Modules       []Module       `json:"modules"`
	Events        [][]any        `json:"events"`
	Topology      []Topology     `json:"topology"`
	Notifications []Notification `json:"notifications"`
}

// Module is one module seen during the session with its approach
type Module struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	FirstFrame uint    `json:"firstFrame"`
	Samples    [][]any `json:"samples"`
	Track      *Track  `json:"track,omitempty"`
}

// Track is the finished approach of a module
type Track struct {
	Ticks  int     `json:"ticks"`
	Forced bool    `json:"forced"`
	Length float64 `json:"length"`
	WKT    string  `json:"wkt"`
}

// Topology is one connectivity snapshot
type Topology struct {
	Frame       uint                `json:"frame"`
	HubID       string              `json:"hubId"`
	Connections int                 `json:"connections"`
	Adjacency   map[string][]string `json:"adjacency"`
}

// Notification is an operator message
type Notification struct {
	Time     string `json:"time"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}
