// internal/storage/storage.go
package storage

import "github.com/OCAP2/dockyard/pkg/core"

// Backend is the interface all journal implementations must satisfy.
// The journal is write-only: station state is never restored from it.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(s *core.Session) error
	EndSession() error

	// Recording
	RecordModuleEvent(e *core.ModuleEvent) error
	RecordApproachSample(s *core.ApproachSample) error
	RecordApproachTrack(t *core.ApproachTrack) error
	RecordTopology(t *core.TopologySnapshot) error
	RecordNotification(n *core.Notification) error
}

// Uploadable is an optional interface for backends that produce an
// export file suitable for archiving.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() UploadMetadata
}

// UploadMetadata describes an exported session.
type UploadMetadata struct {
	SessionName string  `json:"sessionName"`
	SessionUUID string  `json:"sessionUuid"`
	Duration    float64 `json:"duration"` // seconds
	ModuleCount int     `json:"moduleCount"`
	EventCount  int     `json:"eventCount"`
}

// Discard is a backend that drops everything.
type Discard struct{}

func (Discard) Init() error                                     { return nil }
func (Discard) Close() error                                    { return nil }
func (Discard) StartSession(*core.Session) error                { return nil }
func (Discard) EndSession() error                               { return nil }
func (Discard) RecordModuleEvent(*core.ModuleEvent) error       { return nil }
func (Discard) RecordApproachSample(*core.ApproachSample) error { return nil }
func (Discard) RecordApproachTrack(*core.ApproachTrack) error   { return nil }
func (Discard) RecordTopology(*core.TopologySnapshot) error     { return nil }
func (Discard) RecordNotification(*core.Notification) error     { return nil }
