// Package streaming defines the JSON envelope shared by the streaming
// journal backend and the live station feed.
package streaming

import (
	"encoding/json"

	"github.com/OCAP2/dockyard/pkg/core"
)

// Journal message types.
const (
	TypeStartSession   = "start_session"
	TypeEndSession     = "end_session"
	TypeModuleEvent    = "module_event"
	TypeApproachSample = "approach_sample"
	TypeApproachTrack  = "approach_track"
	TypeTopology       = "topology"
	TypeNotification   = "notification"
)

// Live feed message types.
const (
	TypeSnapshot = "snapshot"
	TypeHello    = "hello"
)

// Envelope wraps every message sent over a websocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload opens a recording on the journal server.
type StartSessionPayload struct {
	Session *core.Session `json:"session"`
	Modules []core.Module `json:"modules,omitempty"`
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}
