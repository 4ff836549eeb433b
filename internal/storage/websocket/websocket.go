// Package websocket implements a streaming journal backend: every record
// is forwarded as a streaming.Envelope to a remote journal server.
package websocket

import (
	"fmt"
	"log/slog"

	"github.com/OCAP2/dockyard/pkg/core"
	"github.com/OCAP2/dockyard/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
	Logger *slog.Logger
}

// Backend streams the journal over WebSocket. It implements
// storage.Backend but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config) *Backend {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(cfg.Logger),
		cfg:  cfg,
	}
}

// Init connects to the journal server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the journal server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped reports how many records never reached the socket.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

// send marshals the payload and pushes it to the write loop (fire-and-forget).
func (b *Backend) send(msgType string, payload any) error {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msgType, err)
	}
	b.conn.send(data)
	return nil
}

// StartSession sends the session and waits for the server ack. The
// message is kept for replay if the socket reconnects.
func (b *Backend) StartSession(s *core.Session) error {
	data, err := streaming.Marshal(streaming.TypeStartSession, streaming.StartSessionPayload{Session: s})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", streaming.TypeStartSession, err)
	}

	b.conn.setSessionMessage(data)
	return b.conn.sendAndWait(data, streaming.TypeStartSession, ackTimeout)
}

// EndSession sends end_session and waits for the server ack.
func (b *Backend) EndSession() error {
	data, err := streaming.Marshal(streaming.TypeEndSession, nil)
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndSession, ackTimeout)

	// nothing to replay once the server has been told, ack or not
	b.conn.setSessionMessage(nil)
	return err
}

func (b *Backend) RecordModuleEvent(e *core.ModuleEvent) error {
	return b.send(streaming.TypeModuleEvent, e)
}

func (b *Backend) RecordApproachSample(s *core.ApproachSample) error {
	return b.send(streaming.TypeApproachSample, s)
}

func (b *Backend) RecordApproachTrack(t *core.ApproachTrack) error {
	return b.send(streaming.TypeApproachTrack, t)
}

func (b *Backend) RecordTopology(t *core.TopologySnapshot) error {
	return b.send(streaming.TypeTopology, t)
}

func (b *Backend) RecordNotification(n *core.Notification) error {
	return b.send(streaming.TypeNotification, n)
}
