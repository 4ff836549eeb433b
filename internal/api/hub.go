package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/OCAP2/dockyard/pkg/streaming"
)

// Hello is the first message a feed client receives.
type Hello struct {
	Version     string    `json:"version,omitempty"`
	ConnectedAt time.Time `json:"connectedAt"`
	Frame       uint64    `json:"frame"`
}

// Hub fans the live station feed out to websocket clients. Only the Run
// goroutine writes to registered connections.
type Hub struct {
	station  Station
	interval time.Duration
	version  string
	log      *slog.Logger
	done     chan struct{}

	mu         sync.RWMutex
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn

	lastFrame uint64
	lastSeq   uint64
}

// NewHub creates a hub that polls st every interval.
func NewHub(st Station, interval time.Duration, version string, log *slog.Logger) *Hub {
	return &Hub{
		station:    st,
		interval:   interval,
		version:    version,
		log:        log,
		done:       make(chan struct{}),
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

// ClientCount returns the number of connected feed clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run pushes new snapshots and notifications until ctx is cancelled. It
// must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if snap := h.station.Snapshot(); snap != nil {
		h.lastSeq = snap.NotificationSeq
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = struct{}{}
			h.mu.Unlock()
			h.log.Debug("Feed client connected", "remote", conn.RemoteAddr().String())
		case conn := <-h.unregister:
			h.drop(conn)
		case <-ticker.C:
			h.tick()
		}
	}
}

func (h *Hub) tick() {
	snap := h.station.Snapshot()
	if snap == nil || snap.Frame == h.lastFrame {
		return
	}
	h.lastFrame = snap.Frame

	for _, n := range snap.NotificationsSince(h.lastSeq) {
		h.broadcast(streaming.TypeNotification, n)
	}
	h.lastSeq = snap.NotificationSeq

	h.broadcast(streaming.TypeSnapshot, snap)
}

func (h *Hub) broadcast(msgType string, payload any) {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		h.log.Error("Error encoding feed message", "type", msgType, "error", err)
		return
	}

	h.mu.RLock()
	var failed []*websocket.Conn
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			failed = append(failed, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range failed {
		h.drop(conn)
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
		h.log.Debug("Feed client disconnected", "remote", conn.RemoteAddr().String())
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.Close()
		delete(h.clients, conn)
	}
}

// Serve is the websocket handler. It greets the client, hands the
// connection to Run and blocks reading until the client goes away.
func (h *Hub) Serve(c *websocket.Conn) {
	var frame uint64
	if snap := h.station.Snapshot(); snap != nil {
		frame = snap.Frame
	}
	hello, err := streaming.Marshal(streaming.TypeHello, Hello{
		Version:     h.version,
		ConnectedAt: time.Now().UTC(),
		Frame:       frame,
	})
	if err != nil || c.WriteMessage(websocket.TextMessage, hello) != nil {
		return
	}

	select {
	case h.register <- c:
	case <-h.done:
		return
	}
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()

	// clients only send pings and close frames
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}
