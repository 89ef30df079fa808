package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/civicpulse/pulse/pkg/domain/interfaces"
	"github.com/civicpulse/pulse/pkg/domain/model"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/m-mizutani/ctxlog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

// SnapshotFunc builds the current tally for a newly connected listener
type SnapshotFunc func(ctx context.Context) (*model.ResultsEvent, error)

// Hub is the production results broadcaster: a websocket fan-out to live
// dashboard listeners. Publish is at-most-once and never blocks; a slow
// listener simply misses updates.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	closed   bool
	snapshot SnapshotFunc
	upgrader websocket.Upgrader
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The poll is public; results carry no voter data
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetSnapshot installs the tally source queried on connect. It is a setter
// rather than a constructor argument because the hub and the vote use case
// reference each other: the use case publishes through the hub, the hub
// greets new listeners with the use case's live tally.
func (h *Hub) SetSnapshot(fn SnapshotFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = fn
}

// Publish fans the event out to every connected listener. Listeners whose
// send buffer is full are skipped for this event.
func (h *Hub) Publish(ctx context.Context, event *model.ResultsEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		ctxlog.From(ctx).Error("Failed to encode results event", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			ctxlog.From(ctx).Debug("Dropping results event for slow listener",
				"clientID", c.id,
			)
		}
	}
}

// HandleWS upgrades the request to a websocket and streams results events
// until the peer goes away
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.From(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("Websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c.id] = c
	snapshot := h.snapshot
	h.mu.Unlock()

	logger.Debug("Results listener connected", "clientID", c.id)

	// Queue the current tally before the write pump starts so the first
	// frame a listener sees is the live state, not silence until the next
	// vote lands. Best-effort, same as Publish.
	if snapshot != nil {
		if event, err := snapshot(r.Context()); err != nil {
			logger.Warn("Failed to build initial tally for listener",
				"clientID", c.id,
				"error", err,
			)
		} else if data, err := json.Marshal(event); err != nil {
			logger.Error("Failed to encode initial tally", "error", err)
		} else {
			c.send <- data
		}
	}

	go h.writePump(c)
	h.readPump(c)

	h.unregister(c)
	logger.Debug("Results listener disconnected", "clientID", c.id)
}

// ListenerCount returns the number of connected listeners
func (h *Hub) ListenerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every listener and rejects new connections
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	for id, c := range h.clients {
		c.close()
		_ = c.conn.Close()
		delete(h.clients, id)
	}

	return nil
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		c.close()
	}
	_ = c.conn.Close()
}

// writePump forwards queued events to the peer and keeps the connection
// alive with pings
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection (listeners never send anything we act on)
// and notices when the peer disconnects
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

var _ interfaces.Broadcaster = (*Hub)(nil) // Compile-time interface check
