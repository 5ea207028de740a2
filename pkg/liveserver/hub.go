package liveserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MessageType is the type of a message pushed to clients.
type MessageType string

const (
	MessageState MessageType = "state"
	MessageError MessageType = "error"
)

// Message is sent to clients via WebSocket.
type Message struct {
	Type  MessageType    `json:"type"`
	State map[string]any `json:"state,omitempty"`
	Error string         `json:"error,omitempty"`
}

// defaultWriteTimeout bounds a single write to a client.
const defaultWriteTimeout = 10 * time.Second

// client serializes writes to one connection.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(deadline time.Time, data []byte) error {
	return c.writeFn(deadline, func() []byte { return data })
}

// writeFn produces the message while holding the write lock, so nothing
// else can be written to the client between reading and sending it.
// A nil message is not sent.
func (c *client) writeFn(deadline time.Time, fn func() []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := fn()
	if data == nil {
		return nil
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// hub manages WebSocket connections.
type hub struct {
	clients  map[*client]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader

	// writeTimeout bounds each write so a stalled client is dropped
	// instead of blocking broadcast.
	writeTimeout time.Duration
	now          func() time.Time
}

func newHub(checkOrigin func(*http.Request) bool, writeTimeout time.Duration) *hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &hub{
		clients:      make(map[*client]bool),
		writeTimeout: writeTimeout,
		now:          time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// serve upgrades the request, sends greeting and keeps the connection
// registered until the client disconnects.
func (h *hub) serve(w http.ResponseWriter, req *http.Request, greeting func() []byte) error {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return err
	}
	c := &client{conn: conn}

	// Register before greeting so no broadcast is missed in between.
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	if greeting != nil {
		if err := c.writeFn(h.deadline(), greeting); err != nil {
			h.remove(c)
			return nil
		}
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
	return nil
}

func (h *hub) deadline() time.Time {
	return h.now().Add(h.writeTimeout)
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}

// broadcast sends data to all clients, dropping the ones that fail.
func (h *hub) broadcast(data []byte) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(h.deadline(), data); err != nil {
			h.remove(c)
		}
	}
}

// count returns the number of connected clients.
func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects every client.
func (h *hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]bool)
	h.mu.Unlock()

	for c := range clients {
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			h.deadline())
		c.mu.Unlock()
		c.conn.Close()
	}
}
