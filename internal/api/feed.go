package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/erazemk/hisa/internal/events"
	"github.com/erazemk/hisa/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	clientQueueLen = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API has no authentication; any origin may watch the feed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts bus events to websocket clients. A client whose queue is
// full is disconnected rather than slowing the others down.
type Hub struct {
	register   chan *feedClient
	unregister chan *feedClient
	metrics    *metrics.Metrics

	mu      sync.Mutex
	clients map[*feedClient]bool
	done    chan struct{}
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		metrics:    m,
		clients:    make(map[*feedClient]bool),
		done:       make(chan struct{}),
	}
}

// Run forwards events from feed until it closes or ctx ends, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context, feed <-chan events.Event) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.metrics.ClientConnected()
		case c := <-h.unregister:
			h.drop(c)
		case e, ok := <-feed:
			if !ok {
				return
			}
			h.broadcast(e)
		}
	}
}

func (h *Hub) broadcast(e events.Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		slog.Error("encoding event", "type", e.Type, "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slog.Warn("change feed client too slow, disconnecting", "remote", c.conn.RemoteAddr().String())
			h.dropLocked(c)
		}
	}
}

func (h *Hub) drop(c *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) dropLocked(c *feedClient) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.ClientDisconnected()
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	for c := range h.clients {
		h.dropLocked(c)
	}
	h.mu.Unlock()
	close(h.done)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP handles GET /api/events by upgrading to a websocket.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response.
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &feedClient{conn: conn, send: make(chan []byte, clientQueueLen)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages and notices disconnects.
func (h *Hub) readPump(c *feedClient) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *feedClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
