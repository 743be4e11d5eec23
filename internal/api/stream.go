package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/vyrodovalexey/avabackoff/internal/observability"
)

// Stream timing.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 8
)

// streamClient is one websocket subscriber.
type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans policy updates out to websocket subscribers.
type Hub struct {
	upgrader websocket.Upgrader
	clients  map[*streamClient]struct{}
	mu       sync.RWMutex
	snapshot func() any
	logger   observability.Logger
	metrics  *observability.Metrics
	closed   bool
}

// NewHub creates a hub. snapshot supplies the first message every new
// subscriber receives.
func NewHub(snapshot func() any, logger observability.Logger, metrics *observability.Metrics) *Hub {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:  make(map[*streamClient]struct{}),
		snapshot: snapshot,
		logger:   logger,
		metrics:  metrics,
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish sends msg to every subscriber. Subscribers whose buffer is full
// are disconnected.
func (h *Hub) Publish(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping slow stream client")
			h.removeLocked(c)
		}
	}
	return nil
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// Handler upgrades the request and streams updates until the client leaves.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Warn("websocket upgrade failed", observability.Error(err))
			return
		}

		client := &streamClient{conn: conn, send: make(chan []byte, clientSendSize)}

		if h.snapshot != nil {
			data, err := json.Marshal(h.snapshot())
			if err != nil {
				h.logger.Warn("stream snapshot not encodable", observability.Error(err))
			} else {
				client.send <- data
			}
		}

		if !h.add(client) {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(writeWait))
			_ = conn.Close()
			return
		}

		go h.writePump(client)
		h.readPump(client)
	}
}

func (h *Hub) add(c *streamClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	h.reportClients()
	return true
}

func (h *Hub) remove(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *streamClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.reportClients()
}

func (h *Hub) reportClients() {
	if h.metrics != nil {
		h.metrics.SetStreamClients(len(h.clients))
	}
}

// readPump discards client messages and detects disconnects.
func (h *Hub) readPump(c *streamClient) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("stream client closed unexpectedly", observability.Error(err))
			}
			return
		}
	}
}

// writePump delivers queued messages and keeps the connection alive.
func (h *Hub) writePump(c *streamClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
