package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/stock-screener/internal/metrics"
	"github.com/yourusername/stock-screener/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 16
)

// AlertMessage is pushed to every websocket client after a monitor pass
// finds new signals.
type AlertMessage struct {
	Type      string               `json:"type"`
	Alerts    []models.SignalAlert `json:"alerts"`
	Timestamp time.Time            `json:"timestamp"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans new-signal alerts out to connected websocket clients. Clients
// whose send buffer is full are dropped.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logrus.Entry

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool
}

// NewHub creates an empty hub.
func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.New()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger.WithField("component", "ws_hub"),
		clients: make(map[*wsClient]struct{}),
	}
}

// ServeWS upgrades the request and registers the connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, clientSendSize)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.UpdateWebsocketClients(n)
	h.logger.WithField("clients", n).Debug("Websocket client connected")

	go h.writePump(c)
	go h.readPump(c)
}

// BroadcastAlerts queues alerts for every client.
func (h *Hub) BroadcastAlerts(alerts []models.SignalAlert) {
	if len(alerts) == 0 {
		return
	}
	payload, err := json.Marshal(AlertMessage{Type: "signals", Alerts: alerts, Timestamp: time.Now().UTC()})
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode alerts")
		return
	}

	h.mu.RLock()
	var slow []*wsClient
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow websocket client")
		h.remove(c)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		close(c.send)
	}
	metrics.UpdateWebsocketClients(0)
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	close(c.send)
	metrics.UpdateWebsocketClients(n)
}

// readPump only services control frames; clients do not send commands.
func (h *Hub) readPump(c *wsClient) {
	defer h.remove(c)

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

func (h *Hub) writePump(c *wsClient) {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
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
