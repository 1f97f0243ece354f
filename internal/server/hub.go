package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fxwallet/internal/event"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
)

// Hub fans engine events out to WebSocket subscribers. Publishing never
// blocks: a subscriber whose buffer is full is dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*wsClient

	upgrader websocket.Upgrader
	log      *slog.Logger

	ReadTimeout  time.Duration
	PingInterval time.Duration
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub accepting upgrades from allowedOrigins ("*" allows any).
func NewHub(log *slog.Logger, allowedOrigins []string) *Hub {
	if log == nil {
		log = slog.Default()
	}
	h := &Hub{
		clients:      make(map[string]*wsClient),
		log:          log.With(slog.String("component", "ws")),
		ReadTimeout:  60 * time.Second,
		PingInterval: 30 * time.Second,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish encodes ev and broadcasts it. It has the shape of an event.Handler.
func (h *Hub) Publish(ev event.Event) {
	msg, err := json.Marshal(event.Wrap(ev))
	if err != nil {
		h.log.Error("Failed to encode event", slog.String("type", ev.GetType().String()), slog.Any("error", err))
		return
	}
	h.Broadcast(msg)
}

// Broadcast queues msg on every subscriber.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("Dropping slow subscriber", slog.String("id", id))
			delete(h.clients, id)
			close(c.send)
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}

// ServeHTTP upgrades the request and streams events until the peer leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WS upgrade failed", slog.Any("error", err))
		return
	}

	c := &wsClient{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.log.Info("WS subscriber connected", slog.String("id", c.id), slog.String("remote", r.RemoteAddr))

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}

// readLoop discards inbound frames and keeps the read deadline fresh on pongs.
func (h *Hub) readLoop(c *wsClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
		h.log.Info("WS subscriber disconnected", slog.String("id", c.id))
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(h.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.ReadTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("WS read error", slog.String("id", c.id), slog.Any("error", err))
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *wsClient) {
	ticker := time.NewTicker(h.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
