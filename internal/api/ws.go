package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tradepulse/backend/internal/pipeline"
	"github.com/tradepulse/backend/pkg/logger"
)

const (
	wsWriteTimeout = 5 * time.Second

	// wsSendBuffer bounds the per-subscriber backlog. A subscriber
	// that falls this far behind is disconnected rather than allowed
	// to stall the broadcast.
	wsSendBuffer = 16
)

// subscriber owns one connection. Writes go through the buffered send
// channel so the broadcaster never waits on the socket.
type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts pipeline progress events to websocket subscribers.
// It satisfies pipeline.Notifier, so the pipeline stays unaware of the
// transport. Notify never blocks: each subscriber has a buffered send
// channel drained by its own writer goroutine.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The feed is read-only progress data, origin checks add nothing.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: log.WithField("component", "ws_hub"),
		subs:   make(map[*subscriber]struct{}),
	}
}

// Handle upgrades the request and keeps the connection registered
// until the client goes away.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	count := len(h.subs)
	h.mu.Unlock()
	h.logger.WithField("subscribers", count).Debug("Websocket subscriber connected")

	go h.writeLoop(sub)
	go h.readLoop(sub)
}

// Notify broadcasts a progress event to all subscribers. A subscriber
// whose buffer is full is dropped so the pipeline never stalls between
// phases.
func (h *Hub) Notify(event pipeline.ProgressEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode progress event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case sub.send <- payload:
		default:
			h.removeLocked(sub)
			h.logger.Warn("Dropped slow websocket subscriber")
		}
	}
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		h.removeLocked(sub)
	}
}

// writeLoop drains the send channel onto the socket. It exits when the
// channel is closed by removeLocked or when a write fails.
func (h *Hub) writeLoop(sub *subscriber) {
	defer sub.conn.Close()

	for payload := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(sub)
			return
		}
	}
}

// readLoop drains reads so close frames and pings are processed; the
// feed itself is one-way.
func (h *Hub) readLoop(sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			h.drop(sub)
			return
		}
	}
}

func (h *Hub) drop(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; ok {
		h.removeLocked(sub)
	}
}

// removeLocked unregisters a subscriber and closes its send channel,
// which ends its writeLoop and closes the connection. Caller holds the
// lock; sends are serialized behind the same lock, so a closed channel
// is never written to.
func (h *Hub) removeLocked(sub *subscriber) {
	delete(h.subs, sub)
	close(sub.send)
}
