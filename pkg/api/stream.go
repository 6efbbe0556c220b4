package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"arenachat/pkg/logger"
	"arenachat/pkg/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// browser clients connect cross-origin; API-key auth already ran
	CheckOrigin: func(r *http.Request) bool { return true },
}

// event is one thread-update frame pushed to subscribers.
type event struct {
	Thread   string           `json:"thread"`
	Messages []models.Message `json:"messages"`
}

// streamClient is one connected subscriber with a buffered outbound queue
// consumed by a single writer goroutine.
type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans thread updates out to live websocket subscribers. Slow clients
// get dropped rather than blocking the broadcast path.
type Hub struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*streamClient]struct{})}
}

// Broadcast pushes a thread's current message list to every subscriber.
// Safe to call from any goroutine; wired as the sender's change hook.
func (h *Hub) Broadcast(threadID string, msgs []models.Message) {
	b, err := json.Marshal(event{Thread: threadID, Messages: msgs})
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			// slow consumer; disconnect instead of stalling everyone else
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) add(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Len reports the current subscriber count.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and runs the subscriber until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("stream_upgrade_failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := &streamClient{conn: ws, send: make(chan []byte, 64)}
	h.add(c)
	logger.Info("stream_subscribed", "remote", r.RemoteAddr)

	// writer: single goroutine owns all writes to the connection
	go func() {
		for b := range c.send {
			if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
				break
			}
		}
		_ = ws.Close()
	}()

	// read loop: subscribers send nothing meaningful; this just detects
	// disconnects and answers pings
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				logger.Debug("stream_read_closed", "remote", r.RemoteAddr, "error", err)
			}
			break
		}
	}
	h.remove(c)
	logger.Info("stream_unsubscribed", "remote", r.RemoteAddr)
}
