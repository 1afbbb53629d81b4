package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/revlens/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const sendBuffer = 64

// wsRequest is the incoming websocket message format.
type wsRequest struct {
	Type     string `json:"type"` // open, next, previous, back, close, scroll, state
	AnchorID int    `json:"anchor_id"`
	First    int    `json:"first"`
	Last     int    `json:"last"`
}

// wsMessage is the outgoing websocket message format.
type wsMessage struct {
	Type  string          `json:"type"` // state, event or error
	State *session.Status `json:"state,omitempty"`
	Event *session.Event  `json:"event,omitempty"`
	Error string          `json:"error,omitempty"`
	Kind  string          `json:"kind,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes session events to every connected websocket client.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates a hub with no clients.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{logger: logger, clients: make(map[*client]struct{})}
}

// Emit implements session.EventSink.
func (h *Hub) Emit(ctx context.Context, ev session.Event) {
	h.broadcast(wsMessage{Type: "event", Event: &ev})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("viewer: encoding websocket message", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("viewer: websocket client too slow, dropping message")
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// sendTo queues a message for one client.
func (h *Hub) sendTo(c *client, msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("viewer: encoding websocket message", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		h.logger.Warn("viewer: websocket client too slow, dropping message")
	}
}

func (c *client) writePump(logger *slog.Logger) {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Debug("viewer: websocket write", "error", err)
			// Drain so the hub never blocks on a dead client.
			for range c.send {
			}
			return
		}
	}
}

// handleWebSocket drives the session from a websocket. Every command is
// answered with the new state or an error; events reach all clients.
func (v *Viewer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		v.logger.Warn("viewer: websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	v.hub.add(c)
	defer v.hub.remove(c)
	go c.writePump(v.logger)

	v.sendState(c)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				v.logger.Warn("viewer: websocket read", "error", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			v.hub.sendTo(c, wsMessage{Type: "error", Error: "invalid message format"})
			continue
		}

		if err := v.dispatch(r.Context(), req); err != nil {
			v.hub.sendTo(c, wsMessage{Type: "error", Error: err.Error(), Kind: session.KindOf(err)})
			continue
		}
		v.sendState(c)
	}
}

func (v *Viewer) dispatch(ctx context.Context, req wsRequest) error {
	switch req.Type {
	case "open":
		return v.Open(ctx, req.AnchorID)
	case "next":
		return v.Next(ctx)
	case "previous":
		return v.Previous(ctx)
	case "back":
		return v.Back(ctx)
	case "close":
		return v.Close(ctx)
	case "scroll":
		v.Scroll(ctx, req.First, req.Last)
		return nil
	case "state":
		return nil
	}
	return fmt.Errorf("unknown message type: %s", req.Type)
}

func (v *Viewer) sendState(c *client) {
	st := v.Status()
	v.hub.sendTo(c, wsMessage{Type: "state", State: &st})
}
