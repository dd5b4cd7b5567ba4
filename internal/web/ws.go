package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hyprpilot/internal/hypr"
)

// Inbound message types.
const (
	msgQuery    = "query"
	msgPing     = "ping"
	msgGetState = "get_state"
)

// inbound is one client request over the socket.
type inbound struct {
	Type       string `json:"type"`
	Query      string `json:"query,omitempty"`
	Screenshot bool   `json:"screenshot,omitempty"`
}

// outbound is one server message. Type is one of connected, processing,
// result, pong, state, event; each type carries its own top-level field
// so clients never unwrap a generic envelope.
type outbound struct {
	Type      string    `json:"type"`
	ClientID  string    `json:"client_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	Result    any       `json:"result,omitempty"`
	State     any       `json:"state,omitempty"`
	Event     any       `json:"event,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// wsClient is one connected dashboard. Writes are serialized through mu;
// gorilla connections do not allow concurrent writers.
type wsClient struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(msg outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

// hub tracks connected clients and fans out broadcasts.
type hub struct {
	log      *zap.Logger
	svc      Service
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*wsClient
}

func newHub(log *zap.Logger, svc Service) *hub {
	return &hub{
		log: log,
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The daemon binds loopback; the dashboard may be opened from
			// a file:// page, so origin checking stays permissive.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[string]*wsClient),
	}
}

func (h *hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) handleWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{id: uuid.NewString(), conn: conn}
	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()
	h.log.Info("websocket client connected", zap.String("client", client.id))

	_ = client.send(outbound{Type: "connected", ClientID: client.id, Timestamp: time.Now()})

	defer func() {
		h.mu.Lock()
		delete(h.clients, client.id)
		h.mu.Unlock()
		conn.Close()
		h.log.Info("websocket client disconnected", zap.String("client", client.id))
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Debug("unparseable websocket message", zap.Error(err))
			continue
		}
		h.dispatch(c, client, msg)
	}
}

func (h *hub) dispatch(c *gin.Context, client *wsClient, msg inbound) {
	ctx := c.Request.Context()
	switch msg.Type {
	case msgPing:
		_ = client.send(outbound{Type: "pong", Timestamp: time.Now()})
	case msgGetState:
		state := h.svc.State(ctx)
		_ = client.send(outbound{Type: "state", State: state, Timestamp: time.Now()})
	case msgQuery:
		_ = client.send(outbound{Type: "processing", Message: "Working on: " + msg.Query, Timestamp: time.Now()})
		result := h.svc.HandleQuery(ctx, msg.Query, msg.Screenshot)
		_ = client.send(outbound{Type: "result", Result: result, Timestamp: time.Now()})
	default:
		// Unknown types are ignored so protocol additions stay compatible.
	}
}

// broadcastEvent pushes one compositor event to every client, dropping
// clients whose writes fail.
func (h *hub) broadcastEvent(ev hypr.Event) {
	h.broadcast(outbound{Type: "event", Event: ev, Timestamp: time.Now()})
}

func (h *hub) broadcast(msg outbound) {
	h.mu.RLock()
	snapshot := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	var failed []string
	for _, c := range snapshot {
		if err := c.send(msg); err != nil {
			failed = append(failed, c.id)
		}
	}
	if len(failed) > 0 {
		h.mu.Lock()
		for _, id := range failed {
			if c, ok := h.clients[id]; ok {
				c.conn.Close()
				delete(h.clients, id)
			}
		}
		h.mu.Unlock()
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.conn.Close()
		delete(h.clients, id)
	}
}
