package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/peakform/coach/domain"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	readTimeout  = 90 * time.Second
	sendBuffer   = 64
)

// Event is one streaming event pushed to connected clients.
type Event struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Ts        int64           `json:"ts"`
	Text      string          `json:"text,omitempty"`
	Function  string          `json:"function,omitempty"`
	Message   *domain.Message `json:"message,omitempty"`
}

type connection struct {
	id        string
	sessionID string
	ws        *websocket.Conn
	send      chan []byte
}

// Hub fans streaming events out to WebSocket clients subscribed to a
// session. It implements the orchestrator delegate, so wiring it in is the
// only integration point.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*connection]bool
}

// NewHub creates an event hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]map[*connection]bool)}
}

func (h *Hub) add(conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[conn.sessionID] == nil {
		h.sessions[conn.sessionID] = make(map[*connection]bool)
	}
	h.sessions[conn.sessionID][conn] = true
}

func (h *Hub) remove(conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.sessions[conn.sessionID]; ok && conns[conn] {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.sessions, conn.sessionID)
		}
		close(conn.send)
	}
}

// broadcast queues an event to every connection on the session. Slow
// clients with a full buffer are dropped rather than blocking the turn.
func (h *Hub) broadcast(sessionID string, event Event) {
	if sessionID == "" {
		return
	}
	event.SessionID = sessionID
	event.Ts = time.Now().UnixMilli()

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ERROR: failed to marshal event: %v", err)
		return
	}

	h.mu.RLock()
	var dropped []*connection
	for conn := range h.sessions[sessionID] {
		select {
		case conn.send <- data:
		default:
			dropped = append(dropped, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range dropped {
		log.Printf("WARN: connection %s buffer full, closing", conn.id)
		h.remove(conn)
	}
}

// Orchestrator delegate implementation.

func (h *Hub) OnProcessingStarted(sessionID string) {
	h.broadcast(sessionID, Event{Type: "processing_started"})
}

func (h *Hub) OnDelta(sessionID, text string) {
	h.broadcast(sessionID, Event{Type: "delta", Text: text})
}

func (h *Hub) OnFunctionDetected(sessionID, functionName string) {
	h.broadcast(sessionID, Event{Type: "function_detected", Function: functionName})
}

func (h *Hub) OnProcessingFinished(sessionID string, message domain.Message) {
	h.broadcast(sessionID, Event{Type: "message", Message: &message})
}

func (h *Hub) OnError(sessionID, friendlyMessage string) {
	h.broadcast(sessionID, Event{Type: "error", Text: friendlyMessage})
}

func (h *Hub) OnSessionChanged(sessionID string) {
	h.broadcast(sessionID, Event{Type: "session_changed"})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades the connection and subscribes it to a session's
// event stream.
// GET /v1/events?session_id=...
func (h *Handler) HandleWebSocket(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session_id is required"})
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("WARN: failed to upgrade WebSocket: %v", err)
		return err
	}

	conn := &connection{
		id:        "conn_" + uuid.New().String()[:8],
		sessionID: sessionID,
		ws:        ws,
		send:      make(chan []byte, sendBuffer),
	}
	h.hub.add(conn)

	go h.hub.writePump(conn)
	go h.hub.readPump(conn)
	return nil
}

// readPump drains the connection for close and pong frames. Clients never
// send application data on this socket.
func (h *Hub) readPump(conn *connection) {
	defer func() {
		h.remove(conn)
		conn.ws.Close()
	}()

	conn.ws.SetReadDeadline(time.Now().Add(readTimeout))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		if _, _, err := conn.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WARN: websocket error on %s: %v", conn.id, err)
			}
			return
		}
	}
}

func (h *Hub) writePump(conn *connection) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		conn.ws.Close()
	}()

	for {
		select {
		case data, ok := <-conn.send:
			conn.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				conn.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			conn.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
