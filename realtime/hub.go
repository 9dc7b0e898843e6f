// realtime/hub.go - Live chat relay over WebSocket
package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"teetime/logging"
	"teetime/metrics"
	"teetime/models"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second // Time allowed to write a message
	pingPeriod     = 15 * time.Second // Send pings at this interval
	pongWait       = 45 * time.Second // Connection dropped without a pong in this window
	maxMessageSize = 16 * 1024

	// Send channel buffer size
	sendBufferSize = 256

	authTimeout = 5 * time.Second
)

// Event types
const (
	EventRoomJoin       = "room:join"
	EventRoomJoined     = "room:joined"
	EventRoomLeave      = "room:leave"
	EventRoomLeft       = "room:left"
	EventMessageSend    = "message:send"
	EventMessageReceive = "message:receive"
	EventTypingStart    = "typing:start"
	EventTypingStop     = "typing:stop"
	EventPing           = "ping"
	EventPong           = "pong"
	EventError          = "error"
)

// Conn is the subset of a WebSocket connection the hub drives.
type Conn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Authorizer decides whether a user may join a chat room.
type Authorizer interface {
	CanAccessRoom(ctx context.Context, userID, roomID uint) (bool, error)
}

// Message is the envelope for every event in both directions.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type roomPayload struct {
	RoomID  uint   `json:"roomId"`
	Content string `json:"content"`
}

// Client is one connected browser tab.
type Client struct {
	UserID uint
	Name   string

	conn Conn
	send chan Message

	// guarded by Hub.mu
	rooms  map[uint]struct{}
	closed bool
}

func newClient(userID uint, name string, conn Conn) *Client {
	return &Client{
		UserID: userID,
		Name:   name,
		conn:   conn,
		send:   make(chan Message, sendBufferSize),
		rooms:  make(map[uint]struct{}),
	}
}

// sendMessage queues a message without blocking. A full buffer drops it.
func (c *Client) sendMessage(msgType string, payload interface{}) {
	select {
	case c.send <- Message{Type: msgType, Payload: payload}:
	default:
		metrics.WSMessagesDropped.Inc()
		logging.With("realtime").Warn().Uint("user_id", c.UserID).Str("type", msgType).Msg("send buffer full, dropping message")
	}
}

// Hub multiplexes chat rooms over live connections.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[uint]map[*Client]struct{}
	clients map[*Client]struct{}
	auth    Authorizer
}

func NewHub(auth Authorizer) *Hub {
	return &Hub{
		rooms:   make(map[uint]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
		auth:    auth,
	}
}

// Serve runs a connection until it closes or ctx is cancelled.
func (h *Hub) Serve(ctx context.Context, conn Conn, userID uint, name string) {
	c := newClient(userID, name, conn)
	h.register(c)
	metrics.WSConnections.Inc()
	defer metrics.WSConnections.Dec()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	writerDone := make(chan struct{})
	go func() {
		h.writePump(c)
		close(writerDone)
	}()

	h.readPump(ctx, c)
	h.Unregister(c)
	<-writerDone
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes the client from every room and closes its send queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	for roomID := range c.rooms {
		h.removeLocked(c, roomID)
	}
	delete(h.clients, c)
	c.closed = true
	close(c.send)
}

func (h *Hub) readPump(ctx context.Context, c *Client) {
	log := logging.With("realtime")
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if !isClosedError(err) {
				log.Debug().Err(err).Uint("user_id", c.UserID).Msg("websocket read ended")
			}
			return
		}
		h.handle(ctx, c, msg)
	}
}

func (h *Hub) writePump(c *Client) {
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
			if err := c.conn.WriteJSON(msg); err != nil {
				logging.With("realtime").Debug().Err(err).Uint("user_id", c.UserID).Msg("websocket write failed")
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

func (h *Hub) handle(ctx context.Context, c *Client, msg inbound) {
	var p roomPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.sendMessage(EventError, errPayload("Invalid payload"))
			return
		}
	}

	switch msg.Type {
	case EventRoomJoin:
		h.handleJoin(ctx, c, p.RoomID)

	case EventRoomLeave:
		h.leave(c, p.RoomID)
		c.sendMessage(EventRoomLeft, map[string]interface{}{"roomId": p.RoomID})

	case EventMessageSend:
		if !h.inRoom(c, p.RoomID) {
			c.sendMessage(EventError, errPayload("Join the room first"))
			return
		}
		content := strings.TrimSpace(p.Content)
		if content == "" || utf8.RuneCountInString(content) > models.MaxChatMessageLength {
			c.sendMessage(EventError, errPayload("Message must be between 1 and 2000 characters"))
			return
		}
		h.broadcastExcept(p.RoomID, c, EventMessageReceive, map[string]interface{}{
			"roomId":  p.RoomID,
			"userId":  c.UserID,
			"name":    c.Name,
			"content": content,
			"sentAt":  time.Now().UTC(),
		})

	case EventTypingStart, EventTypingStop:
		if !h.inRoom(c, p.RoomID) {
			return
		}
		h.broadcastExcept(p.RoomID, c, msg.Type, map[string]interface{}{
			"roomId": p.RoomID,
			"userId": c.UserID,
			"name":   c.Name,
		})

	case EventPing:
		c.sendMessage(EventPong, map[string]interface{}{})

	default:
		c.sendMessage(EventError, errPayload("Unknown event type"))
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *Client, roomID uint) {
	if roomID == 0 {
		c.sendMessage(EventError, errPayload("roomId is required"))
		return
	}

	actx, cancel := context.WithTimeout(ctx, authTimeout)
	ok, err := h.auth.CanAccessRoom(actx, c.UserID, roomID)
	cancel()
	if err != nil {
		logging.With("realtime").Error().Err(err).Uint("room_id", roomID).Msg("room authorization failed")
		c.sendMessage(EventError, errPayload("Could not join room"))
		return
	}
	if !ok {
		c.sendMessage(EventError, errPayload("You are not allowed to join this room"))
		return
	}

	h.mu.Lock()
	if !c.closed {
		members, exists := h.rooms[roomID]
		if !exists {
			members = make(map[*Client]struct{})
			h.rooms[roomID] = members
		}
		members[c] = struct{}{}
		c.rooms[roomID] = struct{}{}
	}
	h.mu.Unlock()

	c.sendMessage(EventRoomJoined, map[string]interface{}{"roomId": roomID})
}

func (h *Hub) leave(c *Client, roomID uint) {
	h.mu.Lock()
	h.removeLocked(c, roomID)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *Client, roomID uint) {
	delete(c.rooms, roomID)
	if members, ok := h.rooms[roomID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) inRoom(c *Client, roomID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.rooms[roomID]
	return ok
}

// BroadcastToRoom sends an event to every client in the room.
func (h *Hub) BroadcastToRoom(roomID uint, eventType string, payload interface{}) {
	h.broadcastExcept(roomID, nil, eventType, payload)
}

func (h *Hub) broadcastExcept(roomID uint, except *Client, eventType string, payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[roomID] {
		if c != except {
			c.sendMessage(eventType, payload)
		}
	}
}

// RoomSize reports how many clients are in a room.
func (h *Hub) RoomSize(roomID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Connections reports how many clients are connected.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every live connection. Their Serve calls then return.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.clients))
	for c := range h.clients {
		if c.conn != nil {
			conns = append(conns, c.conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

func isClosedError(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}

func errPayload(message string) map[string]interface{} {
	return map[string]interface{}{"message": message}
}
