package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Send pings with this period. Must be less than pongWait.
	maxMessageSize = 512                 // Maximum inbound message size.
	sendBufferSize = 64                  // Outbound buffer per session.
)

// EventHandler reacts to inbound client events. Implementations own the
// authorization rules (which rooms an identity may join) and the
// acknowledgement round-trip; the transport layer only parses and dispatches.
type EventHandler interface {
	HandleJoinDoctorRoom(ctx context.Context, client *Client, doctorID int64) error
	HandleJoinPatientRoom(ctx context.Context, client *Client, patientID int64) error
	HandleAcknowledgeAlert(ctx context.Context, client *Client, alertID int64) error
}

// Client is one live connection with a verified identity.
type Client struct {
	ID     string // connection id, assigned at upgrade
	UserID int64
	Role   string // doctor or patient

	hub     *Hub
	conn    *websocket.Conn
	handler EventHandler
	logger  *zap.Logger

	// send 由 sendMu 保护：投递方和关闭方可能在不同 goroutine
	// （hub 的广播、readPump 的错误回执、hub 的注销），closed 置位后
	// 再入队一律丢弃，避免向已关闭 channel 发送。
	sendMu sync.Mutex
	send   chan []byte
	closed bool

	rooms map[string]struct{} // joined rooms, guarded by hub.mu
}

// enqueue queues one outbound message. Returns false when the session is
// already closed or its buffer is full; the caller decides what that means.
func (c *Client) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend shuts the outbound channel exactly once. Safe to call from any
// goroutine and to call repeatedly.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// NewClient builds a session around an upgraded connection. The caller still
// has to register it with the hub and start both pumps.
func NewClient(id string, userID int64, role string, hub *Hub, conn *websocket.Conn, handler EventHandler, logger *zap.Logger) *Client {
	return &Client{
		ID:      id,
		UserID:  userID,
		Role:    role,
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		handler: handler,
		logger:  logger,
		rooms:   make(map[string]struct{}),
	}
}

// ReadPump reads inbound events until the connection drops, then unregisters
// the session. Run as one goroutine per connection.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("Websocket read error",
					zap.String("connection_id", c.ID),
					zap.Error(err),
				)
			}
			return
		}
		c.dispatch(ctx, message)
	}
}

// dispatch maps an inbound envelope to its handler. Failures are reported to
// this one client and never break the connection.
func (c *Client) dispatch(ctx context.Context, message []byte) {
	var envelope Envelope
	if err := json.Unmarshal(message, &envelope); err != nil {
		c.sendError("malformed event")
		return
	}

	var id int64
	if len(envelope.Payload) > 0 {
		if err := json.Unmarshal(envelope.Payload, &id); err != nil {
			c.sendError("malformed event payload")
			return
		}
	}

	var err error
	switch envelope.Type {
	case EventJoinDoctorRoom:
		err = c.handler.HandleJoinDoctorRoom(ctx, c, id)
	case EventJoinPatientRoom:
		err = c.handler.HandleJoinPatientRoom(ctx, c, id)
	case EventAcknowledgeAlert:
		err = c.handler.HandleAcknowledgeAlert(ctx, c, id)
	default:
		c.sendError("unknown event: " + envelope.Type)
		return
	}

	if err != nil {
		c.logger.Debug("Inbound event rejected",
			zap.String("connection_id", c.ID),
			zap.String("event", envelope.Type),
			zap.Error(err),
		)
		c.sendError(err.Error())
	}
}

// sendError pushes an error event to this client only. Best effort.
func (c *Client) sendError(message string) {
	data, err := marshalEnvelope(EventError, ErrorPayload{Message: message})
	if err != nil {
		return
	}
	c.enqueue(data)
}

// WritePump flushes outbound messages and keepalive pings. Run as one
// goroutine per connection; exits when the hub closes the send channel.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub 已关闭该会话
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				// 单会话传输失败只影响自己，交给 readPump 的清理兜底
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
