package ws

import (
	"context"
	"sync"

	"vitalwatch/internal/metrics"
	"vitalwatch/internal/models"

	"go.uber.org/zap"
)

// Hub is the session registry and notification bus in one: it tracks which
// live connections belong to which identity, which rooms they joined, and
// fans alert events out to the right rooms. It is constructed at the
// composition root and torn down at shutdown; there is no package-global
// instance.
type Hub struct {
	mu      sync.RWMutex
	closed  bool                          // set at shutdown, guarded by mu
	clients map[string]*Client            // connectionID -> client
	rooms   map[string]map[string]*Client // roomID -> connectionID -> client

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		logger:  logger,
	}
}

// Run blocks until ctx is cancelled, then closes every remaining client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a connection to the registry. Synchronous: the session is
// joinable as soon as this returns. After shutdown the session is closed
// immediately instead.
func (h *Hub) Register(client *Client) {
	h.addClient(client)
}

// Unregister removes the session and all its room memberships. Safe to call
// for a client that was only partially registered or already removed.
func (h *Hub) Unregister(client *Client) {
	h.removeClient(client)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		client.closeSend()
		return
	}
	h.clients[client.ID] = client
	h.mu.Unlock()

	metrics.ConnectedSessions.Inc()
	h.logger.Info("Session registered",
		zap.String("connection_id", client.ID),
		zap.Int64("user_id", client.UserID),
		zap.String("role", client.Role),
	)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, known := h.clients[client.ID]
	if known {
		delete(h.clients, client.ID)
		for room := range client.rooms {
			h.leaveRoomLocked(client, room)
		}
		client.closeSend()
	}
	h.mu.Unlock()

	if known {
		metrics.ConnectedSessions.Dec()
		h.logger.Info("Session unregistered",
			zap.String("connection_id", client.ID),
			zap.Int64("user_id", client.UserID),
		)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, client := range h.clients {
		delete(h.clients, id)
		client.closeSend()
		metrics.ConnectedSessions.Dec()
	}
	h.rooms = make(map[string]map[string]*Client)
	h.logger.Info("Hub closed, all sessions dropped")
}

// JoinRoom adds a registered connection to a room. Authorization has already
// happened in the event handler by the time this is called.
func (h *Hub) JoinRoom(connectionID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connectionID]
	if !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Client)
	}
	h.rooms[room][connectionID] = client
	client.rooms[room] = struct{}{}

	h.logger.Debug("Session joined room",
		zap.String("connection_id", connectionID),
		zap.String("room", room),
	)
}

// LeaveRoom removes a connection from a room.
func (h *Hub) LeaveRoom(connectionID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[connectionID]
	if !ok {
		return
	}
	h.leaveRoomLocked(client, room)
}

func (h *Hub) leaveRoomLocked(client *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(client.rooms, room)
}

// MembersOf returns the connection ids currently in a room. Unknown rooms
// yield an empty slice, never an error.
func (h *Hub) MembersOf(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := h.rooms[room]
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	return ids
}

// PublishAlert delivers a freshly created alert to the patient's room and the
// owning doctor's room. Delivery is at-most-once per connected session even
// when a session is in both rooms. Called only after the ledger write
// committed.
func (h *Hub) PublishAlert(alert *models.Alert, doctorID int64) {
	data, err := marshalEnvelope(EventVitalAlert, alert)
	if err != nil {
		h.logger.Error("Failed to marshal alert event", zap.Error(err))
		return
	}

	h.broadcast(data, PatientRoom(alert.PatientID), DoctorRoom(doctorID))
	metrics.AlertsPublished.Inc()
}

// PublishVitalUpdate pushes a new reading to the patient's room so open
// dashboards refresh without polling.
func (h *Hub) PublishVitalUpdate(reading *models.VitalsReading) {
	data, err := marshalEnvelope(EventVitalUpdate, reading)
	if err != nil {
		h.logger.Error("Failed to marshal vital update", zap.Error(err))
		return
	}

	h.broadcast(data, PatientRoom(reading.PatientID))
}

// RelayAcknowledgement broadcasts the acknowledged state to the same rooms
// the original alert went to, after the ledger confirmed the transition.
func (h *Hub) RelayAcknowledgement(alert *models.Alert, doctorID int64) {
	if alert.AcknowledgedBy == nil || alert.AcknowledgedAt == nil {
		return
	}
	data, err := marshalEnvelope(EventAlertAcknowledged, AckPayload{
		AlertID:        alert.ID,
		AcknowledgedBy: *alert.AcknowledgedBy,
		AcknowledgedAt: *alert.AcknowledgedAt,
	})
	if err != nil {
		h.logger.Error("Failed to marshal ack event", zap.Error(err))
		return
	}

	h.broadcast(data, PatientRoom(alert.PatientID), DoctorRoom(doctorID))
}

// broadcast delivers one message to the union of the given rooms' members.
// The write lock serializes broadcasts, so per-room delivery order matches
// publish order. A session whose send buffer is full is dropped rather than
// allowed to block delivery to others.
func (h *Hub) broadcast(data []byte, rooms ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	targets := make(map[string]*Client)
	for _, room := range rooms {
		for id, client := range h.rooms[room] {
			targets[id] = client
		}
	}

	for _, client := range targets {
		if client.enqueue(data) {
			metrics.WSDeliveries.Inc()
			continue
		}
		// 慢消费者：断开该会话，不阻塞其他投递
		h.logger.Warn("Session send buffer full, dropping",
			zap.String("connection_id", client.ID),
		)
		delete(h.clients, client.ID)
		for room := range client.rooms {
			h.leaveRoomLocked(client, room)
		}
		client.closeSend()
		metrics.WSDrops.Inc()
		metrics.ConnectedSessions.Dec()
	}
}
