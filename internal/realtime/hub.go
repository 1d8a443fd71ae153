package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/aura-events/checkin/internal/checkin"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60

	// EventCheckIn is the message event for an accepted check-in.
	EventCheckIn = "check_in"
)

// Publisher publishes an event-room message to every instance.
type Publisher interface {
	PublishEvent(eventID string, event string, payload []byte) error
}

// Subscriber delivers messages published for any event room until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, handler func(eventID, event string, payload []byte)) error
}

// Hub maintains event id -> connected dashboards and fans out check-ins.
// With a Publisher configured, messages go through Redis and come back via
// Listen, so every instance delivers them once.
type Hub struct {
	rooms  map[string]map[string]*Client
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
}

// NewHub creates a hub. pub may be nil for single-instance deployments.
func NewHub(logger *zap.Logger, pub Publisher) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[string]map[string]*Client),
		logger: logger,
		pub:    pub,
	}
}

// Listen subscribes once for all event rooms and broadcasts incoming messages to
// local dashboards. It returns after the subscription is established.
func (h *Hub) Listen(ctx context.Context, sub Subscriber) error {
	return sub.Subscribe(ctx, func(eventID, event string, payload []byte) {
		h.Broadcast(eventID, event, json.RawMessage(payload))
	})
}

// Register adds a client to its event room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.EventID] == nil {
		h.rooms[c.EventID] = make(map[string]*Client)
	}
	h.rooms[c.EventID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("dashboard joined", zap.String("client_id", c.ID), zap.String("event_id", c.EventID))
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.rooms[c.EventID]; ok {
		if _, ok := m[c.ID]; ok {
			delete(m, c.ID)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.rooms, c.EventID)
		}
	}
	h.mu.Unlock()
	h.logger.Debug("dashboard left", zap.String("client_id", c.ID), zap.String("event_id", c.EventID))
}

// Broadcast sends a message to local clients of an event room. Full client buffers drop the message.
func (h *Hub) Broadcast(eventID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case json.RawMessage:
		data = v
	case []byte:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return
		}
	}
	msg := Message{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[eventID] {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// PublishCheckIn implements checkin.FeedPublisher.
func (h *Hub) PublishCheckIn(eventID string, entry checkin.FeedEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if h.pub != nil {
		err := h.pub.PublishEvent(eventID, EventCheckIn, data)
		if err == nil {
			return
		}
		h.logger.Warn("publish check-in failed, delivering locally", zap.String("event_id", eventID), zap.Error(err))
	}
	h.Broadcast(eventID, EventCheckIn, json.RawMessage(data))
}

// DashboardCount returns the number of connected clients for an event.
func (h *Hub) DashboardCount(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[eventID])
}
