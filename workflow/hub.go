package workflow

import (
	"sync"

	"go.uber.org/zap"

	"valet-backend/models"
)

// Event types published on the hub.
const (
	EventCreated  = "created"
	EventAccepted = "accepted"
	EventStatus   = "status"
)

// Event is a request-change notification pushed to subscribed clients.
// Screens that used to poll every second can consume these instead; polling
// GET /api/requests stays available as the fallback.
type Event struct {
	Type    string                `json:"type"`
	Request models.ParkingRequest `json:"request"`
}

// Hub fans request-change events out to subscribers. Slow subscribers drop
// events rather than block the workflow.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	log  *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{subs: make(map[chan Event]struct{}), log: log}
}

// Subscribe registers a new subscriber and returns its event channel.
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	h.log.Debug("hub subscriber added", zap.Int("total", n))
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	n := len(h.subs)
	h.mu.Unlock()
	h.log.Debug("hub subscriber removed", zap.Int("total", n))
}

// Publish delivers ev to all current subscribers, dropping it for any whose
// buffer is full.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.log.Warn("subscriber buffer full, dropping event",
				zap.String("type", ev.Type),
				zap.Int64("requestId", ev.Request.ID))
		}
	}
}
