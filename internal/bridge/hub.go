package bridge

import "sync"

// Event is a host-originated push crossing the bridge. Events have a channel
// but no request id; the UI subscribes rather than asks.
type Event struct {
	Channel string      `json:"channel"`
	Payload interface{} `json:"payload"`
}

// Hub is an in-memory pub/sub fanning push events out to subscribers.
type Hub struct {
	mu        sync.Mutex
	subs      map[int]chan Event
	nextSubID int
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Publish delivers an event to every subscriber. Slow subscribers are
// skipped rather than allowed to stall producers.
func (h *Hub) Publish(channel string, payload interface{}) {
	ev := Event{Channel: channel, Payload: payload}

	h.mu.Lock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	h.mu.Unlock()
}

// Subscribe registers a new subscriber and returns its channel plus a cancel
// function. Cancelling twice is safe.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSubID
	h.nextSubID++
	ch := make(chan Event, 128)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
		h.mu.Unlock()
	}

	return ch, cancel
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
