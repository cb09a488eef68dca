// Package notify carries change events between writers and watch
// subscriptions: in-process through a Hub, across instances through Redis
// pub/sub.
package notify

import "sync"

// Change event payloads. Project events carry the project id after the
// prefix; listing and roster events are bare topic names.
const (
	TopicProjects = "projects"
	TopicMembers  = "members"
	ProjectPrefix = "project:"
)

// ProjectEvent builds the change event for a single project.
func ProjectEvent(projectID string) string {
	return ProjectPrefix + projectID
}

// Hub fans change events out to in-process subscribers. Each subscriber
// receives every event and filters for itself. Slow subscribers drop
// events rather than block writers; watchers re-read current state on every
// event, so a drop coalesces updates instead of losing data.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]chan string
	next int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan string)}
}

// Subscribe registers a subscriber. The returned cancel func must be called
// to release it.
func (h *Hub) Subscribe() (<-chan string, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan string, 64)
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if existing, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(existing)
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber without blocking.
func (h *Hub) Publish(event string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
