package store

import (
	"log/slog"
	"sync"

	"messenger-lab/domain/event"
)

// hub fans feed events out to live subscriptions. Each subscription
// owns a buffered queue drained by its own goroutine, so every handler
// sees events one at a time, in publish order, and a slow handler
// never blocks the store or its siblings.
type hub struct {
	mu     sync.RWMutex
	log    *slog.Logger
	buffer int
	subs   map[string]map[*subscription]struct{}
}

func newHub(log *slog.Logger, buffer int) *hub {
	if buffer <= 0 {
		buffer = 256
	}
	return &hub{
		log:    log,
		buffer: buffer,
		subs:   make(map[string]map[*subscription]struct{}),
	}
}

type subscription struct {
	hub            *hub
	conversationID string
	events         chan event.Change
	done           chan struct{}
	once           sync.Once
}

func (h *hub) subscribe(conversationID string, handler func(event.Change)) (*subscription, error) {
	sub := &subscription{
		hub:            h,
		conversationID: conversationID,
		events:         make(chan event.Change, h.buffer),
		done:           make(chan struct{}),
	}

	h.mu.Lock()
	if _, ok := h.subs[conversationID]; !ok {
		h.subs[conversationID] = make(map[*subscription]struct{})
	}
	h.subs[conversationID][sub] = struct{}{}
	h.mu.Unlock()

	go sub.deliver(handler)
	return sub, nil
}

func (h *hub) publish(conversationID string, change event.Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[conversationID] {
		select {
		case sub.events <- change:
		case <-sub.done:
		default:
			h.log.Warn("Dropping feed event, subscriber queue is full",
				"conversationId", conversationID, "kind", change.Kind.String())
		}
	}
}

func (h *hub) remove(sub *subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.subs[sub.conversationID]; ok {
		delete(members, sub)
		if len(members) == 0 {
			delete(h.subs, sub.conversationID)
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]map[*subscription]struct{})
	h.mu.Unlock()
	for _, members := range subs {
		for sub := range members {
			sub.stop()
		}
	}
}

func (s *subscription) deliver(handler func(event.Change)) {
	for {
		select {
		case <-s.done:
			return
		case change := <-s.events:
			// Re-check before handing over: a cancel racing a queued
			// event means the event is discarded, not delivered.
			select {
			case <-s.done:
				return
			default:
			}
			handler(change)
		}
	}
}

// Cancel revokes the subscription. After it returns no further events
// reach the handler; anything still queued is dropped.
func (s *subscription) Cancel() {
	s.stop()
	s.hub.remove(s)
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}
