package stream

import (
	"context"
	"sync"
)

// Hub fans order-change notifications out to per-user subscribers. A
// notification is a wake-up only; subscribers re-read the full order list, so
// signals for a slow subscriber coalesce instead of queueing.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

type Subscription struct {
	hub    *Hub
	userID string
	ch     chan struct{}
	once   sync.Once
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers a listener for one user. Multiple subscriptions per
// user (several tabs) are independent.
func (h *Hub) Subscribe(userID string) *Subscription {
	s := &Subscription{hub: h, userID: userID, ch: make(chan struct{}, 1)}
	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[userID] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Updates signals whenever the user's order set may have changed.
func (s *Subscription) Updates() <-chan struct{} { return s.ch }

// Close deregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		if set, ok := s.hub.subs[s.userID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(s.hub.subs, s.userID)
			}
		}
		s.hub.mu.Unlock()
	})
}

// OrdersChanged wakes every subscriber of the user. Never blocks: a pending
// signal already covers the change.
func (h *Hub) OrdersChanged(_ context.Context, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[userID] {
		select {
		case s.ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers reports the number of open subscriptions across all users.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}
