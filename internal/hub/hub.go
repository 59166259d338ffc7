// Package hub holds the latest published set of market entries and fans
// updates out to subscribers.
//
// Lifecycle: a Hub starts empty, every Publish replaces its state
// wholesale, and Close releases all subscribers on shutdown. Producers only
// publish; nothing in the sampling path reads from a Hub.
package hub

import (
	"sync"
	"time"

	"github.com/suwandre/pairdepth/internal/models"
)

// State is one immutable published view. Entries must not be modified
// after publishing.
type State struct {
	RunID     string               `json:"run_id"`
	Exchange  string               `json:"exchange"`
	Entries   []models.MarketEntry `json:"entries"`
	Progress  int                  `json:"progress"`
	Running   bool                 `json:"running"`
	StillZero []string             `json:"still_zero,omitempty"`
	Error     string               `json:"error,omitempty"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Entry returns the entry for pair, if present.
func (s State) Entry(pair string) (models.MarketEntry, bool) {
	for _, e := range s.Entries {
		if e.Pair == pair {
			return e, true
		}
	}
	return models.MarketEntry{}, false
}

type Hub struct {
	mu     sync.RWMutex
	state  State
	subs   map[int]chan State
	nextID int
	closed bool
}

func New() *Hub {
	return &Hub{
		subs: make(map[int]chan State),
	}
}

// Publish replaces the current state and notifies subscribers. Slow
// subscribers only ever see the most recent state.
func (h *Hub) Publish(s State) {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.state = s
	for _, ch := range h.subs {
		offer(ch, s)
	}
}

// Snapshot returns the current state.
func (h *Hub) Snapshot() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Subscribe returns a channel that immediately receives the current state
// and then every later one, plus a function that cancels the subscription.
// The channel is closed on cancel or when the hub closes.
func (h *Hub) Subscribe() (<-chan State, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan State, 1)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	ch <- h.state

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Close drops every subscriber. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
}

// offer delivers s, replacing an undelivered older state if necessary.
// Only called with h.mu held, so there is a single writer per channel.
func offer(ch chan State, s State) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}
