// Package events fans change notifications out to streaming subscribers.
// Delivery is best effort: a subscriber that cannot keep up loses events,
// and the device side compensates with its periodic reconcile pass.
package events

import (
	"sync"

	"github.com/obralink/obralink/internal/entity"
)

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Event is the payload streamed to subscribers. The record carries the
// changed row; for deletes only its id is meaningful.
type Event struct {
	Type   EventType     `json:"eventType"`
	Record entity.Entity `json:"newRecord"`
}

const subscriberBuffer = 32

type subscriber struct {
	kind      entity.Kind
	companyID string
	ch        chan Event
}

// Hub is an in-process broadcaster keyed by entity kind. Subscribers may
// additionally narrow to a single company; global kinds subscribe with an
// empty company id.
type Hub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[*subscriber]struct{}{}}
}

// Subscribe registers interest in one kind, optionally scoped to a company.
// The returned cancel func must be called exactly once; after it returns
// the channel is closed.
func (h *Hub) Subscribe(kind entity.Kind, companyID string) (<-chan Event, func()) {
	s := &subscriber{
		kind:      kind,
		companyID: companyID,
		ch:        make(chan Event, subscriberBuffer),
	}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[s]; ok {
			delete(h.subs, s)
			close(s.ch)
		}
	}
	return s.ch, cancel
}

// Publish delivers the event to every matching subscriber without blocking.
// A full subscriber channel drops the event.
func (h *Hub) Publish(kind entity.Kind, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		if s.kind != kind {
			continue
		}
		if s.companyID != "" && s.companyID != ev.Record.CompanyID {
			continue
		}
		select {
		case s.ch <- ev:
		default:
		}
	}
}
