package realtime

import (
	"context"
	"sync"

	"github.com/angelmondragon/stockroom-backend/pkg/logger"
	"github.com/angelmondragon/stockroom-backend/pkg/metrics"
	"github.com/google/uuid"
)

// Subscriber is one live connection bound to a tenant.
type Subscriber interface {
	Send(ctx context.Context, event Event) error
	Close() error
}

// Publisher delivers an event to a tenant's subscribers, directly or through
// a relay.
type Publisher interface {
	Publish(ctx context.Context, tenantID uuid.UUID, event Event) error
}

type room struct {
	// sendMu orders broadcasts; mu guards subs.
	sendMu sync.Mutex
	mu     sync.Mutex
	subs   map[Subscriber]struct{}
}

func (r *room) snapshot() []Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Subscriber, 0, len(r.subs))
	for sub := range r.subs {
		out = append(out, sub)
	}
	return out
}

// Hub keeps tenant-keyed subscriber sets. Broadcasts to one tenant are
// serialised; different tenants proceed independently.
type Hub struct {
	mu      sync.Mutex
	rooms   map[uuid.UUID]*room
	logg    *logger.Logger
	metrics *metrics.StockMetrics
}

func NewHub(logg *logger.Logger, m *metrics.StockMetrics) *Hub {
	return &Hub{
		rooms:   make(map[uuid.UUID]*room),
		logg:    logg,
		metrics: m,
	}
}

func (h *Hub) Subscribe(sub Subscriber, tenantID uuid.UUID) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	r, ok := h.rooms[tenantID]
	if !ok {
		r = &room{subs: make(map[Subscriber]struct{})}
		h.rooms[tenantID] = r
	}
	r.mu.Lock()
	_, exists := r.subs[sub]
	r.subs[sub] = struct{}{}
	r.mu.Unlock()
	h.mu.Unlock()

	if !exists {
		h.metrics.SubscriberAdded()
	}
}

// Unsubscribe removes sub; it reports whether sub was subscribed.
func (h *Hub) Unsubscribe(sub Subscriber, tenantID uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[tenantID]
	if !ok {
		return false
	}
	r.mu.Lock()
	_, existed := r.subs[sub]
	delete(r.subs, sub)
	empty := len(r.subs) == 0
	r.mu.Unlock()
	if empty {
		delete(h.rooms, tenantID)
	}
	if existed {
		h.metrics.SubscriberRemoved()
	}
	return existed
}

// Broadcast sends event to every subscriber of tenantID and returns how many
// received it. Subscribers whose Send fails are dropped and closed.
func (h *Hub) Broadcast(ctx context.Context, tenantID uuid.UUID, event Event) int {
	h.mu.Lock()
	r, ok := h.rooms[tenantID]
	h.mu.Unlock()
	if !ok {
		return 0
	}

	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	delivered := 0
	for _, sub := range r.snapshot() {
		if err := sub.Send(ctx, event); err != nil {
			h.drop(ctx, sub, tenantID, err)
			continue
		}
		delivered++
	}
	return delivered
}

// Publish implements Publisher for in-process delivery.
func (h *Hub) Publish(ctx context.Context, tenantID uuid.UUID, event Event) error {
	h.Broadcast(ctx, tenantID, event)
	return nil
}

// Count returns the number of subscribers for tenantID.
func (h *Hub) Count(tenantID uuid.UUID) int {
	h.mu.Lock()
	r, ok := h.rooms[tenantID]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (h *Hub) drop(ctx context.Context, sub Subscriber, tenantID uuid.UUID, cause error) {
	if !h.Unsubscribe(sub, tenantID) {
		return
	}
	_ = sub.Close()
	if h.logg != nil {
		logCtx := h.logg.WithTenantID(ctx, tenantID.String())
		h.logg.Debug(logCtx, "dropped live subscriber: "+cause.Error())
	}
}
