package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/stockroom-backend/pkg/logger"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

type eventBus interface {
	Publish(ctx context.Context, channel string, payload any) error
	EventChannel(tenantID string) string
}

// RedisPublisher fans events out through Redis so every API replica's hub
// receives them.
type RedisPublisher struct {
	bus eventBus
}

func NewRedisPublisher(bus eventBus) *RedisPublisher {
	return &RedisPublisher{bus: bus}
}

func (p *RedisPublisher) Publish(ctx context.Context, tenantID uuid.UUID, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode live event: %w", err)
	}
	if err := p.bus.Publish(ctx, p.bus.EventChannel(tenantID.String()), string(payload)); err != nil {
		return fmt.Errorf("publish live event: %w", err)
	}
	return nil
}

type eventSource interface {
	PSubscribe(ctx context.Context, patterns ...string) (*goredis.PubSub, error)
	EventPattern() string
	TenantFromEventChannel(channel string) (string, bool)
}

// Relay reads tenant event channels from Redis and broadcasts each message to
// the local hub.
type Relay struct {
	source eventSource
	hub    *Hub
	logg   *logger.Logger
}

func NewRelay(source eventSource, hub *Hub, logg *logger.Logger) *Relay {
	return &Relay{source: source, hub: hub, logg: logg}
}

// Run blocks until ctx is cancelled or the subscription closes.
func (r *Relay) Run(ctx context.Context) error {
	sub, err := r.source.PSubscribe(ctx, r.source.EventPattern())
	if err != nil {
		return fmt.Errorf("subscribe live events: %w", err)
	}
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("confirm live event subscription: %w", err)
	}
	if r.logg != nil {
		r.logg.Info(ctx, "live event relay subscribed")
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(ctx, msg.Channel, msg.Payload)
		}
	}
}

// handle returns the number of local subscribers reached.
func (r *Relay) handle(ctx context.Context, channel, payload string) int {
	raw, ok := r.source.TenantFromEventChannel(channel)
	if !ok {
		r.warn(ctx, "live event on unexpected channel "+channel)
		return 0
	}
	tenantID, err := uuid.Parse(raw)
	if err != nil {
		r.warn(ctx, "live event channel carries invalid tenant id "+raw)
		return 0
	}
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		r.warn(ctx, "discarding undecodable live event: "+err.Error())
		return 0
	}
	return r.hub.Broadcast(ctx, tenantID, event)
}

func (r *Relay) warn(ctx context.Context, msg string) {
	if r.logg != nil {
		r.logg.Warn(ctx, msg)
	}
}
