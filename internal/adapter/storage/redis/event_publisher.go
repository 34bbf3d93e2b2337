package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"emoney-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// EventPublisher implements ports.EventPublisher over Redis pub/sub.
// Delivery is fire-and-forget: subscribers that miss a message recover from
// the Postgres journal.
type EventPublisher struct {
	client  *goredis.Client
	channel string
}

// NewEventPublisher creates a new Redis event publisher on the given channel.
func NewEventPublisher(client *goredis.Client, channel string) *EventPublisher {
	return &EventPublisher{
		client:  client,
		channel: channel,
	}
}

// Publish serializes the event and publishes it to the channel.
func (p *EventPublisher) Publish(ctx context.Context, event *domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
