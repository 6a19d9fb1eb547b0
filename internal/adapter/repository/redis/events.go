package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/iho/bankledger/internal/domain"
)

// EventPublisher publishes ledger events as JSON on a Redis channel.
type EventPublisher struct {
	client  *redis.Client
	channel string
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(client *redis.Client, channel string) *EventPublisher {
	return &EventPublisher{client: client, channel: channel}
}

// Publish sends the event to subscribers of the channel.
func (p *EventPublisher) Publish(ctx context.Context, event domain.LedgerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}
