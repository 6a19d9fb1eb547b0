package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/iho/bankledger/internal/domain"
)

func TestEventPublisherPublishesJSON(t *testing.T) {
	client, _ := newTestRedisClient(t)

	ctx := context.Background()
	sub := client.Subscribe(ctx, "ledger-events")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	pub := NewEventPublisher(client, "ledger-events")
	event := domain.LedgerEvent{
		OccurredAt: time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC),
		Type:       domain.EventTypeMovementCreated,
		AccountID:  "1",
		MovementID: "7",
		Kind:       "Deposit",
		Amount:     "50.00",
		Balance:    "150.00",
	}

	if err := pub.Publish(ctx, event); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got domain.LedgerEvent
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if got.Type != event.Type || got.MovementID != "7" || got.Balance != "150.00" || !got.OccurredAt.Equal(event.OccurredAt) {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}
