package eventpublisher

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/domain"
)

type stubSink struct {
	mu        sync.Mutex
	published []domain.LedgerEvent
	errByType map[string]error
}

func (s *stubSink) Publish(_ context.Context, event domain.LedgerEvent) error {
	if err := s.errByType[event.Type]; err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, event)
	return nil
}

func (s *stubSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}

func TestDispatcherDeliversQueuedEvents(t *testing.T) {
	sink := &stubSink{
		errByType: map[string]error{domain.EventTypeReconciliationFailed: errors.New("fail")},
	}
	d := NewDispatcher(Config{Sink: sink, Logger: zerolog.Nop(), Buffer: 4})

	for _, typ := range []string{domain.EventTypeMovementCreated, domain.EventTypeReconciliationFailed, domain.EventTypeMovementDeleted} {
		if err := d.Publish(context.Background(), domain.LedgerEvent{Type: typ, AccountID: "1"}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	deadline := time.After(time.Second)
	for sink.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected two delivered events, got %d", sink.count())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestDispatcherPublishDoesNotBlockWhenFull(t *testing.T) {
	dropped := 0
	d := NewDispatcher(Config{Sink: &stubSink{}, Logger: zerolog.Nop(), Buffer: 1, OnDrop: func() { dropped++ }})

	if err := d.Publish(context.Background(), domain.LedgerEvent{Type: "a"}); err != nil {
		t.Fatalf("first publish failed: %v", err)
	}
	if err := d.Publish(context.Background(), domain.LedgerEvent{Type: "b"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if dropped != 1 {
		t.Fatalf("expected one dropped event, got %d", dropped)
	}
}

func TestDispatcherFlushesOnShutdown(t *testing.T) {
	sink := &stubSink{}
	d := NewDispatcher(Config{Sink: sink, Logger: zerolog.Nop()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for range 3 {
		_ = d.Publish(context.Background(), domain.LedgerEvent{Type: domain.EventTypeMovementCreated})
	}

	if err := d.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if sink.count() != 3 {
		t.Fatalf("expected buffered events to be flushed, got %d", sink.count())
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))

	err := p.Publish(context.Background(), domain.LedgerEvent{
		Type:      domain.EventTypeBalanceReconciled,
		AccountID: "1",
		Balance:   "10.00",
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"event_type":"account.balance_reconciled"`) || !strings.Contains(out, `"balance":"10.00"`) {
		t.Fatalf("unexpected log output: %s", out)
	}
}
